package networks

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// GetNodes returns the network's default nodes plus the node set through
// its environment variable, keyed by node name.
func GetNodes(n Network) map[string]string {
	nodes := map[string]string{}
	for name, url := range n.GetDefaultNodes() {
		nodes[name] = url
	}
	if n.GetNodeVariableName() != "" {
		customNode := strings.Trim(os.Getenv(n.GetNodeVariableName()), " ")
		if customNode != "" {
			nodes["custom-node"] = customNode
		}
	}
	return nodes
}

// PreferredNode picks the node to dial: the env var node when set, otherwise
// the first default node by name.
func PreferredNode(n Network) (name string, url string, err error) {
	nodes := GetNodes(n)
	if url, found := nodes["custom-node"]; found {
		return "custom-node", url, nil
	}
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", "", fmt.Errorf("network %s has no node, set %s", n.GetName(), n.GetNodeVariableName())
	}
	sort.Strings(names)
	return names[0], nodes[names[0]], nil
}
