package networks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Insert more Network implementation here to support
// more chains
var supportedNetworks = []Network{
	HardhatLocalhost,
	BSCTestnet,
}

var ErrNetworkNotFound = fmt.Errorf("network not found")

// Registry holds the built-in networks plus the custom ones stored as json
// files in customDir.
type Registry struct {
	mu           sync.RWMutex
	customDir    string
	networks     map[string]Network
	networksByID map[uint64]Network
}

// NewRegistry builds a registry from the built-in networks and the custom
// networks found in customDir. An empty customDir disables custom networks.
func NewRegistry(customDir string) *Registry {
	result := &Registry{
		customDir:    customDir,
		networks:     map[string]Network{},
		networksByID: map[uint64]Network{},
	}
	for _, n := range supportedNetworks {
		if err := result.register(n, false); err != nil {
			panic(err)
		}
	}

	if customDir == "" {
		return result
	}

	customNetworks, err := loadCustomNetworks(customDir)
	if err != nil {
		log.Warn("Failed to load custom networks, continue with built-in networks", "dir", customDir, "err", err)
		return result
	}
	for _, n := range customNetworks {
		if _, found := result.networks[n.GetName()]; found {
			log.Info("Custom network overrides an existing one", "name", n.GetName())
		}
		// custom networks win over built-in ones
		if err := result.register(n, true); err != nil {
			log.Warn("Ignored custom network", "name", n.GetName(), "err", err)
		}
	}
	return result
}

func (r *Registry) register(n Network, replace bool) error {
	names := append([]string{n.GetName()}, n.GetAlternativeNames()...)
	if !replace {
		for _, name := range names {
			if _, found := r.networks[name]; found {
				return fmt.Errorf("network with name or alternative name of '%s' already exists", name)
			}
		}
	}
	for _, name := range names {
		r.networks[name] = n
	}
	r.networksByID[n.GetChainID()] = n
	return nil
}

func (r *Registry) GetNetwork(name string) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, found := r.networks[name]
	if !found {
		return nil, fmt.Errorf("network name '%s': %w", name, ErrNetworkNotFound)
	}
	return res, nil
}

func (r *Registry) GetNetworkByID(id uint64) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, found := r.networksByID[id]
	if !found {
		return nil, fmt.Errorf("network id %d: %w", id, ErrNetworkNotFound)
	}
	return res, nil
}

// GetSupportedNetworks returns every distinct network ordered by chain id.
func (r *Registry) GetSupportedNetworks() []Network {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := []Network{}
	for _, n := range r.networksByID {
		res = append(res, n)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].GetChainID() < res[j].GetChainID()
	})
	return res
}

func (r *Registry) GetSupportedNetworkNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := []string{}
	for name := range r.networks {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// AddNetwork registers the network and stores it to the custom network dir
// so later runs pick it up.
func (r *Registry) AddNetwork(network Network) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.register(network, true); err != nil {
		return err
	}
	if r.customDir == "" {
		return nil
	}

	if err := os.MkdirAll(r.customDir, 0755); err != nil {
		return fmt.Errorf("failed to create custom network dir: %w", err)
	}
	content, err := network.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal network: %w", err)
	}
	err = os.WriteFile(filepath.Join(r.customDir, fmt.Sprintf("%s.json", network.GetName())), content, 0644)
	if err != nil {
		return fmt.Errorf("failed to write the new network to file: %w", err)
	}
	return nil
}

func loadCustomNetworks(dir string) ([]Network, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob json files in %s: %w", dir, err)
	}

	networks := []Network{}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", file, err)
		}

		network, err := NewNetworkFromJSON(content)
		if err != nil {
			log.Warn("Failed to parse custom network, skipped", "file", file, "err", err)
			continue
		}
		networks = append(networks, network)
	}
	return networks, nil
}

func NewNetworkFromJSON(content []byte) (Network, error) {
	networkConfig := GenericNetworkConfig{}
	err := json.Unmarshal(content, &networkConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal network config: %w", err)
	}
	if networkConfig.Name == "" || networkConfig.ChainID == 0 {
		return nil, fmt.Errorf("network config needs a name and a chain id")
	}
	return NewGenericNetwork(networkConfig), nil
}
