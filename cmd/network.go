package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/networks"
	"github.com/tranvictor/medchain/wallet"
)

var (
	NetworkConfig string
	NetworkForce  bool
)

var addNetworkCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new network to the networks medchain knows",
	Long: `--json flag takes a network config json filepath OR a json string. The json should be in the following format:
	{
		"name": "network_name",
		"alternative_names": ["alternative_name_1", "alternative_name_2"],
		"chain_id": 1337,
		"native_token_symbol": "ETH",
		"native_token_decimal": 18,
		"block_time": 2,
		"node_variable_name": "MEDCHAIN_MY_NODE",
		"default_nodes": {
			"node_name_1": "node_url_1"
		},
		"block_explorer_urls": ["https://explorer.example.org"]
	}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		newNetwork, err := readNetworkConfig(strings.TrimSpace(NetworkConfig))
		if err != nil {
			return err
		}
		registry := networks.NewRegistry(cfg.NetworksDir())

		names := append([]string{newNetwork.GetName()}, newNetwork.GetAlternativeNames()...)
		for _, name := range names {
			if _, err := registry.GetNetwork(name); err == nil {
				if !NetworkForce {
					return fmt.Errorf("network with name %s already exists, use --force to replace it", name)
				}
				appUI.Warn("Network with name %s already exists. It will be replaced.", name)
			}
		}
		if err := newNetwork.Descriptor().Validate(); err != nil {
			return err
		}
		if err := registry.AddNetwork(newNetwork); err != nil {
			return fmt.Errorf("failed to add the new network: %w", err)
		}
		appUI.Success("Network %s with chain ID %d added and saved to %s.", newNetwork.GetName(), newNetwork.GetChainID(), cfg.NetworksDir())
		return nil
	},
}

func readNetworkConfig(config string) (networks.Network, error) {
	if config == "" {
		return nil, errors.New("pass the network json or a path to it with --json")
	}
	if strings.HasPrefix(config, "{") && strings.HasSuffix(config, "}") {
		n, err := networks.NewNetworkFromJSON([]byte(config))
		if err != nil {
			return nil, fmt.Errorf("the provided json is not valid: %w", err)
		}
		return n, nil
	}
	content, err := os.ReadFile(config)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the provided json file: %w", err)
	}
	n, err := networks.NewNetworkFromJSON(content)
	if err != nil {
		return nil, fmt.Errorf("the provided json is not a valid network config: %w", err)
	}
	return n, nil
}

var listNetworkCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all of supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := networks.NewRegistry(cfg.NetworksDir())
		for i, n := range registry.GetSupportedNetworks() {
			marker := ""
			if n.GetChainID() == cfg.ChainID {
				marker = " (MedChain)"
			}
			appUI.Info("%d. %s, chain ID %d%s", i+1, n.GetName(), n.GetChainID(), marker)
			u := appUI.Indent()
			nodes := networks.GetNodes(n)
			names := make([]string, 0, len(nodes))
			for name := range nodes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				u.Info("- %s: %s", name, nodes[name])
			}
		}
		appUI.Info("")
		appUI.Info("To add more networks: medchain network add --json <file>")
		appUI.Info("To delete a custom network, delete its json file in %s.", cfg.NetworksDir())
		return nil
	},
}

var switchNetworkCmd = &cobra.Command{
	Use:   "switch [network]",
	Short: "Move the wallet to another network, MedChain's network by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			target, err := a.registry.GetNetworkByID(cfg.ChainID)
			if len(args) > 0 {
				target, err = a.registry.GetNetwork(args[0])
			}
			if err != nil {
				return err
			}
			if err := switchTo(ctx, a, target); err != nil {
				return err
			}
			appUI.Success("Wallet is on %s (chain %d)", target.GetName(), target.GetChainID())
			if target.GetChainID() != cfg.ChainID {
				appUI.Warn("MedChain is deployed on chain %d, contract commands won't work here", cfg.ChainID)
			}
			return nil
		})
	},
}

// switchTo asks the wallet to move to n and, when the wallet doesn't know
// the chain yet, adds it and asks again.
func switchTo(ctx context.Context, a *app, n networks.Network) error {
	err := a.manager.SwitchNetwork(ctx, n.GetChainID())
	if !wallet.IsUnknownChain(err) {
		return err
	}
	appUI.Info("Wallet doesn't know %s yet, adding it", n.GetName())
	if err := a.manager.AddNetwork(ctx, n.Descriptor()); err != nil {
		return fmt.Errorf("%w: %w", wallet.ErrNetworkAddFailed, err)
	}
	return a.manager.SwitchNetwork(ctx, n.GetChainID())
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage the networks medchain and the wallet use",
}

func init() {
	addNetworkCmd.Flags().StringVarP(&NetworkConfig, "json", "j", "", "Path to the network config json file or the json itself")
	addNetworkCmd.Flags().BoolVarP(&NetworkForce, "force", "f", false, "Replace the network if it already exists")

	networkCmd.AddCommand(listNetworkCmd)
	networkCmd.AddCommand(addNetworkCmd)
	networkCmd.AddCommand(switchNetworkCmd)
	rootCmd.AddCommand(networkCmd)
}
