package networks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint64 `json:"decimals"`
}

// ChainDescriptor is the parameter object of wallet_addEthereumChain.
type ChainDescriptor struct {
	ChainID           hexutil.Uint64 `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// SwitchChainParams is the parameter object of wallet_switchEthereumChain.
type SwitchChainParams struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

func (d ChainDescriptor) Validate() error {
	if d.ChainID == 0 {
		return fmt.Errorf("chainId is required")
	}
	if strings.TrimSpace(d.ChainName) == "" {
		return fmt.Errorf("chainName is required")
	}
	if len(d.RPCURLs) == 0 {
		return fmt.Errorf("at least one rpc url is required")
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// NetworkName derives the registry name used for a network added through a
// descriptor, e.g. "Hardhat Localhost" becomes "hardhat-localhost".
func (d ChainDescriptor) NetworkName() string {
	name := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(d.ChainName), "-"), "-")
	if name == "" {
		return fmt.Sprintf("chain-%d", uint64(d.ChainID))
	}
	return name
}

func NewNetworkFromDescriptor(d ChainDescriptor) (Network, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain descriptor: %w", err)
	}
	nodes := map[string]string{}
	for i, url := range d.RPCURLs {
		nodes[fmt.Sprintf("rpc-%d", i+1)] = url
	}
	decimals := d.NativeCurrency.Decimals
	if decimals == 0 {
		decimals = 18
	}
	name := d.NetworkName()
	return NewGenericNetwork(GenericNetworkConfig{
		Name:               name,
		ChainID:            uint64(d.ChainID),
		NativeTokenName:    d.NativeCurrency.Name,
		NativeTokenSymbol:  d.NativeCurrency.Symbol,
		NativeTokenDecimal: decimals,
		BlockTime:          2,
		NodeVariableName:   strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_NODE",
		DefaultNodes:       nodes,
		BlockExplorerURLs:  d.BlockExplorerURLs,
		DisplayName:        d.ChainName,
	}), nil
}
