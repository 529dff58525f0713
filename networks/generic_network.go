package networks

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type GenericNetworkConfig struct {
	Name               string            `json:"name"`
	DisplayName        string            `json:"display_name,omitempty"`
	AlternativeNames   []string          `json:"alternative_names"`
	ChainID            uint64            `json:"chain_id"`
	NativeTokenName    string            `json:"native_token_name"`
	NativeTokenSymbol  string            `json:"native_token_symbol"`
	NativeTokenDecimal uint64            `json:"native_token_decimal"`
	BlockTime          uint64            `json:"block_time"`
	NodeVariableName   string            `json:"node_variable_name"`
	DefaultNodes       map[string]string `json:"default_nodes"`
	BlockExplorerURLs  []string          `json:"block_explorer_urls"`
}

// GenericNetwork is a network fully described by its config, used for the
// networks users add themselves.
type GenericNetwork struct {
	config GenericNetworkConfig
}

func NewGenericNetwork(config GenericNetworkConfig) *GenericNetwork {
	return &GenericNetwork{config: config}
}

func (gn *GenericNetwork) GetName() string {
	return gn.config.Name
}

func (gn *GenericNetwork) GetChainID() uint64 {
	return gn.config.ChainID
}

func (gn *GenericNetwork) GetAlternativeNames() []string {
	return gn.config.AlternativeNames
}

func (gn *GenericNetwork) GetNativeTokenName() string {
	return gn.config.NativeTokenName
}

func (gn *GenericNetwork) GetNativeTokenSymbol() string {
	return gn.config.NativeTokenSymbol
}

func (gn *GenericNetwork) GetNativeTokenDecimal() uint64 {
	return gn.config.NativeTokenDecimal
}

func (gn *GenericNetwork) GetBlockTime() time.Duration {
	return time.Duration(gn.config.BlockTime) * time.Second
}

func (gn *GenericNetwork) GetNodeVariableName() string {
	return gn.config.NodeVariableName
}

func (gn *GenericNetwork) GetDefaultNodes() map[string]string {
	return gn.config.DefaultNodes
}

func (gn *GenericNetwork) GetBlockExplorerURLs() []string {
	return gn.config.BlockExplorerURLs
}

func (gn *GenericNetwork) Descriptor() ChainDescriptor {
	name := gn.config.DisplayName
	if name == "" {
		name = gn.config.Name
	}
	rpcs := []string{}
	for _, url := range gn.config.DefaultNodes {
		rpcs = append(rpcs, url)
	}
	return ChainDescriptor{
		ChainID:   hexutil.Uint64(gn.config.ChainID),
		ChainName: name,
		RPCURLs:   rpcs,
		NativeCurrency: NativeCurrency{
			Name:     gn.config.NativeTokenName,
			Symbol:   gn.config.NativeTokenSymbol,
			Decimals: gn.config.NativeTokenDecimal,
		},
		BlockExplorerURLs: gn.config.BlockExplorerURLs,
	}
}

func (gn *GenericNetwork) MarshalJSON() ([]byte, error) {
	return json.Marshal(gn.config)
}

func configOf(n Network) GenericNetworkConfig {
	return GenericNetworkConfig{
		Name:               n.GetName(),
		DisplayName:        n.Descriptor().ChainName,
		AlternativeNames:   n.GetAlternativeNames(),
		ChainID:            n.GetChainID(),
		NativeTokenName:    n.GetNativeTokenName(),
		NativeTokenSymbol:  n.GetNativeTokenSymbol(),
		NativeTokenDecimal: n.GetNativeTokenDecimal(),
		BlockTime:          uint64(n.GetBlockTime() / time.Second),
		NodeVariableName:   n.GetNodeVariableName(),
		DefaultNodes:       n.GetDefaultNodes(),
		BlockExplorerURLs:  n.GetBlockExplorerURLs(),
	}
}
