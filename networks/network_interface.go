package networks

import (
	"time"
)

type Network interface {
	GetName() string
	GetChainID() uint64
	GetAlternativeNames() []string
	GetNativeTokenName() string
	GetNativeTokenSymbol() string
	GetNativeTokenDecimal() uint64
	GetBlockTime() time.Duration // in second

	GetNodeVariableName() string
	GetDefaultNodes() map[string]string
	GetBlockExplorerURLs() []string

	// Descriptor is the EIP-3085 shape wallets use to add the network.
	Descriptor() ChainDescriptor
	MarshalJSON() ([]byte, error)
}
