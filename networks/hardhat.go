package networks

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const HardhatChainID uint64 = 31337

var HardhatLocalhost Network = NewHardhatLocalhost()

type hardhatLocalhost struct{}

func NewHardhatLocalhost() *hardhatLocalhost {
	return &hardhatLocalhost{}
}

func (self *hardhatLocalhost) GetName() string {
	return "localhost"
}

func (self *hardhatLocalhost) GetChainID() uint64 {
	return HardhatChainID
}

func (self *hardhatLocalhost) GetAlternativeNames() []string {
	return []string{"hardhat", "hardhat-localhost"}
}

func (self *hardhatLocalhost) GetNativeTokenName() string {
	return "Ethereum"
}

func (self *hardhatLocalhost) GetNativeTokenSymbol() string {
	return "ETH"
}

func (self *hardhatLocalhost) GetNativeTokenDecimal() uint64 {
	return 18
}

func (self *hardhatLocalhost) GetBlockTime() time.Duration {
	return time.Second
}

func (self *hardhatLocalhost) GetNodeVariableName() string {
	return "MEDCHAIN_LOCALHOST_NODE"
}

func (self *hardhatLocalhost) GetDefaultNodes() map[string]string {
	return map[string]string{
		"hardhat": "http://127.0.0.1:8545",
	}
}

func (self *hardhatLocalhost) GetBlockExplorerURLs() []string {
	return []string{}
}

func (self *hardhatLocalhost) Descriptor() ChainDescriptor {
	return ChainDescriptor{
		ChainID:   hexutil.Uint64(HardhatChainID),
		ChainName: "Hardhat Localhost",
		RPCURLs:   []string{"http://127.0.0.1:8545"},
		NativeCurrency: NativeCurrency{
			Name:     "Ethereum",
			Symbol:   "ETH",
			Decimals: 18,
		},
		BlockExplorerURLs: []string{},
	}
}

func (self *hardhatLocalhost) MarshalJSON() ([]byte, error) {
	return json.Marshal(configOf(self))
}
