package networks

var BSCTestnet Network = NewGenericNetwork(GenericNetworkConfig{
	Name:               "bsc-test",
	DisplayName:        "BNB Smart Chain Testnet",
	AlternativeNames:   []string{"bnb-testnet"},
	ChainID:            97,
	NativeTokenName:    "tBNB",
	NativeTokenSymbol:  "tBNB",
	NativeTokenDecimal: 18,
	BlockTime:          3,
	NodeVariableName:   "BSC_TESTNET_NODE",
	DefaultNodes: map[string]string{
		"binance": "https://data-seed-prebsc-1-s1.binance.org:8545",
	},
	BlockExplorerURLs: []string{"https://testnet.bscscan.com"},
})
