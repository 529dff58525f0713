package networks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinNetworks(t *testing.T) {
	r := NewRegistry("")

	n, err := r.GetNetwork("hardhat")
	require.NoError(t, err)
	assert.Equal(t, HardhatChainID, n.GetChainID())

	byID, err := r.GetNetworkByID(31337)
	require.NoError(t, err)
	assert.Equal(t, "localhost", byID.GetName())

	_, err = r.GetNetworkByID(5)
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}

func TestHardhatDescriptorWireFormat(t *testing.T) {
	content, err := json.Marshal(HardhatLocalhost.Descriptor())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, "0x7a69", decoded["chainId"])
	assert.Equal(t, "Hardhat Localhost", decoded["chainName"])
	assert.Equal(t, []interface{}{"http://127.0.0.1:8545"}, decoded["rpcUrls"])
}

func TestAddNetworkFromDescriptorIsPersisted(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	var d ChainDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{
		"chainId": "0x539",
		"chainName": "Ganache Local",
		"rpcUrls": ["http://127.0.0.1:7545"],
		"nativeCurrency": {"name": "Ether", "symbol": "ETH", "decimals": 18}
	}`), &d))

	n, err := NewNetworkFromDescriptor(d)
	require.NoError(t, err)
	require.NoError(t, r.AddNetwork(n))

	_, err = os.Stat(filepath.Join(dir, "ganache-local.json"))
	require.NoError(t, err)

	reloaded := NewRegistry(dir)
	got, err := reloaded.GetNetworkByID(1337)
	require.NoError(t, err)
	assert.Equal(t, "ganache-local", got.GetName())
	assert.Equal(t, "Ganache Local", got.Descriptor().ChainName)
}

func TestInvalidDescriptor(t *testing.T) {
	_, err := NewNetworkFromDescriptor(ChainDescriptor{ChainName: "x"})
	assert.Error(t, err)
}

func TestPreferredNodeHonoursEnv(t *testing.T) {
	t.Setenv(HardhatLocalhost.GetNodeVariableName(), "http://10.0.0.2:8545")
	name, url, err := PreferredNode(HardhatLocalhost)
	require.NoError(t, err)
	assert.Equal(t, "custom-node", name)
	assert.Equal(t, "http://10.0.0.2:8545", url)
}
