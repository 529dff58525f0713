package wallet

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvictor/medchain/networks"
	"github.com/tranvictor/medchain/storage"
)

type scriptedPrompter struct {
	choices []int
	secrets []string
	asked   int
}

func (p *scriptedPrompter) Choose(prompt string, options []string) int {
	c := p.choices[0]
	p.choices = p.choices[1:]
	return c
}

func (p *scriptedPrompter) Secret(prompt string) string {
	p.asked++
	s := p.secrets[0]
	p.secrets = p.secrets[1:]
	return s
}

func newTestKeystoreWallet(t *testing.T, prompter Prompter, keys ...string) (*KeystoreWallet, storage.Store) {
	t.Helper()
	ks := NewKeyStore(t.TempDir(), true)
	for _, k := range keys {
		_, err := ImportKey(ks, k, "secret")
		require.NoError(t, err)
	}
	store := storage.NewMemoryStore()
	registry := networks.NewRegistry(t.TempDir())
	return NewKeystoreWallet(ks, store, registry, networks.HardhatLocalhost, prompter), store
}

func TestImportKeyHardhatAccount(t *testing.T) {
	ks := NewKeyStore(t.TempDir(), true)
	acc, err := ImportKey(ks, "0x"+HardhatDevKeys[0], "secret")
	require.NoError(t, err)
	assert.Equal(t, alice, acc.Address)

	again, err := ImportKey(ks, HardhatDevKeys[0], "other")
	require.NoError(t, err)
	assert.Equal(t, acc.Address, again.Address)
	assert.Len(t, ks.Accounts(), 1)

	_, err = ImportKey(ks, "not a key", "secret")
	assert.Error(t, err)
}

func TestRequestAccountsGrantsChosenAccount(t *testing.T) {
	prompter := &scriptedPrompter{choices: []int{0}, secrets: []string{"secret"}}
	w, store := newTestKeystoreWallet(t, prompter, HardhatDevKeys[0])

	events := make(chan Event, 4)
	sub := w.Subscribe(events)
	defer sub.Unsubscribe()

	var accounts []common.Address
	require.NoError(t, w.Request(context.Background(), &accounts, "eth_requestAccounts"))
	assert.Equal(t, []common.Address{alice}, accounts)

	select {
	case ev := <-events:
		assert.Equal(t, EventAccountsChanged, ev.Kind)
		assert.Equal(t, []common.Address{alice}, ev.Accounts)
	case <-time.After(time.Second):
		t.Fatalf("accountsChanged was not emitted")
	}

	_, found := store.Get(PermissionsKey)
	assert.True(t, found)

	// granted accounts are returned without prompting again
	accounts = nil
	require.NoError(t, w.Request(context.Background(), &accounts, "eth_accounts"))
	assert.Equal(t, []common.Address{alice}, accounts)
	require.NoError(t, w.Request(context.Background(), &accounts, "eth_requestAccounts"))
	assert.Equal(t, 1, prompter.asked)
}

func TestRequestAccountsCancelled(t *testing.T) {
	prompter := &scriptedPrompter{choices: []int{1}}
	w, _ := newTestKeystoreWallet(t, prompter, HardhatDevKeys[0])

	err := w.Request(context.Background(), nil, "eth_requestAccounts")
	assert.True(t, IsUserRejected(err))

	var accounts []common.Address
	require.NoError(t, w.Request(context.Background(), &accounts, "eth_accounts"))
	assert.Empty(t, accounts)
}

func TestRequestAccountsWrongPassphrase(t *testing.T) {
	prompter := &scriptedPrompter{choices: []int{0}, secrets: []string{"wrong"}}
	w, store := newTestKeystoreWallet(t, prompter, HardhatDevKeys[0])

	err := w.Request(context.Background(), nil, "eth_requestAccounts")
	assert.True(t, IsUserRejected(err))
	_, found := store.Get(PermissionsKey)
	assert.False(t, found)
}

func TestRequestAccountsEmptyKeystore(t *testing.T) {
	w, _ := newTestKeystoreWallet(t, &scriptedPrompter{})

	var accounts []common.Address
	require.NoError(t, w.Request(context.Background(), &accounts, "eth_requestAccounts"))
	assert.Empty(t, accounts)
}

func TestSwitchChain(t *testing.T) {
	w, store := newTestKeystoreWallet(t, &scriptedPrompter{})

	var chainID hexutil.Uint64
	require.NoError(t, w.Request(context.Background(), &chainID, "eth_chainId"))
	assert.Equal(t, hexutil.Uint64(networks.HardhatChainID), chainID)

	events := make(chan Event, 4)
	sub := w.Subscribe(events)
	defer sub.Unsubscribe()

	err := w.Request(context.Background(), nil, "wallet_switchEthereumChain", networks.SwitchChainParams{ChainID: 97})
	require.NoError(t, err)
	ev := <-events
	assert.Equal(t, EventChainChanged, ev.Kind)
	assert.Equal(t, uint64(97), ev.ChainID)

	name, _ := store.Get(NetworkKey)
	assert.Equal(t, networks.BSCTestnet.GetName(), name)
	assert.Equal(t, uint64(97), w.Network().GetChainID())

	err = w.Request(context.Background(), nil, "wallet_switchEthereumChain", map[string]string{"chainId": "0x539"})
	assert.True(t, IsUnknownChain(err))
}

func TestAddChainRegistersAndSwitches(t *testing.T) {
	w, _ := newTestKeystoreWallet(t, &scriptedPrompter{})

	d := networks.ChainDescriptor{
		ChainID:        1337,
		ChainName:      "Ganache Local",
		RPCURLs:        []string{"http://127.0.0.1:7545"},
		NativeCurrency: networks.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
	}
	require.NoError(t, w.Request(context.Background(), nil, "wallet_addEthereumChain", d))
	assert.Equal(t, uint64(1337), w.Network().GetChainID())
	assert.Equal(t, "ganache-local", w.Network().GetName())

	err := w.Request(context.Background(), nil, "wallet_addEthereumChain", networks.ChainDescriptor{ChainID: 5})
	assert.Equal(t, CodeInvalidParams, ErrorCode(err))
}

func TestTransactorUnlocksLockedAccount(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"secret"}}
	w, _ := newTestKeystoreWallet(t, prompter, HardhatDevKeys[0])

	opts, err := w.Transactor(context.Background(), alice, big.NewInt(int64(networks.HardhatChainID)))
	require.NoError(t, err)
	assert.Equal(t, alice, opts.From)
	assert.Equal(t, 1, prompter.asked)

	_, err = w.Transactor(context.Background(), bob, big.NewInt(int64(networks.HardhatChainID)))
	assert.Error(t, err)
}

func TestManagerOverKeystoreWallet(t *testing.T) {
	prompter := &scriptedPrompter{choices: []int{0}, secrets: []string{"secret"}}
	w, _ := newTestKeystoreWallet(t, prompter, HardhatDevKeys[0])
	m := newTestManager(t, w)

	addr, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, addr)
	assert.Equal(t, networks.HardhatChainID, m.Connection().ChainID)
}
