package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tranvictor/medchain/networks"
)

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// fakeProvider scripts the answers of a wallet and records the methods it
// was asked for.
type fakeProvider struct {
	mu        sync.Mutex
	accounts  []common.Address
	chainID   uint64
	known     map[uint64]bool
	rejectReq bool
	addErr    error
	switchErr error
	calls     []string
	feed      event.Feed
	// onChainID runs before eth_chainId is answered
	onChainID func()
}

func newFakeProvider(chainID uint64, accounts ...common.Address) *fakeProvider {
	return &fakeProvider{
		accounts: accounts,
		chainID:  chainID,
		known:    map[uint64]bool{chainID: true},
	}
}

func (p *fakeProvider) Subscribe(ch chan<- Event) event.Subscription {
	return p.feed.Subscribe(ch)
}

func (p *fakeProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, method)

	switch method {
	case "eth_accounts", "eth_requestAccounts":
		if method == "eth_requestAccounts" && p.rejectReq {
			return &RPCError{Code: CodeUserRejected, Message: "user rejected the request"}
		}
		return respond(result, p.accounts)
	case "eth_chainId":
		if p.onChainID != nil {
			p.onChainID()
		}
		return respond(result, hexutil.Uint64(p.chainID))
	case "wallet_switchEthereumChain":
		if p.switchErr != nil {
			return p.switchErr
		}
		id := uint64(params[0].(networks.SwitchChainParams).ChainID)
		if !p.known[id] {
			return &RPCError{Code: CodeChainNotAdded, Message: "unrecognized chain"}
		}
		p.chainID = id
		return nil
	case "wallet_addEthereumChain":
		if p.addErr != nil {
			return p.addErr
		}
		d := params[0].(networks.ChainDescriptor)
		p.known[uint64(d.ChainID)] = true
		p.chainID = uint64(d.ChainID)
		return nil
	case "eth_getBalance":
		return respond(result, (*hexutil.Big)(hexutil.MustDecodeBig("0xde0b6b3a7640000")))
	}
	return &RPCError{Code: CodeUnsupported, Message: "unsupported method " + method}
}

func (p *fakeProvider) count(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (p *fakeProvider) emit(ev Event) {
	p.feed.Send(ev)
}

func newTestManager(t *testing.T, p Provider) *Manager {
	t.Helper()
	m := NewManager(p, networks.HardhatLocalhost)
	t.Cleanup(m.Close)
	return m
}

func waitForChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("no connection change received")
	}
	return Change{}
}

func TestConnectWithoutProvider(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager(t, nil)
	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWalletUnavailable)
	assert.Equal(t, Disconnected, m.Connection().State)

	conn, err := m.CheckExistingConnection(context.Background())
	require.NoError(t, err)
	assert.False(t, conn.IsConnected())
}

func TestConnectOnSupportedChain(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	m := newTestManager(t, p)

	addr, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, addr)

	conn := m.Connection()
	assert.True(t, conn.IsConnected())
	assert.Equal(t, alice, conn.Address)
	assert.Equal(t, networks.HardhatChainID, conn.ChainID)
	assert.Zero(t, p.count("wallet_switchEthereumChain"))
}

func TestConnectRejected(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	p.rejectReq = true
	m := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoAccountsGranted)
	assert.True(t, IsUserRejected(err))
	assert.Equal(t, Disconnected, m.Connection().State)
}

func TestConnectEmptyGrant(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID)
	m := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoAccountsGranted)
	assert.False(t, m.Connection().IsConnected())
}

func TestConnectSwitchesKnownChain(t *testing.T) {
	p := newFakeProvider(1, alice)
	p.known[networks.HardhatChainID] = true
	m := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.count("wallet_switchEthereumChain"))
	assert.Zero(t, p.count("wallet_addEthereumChain"))
	assert.Equal(t, networks.HardhatChainID, m.Connection().ChainID)
}

func TestConnectAddsUnknownChainOnce(t *testing.T) {
	p := newFakeProvider(1, alice)
	m := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.count("wallet_switchEthereumChain"))
	assert.Equal(t, 1, p.count("wallet_addEthereumChain"))
	assert.True(t, m.Connection().IsConnected())
}

func TestConnectAddChainFails(t *testing.T) {
	p := newFakeProvider(1, alice)
	p.addErr = &RPCError{Code: CodeUserRejected, Message: "user rejected the request"}
	m := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNetworkAddFailed)
	assert.Equal(t, 1, p.count("wallet_addEthereumChain"))
	assert.Equal(t, Disconnected, m.Connection().State)
}

func TestConnectSwitchFails(t *testing.T) {
	p := newFakeProvider(1, alice)
	p.switchErr = &RPCError{Code: CodeUserRejected, Message: "user rejected the request"}
	m := newTestManager(t, p)

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWrongNetwork)
	assert.Zero(t, p.count("wallet_addEthereumChain"))
	assert.Equal(t, Disconnected, m.Connection().State)
}

func TestCheckExistingConnection(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID)
	m := newTestManager(t, p)

	conn, err := m.CheckExistingConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Disconnected, conn.State)

	p.accounts = []common.Address{bob, alice}
	conn, err = m.CheckExistingConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, conn.IsConnected())
	assert.Equal(t, bob, conn.Address)
	assert.Zero(t, p.count("eth_requestAccounts"))
}

func TestCheckExistingConnectionYieldsToWalletEvents(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	m := newTestManager(t, p)
	changes := make(chan Change, 4)
	sub := m.SubscribeChanges(changes)
	defer sub.Unsubscribe()

	// the user revokes every account between eth_accounts and eth_chainId
	p.onChainID = func() {
		m.mu.Lock()
		before := m.version
		m.mu.Unlock()
		p.emit(Event{Kind: EventAccountsChanged, Accounts: []common.Address{}})
		require.Eventually(t, func() bool {
			m.mu.Lock()
			defer m.mu.Unlock()
			return m.version != before
		}, 2*time.Second, 5*time.Millisecond)
	}

	conn, err := m.CheckExistingConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Disconnected, conn.State)
	assert.Equal(t, Disconnected, m.Connection().State)
	assert.Empty(t, changes)

	p.onChainID = nil
	conn, err = m.CheckExistingConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, conn.Address)
	assert.True(t, waitForChange(t, changes).Connection.IsConnected())
}

func TestAccountsChangedAdoptsFirstAccount(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	m := newTestManager(t, p)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	changes := make(chan Change, 4)
	sub := m.SubscribeChanges(changes)
	defer sub.Unsubscribe()

	p.emit(Event{Kind: EventAccountsChanged, Accounts: []common.Address{bob}})
	c := waitForChange(t, changes)
	assert.Equal(t, bob, c.Connection.Address)
	assert.True(t, c.Connection.IsConnected())
	assert.False(t, c.Reload)

	p.emit(Event{Kind: EventAccountsChanged, Accounts: []common.Address{}})
	c = waitForChange(t, changes)
	assert.Equal(t, Disconnected, c.Connection.State)
	assert.Equal(t, Disconnected, m.Connection().State)
}

func TestChainChangedRequestsReload(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	m := newTestManager(t, p)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	changes := make(chan Change, 4)
	sub := m.SubscribeChanges(changes)
	defer sub.Unsubscribe()

	p.emit(Event{Kind: EventChainChanged, ChainID: 97})
	c := waitForChange(t, changes)
	assert.True(t, c.Reload)
	assert.Equal(t, Disconnected, c.Connection.State)
}

func TestDisconnectEvent(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	m := newTestManager(t, p)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	changes := make(chan Change, 4)
	sub := m.SubscribeChanges(changes)
	defer sub.Unsubscribe()

	p.emit(Event{Kind: EventDisconnect, Err: errors.New("node went away")})
	c := waitForChange(t, changes)
	assert.Equal(t, Disconnected, c.Connection.State)
}

func TestDisconnectKeepsProviderGrant(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	m := newTestManager(t, p)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	m.Disconnect()
	assert.Equal(t, Disconnected, m.Connection().State)

	conn, err := m.CheckExistingConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, conn.Address)
}

func TestBalance(t *testing.T) {
	p := newFakeProvider(networks.HardhatChainID, alice)
	m := newTestManager(t, p)

	_, err := m.Balance(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = m.Connect(context.Background())
	require.NoError(t, err)
	balance, err := m.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())
}

func TestCloseStopsEventLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newFakeProvider(networks.HardhatChainID, alice)
	m := NewManager(p, networks.HardhatLocalhost)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	m.Close()
	m.Close()
}

type failingProvider struct {
	fakeProvider
}

func (p *failingProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	return &RPCError{Code: CodeDisconnected, Message: "provider is disconnected"}
}

func TestOpenReleasesSubscriptionOnFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, err := Open(context.Background(), &failingProvider{}, networks.HardhatLocalhost)
	assert.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, CodeDisconnected, ErrorCode(err))
}
