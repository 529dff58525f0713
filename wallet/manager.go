package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tranvictor/medchain/networks"
)

// Manager owns the wallet connection: which account is connected, on which
// chain, and it keeps that view in sync with the provider's own events.
//
// A Manager subscribes to its provider when it is created. Close must be
// called to release that subscription.
type Manager struct {
	provider   Provider
	chainID    uint64
	descriptor networks.ChainDescriptor

	mu   sync.Mutex
	conn Connection
	// version counts connection writes and wallet events
	version uint64

	changes event.Feed

	sub       event.Subscription
	events    chan Event
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a Manager for provider that only accepts the given
// network. provider may be nil, which models a machine without a wallet:
// every Connect then fails with ErrWalletUnavailable.
func NewManager(provider Provider, supported networks.Network) *Manager {
	m := &Manager{
		provider:   provider,
		chainID:    supported.GetChainID(),
		descriptor: supported.Descriptor(),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if provider == nil {
		close(m.done)
		return m
	}
	m.events = make(chan Event, 16)
	m.sub = provider.Subscribe(m.events)
	go m.loop()
	return m
}

// Open creates a Manager and restores an already authorized connection. The
// provider subscription is released when restoring fails.
func Open(ctx context.Context, provider Provider, supported networks.Network) (m *Manager, err error) {
	m = NewManager(provider, supported)
	defer func() {
		if err != nil {
			m.Close()
		}
	}()
	if _, err = m.CheckExistingConnection(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Close unsubscribes from the provider and waits for the event loop to
// exit. It is safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.sub != nil {
			close(m.quit)
			m.sub.Unsubscribe()
		}
		<-m.done
	})
}

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case ev := <-m.events:
			m.handleEvent(ev)
		case err, ok := <-m.sub.Err():
			if ok && err != nil {
				log.Warn("Wallet event subscription failed", "err", err)
			}
			return
		case <-m.quit:
			return
		}
	}
}

func (m *Manager) handleEvent(ev Event) {
	log.Debug("Wallet event", "kind", ev.Kind, "accounts", len(ev.Accounts), "chain", ev.ChainID)

	m.mu.Lock()
	m.version++
	var (
		changed bool
		reload  bool
	)
	switch ev.Kind {
	case EventAccountsChanged:
		switch {
		case len(ev.Accounts) == 0:
			changed = m.conn.State != Disconnected
			m.conn = Connection{}
		case m.conn.State == Connected && ev.Accounts[0] != m.conn.Address:
			m.conn.Address = ev.Accounts[0]
			changed = true
		}
	case EventChainChanged:
		switch m.conn.State {
		case Connecting:
			// Connect is switching networks itself and reads the chain
			// id again once it is done.
			m.conn.ChainID = ev.ChainID
		case Connected:
			if ev.ChainID != m.conn.ChainID {
				m.conn = Connection{}
				changed, reload = true, true
			}
		}
	case EventDisconnect:
		changed = m.conn.State != Disconnected
		m.conn = Connection{}
	}
	conn := m.conn
	m.mu.Unlock()

	if changed {
		if reload {
			log.Info("Wallet switched chain, chain specific state must be reloaded", "chain", ev.ChainID)
		}
		m.changes.Send(Change{Connection: conn, Reload: reload})
	}
}

// SubscribeChanges delivers a Change after every connection transition.
func (m *Manager) SubscribeChanges(ch chan<- Change) event.Subscription {
	return m.changes.Subscribe(ch)
}

func (m *Manager) Connection() Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *Manager) SupportedChainID() uint64 {
	return m.chainID
}

func (m *Manager) HasProvider() bool {
	return m.provider != nil
}

func (m *Manager) set(conn Connection) {
	m.mu.Lock()
	m.version++
	m.conn = conn
	m.mu.Unlock()
	m.changes.Send(Change{Connection: conn})
}

// CheckExistingConnection adopts an account the wallet already authorized
// without prompting the user. Finding none is not an error. A wallet event
// or connection change that lands while the wallet is being asked wins over
// the answer.
func (m *Manager) CheckExistingConnection(ctx context.Context) (Connection, error) {
	if m.provider == nil {
		log.Debug("No wallet provider, skipped connection check")
		return m.Connection(), nil
	}
	m.mu.Lock()
	start := m.version
	m.mu.Unlock()

	var accounts []common.Address
	if err := m.provider.Request(ctx, &accounts, "eth_accounts"); err != nil {
		return m.Connection(), fmt.Errorf("couldn't read authorized accounts: %w", err)
	}
	if len(accounts) == 0 {
		log.Debug("No existing wallet connection")
		return m.Connection(), nil
	}
	chainID, err := m.readChainID(ctx)
	if err != nil {
		return m.Connection(), err
	}
	conn := Connection{State: Connected, Address: accounts[0], ChainID: chainID}
	m.mu.Lock()
	if m.version != start {
		current := m.conn
		m.mu.Unlock()
		log.Debug("Wallet changed during connection check, kept the newer state", "state", current.State)
		return current, nil
	}
	m.version++
	m.conn = conn
	m.mu.Unlock()
	m.changes.Send(Change{Connection: conn})
	log.Info("Restored wallet connection", "address", conn.Address, "chain", chainID)
	return conn, nil
}

// Connect asks the wallet for account access and makes sure it is on the
// supported network, switching or adding the network when needed. On any
// failure the connection stays Disconnected.
func (m *Manager) Connect(ctx context.Context) (common.Address, error) {
	if m.provider == nil {
		return common.Address{}, ErrWalletUnavailable
	}
	m.set(Connection{State: Connecting})

	addr, chainID, err := m.connect(ctx)
	if err != nil {
		log.Warn("Wallet connection failed", "err", err)
		m.set(Connection{})
		return common.Address{}, err
	}
	m.set(Connection{State: Connected, Address: addr, ChainID: chainID})
	log.Info("Wallet connected", "address", addr, "chain", chainID)
	return addr, nil
}

func (m *Manager) connect(ctx context.Context) (common.Address, uint64, error) {
	var accounts []common.Address
	if err := m.provider.Request(ctx, &accounts, "eth_requestAccounts"); err != nil {
		if IsUserRejected(err) {
			return common.Address{}, 0, fmt.Errorf("%w: %w", ErrNoAccountsGranted, err)
		}
		return common.Address{}, 0, fmt.Errorf("couldn't request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, 0, ErrNoAccountsGranted
	}

	chainID, err := m.readChainID(ctx)
	if err != nil {
		return common.Address{}, 0, err
	}
	if chainID == m.chainID {
		return accounts[0], chainID, nil
	}

	log.Info("Wallet is on another network, switching", "current", chainID, "supported", m.chainID)
	if err := m.SwitchNetwork(ctx, m.chainID); err != nil {
		if !IsUnknownChain(err) {
			return common.Address{}, 0, fmt.Errorf("%w: %w", ErrWrongNetwork, err)
		}
		log.Info("Wallet doesn't know the network, adding it", "chain", m.descriptor.ChainName)
		if err := m.AddNetwork(ctx, m.descriptor); err != nil {
			return common.Address{}, 0, fmt.Errorf("%w: %w", ErrNetworkAddFailed, err)
		}
	}

	chainID, err = m.readChainID(ctx)
	if err != nil {
		return common.Address{}, 0, err
	}
	if chainID != m.chainID {
		return common.Address{}, 0, fmt.Errorf("%w: chain %d, expected %d", ErrWrongNetwork, chainID, m.chainID)
	}
	return accounts[0], chainID, nil
}

// Disconnect forgets the connection locally. Wallets offer no way to revoke
// the permission, so the next CheckExistingConnection may restore it.
func (m *Manager) Disconnect() {
	m.set(Connection{})
	log.Info("Wallet disconnected")
}

func (m *Manager) SwitchNetwork(ctx context.Context, chainID uint64) error {
	if m.provider == nil {
		return ErrWalletUnavailable
	}
	return m.provider.Request(ctx, nil, "wallet_switchEthereumChain", networks.SwitchChainParams{
		ChainID: hexutil.Uint64(chainID),
	})
}

func (m *Manager) AddNetwork(ctx context.Context, descriptor networks.ChainDescriptor) error {
	if m.provider == nil {
		return ErrWalletUnavailable
	}
	return m.provider.Request(ctx, nil, "wallet_addEthereumChain", descriptor)
}

func (m *Manager) readChainID(ctx context.Context) (uint64, error) {
	var chainID hexutil.Uint64
	if err := m.provider.Request(ctx, &chainID, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("couldn't read the wallet network: %w", err)
	}
	return uint64(chainID), nil
}

// Balance returns the native token balance of the connected account.
func (m *Manager) Balance(ctx context.Context) (*big.Int, error) {
	conn := m.Connection()
	if !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	var balance hexutil.Big
	if err := m.provider.Request(ctx, &balance, "eth_getBalance", conn.Address, "latest"); err != nil {
		return nil, fmt.Errorf("couldn't read balance: %w", err)
	}
	return balance.ToInt(), nil
}

// Backend returns the chain backend of the provider.
func (m *Manager) Backend(ctx context.Context) (ChainBackend, error) {
	bp, ok := m.provider.(BackendProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider has no chain backend", ErrWalletUnavailable)
	}
	return bp.ChainBackend(ctx)
}

// Transactor returns signing options for the connected account.
func (m *Manager) Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	conn := m.Connection()
	if !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	tp, ok := m.provider.(TransactorProvider)
	if !ok {
		return nil, errors.New("provider can't sign transactions")
	}
	return tp.Transactor(ctx, conn.Address, chainID)
}
