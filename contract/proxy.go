package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tranvictor/medchain/activity"
	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/wallet"
)

// Wallet is what the proxy needs from the wallet manager.
type Wallet interface {
	Connection() wallet.Connection
	Backend(ctx context.Context) (wallet.ChainBackend, error)
	Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// Recorder receives one entry per confirmed transaction.
type Recorder interface {
	Record(e activity.Entry) (activity.Entry, error)
}

type ChangeSource interface {
	SubscribeChanges(ch chan<- wallet.Change) event.Subscription
}

type Option func(*Proxy)

func WithRecorder(r Recorder) Option {
	return func(p *Proxy) {
		p.recorder = r
	}
}

// binding is one successful initialization: a bound contract for one
// account on one backend.
type binding struct {
	contract *bind.BoundContract
	backend  wallet.ChainBackend
	account  common.Address
	roles    map[auth.Role]common.Hash
}

// Proxy guards every MedChain call behind a connected wallet on the
// supported chain and a verified contract address.
type Proxy struct {
	wallet   Wallet
	address  common.Address
	chainID  uint64
	abi      abi.ABI
	recorder Recorder

	mu         sync.Mutex
	generation uint64
	current    *binding
}

func NewProxy(w Wallet, address common.Address, chainID uint64, opts ...Option) *Proxy {
	p := &Proxy{
		wallet:  w,
		address: address,
		chainID: chainID,
		abi:     medchainABI,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Proxy) Address() common.Address {
	return p.address
}

func (p *Proxy) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Account is the account the contract is bound for.
func (p *Proxy) Account() (common.Address, error) {
	b, err := p.binding()
	if err != nil {
		return common.Address{}, err
	}
	return b.account, nil
}

// Reset drops the binding. Initializations still in flight are discarded.
func (p *Proxy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.current = nil
}

// Initialize binds the contract for the connected account. Only the most
// recent call wins: an earlier call finishing later returns ErrSuperseded
// and leaves the newer binding in place.
func (p *Proxy) Initialize(ctx context.Context) error {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.current = nil
	p.mu.Unlock()

	b, err := p.bind(ctx)
	if err != nil {
		log.Warn("Contract initialization failed", "address", p.address, "err", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		log.Debug("Discarded stale contract binding", "generation", gen, "latest", p.generation)
		return ErrSuperseded
	}
	p.current = b
	log.Info("Contract initialized", "address", p.address, "account", b.account)
	return nil
}

// ForceReinitialize drops the current binding and binds again.
func (p *Proxy) ForceReinitialize(ctx context.Context) error {
	p.Reset()
	return p.Initialize(ctx)
}

func (p *Proxy) bind(ctx context.Context) (*binding, error) {
	conn := p.wallet.Connection()
	if !conn.IsConnected() {
		return nil, fmt.Errorf("%w: no connected account", ErrNotInitialized)
	}
	if conn.ChainID != p.chainID {
		return nil, fmt.Errorf("%w: chain %d, the contract lives on chain %d", ErrWrongNetwork, conn.ChainID, p.chainID)
	}
	backend, err := p.wallet.Backend(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotInitialized, err)
	}
	code, err := backend.CodeAt(ctx, p.address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't read contract code: %w", ErrNotInitialized, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no contract deployed at %s", ErrNotInitialized, p.address.Hex())
	}

	b := &binding{
		contract: bind.NewBoundContract(p.address, p.abi, backend, backend, backend),
		backend:  backend,
		account:  conn.Address,
		roles:    map[auth.Role]common.Hash{},
	}
	// MANUFACTURER_ROLE goes first, it doubles as the check that the code
	// at the address is MedChain
	for _, role := range contractRoles {
		id, err := readRoleID(ctx, b, role)
		if err != nil {
			return nil, fmt.Errorf("%w: %s() failed, is %s the MedChain contract? %w", ErrNotInitialized, roleGetters[role], p.address.Hex(), err)
		}
		b.roles[role] = id
	}
	return b, nil
}

func readRoleID(ctx context.Context, b *binding, role auth.Role) (common.Hash, error) {
	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx, From: b.account}, &out, roleGetters[role])
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func (p *Proxy) binding() (*binding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, ErrNotInitialized
	}
	return p.current, nil
}

func (p *Proxy) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	b, err := p.binding()
	if err != nil {
		return nil, err
	}
	var out []interface{}
	err = b.contract.Call(&bind.CallOpts{Context: ctx, From: b.account}, &out, method, params...)
	if err != nil {
		return nil, &CallRevertedError{Method: method, Err: err}
	}
	return out, nil
}

// transact submits method, waits for one confirmation and records it in
// the activity log. It never retries.
func (p *Proxy) transact(ctx context.Context, subject string, method string, params ...interface{}) (*types.Receipt, error) {
	b, err := p.binding()
	if err != nil {
		return nil, err
	}
	opts, err := p.wallet.Transactor(ctx, new(big.Int).SetUint64(p.chainID))
	if err != nil {
		return nil, &CallRevertedError{Method: method, Err: err}
	}
	tx, err := b.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, &CallRevertedError{Method: method, Err: err}
	}
	log.Info("Transaction submitted", "method", method, "tx", tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, b.backend, tx)
	if err != nil {
		return nil, &CallRevertedError{Method: method, Err: err}
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, &CallRevertedError{Method: method, Err: fmt.Errorf("transaction %s reverted in block %s", tx.Hash().Hex(), receipt.BlockNumber)}
	}
	log.Info("Transaction confirmed", "method", method, "tx", tx.Hash().Hex(), "block", receipt.BlockNumber)
	p.record(opts.From, method, subject, tx.Hash())
	return receipt, nil
}

func (p *Proxy) record(from common.Address, method, subject string, txHash common.Hash) {
	if p.recorder == nil {
		return
	}
	_, err := p.recorder.Record(activity.Entry{
		Actor:   from.Hex(),
		Action:  method,
		Subject: subject,
		TxHash:  txHash.Hex(),
	})
	if err != nil {
		log.Warn("Couldn't record activity", "method", method, "err", err)
	}
}

// Follow keeps the binding in line with the wallet: a connected account is
// bound again, anything else resets the proxy.
func (p *Proxy) Follow(src ChangeSource) event.Subscription {
	changes := make(chan wallet.Change, 8)
	sub := src.SubscribeChanges(changes)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		// a bind waiting on the node must not hold up teardown
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()
		for {
			select {
			case c := <-changes:
				if c.Reload || !c.Connection.IsConnected() {
					p.Reset()
					continue
				}
				if err := p.Initialize(ctx); err != nil && err != ErrSuperseded {
					log.Warn("Couldn't bind contract after wallet change", "err", err)
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	})
}
