package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	"github.com/tranvictor/medchain/activity"
	"github.com/tranvictor/medchain/wallet"
)

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	carol = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	dave  = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

type handler func(args []interface{}) ([]interface{}, error)

type sentTx struct {
	method string
	args   []interface{}
}

// fakeBackend answers contract calls from per-method handlers. Methods it
// doesn't override panic through the nil embedded interface.
type fakeBackend struct {
	wallet.ChainBackend

	mu       sync.Mutex
	code     []byte
	gate     chan struct{}
	entered  chan struct{}
	stalled  chan struct{}
	handlers map[string]handler
	calls    map[string]int
	sent     []sentTx
	sendErr  func(method string, args []interface{}) error
	status   uint64
	block    int64
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{
		code:     []byte{0x60, 0x80},
		handlers: map[string]handler{},
		calls:    map[string]int{},
		status:   types.ReceiptStatusSuccessful,
	}
	for _, name := range roleGetters {
		id := crypto.Keccak256Hash([]byte(name))
		if name == "ADMIN_ROLE" {
			id = common.Hash{}
		}
		f.handle(name, returns([32]byte(id)))
	}
	return f
}

func returns(values ...interface{}) handler {
	return func([]interface{}) ([]interface{}, error) {
		return values, nil
	}
}

func (f *fakeBackend) handle(method string, h handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeBackend) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeBackend) transactions() []sentTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentTx{}, f.sent...)
}

func (f *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	gate, entered, stalled := f.gate, f.entered, f.stalled
	f.gate, f.entered, f.stalled = nil, nil, nil
	code := f.code
	f.mu.Unlock()
	if stalled != nil {
		close(stalled)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if gate != nil {
		close(entered)
		<-gate
	}
	return code, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, err := medchainABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls[method.Name]++
	h, found := f.handlers[method.Name]
	f.mu.Unlock()
	if !found {
		return nil, fmt.Errorf("execution reverted: no handler for %s", method.Name)
	}
	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	method, err := medchainABI.MethodById(tx.Data()[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}
	if f.sendErr != nil {
		if err := f.sendErr(method.Name, args); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method.Name]++
	f.sent = append(f.sent, sentTx{method: method.Name, args: args})
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block++
	return &types.Receipt{
		Status:      f.status,
		TxHash:      txHash,
		BlockNumber: big.NewInt(f.block),
	}, nil
}

type fakeWallet struct {
	mu         sync.Mutex
	conn       wallet.Connection
	backend    *fakeBackend
	backendErr error
	signErr    error
}

func newFakeWallet(backend *fakeBackend, account common.Address) *fakeWallet {
	return &fakeWallet{
		conn:    wallet.Connection{State: wallet.Connected, Address: account, ChainID: 31337},
		backend: backend,
	}
}

func (w *fakeWallet) setConnection(conn wallet.Connection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
}

func (w *fakeWallet) Connection() wallet.Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *fakeWallet) Backend(ctx context.Context) (wallet.ChainBackend, error) {
	if w.backendErr != nil {
		return nil, w.backendErr
	}
	return w.backend, nil
}

func (w *fakeWallet) Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if w.signErr != nil {
		return nil, w.signErr
	}
	return &bind.TransactOpts{
		From:     w.Connection().Address,
		Nonce:    big.NewInt(0),
		GasPrice: big.NewInt(1),
		GasLimit: 500000,
		Context:  ctx,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			return tx, nil
		},
	}, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
	err     error
}

func (r *fakeRecorder) Record(e activity.Entry) (activity.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return activity.Entry{}, r.err
	}
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *fakeRecorder) recorded() []activity.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]activity.Entry{}, r.entries...)
}

type fakeChanges struct {
	feed event.Feed
}

func (c *fakeChanges) SubscribeChanges(ch chan<- wallet.Change) event.Subscription {
	return c.feed.Subscribe(ch)
}

var errReverted = errors.New("execution reverted: MedChain: caller is not a manufacturer")
