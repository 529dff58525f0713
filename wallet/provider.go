package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// Provider is an EIP-1193 style wallet: a JSON-RPC request method plus a
// stream of wallet events.
type Provider interface {
	// Request performs method and decodes the response into result. result
	// may be nil when the caller doesn't need the response.
	Request(ctx context.Context, result interface{}, method string, params ...interface{}) error
	Subscribe(ch chan<- Event) event.Subscription
}

type EventKind uint8

const (
	EventAccountsChanged EventKind = iota
	EventChainChanged
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventAccountsChanged:
		return "accountsChanged"
	case EventChainChanged:
		return "chainChanged"
	case EventDisconnect:
		return "disconnect"
	}
	return "unknown"
}

type Event struct {
	Kind     EventKind
	Accounts []common.Address // EventAccountsChanged
	ChainID  uint64           // EventChainChanged
	Err      error            // EventDisconnect
}

// ChainBackend is what contract bindings need from the chain: calls,
// transactions, logs and receipts.
type ChainBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// BackendProvider is implemented by providers that can hand out a chain
// backend for contract bindings.
type BackendProvider interface {
	ChainBackend(ctx context.Context) (ChainBackend, error)
}

// TransactorProvider is implemented by providers that can sign transactions
// for one of their accounts.
type TransactorProvider interface {
	Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
}
