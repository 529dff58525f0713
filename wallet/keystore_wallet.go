package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tranvictor/medchain/networks"
	"github.com/tranvictor/medchain/storage"
)

const (
	PermissionsKey = "wallet_permissions"
	NetworkKey     = "wallet_network"
)

// Prompter is the interactive part of the keystore wallet: picking an
// account and typing its passphrase.
type Prompter interface {
	Choose(prompt string, options []string) int
	Secret(prompt string) string
}

// KeystoreWallet is a Provider backed by a go-ethereum keystore directory.
// Account access and network selection are handled locally, everything
// else is forwarded to the selected network's node.
type KeystoreWallet struct {
	ks             *keystore.KeyStore
	store          storage.Store
	registry       *networks.Registry
	defaultNetwork networks.Network
	prompter       Prompter

	feed event.Feed

	mu            sync.Mutex
	client        *rpc.Client
	clientNetwork string
}

func NewKeystoreWallet(ks *keystore.KeyStore, store storage.Store, registry *networks.Registry, defaultNetwork networks.Network, prompter Prompter) *KeystoreWallet {
	return &KeystoreWallet{
		ks:             ks,
		store:          store,
		registry:       registry,
		defaultNetwork: defaultNetwork,
		prompter:       prompter,
	}
}

func (w *KeystoreWallet) Subscribe(ch chan<- Event) event.Subscription {
	return w.feed.Subscribe(ch)
}

func (w *KeystoreWallet) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	log.Trace("Wallet request", "method", method, "params", len(params))
	switch method {
	case "eth_accounts":
		return respond(result, w.grantedAccounts())
	case "eth_requestAccounts":
		granted, err := w.requestAccounts()
		if err != nil {
			return err
		}
		return respond(result, granted)
	case "eth_chainId":
		return respond(result, hexutil.Uint64(w.Network().GetChainID()))
	case "wallet_switchEthereumChain":
		var p networks.SwitchChainParams
		if err := decodeParam(params, &p); err != nil {
			return err
		}
		return w.switchChain(uint64(p.ChainID))
	case "wallet_addEthereumChain":
		var d networks.ChainDescriptor
		if err := decodeParam(params, &d); err != nil {
			return err
		}
		return w.addChain(d)
	}

	client, err := w.rpcClient(ctx)
	if err != nil {
		return err
	}
	return client.CallContext(ctx, result, method, params...)
}

// Accounts lists every account of the keystore, granted or not.
func (w *KeystoreWallet) Accounts() []common.Address {
	result := []common.Address{}
	for _, acc := range w.ks.Accounts() {
		result = append(result, acc.Address)
	}
	return result
}

// Network returns the network the wallet is currently on.
func (w *KeystoreWallet) Network() networks.Network {
	name, found := w.store.Get(NetworkKey)
	if !found {
		return w.defaultNetwork
	}
	n, err := w.registry.GetNetwork(name)
	if err != nil {
		log.Warn("Selected wallet network is gone, falling back to the default", "network", name, "err", err)
		return w.defaultNetwork
	}
	return n
}

func (w *KeystoreWallet) grantedAccounts() []common.Address {
	granted := []common.Address{}
	if err := storage.GetJSON(w.store, PermissionsKey, &granted); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn("Ignored unreadable wallet permissions", "err", err)
		return []common.Address{}
	}
	result := []common.Address{}
	for _, addr := range granted {
		if w.ks.HasAddress(addr) {
			result = append(result, addr)
		}
	}
	return result
}

func (w *KeystoreWallet) requestAccounts() ([]common.Address, error) {
	if granted := w.grantedAccounts(); len(granted) > 0 {
		return granted, nil
	}
	all := w.ks.Accounts()
	if len(all) == 0 {
		log.Info("Keystore has no account to grant", "hint", "import one with `medchain wallet import`")
		return []common.Address{}, nil
	}
	if w.prompter == nil {
		return nil, &RPCError{Code: CodeUserRejected, Message: "no prompt available to approve the request"}
	}

	options := make([]string, 0, len(all)+1)
	for _, acc := range all {
		options = append(options, acc.Address.Hex())
	}
	options = append(options, "Cancel")
	idx := w.prompter.Choose("Select the account to connect", options)
	if idx < 0 || idx >= len(all) {
		return nil, &RPCError{Code: CodeUserRejected, Message: "user rejected the request"}
	}
	acc := all[idx]

	passphrase := w.prompter.Secret(fmt.Sprintf("Passphrase for %s: ", ShortAddress(acc.Address)))
	if err := w.ks.Unlock(acc, passphrase); err != nil {
		return nil, &RPCError{Code: CodeUserRejected, Message: fmt.Sprintf("couldn't unlock %s: %s", acc.Address.Hex(), err)}
	}

	granted := []common.Address{acc.Address}
	if err := storage.SetJSON(w.store, PermissionsKey, granted); err != nil {
		return nil, &RPCError{Code: CodeInternal, Message: fmt.Sprintf("couldn't save permission: %s", err)}
	}
	w.feed.Send(Event{Kind: EventAccountsChanged, Accounts: granted})
	return granted, nil
}

// Revoke forgets every granted account.
func (w *KeystoreWallet) Revoke() error {
	if err := w.store.Remove(PermissionsKey); err != nil {
		return err
	}
	w.feed.Send(Event{Kind: EventAccountsChanged, Accounts: []common.Address{}})
	return nil
}

func (w *KeystoreWallet) switchChain(chainID uint64) error {
	n, err := w.registry.GetNetworkByID(chainID)
	if err != nil {
		return &RPCError{Code: CodeChainNotAdded, Message: fmt.Sprintf("unrecognized chain id 0x%x, add it first", chainID)}
	}
	if w.Network().GetChainID() == chainID {
		return nil
	}
	if err := w.store.Set(NetworkKey, n.GetName()); err != nil {
		return &RPCError{Code: CodeInternal, Message: fmt.Sprintf("couldn't save network: %s", err)}
	}
	w.closeClient()
	log.Info("Wallet switched network", "network", n.GetName(), "chain", chainID)
	w.feed.Send(Event{Kind: EventChainChanged, ChainID: chainID})
	return nil
}

func (w *KeystoreWallet) addChain(d networks.ChainDescriptor) error {
	if _, err := w.registry.GetNetworkByID(uint64(d.ChainID)); err == nil {
		return w.switchChain(uint64(d.ChainID))
	}
	n, err := networks.NewNetworkFromDescriptor(d)
	if err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	if err := w.registry.AddNetwork(n); err != nil {
		return &RPCError{Code: CodeInternal, Message: fmt.Sprintf("couldn't add network: %s", err)}
	}
	log.Info("Wallet added network", "network", n.GetName(), "chain", n.GetChainID())
	return w.switchChain(n.GetChainID())
}

func (w *KeystoreWallet) rpcClient(ctx context.Context) (*rpc.Client, error) {
	n := w.Network()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil && w.clientNetwork == n.GetName() {
		return w.client, nil
	}
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
	name, url, err := networks.PreferredNode(n)
	if err != nil {
		return nil, err
	}
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("couldn't dial node %s (%s): %w", name, url, err)
	}
	log.Debug("Dialed node", "network", n.GetName(), "node", name, "url", url)
	w.client = client
	w.clientNetwork = n.GetName()
	return client, nil
}

func (w *KeystoreWallet) closeClient() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}

func (w *KeystoreWallet) ChainBackend(ctx context.Context) (ChainBackend, error) {
	client, err := w.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(client), nil
}

// Transactor signs with the keystore account, asking for its passphrase
// when it is still locked.
func (w *KeystoreWallet) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	acc, err := w.ks.Find(accounts.Account{Address: account})
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.Hex(), err)
	}
	if _, err := w.ks.SignHash(acc, make([]byte, 32)); errors.Is(err, keystore.ErrLocked) {
		if w.prompter == nil {
			return nil, err
		}
		passphrase := w.prompter.Secret(fmt.Sprintf("Passphrase for %s: ", ShortAddress(account)))
		if err := w.ks.Unlock(acc, passphrase); err != nil {
			return nil, fmt.Errorf("couldn't unlock %s: %w", account.Hex(), err)
		}
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(w.ks, acc, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// Close drops the node connection and tells subscribers the wallet is gone.
func (w *KeystoreWallet) Close() {
	w.closeClient()
	w.feed.Send(Event{Kind: EventDisconnect})
}

func respond(result interface{}, v interface{}) error {
	if result == nil {
		return nil
	}
	content, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(content, result)
}

func decodeParam(params []interface{}, v interface{}) error {
	if len(params) == 0 {
		return &RPCError{Code: CodeInvalidParams, Message: "missing params"}
	}
	content, err := json.Marshal(params[0])
	if err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	if err := json.Unmarshal(content, v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
