package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tranvictor/medchain/activity"
	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/config"
	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/networks"
	"github.com/tranvictor/medchain/storage"
	"github.com/tranvictor/medchain/ui"
	"github.com/tranvictor/medchain/wallet"
)

// AssumeYes answers every confirmation prompt with yes.
var AssumeYes bool

// app is everything one command invocation works with. Commands open it
// with openApp and close it when they are done.
type app struct {
	cfg      *config.Config
	store    storage.Store
	registry *networks.Registry
	keystore *keystore.KeyStore
	wallet   *wallet.KeystoreWallet
	manager  *wallet.Manager
	auth     *auth.Service
	activity *activity.Log
	proxy    *contract.Proxy
	subs     []event.Subscription
}

// openApp builds the services in dependency order: storage and networks,
// the keystore wallet and its connection manager, the session restored and
// lined up with the wallet, the activity log and the contract proxy, bound
// right away when the wallet is on the contract's chain.
func openApp(ctx context.Context) (*app, error) {
	a := &app{
		cfg:      cfg,
		store:    storage.NewFileStore(cfg.StoragePath()),
		registry: networks.NewRegistry(cfg.NetworksDir()),
		keystore: wallet.NewKeyStore(cfg.KeystoreDir, cfg.LightKDF),
	}
	supported, err := a.registry.GetNetworkByID(cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("chain %d isn't a known network, add it with medchain network add: %w", cfg.ChainID, err)
	}
	defaultNetwork, err := a.registry.GetNetwork(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", cfg.Network, err)
	}

	a.wallet = wallet.NewKeystoreWallet(a.keystore, a.store, a.registry, defaultNetwork, appUI)
	a.manager, err = wallet.Open(ctx, a.wallet, supported)
	if err != nil {
		a.wallet.Close()
		return nil, err
	}

	a.auth = auth.NewService(auth.NewResolver(auth.DefaultRoleTable), a.store)
	a.auth.Restore()
	if err := a.auth.Reconcile(a.manager.Connection()); err != nil {
		log.Warn("Couldn't line the session up with the wallet", "err", err)
	}

	a.activity, err = activity.Open(a.store, cfg.ActivityIndex)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.proxy = contract.NewProxy(a.manager, common.HexToAddress(cfg.ContractAddress), cfg.ChainID, contract.WithRecorder(a.activity))
	if conn := a.manager.Connection(); conn.IsConnected() && conn.ChainID == cfg.ChainID {
		if err := a.proxy.Initialize(ctx); err != nil {
			log.Warn("Contract is not available yet", "err", err)
		}
	}
	a.subs = append(a.subs, a.auth.Follow(a.manager), a.proxy.Follow(a.manager))
	return a, nil
}

func (a *app) Close() {
	for _, sub := range a.subs {
		sub.Unsubscribe()
	}
	if a.manager != nil {
		a.manager.Close()
	}
	if a.wallet != nil {
		a.wallet.Close()
	}
	if a.activity != nil {
		if err := a.activity.Close(); err != nil {
			log.Warn("Couldn't close the activity index", "err", err)
		}
	}
}

// contract returns the bound proxy, binding it first when needed.
func (a *app) contract(ctx context.Context) (*contract.Proxy, error) {
	if a.proxy.Initialized() {
		return a.proxy, nil
	}
	if !a.manager.Connection().IsConnected() {
		return nil, fmt.Errorf("%w, run medchain connect first", wallet.ErrNotConnected)
	}
	err := a.proxy.Initialize(ctx)
	if errors.Is(err, contract.ErrSuperseded) {
		err = nil
	}
	return a.proxy, err
}

// require fails unless the current session holds p.
func (a *app) require(p auth.Permission) error {
	session, ok := a.auth.Current()
	if !ok {
		return fmt.Errorf("not logged in, run medchain login first")
	}
	if !session.HasPermission(p) {
		return fmt.Errorf("%s can't %s", session.Role.Title(), p)
	}
	return nil
}

// withApp opens the app for the duration of run.
func withApp(run func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, a)
}

// requireRole fails unless the current session has one of roles.
func (a *app) requireRole(what string, roles ...auth.Role) error {
	if _, ok := a.auth.Current(); !ok {
		return fmt.Errorf("not logged in, run medchain login first")
	}
	if !a.auth.HasRole(roles...) {
		titles := make([]string, 0, len(roles))
		for _, r := range roles {
			titles = append(titles, r.Title())
		}
		return fmt.Errorf("only %s can %s", strings.Join(titles, " or "), what)
	}
	return nil
}

// confirm asks before a step that can't be undone from the command line.
func confirm(u ui.UI, prompt string) bool {
	if AssumeYes {
		return true
	}
	return u.Confirm(prompt, false)
}
