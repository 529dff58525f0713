package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tranvictor/medchain/storage"
	"github.com/tranvictor/medchain/wallet"
)

// ChangeSource is the part of wallet.Manager the service follows.
type ChangeSource interface {
	SubscribeChanges(ch chan<- wallet.Change) event.Subscription
}

type emailLogin struct {
	Email    string `validate:"required,contains=@"`
	Password string `validate:"omitempty,min=6"`
}

// Service holds the current session and keeps it in storage.
type Service struct {
	resolver *Resolver
	store    storage.Store
	validate *validator.Validate
	now      func() time.Time

	mu      sync.Mutex
	session *Session
}

func NewService(resolver *Resolver, store storage.Store) *Service {
	return &Service{
		resolver: resolver,
		store:    store,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Restore loads the persisted session. A stored session that can't be
// decoded, or a wallet session whose address left the allow-list, counts as
// no session and is removed from storage.
func (s *Service) Restore() (Session, bool) {
	var rec record
	err := storage.GetJSON(s.store, SessionKey, &rec)
	if errors.Is(err, storage.ErrNotFound) {
		s.setSession(nil)
		return Session{}, false
	}
	if err == nil {
		err = s.check(&rec)
	}
	if err != nil {
		log.Warn("Discarded unreadable session", "err", err)
		if rerr := s.store.Remove(SessionKey); rerr != nil {
			log.Warn("Couldn't clear session", "err", rerr)
		}
		s.setSession(nil)
		return Session{}, false
	}
	s.setSession(&rec.User)
	log.Debug("Restored session", "kind", rec.User.Kind, "role", rec.User.Role)
	return rec.User, true
}

func (s *Service) check(rec *record) error {
	u := &rec.User
	if rec.Type != u.Kind {
		return fmt.Errorf("session type %q doesn't match its kind %q", rec.Type, u.Kind)
	}
	switch u.Kind {
	case KindWallet:
		if u.Address == nil {
			return fmt.Errorf("wallet session without address")
		}
		entry, err := s.resolver.ResolveWalletAddress(*u.Address)
		if err != nil {
			return err
		}
		u.Role = entry.Role
	case KindEmail:
		u.Role = RolePublicUser
	case KindGuest:
		u.Role = RoleGuest
	}
	// permissions always follow the role
	u.Permissions = u.Role.Permissions()
	return nil
}

func (s *Service) setSession(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

func (s *Service) save(session Session) error {
	if err := storage.SetJSON(s.store, SessionKey, record{User: session, Type: session.Kind}); err != nil {
		return fmt.Errorf("couldn't persist session: %w", err)
	}
	s.setSession(&session)
	return nil
}

// LoginWithWallet creates a session for an allow-listed address. Unknown
// addresses get an *UnauthorizedAddressError and no session.
func (s *Service) LoginWithWallet(addr common.Address, chainID uint64, network string) (Session, error) {
	entry, err := s.resolver.ResolveWalletAddress(addr)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		Address:     &entry.Address,
		Name:        entry.DisplayName,
		Role:        entry.Role,
		Permissions: entry.Role.Permissions(),
		Kind:        KindWallet,
		Network:     network,
		ChainID:     chainID,
		Verified:    true,
		LoginTime:   s.now(),
	}
	if err := s.save(session); err != nil {
		return Session{}, err
	}
	log.Info("Logged in with wallet", "address", addr, "role", entry.Role)
	return session, nil
}

// LoginWithEmail creates a local public user session. The password is not
// checked against anything, it only marks the session as verified.
func (s *Service) LoginWithEmail(email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Struct(emailLogin{Email: email, Password: password}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "Email":
				return Session{}, fmt.Errorf("invalid email address %q", email)
			case "Password":
				return Session{}, fmt.Errorf("password must be at least 6 characters")
			}
		}
		return Session{}, err
	}
	session := Session{
		Email:       email,
		Name:        strings.SplitN(email, "@", 2)[0],
		Role:        RolePublicUser,
		Permissions: RolePublicUser.Permissions(),
		Kind:        KindEmail,
		Verified:    password != "",
		LoginTime:   s.now(),
	}
	if err := s.save(session); err != nil {
		return Session{}, err
	}
	log.Info("Logged in with email", "email", email, "verified", session.Verified)
	return session, nil
}

func (s *Service) ContinueAsGuest() (Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, fmt.Errorf("couldn't create guest session id: %w", err)
	}
	session := Session{
		Name:        "Guest User",
		Role:        RoleGuest,
		Permissions: RoleGuest.Permissions(),
		Kind:        KindGuest,
		SessionID:   "guest_" + id.String(),
		LoginTime:   s.now(),
	}
	if err := s.save(session); err != nil {
		return Session{}, err
	}
	log.Info("Continuing as guest", "session", session.SessionID)
	return session, nil
}

func (s *Service) Logout() error {
	s.setSession(nil)
	if err := s.store.Remove(SessionKey); err != nil {
		return fmt.Errorf("couldn't clear session: %w", err)
	}
	log.Info("Logged out")
	return nil
}

func (s *Service) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

func (s *Service) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

func (s *Service) HasPermission(p Permission) bool {
	session, ok := s.Current()
	return ok && session.HasPermission(p)
}

// HasRole reports whether the session holds any of roles.
func (s *Service) HasRole(roles ...Role) bool {
	session, ok := s.Current()
	if !ok {
		return false
	}
	for _, r := range roles {
		if session.Role == r {
			return true
		}
	}
	return false
}

func (s *Service) IsSupplyChainActor() bool {
	session, ok := s.Current()
	return ok && session.Role.IsSupplyChainActor()
}

func (s *Service) IsPublicUser() bool {
	return s.HasRole(RolePublicUser, RoleGuest)
}

// Reconcile lines the session up with the wallet connection: a connected
// allow-listed wallet logs in silently when there is no session, and a
// wallet session follows account switches.
func (s *Service) Reconcile(conn wallet.Connection) error {
	if !conn.IsConnected() {
		return nil
	}
	session, ok := s.Current()
	switch {
	case !ok:
		_, err := s.LoginWithWallet(conn.Address, conn.ChainID, "")
		var unauthorized *UnauthorizedAddressError
		if errors.As(err, &unauthorized) {
			log.Info("Connected wallet is not allow-listed, no session created", "address", conn.Address)
			return nil
		}
		return err
	case session.IsWallet() && *session.Address != conn.Address:
		return s.switchAccount(conn)
	}
	return nil
}

func (s *Service) switchAccount(conn wallet.Connection) error {
	_, err := s.LoginWithWallet(conn.Address, conn.ChainID, "")
	var unauthorized *UnauthorizedAddressError
	if errors.As(err, &unauthorized) {
		log.Warn("Wallet switched to an address that is not allow-listed, logging out", "address", conn.Address)
		return s.Logout()
	}
	return err
}

// HandleWalletChange applies one connection change to the session.
func (s *Service) HandleWalletChange(change wallet.Change) error {
	if change.Reload {
		s.setSession(nil)
		s.Restore()
		return s.Reconcile(change.Connection)
	}
	session, ok := s.Current()
	if !ok {
		return s.Reconcile(change.Connection)
	}
	if !session.IsWallet() {
		return nil
	}
	switch change.Connection.State {
	case wallet.Disconnected:
		return s.Logout()
	case wallet.Connected:
		if change.Connection.Address != *session.Address {
			return s.switchAccount(change.Connection)
		}
	}
	return nil
}

// Follow applies every change of src until the returned subscription is
// unsubscribed.
func (s *Service) Follow(src ChangeSource) event.Subscription {
	changes := make(chan wallet.Change, 8)
	sub := src.SubscribeChanges(changes)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case c := <-changes:
				if err := s.HandleWalletChange(c); err != nil {
					log.Warn("Couldn't apply wallet change to session", "err", err)
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	})
}
