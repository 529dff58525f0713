package auth

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SessionKey is the storage key holding the persisted session.
const SessionKey = "medchain_auth"

type Kind string

const (
	KindWallet Kind = "wallet"
	KindEmail  Kind = "email"
	KindGuest  Kind = "guest"
)

func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindWallet, KindEmail, KindGuest:
		return []byte(k), nil
	}
	return nil, fmt.Errorf("invalid session kind %q", string(k))
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch Kind(text) {
	case KindWallet, KindEmail, KindGuest:
		*k = Kind(text)
		return nil
	}
	return fmt.Errorf("unknown session kind %q", string(text))
}

// Session is the identity the user is acting as.
type Session struct {
	Address     *common.Address `json:"address,omitempty"`
	Email       string          `json:"email,omitempty"`
	Name        string          `json:"name"`
	Role        Role            `json:"role"`
	Permissions PermissionSet   `json:"permissions"`
	Kind        Kind            `json:"kind"`
	Network     string          `json:"network,omitempty"`
	ChainID     uint64          `json:"chainId,omitempty"`
	Verified    bool            `json:"verified"`
	SessionID   string          `json:"sessionId,omitempty"`
	LoginTime   time.Time       `json:"loginTime"`
}

func (s Session) HasPermission(p Permission) bool {
	return s.Permissions.Has(p)
}

func (s Session) IsWallet() bool {
	return s.Kind == KindWallet && s.Address != nil
}

// record is the persisted shape: {"user": ..., "type": ...}.
type record struct {
	User Session `json:"user"`
	Type Kind    `json:"type"`
}
