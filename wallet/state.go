package wallet

import (
	"github.com/ethereum/go-ethereum/common"
)

type State uint8

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Connection is a snapshot of the wallet connection. Address and ChainID
// are only meaningful when State is Connected.
type Connection struct {
	State   State
	Address common.Address
	ChainID uint64
}

func (c Connection) IsConnected() bool {
	return c.State == Connected
}

func (c Connection) IsConnecting() bool {
	return c.State == Connecting
}

// Change is broadcast to Manager subscribers after every transition.
// Reload is set when the wallet moved to another chain and every piece of
// chain specific state (session, contract binding) must be rebuilt.
type Change struct {
	Connection Connection
	Reload     bool
}
