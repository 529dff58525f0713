package wallet

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrWalletUnavailable = errors.New("no wallet provider available, configure a keystore to continue")
	ErrNoAccountsGranted = errors.New("no accounts granted, unlock an account and try again")
	ErrWrongNetwork      = errors.New("wallet is connected to an unsupported network")
	ErrNetworkAddFailed  = errors.New("failed to add the network to the wallet, add it manually")
	ErrNotConnected      = errors.New("wallet is not connected")
)

// EIP-1193 and EIP-3326 provider error codes.
const (
	CodeUserRejected  = 4001
	CodeUnauthorized  = 4100
	CodeUnsupported   = 4200
	CodeDisconnected  = 4900
	CodeChainNotAdded = 4902
	CodeInvalidParams = -32602
	CodeInternal      = -32603
)

// RPCError is an error returned by a provider, carrying its numeric code.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *RPCError) ErrorCode() int {
	return e.Code
}

var _ rpc.Error = (*RPCError)(nil)

// ErrorCode extracts the provider error code from err, looking through
// wrapped errors. It returns 0 when err carries no code.
func ErrorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

func IsUserRejected(err error) bool {
	return ErrorCode(err) == CodeUserRejected
}

func IsUnknownChain(err error) bool {
	return ErrorCode(err) == CodeChainNotAdded
}
