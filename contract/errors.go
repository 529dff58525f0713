package contract

import (
	"errors"
	"fmt"

	"github.com/tranvictor/medchain/wallet"
)

var (
	ErrNotInitialized = errors.New("contract not initialized")
	ErrWrongNetwork   = wallet.ErrWrongNetwork
	ErrCallReverted   = errors.New("contract call failed")
	ErrNotFound       = errors.New("not found")
	ErrSuperseded     = errors.New("contract initialization superseded by a newer one")
)

// CallRevertedError keeps the error of the node or wallet untouched so the
// revert reason reaches the user.
type CallRevertedError struct {
	Method string
	Err    error
}

func (e *CallRevertedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Err)
}

func (e *CallRevertedError) Unwrap() error {
	return e.Err
}

func (e *CallRevertedError) Is(target error) bool {
	return target == ErrCallReverted
}
