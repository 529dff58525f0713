package wallet

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress accepts hex addresses only. Names are never resolved.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a hex address (name resolution is disabled)", s)
	}
	return common.HexToAddress(s), nil
}

func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return fmt.Sprintf("%s...%s", hex[:6], hex[len(hex)-4:])
}
