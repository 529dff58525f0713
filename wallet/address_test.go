package wallet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" 0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266 ")
	require.NoError(t, err)
	assert.Equal(t, alice, addr)

	for _, input := range []string{"vitalik.eth", "0x1234", ""} {
		_, err := ParseAddress(input)
		assert.Error(t, err, input)
	}
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0xf39F...2266", ShortAddress(alice))
}

func TestErrorCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &RPCError{Code: CodeChainNotAdded, Message: "unknown chain"})
	assert.Equal(t, CodeChainNotAdded, ErrorCode(err))
	assert.True(t, IsUnknownChain(err))
	assert.False(t, IsUserRejected(err))
	assert.Zero(t, ErrorCode(fmt.Errorf("plain")))
}
