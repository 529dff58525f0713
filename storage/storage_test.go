package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")

	s := NewFileStore(path)
	require.NoError(t, s.Set("Medchain_Auth", `{"type":"guest"}`))

	reopened := NewFileStore(path)
	v, found := reopened.Get("medchain_auth")
	require.True(t, found)
	assert.Equal(t, `{"type":"guest"}`, v)

	require.NoError(t, reopened.Remove("MEDCHAIN_AUTH"))
	_, found = NewFileStore(path).Get("medchain_auth")
	assert.False(t, found)
}

func TestFileStoreTreatsCorruptFileAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s := NewFileStore(path)
	_, found := s.Get("anything")
	assert.False(t, found)

	require.NoError(t, s.Set("k", "v"))
	v, found := NewFileStore(path).Get("k")
	require.True(t, found)
	assert.Equal(t, "v", v)
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemoryStore()

	var out []string
	assert.ErrorIs(t, GetJSON(s, "list", &out), ErrNotFound)

	require.NoError(t, SetJSON(s, "list", []string{"a", "b"}))
	require.NoError(t, GetJSON(s, "list", &out))
	assert.Equal(t, []string{"a", "b"}, out)

	require.NoError(t, s.Set("list", "[oops"))
	assert.Error(t, GetJSON(s, "list", &out))
}
