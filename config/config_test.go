package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MEDCHAIN_HOME", home)

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, uint64(31337), cfg.ChainID)
	assert.Equal(t, "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0", cfg.ContractAddress)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, "keystore"), cfg.KeystoreDir)
	assert.Equal(t, filepath.Join(home, "activity.bleve"), cfg.ActivityIndex)
	assert.Equal(t, filepath.Join(home, "storage.json"), cfg.StoragePath())
	assert.Equal(t, filepath.Join(home, "networks"), cfg.NetworksDir())
}

func TestLoadFileThenEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MEDCHAIN_HOME", home)
	content := "log_level: debug\nlight_kdf: true\ncontract_address: \"0x5FbDB2315678afecb367f032d93F642f64180aa3\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "medchain.yaml"), []byte(content), 0o600))
	t.Setenv("MEDCHAIN_LOG_LEVEL", "info")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LightKDF)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.ContractAddress)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("MEDCHAIN_HOME", t.TempDir())
	t.Setenv("MEDCHAIN_LOG_LEVEL", "info")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "warn", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "trace"}))

	v := New()
	require.NoError(t, BindFlags(v, flags, map[string]string{"log_level": "log-level", "network": "network"}))
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MEDCHAIN_HOME", t.TempDir())

	t.Setenv("MEDCHAIN_CONTRACT_ADDRESS", "medchain.eth")
	_, err := Load(New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ContractAddress")

	t.Setenv("MEDCHAIN_CONTRACT_ADDRESS", "")
	t.Setenv("MEDCHAIN_LOG_LEVEL", "loud")
	_, err = Load(New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("MEDCHAIN_HOME", t.TempDir())
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
