package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/networks"
)

const (
	EnvPrefix = "MEDCHAIN"
	FileName  = "medchain"
)

// Flag values shared by the commands, bound with cobra in cmd.
var (
	ConfigFile string
	LogLevel   string
	NoColor    bool
	JSONOutput bool
)

// Config is the resolved configuration: defaults, then medchain.yaml, then
// MEDCHAIN_* variables (a .env file is honoured), then flags.
type Config struct {
	Home            string `mapstructure:"home" validate:"required"`
	Network         string `mapstructure:"network" validate:"required"`
	ChainID         uint64 `mapstructure:"chain_id" validate:"required"`
	ContractAddress string `mapstructure:"contract_address" validate:"required,eth_addr"`
	KeystoreDir     string `mapstructure:"keystore_dir"`
	LightKDF        bool   `mapstructure:"light_kdf"`
	ActivityIndex   string `mapstructure:"activity_index"`
	LogLevel        string `mapstructure:"log_level" validate:"oneof=trace debug info warn error crit"`
}

func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".medchain"
	}
	return filepath.Join(home, ".medchain")
}

// New returns a viper instance with the medchain defaults and environment
// lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("home", DefaultHome())
	v.SetDefault("network", networks.HardhatLocalhost.GetName())
	v.SetDefault("chain_id", networks.HardhatLocalhost.GetChainID())
	v.SetDefault("contract_address", contract.DefaultAddress)
	v.SetDefault("keystore_dir", "")
	v.SetDefault("light_kdf", false)
	v.SetDefault("activity_index", "")
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags lets the named flags override the config keys they are mapped
// to. Missing flags are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("couldn't bind --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads .env from the working directory, then configFile or
// medchain.yaml under the medchain home when configFile is empty, and
// validates the result. Missing .env and medchain.yaml files are fine, a
// missing configFile is not.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("couldn't read .env: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("home"))
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("couldn't read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults fills the paths that live under Home.
func (c *Config) setDefaults() {
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.KeystoreDir == "" {
		c.KeystoreDir = filepath.Join(c.Home, "keystore")
	}
	if c.ActivityIndex == "" {
		c.ActivityIndex = filepath.Join(c.Home, "activity.bleve")
	}
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value())))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (c *Config) StoragePath() string {
	return filepath.Join(c.Home, "storage.json")
}

func (c *Config) NetworksDir() string {
	return filepath.Join(c.Home, "networks")
}
