// Package config loads and validates shelfd configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/meshline/datashelf/internal/store"
)

// Config holds server and storage settings.
type Config struct {
	Server struct {
		Addr  string `mapstructure:"addr"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"server"`

	Storage struct {
		Backend string `mapstructure:"backend"`
		DataDir string `mapstructure:"data_dir"`
	} `mapstructure:"storage"`
}

// Validation errors.
var (
	ErrAddrEmpty    = errors.New("server addr must not be empty")
	ErrDataDirEmpty = errors.New("sqlite backend requires a data directory")
)

// Load reads configuration. An empty path uses defaults plus environment
// variables only; env keys are prefixed DATASHELF, e.g. DATASHELF_SERVER_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("storage.backend", store.BackendMemory)
	v.SetDefault("storage.data_dir", "./data")

	v.SetEnvPrefix("DATASHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is well-formed.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrAddrEmpty
	}
	switch c.Storage.Backend {
	case store.BackendMemory:
	case store.BackendSQLite:
		if c.Storage.DataDir == "" {
			return ErrDataDirEmpty
		}
	default:
		return fmt.Errorf("%w: %s", store.ErrBackendUnknown, c.Storage.Backend)
	}
	return nil
}

// OpenBackend constructs the configured storage backend.
func (c *Config) OpenBackend() (store.Backend, error) {
	switch c.Storage.Backend {
	case store.BackendSQLite:
		return store.OpenSQLite(c.Storage.DataDir)
	default:
		return store.NewMemoryBackend(), nil
	}
}
