package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment variables the server reads.
type Env struct {
	// ConfigFile is the ov.conf path when --config is not given.
	ConfigFile string `env:"OPENVIKING_CONFIG_FILE"`

	// Debug switches logging to debug level when set to "1".
	Debug string `env:"OV_DEBUG"`

	// APIKey is the credential used by the stdio transport.
	APIKey string `env:"OPENVIKING_API_KEY"`
}

// ParseEnv reads Env from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// DebugEnabled reports whether OV_DEBUG is "1".
func (e Env) DebugEnabled() bool {
	return e.Debug == "1"
}

// DefaultPath returns ~/.openviking/ov.conf.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".openviking", "ov.conf")
}

// DefaultWorkspace returns ~/.openviking/data.
func DefaultWorkspace() string {
	return filepath.Join(homeDir(), ".openviking", "data")
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// ApplyEnv copies the environment settings into cfg.
func (e Env) ApplyEnv(cfg *Config) {
	cfg.Debug = e.DebugEnabled()
	cfg.APIKey = e.APIKey
}
