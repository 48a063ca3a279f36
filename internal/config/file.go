package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional on-disk configuration file. Environment
// variables always override values loaded from it.
type FileConfig struct {
	Provider ProviderConfig `yaml:"provider,omitempty"`
	Ledger   LedgerConfig   `yaml:"ledger,omitempty"`
}

// DefaultConfigPath is where LoadFile looks when CONFIG_PATH is unset.
const DefaultConfigPath = "/etc/lisensi/config.yaml"

// LoadFile reads the YAML config file at path. A missing file is not an
// error; callers get a nil FileConfig and fall back to environment variables.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}
