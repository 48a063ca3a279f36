// Package config provides configuration management for the lisensi server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment       Environment
	ListenAddr        string
	AllowedOrigins    []string
	RateLimitRequests int64
	RateLimitPeriod   string
	RedisURL          string
	MetricsEnabled    bool
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	var allowedOrigins []string
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	rateLimitRequests := int64(getEnvInt("RATE_LIMIT_REQUESTS", 100))
	if rateLimitRequests <= 0 {
		rateLimitRequests = 100
	}
	rateLimitPeriod := os.Getenv("RATE_LIMIT_PERIOD")
	if rateLimitPeriod == "" {
		rateLimitPeriod = "1m"
	}

	return ServerConfig{
		Environment:       env,
		ListenAddr:        listenAddr,
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: rateLimitRequests,
		RateLimitPeriod:   rateLimitPeriod,
		RedisURL:          os.Getenv("REDIS_URL"),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
	}
}

// ProviderConfig holds credentials for the QRIS payment provider.
type ProviderConfig struct {
	BaseURL    string `yaml:"base_url,omitempty"`
	LicenseKey string `yaml:"license_key,omitempty"`
	QRID       string `yaml:"qr_id,omitempty"`
}

// Validate checks that the required provider credentials are present.
func (c ProviderConfig) Validate() error {
	if c.LicenseKey == "" {
		return fmt.Errorf("provider license key is required (CASHIFY_LICENSE_KEY)")
	}
	if c.QRID == "" {
		return fmt.Errorf("provider QR id is required (CASHIFY_QRIS_ID)")
	}
	return nil
}

// LedgerConfig holds settings for the external license ledger repository.
type LedgerConfig struct {
	Token string `yaml:"token,omitempty"`
	Owner string `yaml:"owner,omitempty"`
	Repo  string `yaml:"repo,omitempty"`
	Path  string `yaml:"path,omitempty"`
}

// Validate checks that the required ledger settings are present.
func (c LedgerConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("ledger token is required (GITHUB_TOKEN)")
	}
	if c.Owner == "" || c.Repo == "" || c.Path == "" {
		return fmt.Errorf("ledger owner, repo, and path are required")
	}
	return nil
}

// LoadProviderConfig reads provider credentials, preferring environment
// variables over the optional config file values.
func LoadProviderConfig(file *FileConfig) ProviderConfig {
	cfg := ProviderConfig{
		BaseURL: "https://cashify.my.id",
	}
	if file != nil {
		if file.Provider.BaseURL != "" {
			cfg.BaseURL = file.Provider.BaseURL
		}
		cfg.LicenseKey = file.Provider.LicenseKey
		cfg.QRID = file.Provider.QRID
	}
	if v := os.Getenv("CASHIFY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("CASHIFY_LICENSE_KEY"); v != "" {
		cfg.LicenseKey = v
	}
	if v := os.Getenv("CASHIFY_QRIS_ID"); v != "" {
		cfg.QRID = v
	}
	return cfg
}

// LoadLedgerConfig reads license ledger settings, preferring environment
// variables over the optional config file values.
func LoadLedgerConfig(file *FileConfig) LedgerConfig {
	var cfg LedgerConfig
	if file != nil {
		cfg = file.Ledger
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("LEDGER_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v := os.Getenv("LEDGER_REPO"); v != "" {
		cfg.Repo = v
	}
	if v := os.Getenv("LEDGER_PATH"); v != "" {
		cfg.Path = v
	}
	return cfg
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
