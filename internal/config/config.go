// Package config holds operator-level configuration for a tether process:
// the Foundry project endpoint, credentials, server settings, and telemetry
// switches. Set via env vars (TETHER_*) or a config file
// (tether.config.yaml). Tool definitions live in a separate manifest file,
// see manifest.go.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the TETHER_ prefix
// (e.g. "project_endpoint" → TETHER_PROJECT_ENDPOINT) and to a YAML field
// in tether.config.yaml.
const (
	KeyDataDir              = "data_dir"
	KeyProjectEndpoint      = "project_endpoint"
	KeyAPIKey               = "api_key"
	KeyUseManagedIdentity   = "use_managed_identity"
	KeyModel                = "model"
	KeyInstructions         = "instructions"
	KeyToolManifest         = "tool_manifest"
	KeyServerAddr           = "server_addr"
	KeyServerAPIKey         = "server_api_key"
	KeyRateLimitRPS         = "rate_limit_rps"
	KeyRateLimitBurst       = "rate_limit_burst"
	KeyOTelEnabled          = "otel_enabled"
	KeyOTelCollectorURL     = "otel_collector_url"
	KeyOTelInsecure         = "otel_insecure"
	KeyLogLevel             = "log_level"
	KeyManagedIdentityToken = "managed_identity_token"
)

const (
	DefaultServerAddr     = ":8080"
	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 20
	DefaultLogLevel       = "info"
)

// Config holds resolved configuration for a tether process.
type Config struct {
	DataDir            string // Base directory for local state (~/.tether)
	ProjectEndpoint    string // Foundry project endpoint, scheme+host
	APIKey             string // Project API key (unless managed identity)
	UseManagedIdentity bool   // Source the project credential from TETHER_MANAGED_IDENTITY_TOKEN
	Model              string // Hosted agent model
	Instructions       string // Hosted agent instructions
	ToolManifest       string // Path to the tool manifest YAML
	ServerAddr         string // HTTP server listen address
	ServerAPIKey       string // API key required by the HTTP server; empty disables auth
	RateLimitRPS       int    // Server rate limit, requests per second
	RateLimitBurst     int    // Server rate limit burst
	OTelEnabled        bool   // Export traces and metrics
	OTelCollectorURL   string // OTLP/HTTP collector; empty means stdout exporters
	OTelInsecure       bool   // Plain HTTP to the collector
	LogLevel           string // zerolog level name
}

// AuditDBPath returns the full path to the audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

func init() {
	viper.SetEnvPrefix("TETHER")
	viper.AutomaticEnv()
	viper.SetDefault(KeyServerAddr, DefaultServerAddr)
	viper.SetDefault(KeyRateLimitRPS, DefaultRateLimitRPS)
	viper.SetDefault(KeyRateLimitBurst, DefaultRateLimitBurst)
	viper.SetDefault(KeyLogLevel, DefaultLogLevel)
}

// LoadFile merges tether.config.yaml from dir into Viper before Load.
// A missing file is not an error; env vars and defaults still apply.
func LoadFile(dir string) error {
	viper.SetConfigName("tether.config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(dir)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:            resolveDataDir(),
		ProjectEndpoint:    viper.GetString(KeyProjectEndpoint),
		APIKey:             viper.GetString(KeyAPIKey),
		UseManagedIdentity: viper.GetBool(KeyUseManagedIdentity),
		Model:              viper.GetString(KeyModel),
		Instructions:       viper.GetString(KeyInstructions),
		ToolManifest:       viper.GetString(KeyToolManifest),
		ServerAddr:         viper.GetString(KeyServerAddr),
		ServerAPIKey:       viper.GetString(KeyServerAPIKey),
		RateLimitRPS:       viper.GetInt(KeyRateLimitRPS),
		RateLimitBurst:     viper.GetInt(KeyRateLimitBurst),
		OTelEnabled:        viper.GetBool(KeyOTelEnabled),
		OTelCollectorURL:   viper.GetString(KeyOTelCollectorURL),
		OTelInsecure:       viper.GetBool(KeyOTelInsecure),
		LogLevel:           viper.GetString(KeyLogLevel),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tether"
	}
	return filepath.Join(home, ".tether")
}

func (c *Config) validate() error {
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate_limit_rps must be positive")
	}
	if c.RateLimitBurst < c.RateLimitRPS {
		return fmt.Errorf("rate_limit_burst must be at least rate_limit_rps")
	}
	if c.UseManagedIdentity && c.APIKey != "" {
		return fmt.Errorf("api_key and use_managed_identity are mutually exclusive")
	}
	return nil
}
