// Package config provides configuration management for oneclick.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete oneclick configuration
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	TLS      TLSConfig      `yaml:"tls"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Hooks    HooksConfig    `yaml:"hooks"`
}

// GeneralConfig holds general download settings
type GeneralConfig struct {
	DownloadDir   string        `yaml:"download_dir"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	HashAlgorithm string        `yaml:"hash_algorithm"`
	UserAgent     string        `yaml:"user_agent"`
	RateLimit     string        `yaml:"rate_limit"` // e.g. "10M", "500K", empty = unlimited
}

// CatalogConfig holds catalog settings
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// ProxyConfig holds proxy settings
type ProxyConfig struct {
	HTTP   string `yaml:"http"`
	SOCKS5 string `yaml:"socks5"`
}

// TLSConfig holds TLS settings
type TLSConfig struct {
	Verify bool `yaml:"verify"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`   // log directory, empty = stderr only
}

// MetricsConfig holds the optional metrics endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// HooksConfig holds lifecycle hook settings
type HooksConfig struct {
	OnComplete string `yaml:"on_complete"` // shell command run per completed item
	OnError    string `yaml:"on_error"`    // shell command run per failed item
	WebhookURL string `yaml:"webhook_url"` // POST target for item events
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DownloadDir:   filepath.Join(home, "Downloads", "oneclick"),
			Timeout:       30 * time.Second,
			MaxRetries:    3,
			HashAlgorithm: "sha256",
			UserAgent:     "oneclick/0.1",
		},
		Catalog: CatalogConfig{
			Path: "catalog.json",
		},
		TLS: TLSConfig{
			Verify: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9314",
		},
	}
}

// ConfigPaths returns the list of config file paths in priority order
func ConfigPaths() []string {
	paths := make([]string, 0, 6)

	if envPath := os.Getenv("ONECLICK_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	paths = append(paths, ".oneclick.yaml", ".oneclick.yml")

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "oneclick", "config.yaml"))
		paths = append(paths, filepath.Join(configDir, "oneclick", "config.yml"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".oneclick.yaml"))
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/oneclick/config.yaml")
	}

	return paths
}

// Load loads configuration from the first available config file
func Load() (*Config, error) {
	config := DefaultConfig()

	for _, path := range ConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := config.LoadFile(path); err != nil {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}
			return config, nil
		}
	}

	return config, nil
}

// LoadFile loads configuration from a specific file
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default path for saving user config
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "oneclick", "config.yaml"), nil
}

// ParseRateLimit parses a rate string (e.g. "10M", "500K") to bytes per second
func ParseRateLimit(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	var value float64
	var unit string

	_, err := fmt.Sscanf(s, "%f%s", &value, &unit)
	if err != nil {
		_, err = fmt.Sscanf(s, "%f", &value)
		if err != nil {
			return 0, fmt.Errorf("invalid rate limit format: %s", s)
		}
		return int64(value), nil
	}

	multiplier := int64(1)
	switch unit {
	case "K", "k", "KB", "kb":
		multiplier = 1024
	case "M", "m", "MB", "mb":
		multiplier = 1024 * 1024
	case "G", "g", "GB", "gb":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown rate limit unit: %s", unit)
	}

	return int64(value * float64(multiplier)), nil
}

// GenerateDefaultConfig generates a default config file content
func GenerateDefaultConfig() string {
	return `# oneclick configuration file

# General settings
general:
  download_dir: ""        # Download directory (empty = ~/Downloads/oneclick)
  timeout: 30s            # Per-request timeout
  max_retries: 3          # Download/repair attempts per item
  hash_algorithm: sha256  # Digest algorithm: md5, sha1, sha256, sha512, blake3
  user_agent: "oneclick/0.1"
  rate_limit: ""          # Download speed limit (e.g. "10M", "500K")

# Catalog settings
catalog:
  path: "catalog.json"    # Static software catalog document

# Proxy settings
proxy:
  http: ""                # HTTP/HTTPS proxy URL
  socks5: ""              # SOCKS5 proxy address

# TLS settings
tls:
  verify: true            # Verify server certificates

# Logging settings
logging:
  level: "info"           # Log level: debug, info, warn, error
  dir: "logs"             # Log directory (empty = stderr only)

# Metrics endpoint (Prometheus text format)
metrics:
  enabled: false
  addr: "127.0.0.1:9314"

# Lifecycle hooks
hooks:
  on_complete: ""         # Shell command run after each completed item
  on_error: ""            # Shell command run after each failed item
  webhook_url: ""         # POST target for item events
`
}
