// ABOUTME: Configuration loading and parsing for mcp-router
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config leaves a field empty
const (
	DefaultRefreshInterval  = 10 * time.Minute
	DefaultDiscoveryTimeout = 30 * time.Second
	DefaultMaxParallel      = 4
)

// Config represents the complete mcp-router configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Servers  []MCPServer    `yaml:"servers"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds the secret used to sign admin tokens
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CatalogConfig controls capability discovery
type CatalogConfig struct {
	RefreshInterval  time.Duration `yaml:"-"`
	DiscoveryTimeout time.Duration `yaml:"-"`
	MaxParallel      int           `yaml:"max_parallel"`

	// Raw string values for YAML unmarshaling
	RefreshIntervalRaw  string `yaml:"refresh_interval"`
	DiscoveryTimeoutRaw string `yaml:"discovery_timeout"`
}

// MCPServer seeds the registry on startup. Servers already registered under
// the same name are left as they are.
type MCPServer struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"`
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	URL       string            `yaml:"url"`
	Disabled  bool              `yaml:"disabled"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses raw YAML the same way Load does.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Catalog.MaxParallel < 1 {
		return fmt.Errorf("catalog.max_parallel must be at least 1")
	}

	seen := make(map[string]bool)
	for i, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d].name is required", i)
		}
		if strings.Contains(s.Name, "__") {
			return fmt.Errorf("servers[%d].name %q must not contain \"__\"", i, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("servers[%d].name %q is duplicated", i, s.Name)
		}
		seen[s.Name] = true

		switch s.Transport {
		case "stdio":
			if s.Command == "" {
				return fmt.Errorf("servers[%d] (%s): command is required for stdio", i, s.Name)
			}
		case "http", "sse":
			if s.URL == "" {
				return fmt.Errorf("servers[%d] (%s): url is required for %s", i, s.Name, s.Transport)
			}
		default:
			return fmt.Errorf("servers[%d] (%s): unknown transport %q", i, s.Name, s.Transport)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Catalog.RefreshIntervalRaw != "" {
		cfg.Catalog.RefreshInterval, err = time.ParseDuration(cfg.Catalog.RefreshIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing refresh_interval %q: %w", cfg.Catalog.RefreshIntervalRaw, err)
		}
	}

	if cfg.Catalog.DiscoveryTimeoutRaw != "" {
		cfg.Catalog.DiscoveryTimeout, err = time.ParseDuration(cfg.Catalog.DiscoveryTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing discovery_timeout %q: %w", cfg.Catalog.DiscoveryTimeoutRaw, err)
		}
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Catalog.RefreshInterval == 0 {
		cfg.Catalog.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Catalog.DiscoveryTimeout == 0 {
		cfg.Catalog.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if cfg.Catalog.MaxParallel == 0 {
		cfg.Catalog.MaxParallel = DefaultMaxParallel
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
