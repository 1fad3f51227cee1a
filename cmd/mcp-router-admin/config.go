// ABOUTME: Configuration loading for mcp-router-admin
// ABOUTME: Loads TOML config from the XDG path with environment overrides

package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

const defaultRouterURL = "http://localhost:8090"

// Config is the admin CLI's connection settings.
type Config struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// configPath returns $XDG_CONFIG_HOME/mcp-router/admin.toml or the ~/.config fallback.
func configPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "mcp-router", "admin.toml")
}

// loadConfig reads path if it exists, then applies MCP_ROUTER_URL and
// MCP_ROUTER_TOKEN. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(expandEnvVars(string(data)), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if v := os.Getenv("MCP_ROUTER_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("MCP_ROUTER_TOKEN"); v != "" {
		cfg.Token = v
	}
	if cfg.URL == "" {
		cfg.URL = defaultRouterURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that the router URL is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	return nil
}
