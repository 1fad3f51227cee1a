// ABOUTME: Entry point for the mcp-router server
// ABOUTME: Serves the permission API and mints admin tokens

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mcp-router/internal/auth"
	"github.com/2389/mcp-router/internal/config"
	"github.com/2389/mcp-router/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

// defaultTokenTTL is how long minted admin tokens live unless --ttl says otherwise.
const defaultTokenTTL = 30 * 24 * time.Hour

const banner = `
                                            _
 _ __ ___   ___ _ __        _ __ ___  _   _| |_ ___ _ __
| '_ ' _ \ / __| '_ \ _____| '__/ _ \| | | | __/ _ \ '__|
| | | | | | (__| |_) |_____| | | (_) | |_| | ||  __/ |
|_| |_| |_|\___| .__/      |_|  \___/ \__,_|\__\___|_|
               |_|
`

// getConfigPath returns the path to the router config file.
// Priority: MCP_ROUTER_CONFIG env var > XDG_CONFIG_HOME/mcp-router/config.yaml > ~/.config/mcp-router/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("MCP_ROUTER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "mcp-router", "config.yaml")
}

// getDataPath returns the path to the router data directory.
// Priority: XDG_DATA_HOME/mcp-router > ~/.local/share/mcp-router
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "mcp-router")
}

func usage() {
	fmt.Println("Usage: mcp-router <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                              Start the router")
	fmt.Println("  init                               Write a config file with a fresh JWT secret")
	fmt.Println("  token --subject NAME [--ttl 720h]  Mint an admin token")
	fmt.Println("  health                             Check router liveness")
	fmt.Println("  ready                              Check that servers are connected")
	fmt.Println("  version                            Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(getConfigPath(), getDataPath())
	case "token":
		err = runToken(os.Args[2:], os.Stdout)
	case "health":
		err = runProbe(ctx, "/health", os.Stdout)
	case "ready":
		err = runProbe(ctx, "/health/ready", os.Stdout)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Servers:   %d configured", len(cfg.Servers))
	gray.Printf(" (refresh every %s)\n", cfg.Catalog.RefreshInterval)
	if cfg.Auth.JWTSecret == "" {
		yellow.Print("    ! ")
		fmt.Println("Admin API is unauthenticated (no auth.jwt_secret)")
	}
	fmt.Println()

	logger.Info("starting mcp-router",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"servers", len(cfg.Servers),
	)

	gw, err := gateway.New(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// runInit writes a starter config with a random JWT secret, refusing to
// overwrite an existing file.
func runInit(configPath, dataPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "router.db")
	configContent := fmt.Sprintf(`# mcp-router configuration
# Generated by mcp-router init

server:
  http_addr: "localhost:8090"

database:
  path: "%s"

auth:
  jwt_secret: "%s"

logging:
  level: "info"
  format: "text"

catalog:
  refresh_interval: "%s"
  discovery_timeout: "%s"
  max_parallel: %d

servers: []
`, dbPath, jwtSecret, config.DefaultRefreshInterval, config.DefaultDiscoveryTimeout, config.DefaultMaxParallel)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println()
	fmt.Println("  Next:")
	fmt.Println("    mcp-router token --subject you   # mint an admin token")
	fmt.Println("    mcp-router serve                 # start the router")
	return nil
}

// parseTokenArgs reads --subject/-s and --ttl, in "--flag value" or "--flag=value" form.
func parseTokenArgs(args []string) (string, time.Duration, error) {
	subject := ""
	ttl := defaultTokenTTL

	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var raw string
		var err error
		switch {
		case arg == "--subject" || arg == "-s":
			if subject, err = value(&i, "--subject"); err != nil {
				return "", 0, err
			}
		case strings.HasPrefix(arg, "--subject="):
			subject = strings.TrimPrefix(arg, "--subject=")
		case arg == "--ttl":
			if raw, err = value(&i, "--ttl"); err != nil {
				return "", 0, err
			}
			if ttl, err = time.ParseDuration(raw); err != nil {
				return "", 0, fmt.Errorf("invalid --ttl: %w", err)
			}
		case strings.HasPrefix(arg, "--ttl="):
			if ttl, err = time.ParseDuration(strings.TrimPrefix(arg, "--ttl=")); err != nil {
				return "", 0, fmt.Errorf("invalid --ttl: %w", err)
			}
		case strings.HasPrefix(arg, "-"):
			return "", 0, fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", 0, fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", 0, fmt.Errorf("--subject flag is required")
	}
	if ttl <= 0 {
		return "", 0, fmt.Errorf("--ttl must be positive")
	}
	return subject, ttl, nil
}

// runToken mints an admin JWT signed with the configured secret.
func runToken(args []string, out io.Writer) error {
	subject, ttl, err := parseTokenArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	return mintToken(cfg.Auth.JWTSecret, subject, ttl, out)
}

func mintToken(secret, subject string, ttl time.Duration, out io.Writer) error {
	verifier, err := auth.NewJWTVerifier([]byte(secret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(subject, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// runProbe requests a health endpoint on the configured address and prints the body.
func runProbe(ctx context.Context, path string, out io.Writer) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return probe(ctx, http.DefaultClient, "http://"+cfg.Server.HTTPAddr+path, out)
}

func probe(ctx context.Context, client *http.Client, url string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, err = fmt.Fprintln(out, strings.TrimSpace(string(body)))
	return err
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			out:   out,
			mu:    &sync.Mutex{},
			level: level,
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// colorHandler provides colorized log output with thread-safe writes.
// Derived handlers share the writer lock.
type colorHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	// Handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		out:    h.out,
		mu:     h.mu,
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		out:    h.out,
		mu:     h.mu,
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
