// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreSQLite    = "sqlite"
	StoreBadger    = "badger"
	StorePostgREST = "postgrest"
)

// Search backends.
const (
	SearchStore = "store" // substring filters pushed to the store
	SearchIndex = "index" // in-memory bleve catalog index
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Search  SearchConfig
	Catalog CatalogConfig
	Server  ServerConfig
	Auth    AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Backend string // sqlite, badger or postgrest (default: sqlite)
	// DataPath is the directory for embedded stores (default: ~/KnowYourNotes/data)
	DataPath string

	PostgRESTURL     string
	PostgRESTAPIKey  string
	PostgRESTRPS     float64       // Outbound requests per second (default: 20)
	PostgRESTTimeout time.Duration // Per-request timeout (default: 10s)
}

// SearchConfig selects the name-matching backend.
type SearchConfig struct {
	Backend string // store or index (default: store)
}

// CatalogConfig holds catalog presentation settings.
type CatalogConfig struct {
	// HomeListSize is the length of each home page list (default: 10)
	HomeListSize int
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed origins (default: *)
	RateLimit    int           // Requests per minute per client IP; 0 disables (default: 300)
}

// AuthConfig holds identity token configuration.
type AuthConfig struct {
	// TokenKey is the hex-encoded PASETO v4 symmetric key shared with the
	// identity service (64 hex characters). Empty in development means an
	// ephemeral key is generated at startup.
	TokenKey string
	Issuer   string // Expected token issuer (default: knowyournotes)
	Audience string // Expected token audience (default: knowyournotes-api)
}

// LoadConfig loads configuration from os.Args with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig with explicit arguments.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("catalog-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Store flags
	storeBackend := fs.String("store", "", "Store backend (sqlite, badger, postgrest)")
	dataPath := fs.String("data-path", "", "Directory for embedded stores")
	postgrestURL := fs.String("postgrest-url", "", "PostgREST base URL")
	postgrestRPS := fs.String("postgrest-rps", "", "Outbound PostgREST requests per second (default: 20)")
	postgrestTimeout := fs.String("postgrest-timeout", "", "PostgREST request timeout (default: 10s)")

	searchBackend := fs.String("search", "", "Search backend (store, index)")
	homeListSize := fs.String("home-list-size", "", "Length of home page lists (default: 10)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed origins (default: *)")
	rateLimit := fs.String("rate-limit", "", "Requests per minute per client IP (default: 300)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Backend:         getConfigValue(*storeBackend, "STORE_BACKEND", StoreSQLite),
			DataPath:        getConfigValue(*dataPath, "DATA_PATH", ""),
			PostgRESTURL:    getConfigValue(*postgrestURL, "POSTGREST_URL", ""),
			PostgRESTAPIKey: getConfigValue("", "POSTGREST_API_KEY", ""),
			PostgRESTRPS:    getFloatConfigValue(*postgrestRPS, "POSTGREST_RPS", 20),
		},
		Search: SearchConfig{
			Backend: getConfigValue(*searchBackend, "SEARCH_BACKEND", SearchStore),
		},
		Catalog: CatalogConfig{
			HomeListSize: getIntConfigValue(*homeListSize, "HOME_LIST_SIZE", 10),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			RateLimit:   getIntConfigValue(*rateLimit, "API_RATE_LIMIT", 300),
		},
		Auth: AuthConfig{
			TokenKey: getConfigValue("", "AUTH_TOKEN_KEY", ""),
			Issuer:   getConfigValue("", "AUTH_TOKEN_ISSUER", "knowyournotes"),
			Audience: getConfigValue("", "AUTH_TOKEN_AUDIENCE", "knowyournotes-api"),
		},
	}

	durations := []struct {
		flagValue, envKey, defaultValue, name string
		dest                                  *time.Duration
	}{
		{*postgrestTimeout, "POSTGREST_TIMEOUT", "10s", "postgrest timeout", &cfg.Store.PostgRESTTimeout},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", "write timeout", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout", &cfg.Server.IdleTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.defaultValue)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dest = parsed
	}

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Backend {
	case StoreSQLite, StoreBadger:
		if c.Store.DataPath == "" {
			return errors.New("data path cannot be empty after expansion")
		}
	case StorePostgREST:
		if c.Store.PostgRESTURL == "" {
			return errors.New("POSTGREST_URL is required for the postgrest store")
		}
		if c.Store.PostgRESTRPS < 0 {
			return fmt.Errorf("invalid postgrest rps: %v", c.Store.PostgRESTRPS)
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be sqlite, badger, or postgrest)", c.Store.Backend)
	}

	if c.Search.Backend != SearchStore && c.Search.Backend != SearchIndex {
		return fmt.Errorf("invalid search backend: %s (must be store or index)", c.Search.Backend)
	}

	if c.Catalog.HomeListSize <= 0 {
		return fmt.Errorf("invalid home list size: %d", c.Catalog.HomeListSize)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d", c.Server.RateLimit)
	}

	if c.Auth.TokenKey != "" {
		key, err := hex.DecodeString(c.Auth.TokenKey)
		if err != nil || len(key) != 32 {
			return errors.New("AUTH_TOKEN_KEY must be 64 hex characters")
		}
	} else if c.App.Environment == "production" {
		return errors.New("AUTH_TOKEN_KEY is required in production")
	}

	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "KnowYourNotes", "data")

	expanded, err := expandPath(c.Store.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
