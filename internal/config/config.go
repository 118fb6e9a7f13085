// Package config handles configuration for medimate.
//
// Values are layered: built-in defaults, then ~/.medimate/config.json, then a
// .env file in the working directory, then MEDIMATE_* environment variables.
// Command-line flags are applied last by the commands package.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/diogo/medimate/internal/models"
)

// EnvPrefix is prepended to every environment variable read by Load
const EnvPrefix = "MEDIMATE_"

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style" env:"STYLE"`                           // "medimate", a glamour style name, or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji" env:"ENABLE_EMOJI"`             // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines" env:"PRESERVE_NEWLINES"`   // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap" env:"TABLE_WRAP"`                 // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links" env:"INLINE_TABLE_LINKS"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// BackendURL is the base URL of the chat backend; requests go to BackendURL + /api/chat.
	BackendURL string `json:"backend_url" env:"BACKEND_URL"`
	// RequestTimeout is the number of seconds a chat request may take before it is abandoned.
	RequestTimeout int `json:"request_timeout" env:"REQUEST_TIMEOUT"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`
	// LogFile receives diagnostic output. The TUI owns the terminal so nothing is logged to stderr.
	LogFile string `json:"log_file,omitempty" env:"LOG_FILE"`
	// Verbose forces debug logging.
	Verbose         bool           `json:"verbose" env:"VERBOSE"`
	CopyToClipboard bool           `json:"copy_to_clipboard" env:"COPY_TO_CLIPBOARD"`
	TUITheme        string         `json:"tui_theme,omitempty" env:"TUI_THEME"`
	ExportDir       string         `json:"export_dir,omitempty" env:"EXPORT_DIR"`
	Markdown        MarkdownConfig `json:"markdown,omitempty" envPrefix:"MARKDOWN_"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "medimate",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		BackendURL:      models.DefaultBackendURL,
		RequestTimeout:  int(models.DefaultRequestTimeout / time.Second),
		LogLevel:        "info",
		LogFile:         filepath.Join(homeDir, ".medimate", "logs", "medimate.log"),
		Verbose:         false,
		CopyToClipboard: false,
		TUITheme:        "medimate",
		ExportDir:       filepath.Join(homeDir, ".medimate", "exports"),
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Timeout returns the request timeout as a duration, falling back to the default
func (c Config) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return models.DefaultRequestTimeout
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// ChatEndpoint returns the absolute URL of the chat endpoint
func (c Config) ChatEndpoint() string {
	return strings.TrimRight(c.BackendURL, "/") + models.ChatPath
}

// Validate checks that all required configuration fields are set
func (c Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("backend_url cannot be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("backend_url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend_url must include a host: %q", c.BackendURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be >= 0, got %d", c.RequestTimeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error: got %q", c.LogLevel)
	}
	return nil
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".medimate"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the session token
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetSessionPath returns the path to the session file
func GetSessionPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "session.json"), nil
}

// GetExportDir returns the export directory from config, creating it if necessary
func GetExportDir(cfg Config) (string, error) {
	dir := cfg.ExportDir
	if dir == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(configDir, "exports")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	return dir, nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set are left alone and missing files are
// skipped. With no arguments ".env" in the working directory is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", f, err)
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ParseEnv overlays MEDIMATE_* environment variables onto cfg.
// Fields whose variable is unset keep their current value.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load resolves the effective configuration: file, then .env files, then
// environment. The result is validated.
func Load(dotEnvFiles ...string) (Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return cfg, err
	}
	if err := LoadDotEnv(dotEnvFiles...); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// AvailableThemes returns the TUI theme names accepted by tui_theme
func AvailableThemes() []string {
	return []string{
		"medimate",
		"tokyonight",
		"nord",
		"light",
	}
}
