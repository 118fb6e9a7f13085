package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BackendURL != "http://localhost:3000" {
		t.Errorf("Expected default backend 'http://localhost:3000', got '%s'", cfg.BackendURL)
	}
	if cfg.RequestTimeout != 60 {
		t.Errorf("Expected RequestTimeout 60, got %d", cfg.RequestTimeout)
	}
	if cfg.Verbose {
		t.Errorf("Expected Verbose to be false")
	}
	if cfg.Markdown.Style != "medimate" {
		t.Errorf("Expected markdown style 'medimate', got %q", cfg.Markdown.Style)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigTimeout(t *testing.T) {
	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{30, 30 * time.Second},
		{0, 60 * time.Second},
		{-5, 60 * time.Second},
	}
	for _, tt := range tests {
		cfg := Config{RequestTimeout: tt.seconds}
		if got := cfg.Timeout(); got != tt.want {
			t.Errorf("Timeout(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestChatEndpoint(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"http://localhost:3000", "http://localhost:3000/api/chat"},
		{"https://medimate.example.com/", "https://medimate.example.com/api/chat"},
	}
	for _, tt := range tests {
		cfg := Config{BackendURL: tt.backend}
		if got := cfg.ChatEndpoint(); got != tt.want {
			t.Errorf("ChatEndpoint() = %q, want %q", got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"empty backend", func(c *Config) { c.BackendURL = "" }, true},
		{"ftp backend", func(c *Config) { c.BackendURL = "ftp://host" }, true},
		{"no host", func(c *Config) { c.BackendURL = "http://" }, true},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -1 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"upper log level", func(c *Config) { c.LogLevel = "DEBUG" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() returned error: %v", err)
	}
	if path != filepath.Join(tmpDir, ".medimate", "config.json") {
		t.Errorf("GetConfigPath() = %s", path)
	}

	sessionPath, err := GetSessionPath()
	if err != nil {
		t.Fatalf("GetSessionPath() returned error: %v", err)
	}
	if sessionPath != filepath.Join(tmpDir, ".medimate", "session.json") {
		t.Errorf("GetSessionPath() = %s", sessionPath)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	dir, err := EnsureConfigDir()
	if err != nil {
		t.Fatalf("EnsureConfigDir() returned error: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("config dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("config dir is not a directory")
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("config dir perm = %o, want 700", info.Mode().Perm())
	}
}

func TestSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg := DefaultConfig()
	cfg.BackendURL = "https://chat.example.com"
	cfg.RequestTimeout = 15

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".medimate", "config.json"))
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}

	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("failed to parse saved config: %v", err)
	}
	if saved.BackendURL != "https://chat.example.com" || saved.RequestTimeout != 15 {
		t.Errorf("saved config mismatch: %+v", saved)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.BackendURL != DefaultConfig().BackendURL {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_WithExistingFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ".medimate")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	content := `{"backend_url": "https://saved.example.com", "tui_theme": "nord"}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.BackendURL != "https://saved.example.com" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.TUITheme != "nord" {
		t.Errorf("TUITheme = %q", cfg.TUITheme)
	}
	// Fields missing from the file keep their defaults
	if cfg.RequestTimeout != 60 {
		t.Errorf("RequestTimeout = %d, want default 60", cfg.RequestTimeout)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ".medimate")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.BackendURL != DefaultConfig().BackendURL {
		t.Error("invalid file should fall back to defaults")
	}
}

func TestParseEnv_OverridesOnlySetVariables(t *testing.T) {
	t.Setenv("MEDIMATE_BACKEND_URL", "https://env.example.com")
	t.Setenv("MEDIMATE_MARKDOWN_STYLE", "light")
	t.Setenv("MEDIMATE_COPY_TO_CLIPBOARD", "true")

	cfg := DefaultConfig()
	cfg.RequestTimeout = 42

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv() returned error: %v", err)
	}
	if cfg.BackendURL != "https://env.example.com" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.Markdown.Style != "light" {
		t.Errorf("Markdown.Style = %q", cfg.Markdown.Style)
	}
	if !cfg.CopyToClipboard {
		t.Error("CopyToClipboard should be true")
	}
	if cfg.RequestTimeout != 42 {
		t.Errorf("unset variables must not change fields, RequestTimeout = %d", cfg.RequestTimeout)
	}
}

func TestParseEnv_InvalidValue(t *testing.T) {
	t.Setenv("MEDIMATE_REQUEST_TIMEOUT", "soon")

	cfg := DefaultConfig()
	if err := ParseEnv(&cfg); err == nil {
		t.Fatal("expected error for non-numeric timeout")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("MEDIMATE_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("MEDIMATE_TEST_DOTENV") })

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() returned error: %v", err)
	}
	if got := os.Getenv("MEDIMATE_TEST_DOTENV"); got != "from-file" {
		t.Errorf("MEDIMATE_TEST_DOTENV = %q", got)
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("MEDIMATE_TEST_PRESET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEDIMATE_TEST_PRESET", "from-env")

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv() returned error: %v", err)
	}
	if got := os.Getenv("MEDIMATE_TEST_PRESET"); got != "from-env" {
		t.Errorf("MEDIMATE_TEST_PRESET = %q, want from-env", got)
	}
}

func TestLoad_Layers(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg := DefaultConfig()
	cfg.BackendURL = "https://file.example.com"
	cfg.RequestTimeout = 10
	if err := SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MEDIMATE_REQUEST_TIMEOUT", "20")

	got, err := Load(filepath.Join(tmpDir, "none.env"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if got.BackendURL != "https://file.example.com" {
		t.Errorf("BackendURL = %q, want value from file", got.BackendURL)
	}
	if got.RequestTimeout != 20 {
		t.Errorf("RequestTimeout = %d, want env override 20", got.RequestTimeout)
	}
}

func TestLoad_InvalidResult(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEDIMATE_BACKEND_URL", "not a url")

	if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGetExportDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	got, err := GetExportDir(Config{ExportDir: dir})
	if err != nil {
		t.Fatalf("GetExportDir() returned error: %v", err)
	}
	if got != dir {
		t.Errorf("GetExportDir() = %q, want %q", got, dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("export dir not created: %v", err)
	}
}

func TestAvailableThemes(t *testing.T) {
	if len(AvailableThemes()) == 0 {
		t.Fatal("expected at least one theme")
	}
}
