package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger so config output shows up in
// verbose test runs.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// clearEnv blanks every override variable so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{EnvConfig, EnvCookieSecret, EnvClientID, EnvClientSecret, EnvRedirectURI, EnvGeminiAPIKey} {
		t.Setenv(name, "")
	}
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[google]
client_id = "id-123.apps.googleusercontent.com"
client_secret = "shh"
redirect_url = "https://whizz.example.com/api/auth/callback/google"

[summarizer]
api_key = "gem-key"
model = "gemini-2.5-flash"

[server]
listen = ":8080"
cookie_secret = "0123456789abcdef0123"
secure_cookies = false
session_ttl = "24h"

[network]
call_timeout = "10s"

[logging]
log_level = "debug"
log_format = "json"

[history]
enabled = false
db_path = "/var/lib/drivewhizz/history.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "id-123.apps.googleusercontent.com", cfg.Google.ClientID)
	assert.Equal(t, "shh", cfg.Google.ClientSecret)
	assert.Equal(t, "https://whizz.example.com/api/auth/callback/google", cfg.Google.RedirectURL)
	assert.Equal(t, "gemini-2.5-flash", cfg.Summarizer.Model)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.False(t, cfg.Server.SecureCookies)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTLDuration())
	assert.Equal(t, 10*time.Second, cfg.CallTimeoutDuration())
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "/var/lib/drivewhizz/history.db", cfg.HistoryDBPath())
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[google]
client_id = "abc"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Google.ClientID)
	assert.Equal(t, defaultRedirectURL, cfg.Google.RedirectURL)
	assert.Equal(t, defaultModel, cfg.Summarizer.Model)
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, defaultSessionTTL, cfg.SessionTTLDuration())
	assert.Equal(t, defaultCallTimeout, cfg.CallTimeoutDuration())
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, `[google`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeTestConfig(t, `
[google]
client_idd = "typo"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "google.client_id"`)
}

func TestLoad_ValidationErrorsAccumulate(t *testing.T) {
	path := writeTestConfig(t, `
[network]
call_timeout = "10ms"

[logging]
log_level = "loud"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network.call_timeout")
	assert.Contains(t, err.Error(), "logging.log_level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeTestConfig(t, `
[google]
client_id = "from-file"
client_secret = "file-secret"
`)

	t.Setenv(EnvConfig, path)
	t.Setenv(EnvClientID, "from-env")
	t.Setenv(EnvGeminiAPIKey, "env-gemini")

	cfg, gotPath, err := Resolve(ReadEnvOverrides(), CLIOverrides{})
	require.NoError(t, err)

	assert.Equal(t, path, gotPath)
	assert.Equal(t, "from-env", cfg.Google.ClientID)
	assert.Equal(t, "file-secret", cfg.Google.ClientSecret)
	assert.Equal(t, "env-gemini", cfg.Summarizer.APIKey)
}

func TestResolve_CLIWins(t *testing.T) {
	clearEnv(t)

	path := writeTestConfig(t, `
[server]
listen = "127.0.0.1:1"
`)

	listen := "0.0.0.0:9999"
	level := "warn"

	cfg, _, err := Resolve(ReadEnvOverrides(), CLIOverrides{ConfigPath: path, Listen: &listen, LogLevel: &level})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
	assert.Equal(t, "warn", cfg.Logging.LogLevel)
}

func TestResolve_InvalidCLIOverride(t *testing.T) {
	clearEnv(t)

	level := "chatty"

	_, _, err := Resolve(ReadEnvOverrides(), CLIOverrides{
		ConfigPath: filepath.Join(t.TempDir(), "absent.toml"),
		LogLevel:   &level,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestRequireGoogle(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.RequireGoogle()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
	assert.Contains(t, err.Error(), "client_secret")

	cfg.Google.ClientID = "id"
	cfg.Google.ClientSecret = "secret"
	assert.NoError(t, cfg.RequireGoogle())
}

func TestRequireServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Google.ClientID = "id"
	cfg.Google.ClientSecret = "secret"

	err := cfg.RequireServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cookie_secret")

	cfg.Server.CookieSecret = "a-long-enough-secret"
	assert.NoError(t, cfg.RequireServer())
}

func TestValidate_RedirectURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Google.RedirectURL = "not a url"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect_url")
}

func TestValidate_ShortCookieSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.CookieSecret = "short"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cookie_secret")
}

func TestValidate_SessionTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.SessionTTL = "5m"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_ttl")
}
