// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for drivewhizz. Values are resolved in
// layers: defaults -> config file -> environment -> CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Google     GoogleConfig     `toml:"google"`
	Summarizer SummarizerConfig `toml:"summarizer"`
	Server     ServerConfig     `toml:"server"`
	Network    NetworkConfig    `toml:"network"`
	Logging    LoggingConfig    `toml:"logging"`
	History    HistoryConfig    `toml:"history"`
}

// GoogleConfig holds the OAuth client registered in the Google Cloud console.
// The redirect URL must match one registered for the client exactly.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// SummarizerConfig selects the Gemini model used by SUMMARY.
type SummarizerConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ServerConfig controls the HTTP front-end started by `drivewhizz serve`.
type ServerConfig struct {
	Listen        string `toml:"listen"`
	CookieSecret  string `toml:"cookie_secret"`
	SecureCookies bool   `toml:"secure_cookies"`
	SessionTTL    string `toml:"session_ttl"`
}

// NetworkConfig bounds every remote call made while executing a command.
type NetworkConfig struct {
	CallTimeout string `toml:"call_timeout"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// HistoryConfig controls the chat transcript database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	Listen     *string // --listen flag
	LogLevel   *string // --log-level flag
}

// CallTimeoutDuration returns the parsed per-call timeout. Validate guarantees
// the value parses; the default is returned for an empty string.
func (c *Config) CallTimeoutDuration() time.Duration {
	return durationOr(c.Network.CallTimeout, defaultCallTimeout)
}

// SessionTTLDuration returns the parsed lifetime of a persisted session.
func (c *Config) SessionTTLDuration() time.Duration {
	return durationOr(c.Server.SessionTTL, defaultSessionTTL)
}

// HistoryDBPath returns the transcript database path, falling back to the
// platform data directory.
func (c *Config) HistoryDBPath() string {
	if c.History.DBPath != "" {
		return expandTilde(c.History.DBPath)
	}

	return DefaultHistoryPath()
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
