package config

import "time"

// Default values for configuration options. These are the first layer of the
// override chain and work without any config file, except for the OAuth
// client and Gemini key which have no sensible default.
const (
	defaultRedirectURL    = "http://localhost:9002/api/auth/callback/google"
	defaultModel          = "gemini-2.0-flash"
	defaultListen         = "127.0.0.1:9002"
	defaultSessionTTLText = "168h"
	defaultCallTimeoutTxt = "30s"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"

	defaultSessionTTL  = 7 * 24 * time.Hour
	defaultCallTimeout = 30 * time.Second
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Google: GoogleConfig{
			RedirectURL: defaultRedirectURL,
		},
		Summarizer: SummarizerConfig{
			Model: defaultModel,
		},
		Server: ServerConfig{
			Listen:        defaultListen,
			SecureCookies: true,
			SessionTTL:    defaultSessionTTLText,
		},
		Network: NetworkConfig{
			CallTimeout: defaultCallTimeoutTxt,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
