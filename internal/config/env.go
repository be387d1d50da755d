package config

import "os"

// Environment variable names for overrides. The Google and Gemini names match
// the ones the provider SDKs and their documentation use.
const (
	EnvConfig       = "DRIVEWHIZZ_CONFIG"
	EnvCookieSecret = "DRIVEWHIZZ_COOKIE_SECRET"
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvRedirectURI  = "GOOGLE_REDIRECT_URI"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // DRIVEWHIZZ_CONFIG: override config file path
	CookieSecret string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	GeminiAPIKey string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		CookieSecret: os.Getenv(EnvCookieSecret),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURL:  os.Getenv(EnvRedirectURI),
		GeminiAPIKey: os.Getenv(EnvGeminiAPIKey),
	}
}

// apply copies every non-empty override onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	if e.CookieSecret != "" {
		cfg.Server.CookieSecret = e.CookieSecret
	}

	if e.ClientID != "" {
		cfg.Google.ClientID = e.ClientID
	}

	if e.ClientSecret != "" {
		cfg.Google.ClientSecret = e.ClientSecret
	}

	if e.RedirectURL != "" {
		cfg.Google.RedirectURL = e.RedirectURL
	}

	if e.GeminiAPIKey != "" {
		cfg.Summarizer.APIKey = e.GeminiAPIKey
	}
}
