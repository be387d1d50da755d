package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minCallTimeout  = 1 * time.Second
	minSessionTTL   = 1 * time.Hour
	minSecretLength = 16
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
// Credentials are not required here: commands that need them call
// RequireGoogle / RequireServer.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateGoogle(&cfg.Google)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateGoogle(g *GoogleConfig) []error {
	if g.RedirectURL == "" {
		return nil
	}

	u, err := url.Parse(g.RedirectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []error{fmt.Errorf("google.redirect_url: must be an absolute URL, got %q", g.RedirectURL)}
	}

	return nil
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.Listen == "" {
		errs = append(errs, errors.New("server.listen: must not be empty"))
	}

	if s.SessionTTL != "" {
		d, err := time.ParseDuration(s.SessionTTL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("server.session_ttl: %w", err))
		case d < minSessionTTL:
			errs = append(errs, fmt.Errorf("server.session_ttl: must be at least %s, got %s", minSessionTTL, d))
		}
	}

	if s.CookieSecret != "" && len(s.CookieSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("server.cookie_secret: must be at least %d characters", minSecretLength))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	if n.CallTimeout == "" {
		return nil
	}

	d, err := time.ParseDuration(n.CallTimeout)
	if err != nil {
		return []error{fmt.Errorf("network.call_timeout: %w", err)}
	}

	if d < minCallTimeout {
		return []error{fmt.Errorf("network.call_timeout: must be at least %s, got %s", minCallTimeout, d)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be text or json; got %q", l.LogFormat))
	}

	return errs
}

// RequireGoogle reports whether the OAuth client is configured. Commands
// that talk to Google call it before building a session manager.
func (c *Config) RequireGoogle() error {
	var errs []error

	if c.Google.ClientID == "" {
		errs = append(errs, fmt.Errorf("google.client_id is not set (config file or %s)", EnvClientID))
	}

	if c.Google.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("google.client_secret is not set (config file or %s)", EnvClientSecret))
	}

	return errors.Join(errs...)
}

// RequireServer reports whether the settings only `serve` needs are present.
func (c *Config) RequireServer() error {
	if c.Server.CookieSecret == "" {
		return fmt.Errorf("server.cookie_secret is not set (config file or %s)", EnvCookieSecret)
	}

	return c.RequireGoogle()
}
