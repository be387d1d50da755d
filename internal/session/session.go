// Package session owns the OAuth credential lifecycle: building the consent
// URL, exchanging an authorization code, refreshing a token that is about to
// expire, and persisting the result through a Store.
package session

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// Sentinel errors for the session lifecycle.
var (
	// ErrAuthRequired means no usable session exists for the caller.
	ErrAuthRequired = errors.New("session: not authenticated")
	// ErrAuthExchange means the provider rejected an authorization code.
	ErrAuthExchange = errors.New("session: authorization code exchange failed")
	// ErrCorruptSession means a stored blob could not be decoded. Managers
	// treat it as "no session" and delete the blob.
	ErrCorruptSession = errors.New("session: stored session is corrupt")
)

// Session is the credential bundle for one authenticated user.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// FromToken converts a provider token into a Session.
func FromToken(tok *oauth2.Token) *Session {
	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}

// Token returns the session as a bearer oauth2.Token.
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.Expiry,
	}
}

// expiresWithin reports whether the access token expires before now+window.
// A zero expiry is treated as non-expiring.
func (s *Session) expiresWithin(now time.Time, window time.Duration) bool {
	if s.Expiry.IsZero() {
		return false
	}

	return !now.Add(window).Before(s.Expiry)
}
