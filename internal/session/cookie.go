package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// CookieName is the cookie that carries the sealed session.
const CookieName = "google_tokens"

const (
	keySize   = 32
	nonceSize = 24
	keyInfo   = "drivewhizz session cookie v1"
)

// CookieKey is the secretbox key used to seal session cookies.
type CookieKey [keySize]byte

// DeriveCookieKey stretches the configured cookie secret into a secretbox key.
func DeriveCookieKey(secret string) (*CookieKey, error) {
	if secret == "" {
		return nil, errors.New("session: empty cookie secret")
	}

	var key CookieKey
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key[:]); err != nil {
		return nil, fmt.Errorf("session: deriving cookie key: %w", err)
	}

	return &key, nil
}

// CookieStore keeps the session in a sealed, HTTP-only cookie. It is bound to
// a single request/response pair; writes made while handling the request are
// visible to later reads of the same store.
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	key    *CookieKey
	secure bool

	// Set after the first Put or Delete so later reads in the same request
	// see the new state instead of the inbound cookie.
	overridden bool
	current    *Session
}

// NewCookieStore binds a store to w and r. secure controls the cookie's
// Secure attribute.
func NewCookieStore(w http.ResponseWriter, r *http.Request, key *CookieKey, secure bool) *CookieStore {
	return &CookieStore{w: w, r: r, key: key, secure: secure}
}

// Get opens the inbound cookie. A cookie that fails to open yields
// ErrCorruptSession.
func (c *CookieStore) Get(_ context.Context) (*Session, error) {
	if c.overridden {
		if c.current == nil {
			return nil, nil //nolint:nilnil // cleared during this request
		}

		cp := *c.current

		return &cp, nil
	}

	ck, err := c.r.Cookie(CookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil //nolint:nilnil // no session
	}

	if err != nil {
		return nil, fmt.Errorf("session: reading cookie: %w", err)
	}

	s, err := open(c.key, ck.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}

	return s, nil
}

// Put seals s into the response cookie with Max-Age = ttl.
func (c *CookieStore) Put(_ context.Context, s *Session, ttl time.Duration) error {
	value, err := seal(c.key, s)
	if err != nil {
		return err
	}

	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	cp := *s
	c.overridden = true
	c.current = &cp

	return nil
}

// Delete expires the cookie on the client.
func (c *CookieStore) Delete(_ context.Context) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	c.overridden = true
	c.current = nil

	return nil
}

func seal(key *CookieKey, s *Session) (string, error) {
	plain, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("session: encoding: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("session: generating nonce: %w", err)
	}

	k := [keySize]byte(*key)
	box := secretbox.Seal(nonce[:], plain, &nonce, &k)

	return base64.RawURLEncoding.EncodeToString(box), nil
}

func open(key *CookieKey, value string) (*Session, error) {
	box, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decoding cookie: %w", err)
	}

	if len(box) < nonceSize+secretbox.Overhead {
		return nil, errors.New("cookie too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	k := [keySize]byte(*key)

	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &k)
	if !ok {
		return nil, errors.New("cookie authentication failed")
	}

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	return &s, nil
}
