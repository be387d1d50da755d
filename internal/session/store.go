package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tonimelisma/drivewhizz/internal/tokenfile"
)

// Store persists one caller's session. Get returns (nil, nil) when nothing is
// stored or the stored entry outlived its TTL.
type Store interface {
	Get(ctx context.Context) (*Session, error)
	Put(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps a session in process memory. Used by tests and the demo
// mode of the CLI.
type MemoryStore struct {
	mu       sync.Mutex
	session  *Session
	notAfter time.Time
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, nil //nolint:nilnil // no session
	}

	if !m.notAfter.IsZero() && !m.now().Before(m.notAfter) {
		m.session = nil
		return nil, nil //nolint:nilnil // expired
	}

	cp := *m.session

	return &cp, nil
}

// Put stores a copy of s. A non-positive ttl never expires.
func (m *MemoryStore) Put(_ context.Context, s *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.session = &cp
	m.notAfter = time.Time{}

	if ttl > 0 {
		m.notAfter = m.now().Add(ttl)
	}

	return nil
}

// Delete removes the stored session.
func (m *MemoryStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil

	return nil
}

// FileStore keeps the session in a token file. The terminal front-end uses
// it so a login survives between invocations.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a FileStore backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Get loads the token file. A file past its not_after deadline reads as no
// session; an undecodable file yields ErrCorruptSession.
func (f *FileStore) Get(_ context.Context) (*Session, error) {
	tf, err := tokenfile.Load(f.path)
	if errors.Is(err, tokenfile.ErrCorrupt) {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}

	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	if tf == nil || tf.Expired(f.now()) {
		return nil, nil //nolint:nilnil // no session
	}

	return FromToken(tf.Token), nil
}

// Put writes the session with a deadline of now+ttl.
func (f *FileStore) Put(_ context.Context, s *Session, ttl time.Duration) error {
	var notAfter time.Time
	if ttl > 0 {
		notAfter = f.now().Add(ttl)
	}

	if err := tokenfile.Save(f.path, s.Token(), notAfter); err != nil {
		return fmt.Errorf("session: saving %s: %w", f.path, err)
	}

	return nil
}

// Delete removes the token file.
func (f *FileStore) Delete(_ context.Context) error {
	return tokenfile.Remove(f.path)
}
