// Package history keeps a transcript of every chat line and its reply in a
// local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultLimit is used when a query passes a non-positive limit.
const DefaultLimit = 50

const (
	sqlInsert = `INSERT INTO entries (conversation, created_at, input, command, message, kind)
		VALUES (?, ?, ?, ?, ?, ?)`

	// Newest N, returned oldest first.
	sqlConversation = `SELECT id, conversation, created_at, input, command, message, kind FROM (
		SELECT * FROM entries WHERE conversation = ? ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`

	sqlRecent = `SELECT id, conversation, created_at, input, command, message, kind FROM (
		SELECT * FROM entries ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`

	sqlDeleteConversation = `DELETE FROM entries WHERE conversation = ?`
)

// Entry is one line of a conversation and the reply it got.
type Entry struct {
	ID           int64     `json:"id"`
	Conversation string    `json:"conversation"`
	At           time.Time `json:"at"`
	Input        string    `json:"input"`
	Command      string    `json:"command,omitempty"`
	Message      string    `json:"message"`
	Kind         string    `json:"kind,omitempty"`
}

// Store is the transcript database.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewConversationID returns a fresh random conversation identifier.
func NewConversationID() string {
	return uuid.NewString()
}

// Open opens (creating if needed) the database at dbPath and migrates it.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating directory for %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: database/sql serializes on the one connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history store opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Append records e, stamping it with the current time, and returns its ID.
func (s *Store) Append(ctx context.Context, e Entry) (int64, error) {
	if e.Conversation == "" {
		return 0, fmt.Errorf("history: entry has no conversation id")
	}

	res, err := s.db.ExecContext(ctx, sqlInsert,
		e.Conversation, s.nowFunc().UnixNano(), e.Input, e.Command, e.Message, e.Kind)
	if err != nil {
		return 0, fmt.Errorf("history: inserting entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: reading entry id: %w", err)
	}

	return id, nil
}

// Conversation returns up to limit of the newest entries of one
// conversation, oldest first.
func (s *Store) Conversation(ctx context.Context, conversation string, limit int) ([]Entry, error) {
	return s.query(ctx, sqlConversation, conversation, normalizeLimit(limit))
}

// Recent returns up to limit of the newest entries across all conversations,
// oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, sqlRecent, normalizeLimit(limit))
}

// Forget deletes a conversation and reports how many entries went.
func (s *Store) Forget(ctx context.Context, conversation string) (int64, error) {
	res, err := s.db.ExecContext(ctx, sqlDeleteConversation, conversation)
	if err != nil {
		return 0, fmt.Errorf("history: deleting conversation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: counting deleted entries: %w", err)
	}

	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e  Entry
			at int64
		)

		if err := rows.Scan(&e.ID, &e.Conversation, &at, &e.Input, &e.Command, &e.Message, &e.Kind); err != nil {
			return nil, fmt.Errorf("history: scanning entry: %w", err)
		}

		e.At = time.Unix(0, at)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating entries: %w", err)
	}

	return entries, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}

	return limit
}
