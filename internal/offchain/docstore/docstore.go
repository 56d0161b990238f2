// Package docstore is a SQLite-backed offchain.Store.
//
// Documents are keyed by (locator, hash). Every write is also appended to
// a write log so repaired documents keep their history.
package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

var migrations = []sqlitedb.Migration{
	{
		Version: 1,
		Name:    "document write log index",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_document_writes_handle ON document_writes(locator, hash)`,
	},
}

// Store implements offchain.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ offchain.Store = (*Store)(nil)

// Open creates or opens the document database at path.
func Open(path string) (*Store, error) {
	db, err := sqlitedb.Open(path, schemaSQL, migrations)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores doc at h, replacing any previous document at the same handle.
func (s *Store) Put(ctx context.Context, h offchain.Handle, doc []byte) error {
	if h.Locator == "" || h.Hash.IsZero() {
		return fmt.Errorf("put document: incomplete handle %+v", h)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (locator, hash, body)
		VALUES (?, ?, ?)
		ON CONFLICT(locator, hash) DO UPDATE SET body = excluded.body
	`, h.Locator, string(h.Hash), doc); err != nil {
		return fmt.Errorf("put %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_writes (locator, hash, size) VALUES (?, ?, ?)
	`, h.Locator, string(h.Hash), len(doc)); err != nil {
		return fmt.Errorf("put %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}
	return nil
}

// Get returns the document at h.
func (s *Store) Get(ctx context.Context, h offchain.Handle) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM documents WHERE locator = ? AND hash = ?
	`, h.Locator, string(h.Hash)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", h.URL(), offchain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}
	return body, nil
}

// Writes returns how many times h has been written.
func (s *Store) Writes(ctx context.Context, h offchain.Handle) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM document_writes WHERE locator = ? AND hash = ?
	`, h.Locator, string(h.Hash)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count writes for %s: %w", h.URL(), err)
	}
	return n, nil
}
