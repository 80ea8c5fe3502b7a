/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the portal's collections (equipment catalog, issue records,
  users, current user) as JSON documents in a single key/value table. The
  document shapes are the ones the dashboard reads, so a dump of this table
  can be loaded straight into the browser portal's local storage.

INTERFACES IMPLEMENTED:
  checkout.Store:      LoadCatalog/SaveCatalog, LoadIssueRecords/SaveIssueRecords
  checkout.Transactor: Both collections written in one SQL transaction
  session.Store:       Users and the current-user slot

KEY TABLE:
  kv(key TEXT PRIMARY KEY, value TEXT, updated_at TEXT)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/checkout.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := checkout.NewEngine(store, store)

SEE ALSO:
  - checkout/store/collections.go: JSON encoding per key
  - checkout/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/checkout/store"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	store.Collections

	db *sql.DB
	mu sync.RWMutex
}

var _ checkout.Transactor = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	s.Collections = store.Collections{Backend: &backend{q: db, mu: &s.mu}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a transaction.
// If fn returns error, transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(checkout.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := store.Collections{Backend: &backend{q: sqlTx}}
	if err := fn(view); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// Reset deletes every stored collection.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM kv")
	return err
}

// Keys lists stored keys in order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// =============================================================================
// KEY/VALUE BACKEND
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// backend runs against the pool or a transaction. mu is nil inside WithTx,
// which already holds the store lock.
type backend struct {
	q  querier
	mu *sync.RWMutex
}

func (b *backend) Get(ctx context.Context, key string) ([]byte, error) {
	if b.mu != nil {
		b.mu.RLock()
		defer b.mu.RUnlock()
	}

	var value string
	err := b.q.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (b *backend) Set(ctx context.Context, key string, value []byte) error {
	if b.mu != nil {
		b.mu.Lock()
		defer b.mu.Unlock()
	}

	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err := b.q.ExecContext(ctx, query, key, string(value), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (b *backend) Delete(ctx context.Context, key string) error {
	if b.mu != nil {
		b.mu.Lock()
		defer b.mu.Unlock()
	}

	_, err := b.q.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}
