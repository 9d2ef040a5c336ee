// Package sqlitestore provides a SQLite implementation of the dorae repositories.
//
// Documents are stored as JSON; update logs and agent notes live in their own
// tables so that appends never rewrite the parent document.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dorae/dorae/internal/domain"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store is a SQLite database holding tasks, agents and timer jobs.
type Store struct {
	db  *sql.DB
	ids domain.IDGenerator
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, ids domain.IDGenerator) (*Store, error) {
	if path == "" {
		return nil, errors.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; queries must not nest on this connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, ids: ids}
	if err := s.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize applies the schema. It is safe to call repeatedly.
func (s *Store) Initialize() error {
	return s.applySchema(context.Background())
}

// Tasks returns the task repository view of the store.
func (s *Store) Tasks() *TaskStore {
	return &TaskStore{s: s}
}

// Agents returns the agent repository view of the store.
func (s *Store) Agents() *AgentStore {
	return &AgentStore{s: s}
}

// Timers returns the timer repository view of the store.
func (s *Store) Timers() *TimerStore {
	return &TimerStore{s: s}
}

func (s *Store) applySchema(ctx context.Context) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var (
	_ domain.TaskRepository   = (*TaskStore)(nil)
	_ domain.AgentRepository  = (*AgentStore)(nil)
	_ domain.TimerRepository  = (*TimerStore)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)
