package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// JournalModes lists the journal modes Create accepts.
// WAL is excluded: a shipped asset must not depend on companion files.
var JournalModes = []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF"}

// DefaultJournalMode is used when Options.JournalMode is empty.
const DefaultJournalMode = "DELETE"

// ErrReadOnly is returned by write operations on a store opened with OpenReadOnly.
var ErrReadOnly = errors.New("store is read-only")

// Options configure Create.
type Options struct {
	JournalMode string
}

// Store is a handle on a quote database.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Create opens or creates the database at path and recreates the quotes
// table. Any rows from a previous import are discarded.
func Create(ctx context.Context, path string, opts Options) (*Store, error) {
	mode := strings.ToUpper(opts.JournalMode)
	if mode == "" {
		mode = DefaultJournalMode
	}
	if !ValidJournalMode(mode) {
		return nil, fmt.Errorf("unsupported journal mode %q", opts.JournalMode)
	}

	db, err := open(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := applyPragmas(ctx, db, mode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create quotes table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing quote database without write access.
// It fails if the file does not exist rather than creating it.
func OpenReadOnly(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db, err := open(ctx, "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}

	return &Store{db: db, path: path, readOnly: true}, nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Single writer, and a single connection keeps per-connection pragmas
	// in effect for every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// ValidJournalMode reports whether mode is accepted by Create.
func ValidJournalMode(mode string) bool {
	return slices.Contains(JournalModes, strings.ToUpper(mode))
}

// applyPragmas sets connection configuration for the import.
func applyPragmas(ctx context.Context, db *sql.DB, journalMode string) error {
	pragmas := []string{
		"PRAGMA journal_mode = " + journalMode,
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if !strings.EqualFold(value, expected) {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
