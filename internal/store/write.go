package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/quoteclock/internal/quote"
)

// Batch appends quotes inside a single transaction.
//
// Nothing written through a Batch is visible to other connections until
// Commit. Rollback after Commit is a no-op, so callers can always defer it.
type Batch struct {
	tx   *sql.Tx
	stmt *sql.Stmt
	done bool
}

// Begin starts a write transaction with a prepared insert statement.
func (s *Store) Begin(ctx context.Context) (*Batch, error) {
	if s.readOnly {
		return nil, fmt.Errorf("begin: %w", ErrReadOnly)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quotes (minute, text, author, book)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("begin: prepare insert: %w", err)
	}

	return &Batch{tx: tx, stmt: stmt}, nil
}

// Insert appends rec and returns the _id the store assigned to it.
// Driver errors are returned unwrapped.
func (b *Batch) Insert(ctx context.Context, rec quote.Record) (int64, error) {
	if b.done {
		return 0, errors.New("insert: batch already finished")
	}

	result, err := b.stmt.ExecContext(ctx, rec.Minute, rec.Text, rec.Author, rec.Book)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Commit makes every inserted quote durable.
func (b *Batch) Commit() error {
	if b.done {
		return errors.New("commit: batch already finished")
	}
	b.done = true
	b.stmt.Close()

	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards every quote inserted since Begin.
// It is a no-op once the batch has been committed or rolled back.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	b.stmt.Close()

	if err := b.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
