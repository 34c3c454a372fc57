package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/quoteclock/internal/quote"
)

// createTestStore creates a fresh store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotes.db")
	s, err := Create(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestQuotes writes recs in one committed batch and returns their ids.
func insertTestQuotes(t *testing.T, s *Store, recs ...quote.Record) []int64 {
	t.Helper()
	ctx := context.Background()

	b, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer b.Rollback()

	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		id, err := b.Insert(ctx, rec)
		if err != nil {
			t.Fatalf("Insert(%+v) failed: %v", rec, err)
		}
		ids = append(ids, id)
	}

	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return ids
}

// createTestRecord creates a record with placeholder text for minute.
func createTestRecord(minute int, text string) quote.Record {
	return quote.Record{
		Minute: minute,
		Text:   text,
		Author: "Test Author",
		Book:   "Test Book",
	}
}
