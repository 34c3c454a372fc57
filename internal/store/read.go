package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/quoteclock/internal/quote"
)

// ErrNotFound is returned when no quote matches a lookup.
var ErrNotFound = errors.New("quote not found")

// Quote is a stored quote with its id.
type Quote struct {
	ID int64
	quote.Record
}

const selectColumns = `SELECT _id, minute, text, author, book FROM quotes`

// Count returns the number of stored quotes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count quotes: %w", err)
	}
	return n, nil
}

// Get retrieves a single quote by id.
// Returns ErrNotFound if no quote has that id.
func (s *Store) Get(ctx context.Context, id int64) (Quote, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE _id = ?`, id)

	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, fmt.Errorf("get quote %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("get quote %d: %w", id, err)
	}
	return q, nil
}

// RandomAt returns a random quote for minute, or ErrNotFound if the minute
// has none.
func (s *Store) RandomAt(ctx context.Context, minute int) (Quote, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE minute = ?
		ORDER BY RANDOM()
		LIMIT 1
	`, minute)

	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("quote at minute %d: %w", minute, err)
	}
	return q, nil
}

// Lookup returns a quote for minute. When the minute has none it tries up to
// fallback earlier minutes, wrapping from 00:00 to 23:59, and returns the
// first quote found. The returned quote's Minute says which minute matched.
func (s *Store) Lookup(ctx context.Context, minute, fallback int) (Quote, error) {
	if fallback < 0 {
		fallback = 0
	}

	for i := 0; i <= fallback && i < quote.MinutesPerDay; i++ {
		m := wrapMinute(minute - i)
		q, err := s.RandomAt(ctx, m)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Quote{}, err
		}
		return q, nil
	}

	return Quote{}, fmt.Errorf("lookup minute %d with fallback %d: %w", minute, fallback, ErrNotFound)
}

// All returns every quote ordered by id.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) All(ctx context.Context) ([]Quote, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY _id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

// Coverage summarizes how the stored quotes spread over the day.
type Coverage struct {
	// Total is the number of stored quotes.
	Total int
	// PerMinute counts quotes for each minute of the day.
	PerMinute [quote.MinutesPerDay]int
	// Missing lists minutes with no quote, ascending.
	Missing []int
	// OutOfRange counts quotes whose minute is outside 0..1439.
	OutOfRange int
}

// Covered returns the number of minutes with at least one quote.
func (c Coverage) Covered() int {
	return quote.MinutesPerDay - len(c.Missing)
}

// Coverage counts quotes per minute of the day.
func (s *Store) Coverage(ctx context.Context) (Coverage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT minute, COUNT(*)
		FROM quotes
		GROUP BY minute
		ORDER BY minute ASC
	`)
	if err != nil {
		return Coverage{}, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	var c Coverage
	for rows.Next() {
		var minute sql.NullInt64
		var n int
		if err := rows.Scan(&minute, &n); err != nil {
			return Coverage{}, fmt.Errorf("scan coverage: %w", err)
		}
		c.Total += n
		if !minute.Valid || minute.Int64 < 0 || minute.Int64 >= quote.MinutesPerDay {
			c.OutOfRange += n
			continue
		}
		c.PerMinute[minute.Int64] = n
	}

	if err := rows.Err(); err != nil {
		return Coverage{}, fmt.Errorf("iterate coverage: %w", err)
	}

	c.Missing = []int{}
	for m, n := range c.PerMinute {
		if n == 0 {
			c.Missing = append(c.Missing, m)
		}
	}

	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanQuote reads the columns of selectColumns into a Quote.
func scanQuote(row scanner) (Quote, error) {
	var q Quote
	var text, author, book sql.NullString
	if err := row.Scan(&q.ID, &q.Minute, &text, &author, &book); err != nil {
		return Quote{}, err
	}
	q.Text = text.String
	q.Author = author.String
	q.Book = book.String
	return q, nil
}

func wrapMinute(m int) int {
	m %= quote.MinutesPerDay
	if m < 0 {
		m += quote.MinutesPerDay
	}
	return m
}
