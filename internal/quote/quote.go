package quote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MinutesPerDay is the number of distinct minute-of-day values.
const MinutesPerDay = 24 * 60

// FieldCount is the number of fields a source row must carry.
const FieldCount = 5

// Field positions within a source row.
const (
	FieldTime = iota
	FieldFragment
	FieldText
	FieldBook
	FieldAuthor
)

var (
	// ErrInvalidTime is returned when the time field has non-numeric hours or minutes.
	ErrInvalidTime = errors.New("invalid time")

	// ErrShortRow is returned when a row has fewer than FieldCount fields.
	ErrShortRow = errors.New("short row")
)

// Record is one row of the quotes table, minus the store-assigned id.
type Record struct {
	Minute int
	Text   string
	Author string
	Book   string
}

// Options tune Transform.
type Options struct {
	// NormalizeUnicode applies NFC to every field before any other step.
	// Off by default so output matches stores built without it.
	NormalizeUnicode bool
}

// Transform builds a Record from the fields of one source row.
// Fields beyond FieldCount are ignored.
func Transform(fields []string, opts Options) (Record, error) {
	if len(fields) < FieldCount {
		return Record{}, fmt.Errorf("%w: want %d fields, got %d", ErrShortRow, FieldCount, len(fields))
	}

	f := fields[:FieldCount]
	if opts.NormalizeUnicode {
		f = make([]string, FieldCount)
		for i := range f {
			f[i] = norm.NFC.String(fields[i])
		}
	}

	minute, err := ParseMinute(f[FieldTime])
	if err != nil {
		return Record{}, err
	}

	return Record{
		Minute: minute,
		Text:   NormalizeQuotes(Highlight(f[FieldText], f[FieldFragment])),
		Author: NormalizeQuotes(f[FieldAuthor]),
		Book:   NormalizeQuotes(f[FieldBook]),
	}, nil
}

// ParseMinute converts "HH:MM" to minutes since midnight.
//
// Hours are read from bytes [0:2] and minutes from [3:5], clamped to the
// string length. The separator is not checked and neither value is range
// checked, so "25:70" yields 1570.
func ParseMinute(s string) (int, error) {
	hh := s[:min(2, len(s))]
	mm := s[min(3, len(s)):min(5, len(s))]

	h, err := parseInt(hh)
	if err != nil {
		return 0, fmt.Errorf("%w %q: hours: %v", ErrInvalidTime, s, err)
	}
	m, err := parseInt(mm)
	if err != nil {
		return 0, fmt.Errorf("%w %q: minutes: %v", ErrInvalidTime, s, err)
	}
	return h*60 + m, nil
}

// FormatMinute renders a minute of the day as "HH:MM". Values outside the
// day are wrapped into it.
func FormatMinute(m int) string {
	m = ((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// Highlight wraps the first occurrence of fragment in text with <b></b>.
// Text is returned unchanged when fragment is absent. An empty fragment
// matches at the start, so the text gains a leading "<b></b>".
func Highlight(text, fragment string) string {
	return strings.Replace(text, fragment, "<b>"+fragment+"</b>", 1)
}

// NormalizeQuotes collapses double quotes into apostrophes in three passes:
// `"""` to `""`, then `""` to `"`, then `"` to `'`. The order matters; a run
// of one to three double quotes ends up as a single apostrophe.
func NormalizeQuotes(s string) string {
	s = strings.ReplaceAll(s, `"""`, `""`)
	s = strings.ReplaceAll(s, `""`, `"`)
	return strings.ReplaceAll(s, `"`, `'`)
}
