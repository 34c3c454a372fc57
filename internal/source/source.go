// Package source streams rows out of a delimited quote file.
//
// The reader is forward-only and never buffers the whole file. Rows are
// numbered from 1 in the order they are returned; blank lines are skipped
// and do not receive a number.
//
// Quoting follows the lenient dialect the quote collections were exported
// with:
//   - a field that starts with '"' is quoted; delimiters and newlines inside
//     it are data, and '""' inside it is one literal quote
//   - a quote that closes a quoted field but is followed by anything other
//     than a delimiter or end of line ends the quoted part only; the rest of
//     the field is read unquoted
//   - a quote inside an unquoted field is data
//   - end of input inside a quoted field ends the field
//
// "\r\n" and lone "\r" are read as "\n".
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter separates fields in quote files.
const DefaultDelimiter = '|'

const (
	quoteChar = '"'
	utf8BOM   = '\uFEFF'
)

// Row is one record read from the source.
type Row struct {
	// Num is the 1-based position of the row among all rows returned.
	Num int
	// Line is the physical line the row starts on. It differs from Num
	// when the file has blank lines or quoted fields spanning lines.
	Line int
	// Fields holds the raw field values. The slice is owned by the caller.
	Fields []string
}

type state int

const (
	startRecord state = iota
	startField
	inField
	inQuotedField
	quoteInQuotedField
)

// Reader reads rows from a delimited stream.
type Reader struct {
	br    *bufio.Reader
	delim rune
	num   int
	line  int // physical lines consumed so far
	first bool
}

// NewReader returns a Reader over r using delim as the field separator.
// A zero delim selects DefaultDelimiter.
func NewReader(r io.Reader, delim rune) (*Reader, error) {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	if !ValidDelimiter(delim) {
		return nil, fmt.Errorf("invalid delimiter %q", delim)
	}
	return &Reader{br: bufio.NewReader(r), delim: delim, first: true}, nil
}

// ValidDelimiter reports whether d can separate fields.
func ValidDelimiter(d rune) bool {
	return d != 0 && d != quoteChar && d != '\r' && d != '\n' && d != utf8BOM &&
		d != utf8.RuneError && utf8.ValidRune(d)
}

// Next returns the next row, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Row, error) {
	for {
		startLine := r.line + 1
		fields, err := r.readRecord()
		if err != nil && !errors.Is(err, io.EOF) {
			return Row{}, fmt.Errorf("read line %d: %w", startLine, err)
		}
		if fields == nil {
			if errors.Is(err, io.EOF) {
				return Row{}, io.EOF
			}
			// blank line
			continue
		}

		r.num++
		return Row{Num: r.num, Line: startLine, Fields: fields}, nil
	}
}

// readRecord consumes one physical record. It returns nil fields for a blank
// line and io.EOF alongside the final record when input ends without a
// newline.
func (r *Reader) readRecord() ([]string, error) {
	var (
		fields []string
		field  strings.Builder
		st     = startRecord
	)

	saveField := func() {
		fields = append(fields, field.String())
		field.Reset()
	}

	for {
		c, err := r.readRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			if st == startRecord {
				return nil, io.EOF
			}
			saveField()
			return fields, io.EOF
		}

		switch st {
		case startRecord:
			if c == '\n' {
				return nil, nil
			}
			st = startField
			fallthrough

		case startField:
			switch c {
			case '\n':
				saveField()
				return fields, nil
			case quoteChar:
				st = inQuotedField
			case r.delim:
				saveField()
			default:
				field.WriteRune(c)
				st = inField
			}

		case inField:
			switch c {
			case '\n':
				saveField()
				return fields, nil
			case r.delim:
				saveField()
				st = startField
			default:
				field.WriteRune(c)
			}

		case inQuotedField:
			if c == quoteChar {
				st = quoteInQuotedField
			} else {
				field.WriteRune(c)
			}

		case quoteInQuotedField:
			switch c {
			case quoteChar:
				field.WriteRune(quoteChar)
				st = inQuotedField
			case r.delim:
				saveField()
				st = startField
			case '\n':
				saveField()
				return fields, nil
			default:
				field.WriteRune(c)
				st = inField
			}
		}
	}
}

// readRune returns the next rune with line endings folded to '\n' and a
// leading byte order mark dropped.
func (r *Reader) readRune() (rune, error) {
	c, _, err := r.br.ReadRune()
	if err != nil {
		return 0, err
	}

	if r.first {
		r.first = false
		if c == utf8BOM {
			return r.readRune()
		}
	}

	switch c {
	case '\r':
		next, _, err := r.br.ReadRune()
		switch {
		case err == nil:
			if next != '\n' {
				_ = r.br.UnreadRune()
			}
		case !errors.Is(err, io.EOF):
			return 0, err
		}
		r.line++
		return '\n', nil
	case '\n':
		r.line++
	}
	return c, nil
}

// File is a Reader bound to an open file.
type File struct {
	*Reader
	f *os.File
}

// Open opens path for streaming. Callers must Close the returned File.
func Open(path string, delim rune) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	r, err := NewReader(f, delim)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{Reader: r, f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}
