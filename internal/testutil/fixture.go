// Package testutil holds fixtures shared by the importer and CLI tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/quoteclock/internal/store"
)

// SampleQuotes is a small quote file covering quoting, the quote cascade
// and an empty fragment.
var SampleQuotes = []string{
	`08:15|eight fifteen|It's eight fifteen, she said.|Morning Book|Jane Doe`,
	`12:00|noon|At noon the bell rang.|"Bells"|Q. Writer`,
	`23:59|one minute to midnight|He said ""one minute to midnight"" twice.|Late|Night Owl`,
	`00:00|||Nobody|Anon`,
}

// WriteQuoteFile writes lines, each terminated by a newline, to a file in a
// fresh temp dir and returns its path.
func WriteQuoteFile(t testing.TB, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quotes.csv")
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write quote file: %v", err)
	}
	return path
}

// DumpQuotes renders every quote in the store at path, in id order, as
// "id|minute|text|author|book" lines.
func DumpQuotes(t testing.TB, path string) []byte {
	t.Helper()

	ctx := context.Background()
	s, err := store.OpenReadOnly(ctx, path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("read quotes: %v", err)
	}

	var b strings.Builder
	for _, q := range all {
		fmt.Fprintf(&b, "%d|%d|%s|%s|%s\n", q.ID, q.Minute, q.Text, q.Author, q.Book)
	}
	return []byte(b.String())
}
