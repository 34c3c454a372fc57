package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quoteclock/internal/quote"
	"github.com/roach88/quoteclock/internal/source"
	"github.com/roach88/quoteclock/internal/testutil"
)

// fakeTx records inserts and fails the failAt-th insert (1-based) with err.
type fakeTx struct {
	records    []quote.Record
	failAt     int
	err        error
	committed  bool
	rolledBack bool
	calls      int
}

func (f *fakeTx) Insert(_ context.Context, rec quote.Record) (int64, error) {
	f.calls++
	if f.calls == f.failAt {
		return 0, f.err
	}
	f.records = append(f.records, rec)
	return int64(len(f.records)), nil
}

func (f *fakeTx) Commit() error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback() error {
	f.rolledBack = true
	return nil
}

func newRows(t *testing.T, r io.Reader) *source.Reader {
	t.Helper()
	rows, err := source.NewReader(r, 0)
	require.NoError(t, err)
	return rows
}

func linesReader(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func testOptions() Options {
	return Options{RunIDs: NewFixedGenerator("run-test")}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRun_AllRows(t *testing.T) {
	tx := &fakeTx{}
	var out bytes.Buffer

	sum, err := Run(context.Background(), newRows(t, linesReader(testutil.SampleQuotes...)), tx, &out, testOptions())
	require.NoError(t, err)

	assert.Equal(t, "run-test", sum.RunID)
	assert.Equal(t, 4, sum.Processed)
	assert.Equal(t, 4, sum.Inserted)
	assert.False(t, sum.Halted())
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Equal(t, "4 lines processed\n", out.String())

	require.Len(t, tx.records, 4)
	assert.Equal(t, quote.Record{
		Minute: 495,
		Text:   "It's <b>eight fifteen</b>, she said.",
		Author: "Jane Doe",
		Book:   "Morning Book",
	}, tx.records[0])
	assert.Equal(t, "Bells", tx.records[1].Book)
	assert.Equal(t, "He said '<b>one minute to midnight</b>' twice.", tx.records[2].Text)
	assert.Equal(t, quote.Record{Minute: 0, Text: "<b></b>", Author: "Anon", Book: "Nobody"}, tx.records[3])
}

func TestRun_EmptyInput(t *testing.T) {
	tx := &fakeTx{}
	var out bytes.Buffer

	sum, err := Run(context.Background(), newRows(t, strings.NewReader("")), tx, &out, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, sum.Processed)
	assert.True(t, tx.committed)
	assert.Equal(t, "0 lines processed\n", out.String())
}

func TestRun_InsertErrorHalts(t *testing.T) {
	tx := &fakeTx{failAt: 3, err: errors.New("UNIQUE constraint failed: quotes._id")}
	var out bytes.Buffer

	rows := newRows(t, linesReader(
		"00:01|a|a|b|c",
		"00:02|a|a|b|c",
		"00:03|a|a|b|c",
		"00:04|a|a|b|c",
		"00:05|a|a|b|c",
	))
	sum, err := Run(context.Background(), rows, tx, &out, testOptions())
	require.NoError(t, err)

	assert.True(t, sum.Halted())
	assert.Equal(t, 3, sum.FailedLine)
	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 2, sum.Inserted)
	assert.EqualError(t, sum.Failure, "UNIQUE constraint failed: quotes._id")

	// Rows before the failure are kept.
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Len(t, tx.records, 2)

	newGoldie(t).Assert(t, "halted_output", out.Bytes())
}

func TestRun_InsertErrorOnFirstRow(t *testing.T) {
	tx := &fakeTx{failAt: 1, err: errors.New("disk I/O error")}
	var out bytes.Buffer

	sum, err := Run(context.Background(), newRows(t, linesReader("00:01|a|a|b|c")), tx, &out, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.FailedLine)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, "error in line 1: disk I/O error\n1 lines processed\n", out.String())
	assert.True(t, tx.committed)
}

func TestRun_InvalidTimeIsFatal(t *testing.T) {
	tx := &fakeTx{}
	var out bytes.Buffer

	rows := newRows(t, linesReader(
		"00:01|a|a|b|c",
		"ab:cd|a|a|b|c",
		"00:03|a|a|b|c",
	))
	_, err := Run(context.Background(), rows, tx, &out, testOptions())
	require.Error(t, err)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 2, fatal.Line)
	assert.ErrorIs(t, err, quote.ErrInvalidTime)
	assert.True(t, strings.HasPrefix(err.Error(), "line 2: "))

	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Empty(t, out.String())
}

func TestRun_ShortRowIsFatal(t *testing.T) {
	tx := &fakeTx{}

	rows := newRows(t, linesReader("00:01|a|a|b|c", "00:02|a|a"))
	_, err := Run(context.Background(), rows, tx, io.Discard, testOptions())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 2, fatal.Line)
	assert.ErrorIs(t, err, quote.ErrShortRow)
	assert.True(t, tx.rolledBack)
}

func TestRun_ReadErrorIsFatal(t *testing.T) {
	errBoom := errors.New("boom")
	tx := &fakeTx{}

	r := io.MultiReader(linesReader("00:01|a|a|b|c", "00:02|a|a|b|c"), iotest.ErrReader(errBoom))
	_, err := Run(context.Background(), newRows(t, r), tx, io.Discard, testOptions())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 3, fatal.Line)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, tx.rolledBack)
	assert.Len(t, tx.records, 2)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx := &fakeTx{}

	_, err := Run(ctx, newRows(t, linesReader("00:01|a|a|b|c")), tx, io.Discard, testOptions())
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, tx.rolledBack)
	assert.Empty(t, tx.records)
}

func TestRun_LogsRunID(t *testing.T) {
	var logs bytes.Buffer
	opts := testOptions()
	opts.Logger = slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(context.Background(), newRows(t, linesReader("00:01|a|a|b|c")), &fakeTx{}, io.Discard, opts)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), `"run_id":"run-test"`)
	assert.Contains(t, logs.String(), `"msg":"import finished"`)
}

func TestRun_NormalizeUnicode(t *testing.T) {
	tx := &fakeTx{}
	opts := testOptions()
	opts.Quote.NormalizeUnicode = true

	_, err := Run(context.Background(), newRows(t, linesReader("00:01|Cafe\u0301|At the Cafe\u0301.|b|c")), tx, io.Discard, opts)
	require.NoError(t, err)

	require.Len(t, tx.records, 1)
	assert.Equal(t, "At the <b>Caf\u00e9</b>.", tx.records[0].Text)
}

func TestImportFile_Sample(t *testing.T) {
	in := testutil.WriteQuoteFile(t, testutil.SampleQuotes...)
	out := filepath.Join(t.TempDir(), "quotes.db")
	var buf bytes.Buffer

	sum, err := ImportFile(context.Background(), in, out, &buf, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Inserted)

	g := newGoldie(t)
	g.Assert(t, "sample_output", buf.Bytes())
	g.Assert(t, "sample_dump", testutil.DumpQuotes(t, out))
}

func TestImportFile_RerunStartsFresh(t *testing.T) {
	in := testutil.WriteQuoteFile(t, testutil.SampleQuotes...)
	out := filepath.Join(t.TempDir(), "quotes.db")

	_, err := ImportFile(context.Background(), in, out, io.Discard, Options{RunIDs: NewFixedGenerator("a")})
	require.NoError(t, err)
	first := testutil.DumpQuotes(t, out)

	_, err = ImportFile(context.Background(), in, out, io.Discard, Options{RunIDs: NewFixedGenerator("b")})
	require.NoError(t, err)

	assert.Equal(t, string(first), string(testutil.DumpQuotes(t, out)))
}

func TestImportFile_FatalLeavesEmptyStore(t *testing.T) {
	in := testutil.WriteQuoteFile(t, "00:01|a|a|b|c", "xx|a|a|b|c")
	out := filepath.Join(t.TempDir(), "quotes.db")

	_, err := ImportFile(context.Background(), in, out, io.Discard, testOptions())
	require.ErrorIs(t, err, quote.ErrInvalidTime)

	assert.Empty(t, testutil.DumpQuotes(t, out))
}

func TestImportFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "quotes.db")

	_, err := ImportFile(context.Background(), filepath.Join(dir, "missing.csv"), out, io.Discard, testOptions())
	require.ErrorIs(t, err, os.ErrNotExist)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "store created for missing input")
}

func TestImportFile_CustomDelimiter(t *testing.T) {
	in := testutil.WriteQuoteFile(t, "12:30;half past twelve;It was half past twelve.;B;A")
	out := filepath.Join(t.TempDir(), "quotes.db")

	opts := testOptions()
	opts.Delimiter = ';'
	_, err := ImportFile(context.Background(), in, out, io.Discard, opts)
	require.NoError(t, err)

	assert.Equal(t, "1|750|It was <b>half past twelve</b>.|A|B\n", string(testutil.DumpQuotes(t, out)))
}

func TestImportFile_InvalidJournalMode(t *testing.T) {
	in := testutil.WriteQuoteFile(t, testutil.SampleQuotes...)

	_, err := ImportFile(context.Background(), in, filepath.Join(t.TempDir(), "q.db"), io.Discard, Options{JournalMode: "WAL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create store")
}
