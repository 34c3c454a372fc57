// Package importer converts a quote collection file into a quote store.
//
// Rows are read, transformed and inserted one at a time inside a single
// store transaction. Two kinds of failure end a run early:
//
//   - An insert rejected by the store halts the run. The failure is
//     reported on the output as "error in line N: ..." and the rows
//     inserted before it are committed.
//   - A row that cannot be read or transformed is fatal. The transaction is
//     rolled back and a *FatalError is returned.
//
// Either way the output ends with "N lines processed", where N counts the
// rows that reached the transform step, including a failing one.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/quoteclock/internal/quote"
	"github.com/roach88/quoteclock/internal/source"
	"github.com/roach88/quoteclock/internal/store"
)

// RowReader yields source rows until io.EOF.
type RowReader interface {
	Next() (source.Row, error)
}

// Tx receives records for one run. *store.Batch implements it.
type Tx interface {
	Insert(ctx context.Context, rec quote.Record) (int64, error)
	Commit() error
	Rollback() error
}

// Options configure a run.
type Options struct {
	Quote quote.Options

	// Delimiter separates source fields. Zero means source.DefaultDelimiter.
	Delimiter rune

	// JournalMode is passed to store.Create by ImportFile.
	JournalMode string

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger

	// RunIDs names the run in logs. Nil uses UUIDv7Generator.
	RunIDs RunIDGenerator
}

// Summary describes a finished run.
type Summary struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Inserted  int    `json:"inserted"`

	// FailedLine is the row number of the insert that halted the run, or 0.
	FailedLine int `json:"failed_line,omitempty"`

	// Failure is the store error that halted the run.
	Failure error `json:"-"`
}

// Halted reports whether an insert failure stopped the run before the end
// of the input.
func (s Summary) Halted() bool {
	return s.FailedLine > 0
}

// FatalError aborts a run. Nothing from the run is committed.
type FatalError struct {
	// Line is the row number being handled when the run aborted.
	Line int
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Run streams rows into tx and writes the progress lines to out.
//
// On success or after a halting insert failure tx is committed. On a fatal
// error or context cancellation tx is rolled back. The caller owns closing
// the underlying source and store.
func Run(ctx context.Context, rows RowReader, tx Tx, out io.Writer, opts Options) (Summary, error) {
	logger := opts.logger()
	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = UUIDv7Generator{}
	}

	sum := Summary{RunID: runIDs.Generate()}
	logger = logger.With("run_id", sum.RunID)
	logger.Debug("import started")

	abort := func(err error) (Summary, error) {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("rollback failed", "error", rbErr)
		}
		logger.Debug("import aborted", "processed", sum.Processed, "error", err)
		return sum, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return abort(fmt.Errorf("import interrupted: %w", err))
		}

		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return abort(&FatalError{Line: sum.Processed + 1, Err: err})
		}

		sum.Processed++

		rec, err := quote.Transform(row.Fields, opts.Quote)
		if err != nil {
			return abort(&FatalError{Line: row.Num, Err: err})
		}

		id, err := tx.Insert(ctx, rec)
		if err != nil {
			sum.FailedLine = row.Num
			sum.Failure = err
			fmt.Fprintf(out, "error in line %d: %v\n", row.Num, err)
			logger.Warn("insert failed, halting", "line", row.Num, "source_line", row.Line, "error", err)
			break
		}
		sum.Inserted++
		logger.Debug("inserted", "line", row.Num, "id", id, "minute", rec.Minute)
	}

	fmt.Fprintf(out, "%d lines processed\n", sum.Processed)

	if err := tx.Commit(); err != nil {
		return sum, err
	}

	logger.Info("import finished",
		"processed", sum.Processed,
		"inserted", sum.Inserted,
		"halted", sum.Halted(),
	)
	return sum, nil
}

// ImportFile converts the quote file at in into a fresh store at out.
//
// The input is opened first so a missing input leaves no store behind.
func ImportFile(ctx context.Context, in, out string, w io.Writer, opts Options) (Summary, error) {
	logger := opts.logger()

	src, err := source.Open(in, opts.Delimiter)
	if err != nil {
		return Summary{}, err
	}
	defer src.Close()

	s, err := store.Create(ctx, out, store.Options{JournalMode: opts.JournalMode})
	if err != nil {
		return Summary{}, fmt.Errorf("create store: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()
	logger.Debug("store created", "path", s.Path())

	tx, err := s.Begin(ctx)
	if err != nil {
		return Summary{}, err
	}

	return Run(ctx, src, tx, w, opts)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
