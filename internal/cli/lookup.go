package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/quoteclock/internal/quote"
	"github.com/roach88/quoteclock/internal/store"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Database string
	Fallback int
	ID       int64
}

type lookupResult struct {
	ID        int64  `json:"id"`
	Requested string `json:"requested,omitempty"`
	Time      string `json:"time"`
	Minute    int    `json:"minute"`
	Text      string `json:"text"`
	Book      string `json:"book"`
	Author    string `json:"author"`
}

// String renders the quote the way the widget lays it out: the quote,
// then its origin.
func (r lookupResult) String() string {
	return fmt.Sprintf("%s %s\n      %s, %s", r.Time, r.Text, r.Book, r.Author)
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup <HH:MM>",
		Short: "Pick a quote for a time of day",
		Long: `Pick a random quote for the given time of day.

When the minute has no quote, earlier minutes are tried one at a time, up to
--fallback minutes back, wrapping past midnight. Exits 1 when nothing is
found. With --id the quote with that row id is printed instead and no time
is given.

Example:
  quotes lookup --db quotes.db 08:15
  quotes lookup --db quotes.db --fallback 0 --format json 23:59
  quotes lookup --db quotes.db --id 42`,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("id") {
				if len(args) != 0 {
					return usageError(cmd, "--id takes no time argument")
				}
				return nil
			}
			if len(args) != 1 {
				return usageError(cmd, fmt.Sprintf("expected 1 argument, got %d", len(args)))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("id") {
				return runLookupID(cmd, opts)
			}
			return runLookup(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to quote store (required)")
	cmd.Flags().IntVar(&opts.Fallback, "fallback", 20, "earlier minutes to try when a minute has no quote")
	cmd.Flags().Int64Var(&opts.ID, "id", 0, "print the quote with this row id")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLookup(cmd *cobra.Command, opts *LookupOptions, at string) error {
	minute, err := parseTimeOfDay(at)
	if err != nil {
		return usageError(cmd, err.Error())
	}

	cfg, logger, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	fallback := cfg.Lookup.FallbackMinutes
	if cmd.Flags().Changed("fallback") {
		fallback = opts.Fallback
	}
	if fallback < 0 {
		return usageError(cmd, fmt.Sprintf("--fallback must not be negative, got %d", fallback))
	}

	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	st, err := openStore(ctx, opts.Database, formatter, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	q, err := st.Lookup(ctx, minute, fallback)
	if errors.Is(err, store.ErrNotFound) {
		msg := fmt.Sprintf("no quote for %s within %d minutes", quote.FormatMinute(minute), fallback)
		if ferr := formatter.Error(ErrCodeNotFound, msg, nil); ferr != nil {
			return WrapExitError(ExitCommandError, "failed to write output", ferr)
		}
		return NewExitError(ExitFailure, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}

	if q.Minute != minute {
		logger.Debug("fell back to earlier minute", "requested", minute, "found", q.Minute)
	}

	result := newLookupResult(q)
	result.Requested = quote.FormatMinute(minute)
	return formatter.Success(result)
}

func runLookupID(cmd *cobra.Command, opts *LookupOptions) error {
	_, logger, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	st, err := openStore(ctx, opts.Database, formatter, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	q, err := st.Get(ctx, opts.ID)
	if errors.Is(err, store.ErrNotFound) {
		msg := fmt.Sprintf("no quote with id %d", opts.ID)
		if ferr := formatter.Error(ErrCodeNotFound, msg, nil); ferr != nil {
			return WrapExitError(ExitCommandError, "failed to write output", ferr)
		}
		return NewExitError(ExitFailure, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}

	return formatter.Success(newLookupResult(q))
}

func newLookupResult(q store.Quote) lookupResult {
	return lookupResult{
		ID:     q.ID,
		Time:   quote.FormatMinute(q.Minute),
		Minute: q.Minute,
		Text:   q.Text,
		Book:   q.Book,
		Author: q.Author,
	}
}

// openStore opens path read-only, reporting a failure in the output format.
func openStore(ctx context.Context, path string, formatter *OutputFormatter, logger *slog.Logger) (*store.Store, error) {
	st, err := store.OpenReadOnly(ctx, path)
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, err.Error(), nil); ferr != nil {
			logger.Error("failed to write output", "error", ferr)
		}
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

// parseTimeOfDay accepts "HH:MM" between 00:00 and 23:59.
func parseTimeOfDay(s string) (int, error) {
	m, err := quote.ParseMinute(s)
	if err != nil || quote.FormatMinute(m) != s {
		return 0, fmt.Errorf("invalid time %q: want HH:MM between 00:00 and 23:59", s)
	}
	return m, nil
}
