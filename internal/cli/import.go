package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/quoteclock/internal/importer"
	"github.com/roach88/quoteclock/internal/quote"
)

const importUsageTemplate = `usage: {{.CommandPath}} <csv infile> <sqlite3 outfile>

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
`

// ImportOptions holds flags for the csv2sqlite command.
type ImportOptions struct {
	*RootOptions
	Strict bool
	NFC    bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to importer.UUIDv7Generator.
	RunIDs importer.RunIDGenerator

	// importFile replaces importer.ImportFile in tests.
	importFile func(ctx context.Context, in, out string, w io.Writer, opts importer.Options) (importer.Summary, error)
}

// importResult is the JSON summary of an import.
type importResult struct {
	Processed  int    `json:"processed"`
	Inserted   int    `json:"inserted"`
	Halted     bool   `json:"halted"`
	FailedLine int    `json:"failed_line,omitempty"`
	Failure    string `json:"failure,omitempty"`
}

// NewImportCommand creates the csv2sqlite command.
func NewImportCommand() *cobra.Command {
	return newImportCommand(&ImportOptions{RootOptions: &RootOptions{}})
}

func newImportCommand(opts *ImportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv2sqlite <csv infile> <sqlite3 outfile>",
		Short: "Convert a quote collection into a quote store",
		Long: `Convert a pipe-delimited literary clock quote collection into the SQLite
store shipped with the clock widget.

Each row is "HH:MM|fragment|quote|book|author". The store is created fresh
on every run. An insert the store rejects halts the import; the rows before
it are kept and the exit status is 0 unless --strict is set.

Example:
  csv2sqlite litclock_annotated.csv quotes.db
  csv2sqlite --strict --format json litclock_annotated.csv quotes.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageError(cmd, fmt.Sprintf("expected 2 arguments, got %d", len(args)))
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(cmd, opts.Format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0], args[1])
		},
	}

	cmd.SetUsageTemplate(importUsageTemplate)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError(c, err.Error())
	})

	addGlobalFlags(cmd, opts.RootOptions)
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when an insert failure halts the import")
	cmd.Flags().BoolVar(&opts.NFC, "nfc", false, "normalize every field to Unicode NFC")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, in, out string) error {
	cfg, logger, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	// Explicit flags override the config file.
	if cmd.Flags().Changed("strict") {
		cfg.Import.Strict = opts.Strict
	}
	if cmd.Flags().Changed("nfc") {
		cfg.Import.NormalizeUnicode = opts.NFC
	}

	formatter := opts.formatter(cmd)
	var progress io.Writer = cmd.OutOrStdout()
	if formatter.JSON() {
		progress = io.Discard
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	importFile := opts.importFile
	if importFile == nil {
		importFile = importer.ImportFile
	}

	logger.Debug("import starting", "in", in, "out", out, "strict", cfg.Import.Strict)
	sum, err := importFile(ctx, in, out, progress, importer.Options{
		Quote:       quote.Options{NormalizeUnicode: cfg.Import.NormalizeUnicode},
		Delimiter:   cfg.DelimiterRune(),
		JournalMode: cfg.Store.JournalMode,
		Logger:      logger,
		RunIDs:      opts.RunIDs,
	})
	if err != nil {
		if ferr := formatter.Error(ErrCodeFatal, err.Error(), fatalDetails(err)); ferr != nil {
			logger.Error("failed to write output", "error", ferr)
		}
		return WrapExitError(ExitCommandError, "fatal", err)
	}

	result := importResult{
		Processed:  sum.Processed,
		Inserted:   sum.Inserted,
		Halted:     sum.Halted(),
		FailedLine: sum.FailedLine,
	}
	if sum.Failure != nil {
		result.Failure = sum.Failure.Error()
	}

	if sum.Halted() && cfg.Import.Strict {
		msg := fmt.Sprintf("import halted at line %d", sum.FailedLine)
		if err := formatter.Error(ErrCodeHalted, msg, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		return WrapExitError(ExitFailure, msg, sum.Failure)
	}

	if formatter.JSON() {
		if err := formatter.SuccessWithRun(sum.RunID, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}
	return nil
}

func fatalDetails(err error) any {
	var fatal *importer.FatalError
	if errors.As(err, &fatal) {
		return map[string]int{"line": fatal.Line}
	}
	return nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
