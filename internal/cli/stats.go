package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/quoteclock/internal/quote"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
}

type statsResult struct {
	Total      int      `json:"total"`
	Covered    int      `json:"covered"`
	Missing    int      `json:"missing"`
	OutOfRange int      `json:"out_of_range"`
	Gaps       []string `json:"gaps"`

	verbose bool
}

func (r statsResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "quotes:       %d\n", r.Total)
	fmt.Fprintf(&b, "covered:      %d/%d minutes\n", r.Covered, quote.MinutesPerDay)
	fmt.Fprintf(&b, "missing:      %d minutes", r.Missing)
	if r.OutOfRange > 0 {
		fmt.Fprintf(&b, "\nout of range: %d", r.OutOfRange)
	}
	if r.verbose {
		for _, g := range r.Gaps {
			fmt.Fprintf(&b, "\n  %s", g)
		}
	}
	return b.String()
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report how much of the day a store covers",
		Long: `Report the number of quotes and which minutes of the day have none.

With --verbose the missing minutes are listed as HH:MM-HH:MM ranges.

Example:
  quotes stats --db quotes.db
  quotes stats --db quotes.db -v`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageError(cmd, fmt.Sprintf("unexpected arguments %v", args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to quote store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStats(cmd *cobra.Command, opts *StatsOptions) error {
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

	cov, err := st.Coverage(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read coverage", err)
	}

	return formatter.Success(statsResult{
		Total:      cov.Total,
		Covered:    cov.Covered(),
		Missing:    len(cov.Missing),
		OutOfRange: cov.OutOfRange,
		Gaps:       gapRanges(cov.Missing),
		verbose:    opts.Verbose,
	})
}

// gapRanges collapses sorted minutes into "HH:MM-HH:MM" ranges. A range of
// one minute is written as a single "HH:MM".
func gapRanges(minutes []int) []string {
	ranges := []string{}
	for i := 0; i < len(minutes); {
		j := i
		for j+1 < len(minutes) && minutes[j+1] == minutes[j]+1 {
			j++
		}
		if i == j {
			ranges = append(ranges, quote.FormatMinute(minutes[i]))
		} else {
			ranges = append(ranges, quote.FormatMinute(minutes[i])+"-"+quote.FormatMinute(minutes[j]))
		}
		i = j + 1
	}
	return ranges
}
