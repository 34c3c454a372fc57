package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/quoteclock/internal/config"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the quotes tool, which reads
// stores built by csv2sqlite.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Inspect literary clock quote stores",
		Long: `Inspect a quote store built by csv2sqlite.

Looks up quotes the way the clock widget does and reports which minutes of
the day have no quote.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(cmd, opts.Format)
		},
	}

	addGlobalFlags(cmd, opts)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError(c, err.Error())
	})

	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func addGlobalFlags(cmd *cobra.Command, opts *RootOptions) {
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML config file")
}

func validateFormat(cmd *cobra.Command, format string) error {
	if !isValidFormat(format) {
		return usageError(cmd, fmt.Sprintf("invalid format %q: must be one of %v", format, ValidFormats))
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// usageError writes the command usage to its output and returns an error
// that exits with ExitCommandError. Under --format json the usage is sent
// as an E001 error response instead.
func usageError(cmd *cobra.Command, message string) error {
	if f := cmd.Flag("format"); f != nil && f.Value.String() == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		if err := formatter.Error(ErrCodeUsage, message, map[string]string{"usage": cmd.UseLine()}); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
	}
	return WrapExitError(ExitCommandError, message, ErrUsage)
}

// setup loads the configuration and builds the logger for a command run.
func (o *RootOptions) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Logging, o.Verbose)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid logging config", err)
	}
	if o.Config != "" {
		logger.Debug("config loaded", "path", o.Config)
	}
	return cfg, logger, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format: o.Format,
		Writer: cmd.OutOrStdout(),
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cmd.Root().Name(), Version)
		},
	}
}
