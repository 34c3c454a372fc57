package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs cmd and returns the process exit code. Errors are written to
// the command's error output; for usage errors only the reason is written,
// after the usage text that already went to standard output.
func Execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.Is(err, ErrUsage) && errors.As(err, &exitErr) {
		fmt.Fprintln(cmd.ErrOrStderr(), exitErr.Message)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	return GetExitCode(err)
}
