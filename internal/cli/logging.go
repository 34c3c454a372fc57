package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/quoteclock/internal/config"
)

// newLogger builds the diagnostic logger. Diagnostics always go to w
// (stderr in production) so stdout carries only command output.
// verbose forces debug level regardless of the configured level.
func newLogger(w io.Writer, cfg config.LoggingConfig, verbose bool) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler), nil
}
