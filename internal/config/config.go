// Package config loads the optional YAML settings shared by csv2sqlite and
// quotes. Environment variables in the form ${VAR_NAME} are expanded before
// parsing. Values missing from the file keep their defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quoteclock/internal/source"
	"github.com/roach88/quoteclock/internal/store"
)

// Config is the complete tool configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Import  ImportConfig  `yaml:"import"`
	Store   StoreConfig   `yaml:"store"`
	Lookup  LookupConfig  `yaml:"lookup"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes the input file.
type SourceConfig struct {
	// Delimiter is a single character separating fields.
	Delimiter string `yaml:"delimiter"`
}

// ImportConfig tunes the conversion.
type ImportConfig struct {
	// Strict makes a halted import exit non-zero.
	Strict bool `yaml:"strict"`
	// NormalizeUnicode applies NFC to every field.
	NormalizeUnicode bool `yaml:"normalize_unicode"`
}

// StoreConfig holds SQLite settings for the produced file.
type StoreConfig struct {
	JournalMode string `yaml:"journal_mode"`
}

// LookupConfig holds settings for the quotes tool.
type LookupConfig struct {
	// FallbackMinutes is how many earlier minutes to try when the requested
	// minute has no quote.
	FallbackMinutes int `yaml:"fallback_minutes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source:  SourceConfig{Delimiter: string(source.DefaultDelimiter)},
		Store:   StoreConfig{JournalMode: store.DefaultJournalMode},
		Lookup:  LookupConfig{FallbackMinutes: 20},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path on top of Default.
// An empty path returns Default unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all configuration fields are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.Source.Delimiter) != 1 {
		return fmt.Errorf("source.delimiter must be a single character, got %q", c.Source.Delimiter)
	}
	if !source.ValidDelimiter(c.DelimiterRune()) {
		return fmt.Errorf("source.delimiter %q cannot separate fields", c.Source.Delimiter)
	}

	if !store.ValidJournalMode(c.Store.JournalMode) {
		return fmt.Errorf("store.journal_mode must be one of %v, got %q", store.JournalModes, c.Store.JournalMode)
	}

	if c.Lookup.FallbackMinutes < 0 {
		return fmt.Errorf("lookup.fallback_minutes must not be negative, got %d", c.Lookup.FallbackMinutes)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// DelimiterRune returns the configured delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Source.Delimiter)
	return r
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", l.Level)
	}
}
