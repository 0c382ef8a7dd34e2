// Package config loads leadaudit configuration from defaults, leadaudit.yaml,
// LEADAUDIT_* environment variables and command-line flags.
package config

import "github.com/leapstack-labs/leadaudit/pkg/audit"

// Config holds all CLI configuration options.
type Config struct {
	Input        string        `koanf:"input" yaml:"input"`
	Output       string        `koanf:"output" yaml:"output"`
	Sheet        string        `koanf:"sheet" yaml:"sheet,omitempty"`
	Workers      int           `koanf:"workers" yaml:"workers"`
	PassScore    int           `koanf:"pass_score" yaml:"pass_score"`
	Rules        []audit.Rule  `koanf:"rules" yaml:"rules"`
	Null         NullConfig    `koanf:"nulls" yaml:"nulls"`
	History      HistoryConfig `koanf:"history" yaml:"history"`
	Summary      bool          `koanf:"summary" yaml:"summary"`
	Verbose      bool          `koanf:"verbose" yaml:"verbose"`
	OutputFormat string        `koanf:"output_format" yaml:"output_format"`
}

// NullConfig controls which cells count as absent.
type NullConfig struct {
	// Markers replaces the default NA markers when set.
	Markers   []string `koanf:"markers" yaml:"markers,omitempty"`
	TrimSpace bool     `koanf:"trim_space" yaml:"trim_space"`
	// Strict treats only blank cells as absent.
	Strict bool `koanf:"strict" yaml:"strict"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}

// Default configuration values.
const (
	DefaultInput        = "hubspot_export.xlsx"
	DefaultOutput       = "audit_result.xlsx"
	DefaultWorkers      = 1
	DefaultPassScore    = audit.DefaultPassAt
	DefaultHistoryPath  = ".leadaudit/history.db"
	DefaultOutputFormat = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultConfigFile   = "leadaudit.yaml"
	EnvPrefix           = "LEADAUDIT_"
)

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Input:        DefaultInput,
		Output:       DefaultOutput,
		Workers:      DefaultWorkers,
		PassScore:    DefaultPassScore,
		History:      HistoryConfig{Path: DefaultHistoryPath},
		OutputFormat: DefaultOutputFormat,
	}
}
