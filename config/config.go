// Package config loads and validates loam configuration.
//
// The database configuration file is TOML. The import tool only passes these
// settings through to the store builder, it does not reinterpret them.
package config

import "time"

// Config represents the loam configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Import   ImportConfig   `mapstructure:"import"`
}

// DatabaseConfig configures the loam store
type DatabaseConfig struct {
	// TimezoneDefault is the default timezone applied to temporal properties
	// that carry no explicit zone (e.g. "UTC", "Europe/Stockholm")
	TimezoneDefault string `mapstructure:"timezone_default"`

	// RecordFormat selects the on-disk record layout: "standard" or "compact"
	RecordFormat string `mapstructure:"record_format"`

	// InternalLogFile is the store-internal diagnostic log, relative to the
	// target store directory
	InternalLogFile string `mapstructure:"internal_log_file"`
}

// ImportConfig configures bulk import defaults
type ImportConfig struct {
	// Workers caps the store builder worker pool; 0 means one per processor
	Workers int `mapstructure:"workers"`

	// MaxMemory is an absolute byte count ("2G", "1073741824") or a
	// percentage of machine memory ("90%")
	MaxMemory string `mapstructure:"max_memory"`

	// HighIO hints that the target device handles parallel IO well,
	// enabling denser write batching
	HighIO bool `mapstructure:"high_io"`

	// BadTolerance is the default number of bad entries tolerated before
	// the import aborts
	BadTolerance int64 `mapstructure:"bad_tolerance"`

	// ReportFile is the default bad-entry report location
	ReportFile string `mapstructure:"report_file"`
}

// Default values applied by SetDefaults and used directly in tests.
const (
	DefaultRecordFormat    = "standard"
	DefaultTimezone        = "UTC"
	DefaultInternalLogFile = "store.log"
	DefaultMaxMemory       = "90%"
	DefaultBadTolerance    = int64(1000)
	DefaultReportFile      = "import.report"
)

// Timezone resolves the configured default timezone
func (c DatabaseConfig) Timezone() (*time.Location, error) {
	if c.TimezoneDefault == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimezoneDefault)
}
