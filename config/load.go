package config

import (
	"github.com/spf13/viper"

	"github.com/loamdb/loam/errors"
)

// Load returns the default configuration with no file on disk consulted
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific TOML file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "failed to read config file %s: %v", configPath, err)
	}
	return unmarshal(v)
}

// SetDefaults registers default values on the given Viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.timezone_default", DefaultTimezone)
	v.SetDefault("database.record_format", DefaultRecordFormat)
	v.SetDefault("database.internal_log_file", DefaultInternalLogFile)
	v.SetDefault("import.workers", 0)
	v.SetDefault("import.max_memory", DefaultMaxMemory)
	v.SetDefault("import.high_io", false)
	v.SetDefault("import.bad_tolerance", DefaultBadTolerance)
	v.SetDefault("import.report_file", DefaultReportFile)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "failed to unmarshal config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
