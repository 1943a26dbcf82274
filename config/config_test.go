package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultRecordFormat, cfg.Database.RecordFormat)
	assert.Equal(t, DefaultTimezone, cfg.Database.TimezoneDefault)
	assert.Equal(t, DefaultBadTolerance, cfg.Import.BadTolerance)
	assert.Equal(t, DefaultReportFile, cfg.Import.ReportFile)
	assert.Equal(t, 0, cfg.Import.Workers)
	assert.False(t, cfg.Import.HighIO)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loam.toml")
	content := `
[database]
timezone_default = "Europe/Stockholm"
record_format = "compact"

[import]
workers = 4
max_memory = "2G"
high_io = true
bad_tolerance = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Stockholm", cfg.Database.TimezoneDefault)
	assert.Equal(t, "compact", cfg.Database.RecordFormat)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, "2G", cfg.Import.MaxMemory)
	assert.True(t, cfg.Import.HighIO)
	assert.Equal(t, int64(50), cfg.Import.BadTolerance)

	// Unset keys still fall back to defaults
	assert.Equal(t, DefaultReportFile, cfg.Import.ReportFile)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown record format", func(c *Config) { c.Database.RecordFormat = "columnar" }},
		{"bad timezone", func(c *Config) { c.Database.TimezoneDefault = "Mars/Olympus" }},
		{"negative workers", func(c *Config) { c.Import.Workers = -1 }},
		{"negative tolerance", func(c *Config) { c.Import.BadTolerance = -5 }},
		{"bad max memory", func(c *Config) { c.Import.MaxMemory = "lots" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsConfigurationError(err))
		})
	}
}

func TestParseMaxMemory(t *testing.T) {
	machine := uint64(100 << 30) // 100G

	tests := []struct {
		in   string
		want uint64
	}{
		{"90%", 90 << 30},
		{"2G", 2 << 30},
		{"512M", 512 << 20},
		{"64K", 64 << 10},
		{"1073741824", 1 << 30},
	}
	for _, tt := range tests {
		got, err := ParseMaxMemory(tt.in, machine)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "0", "-1G", "200%", "0%", "huge"} {
		_, err := ParseMaxMemory(bad, machine)
		assert.Error(t, err, bad)
	}
}
