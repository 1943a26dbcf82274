package config

import (
	"strconv"
	"strings"

	"github.com/loamdb/loam/errors"
)

var recordFormats = map[string]bool{
	"standard": true,
	"compact":  true,
}

// Validate checks the configuration for values that would only fail later,
// mid-import. Called by every Load variant so callers always hold a valid value.
func (c *Config) Validate() error {
	if !recordFormats[c.Database.RecordFormat] {
		return errors.NewConfigurationError("unknown record format %q (want standard or compact)", c.Database.RecordFormat)
	}
	if _, err := c.Database.Timezone(); err != nil {
		return errors.NewConfigurationError("invalid timezone_default %q: %v", c.Database.TimezoneDefault, err)
	}
	if c.Import.Workers < 0 {
		return errors.NewConfigurationError("import.workers must be >= 0, got %d", c.Import.Workers)
	}
	if c.Import.BadTolerance < 0 {
		return errors.NewConfigurationError("import.bad_tolerance must be >= 0, got %d", c.Import.BadTolerance)
	}
	if _, err := ParseMaxMemory(c.Import.MaxMemory, 1<<30); err != nil {
		return err
	}
	return nil
}

// ParseMaxMemory resolves a max-memory setting into bytes. The value is either
// a percentage of machineMemory ("90%") or an absolute byte count with an
// optional K/M/G suffix ("2G", "512M", "1073741824").
func ParseMaxMemory(value string, machineMemory uint64) (uint64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, errors.NewConfigurationError("max memory must not be empty")
	}

	if strings.HasSuffix(s, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
		if err != nil || pct <= 0 || pct > 100 {
			return 0, errors.NewConfigurationError("invalid max memory percentage %q", value)
		}
		return machineMemory / 100 * uint64(pct), nil
	}

	multiplier := uint64(1)
	switch {
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "g"):
		multiplier = 1 << 30
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		multiplier = 1 << 20
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		multiplier = 1 << 10
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, errors.NewConfigurationError("invalid max memory value %q", value)
	}
	return n * multiplier, nil
}
