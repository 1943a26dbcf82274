package input

import (
	"sync"

	"github.com/loamdb/loam/errors"
)

// UnlimitedTolerance disables the numeric cap entirely
const UnlimitedTolerance int64 = -1

// TolerancePolicy governs how many, and which categories of, bad entries are
// acceptable before the import aborts
type TolerancePolicy struct {
	// SkipBadRelationships tolerates relationships missing mandatory data
	SkipBadRelationships bool
	// SkipDuplicateNodes tolerates nodes whose id was already seen
	SkipDuplicateNodes bool
	// IgnoreExtraColumns tolerates rows carrying more values than the header
	IgnoreExtraColumns bool
	// Tolerance caps entries not covered by categorical suppression;
	// UnlimitedTolerance disables the cap
	Tolerance int64
	// LoggingEnabled controls whether entries are written to the report
	LoggingEnabled bool
}

// Suppresses reports whether the given kind is unconditionally tolerated
func (p TolerancePolicy) Suppresses(kind BadEntryKind) bool {
	switch kind {
	case BadEntryMissingData:
		return p.SkipBadRelationships
	case BadEntryDuplicateID:
		return p.SkipDuplicateNodes
	case BadEntryExtraColumn:
		return p.IgnoreExtraColumns
	}
	return false
}

// SuppressesAny reports whether any category is unconditionally tolerated
func (p TolerancePolicy) SuppressesAny() bool {
	return p.SkipBadRelationships || p.SkipDuplicateNodes || p.IgnoreExtraColumns
}

// EffectiveTolerance resolves the cap that actually governs the run.
// Suppression and counting are mutually exclusive enforcement modes: once any
// category is suppressed, a bounded cap would reject entries of other
// categories at an arbitrary point unrelated to the caller's intent, so the
// cap becomes unlimited.
func (p TolerancePolicy) EffectiveTolerance() int64 {
	if p.SuppressesAny() {
		return UnlimitedTolerance
	}
	return p.Tolerance
}

// Collector is the shared bad-entry sink. It is called concurrently by store
// builder workers; implementations must be safe under uncoordinated writers.
type Collector interface {
	// Collect records one bad entry. A non-nil return means the tolerance cap
	// was breached and the caller must stop forward progress and propagate
	// the error as run-fatal.
	Collect(entry BadEntry) error

	// BadEntries returns the number of recorded entries. Read exactly once,
	// after the store builder has returned.
	BadEntries() int64

	// Close flushes and releases the report, if any
	Close() error
}

// BadCollector enforces a TolerancePolicy and optionally persists entries to
// a Report. Count mutation and report appends are serialized by an internal
// mutex, which is the only synchronization crossing the store builder's
// worker pool boundary.
type BadCollector struct {
	policy    TolerancePolicy
	tolerance int64
	report    *Report

	mu      sync.Mutex
	counted int64 // entries counted toward the cap
	total   int64 // all recorded entries, suppressed included
}

// NewCollector builds the run's collector per the policy: a report-backed
// collector when logging is enabled, otherwise a silent counter governed only
// by the numeric cap (categorical suppression does not apply to silent runs).
func NewCollector(policy TolerancePolicy, report *Report) *BadCollector {
	if !policy.LoggingEnabled {
		return NewBadCollector(TolerancePolicy{Tolerance: policy.Tolerance}, nil)
	}
	return NewBadCollector(policy, report)
}

// NewBadCollector builds a collector from the policy. The report may be nil,
// in which case entries are counted silently (the policy's LoggingEnabled is
// expected to be false then).
func NewBadCollector(policy TolerancePolicy, report *Report) *BadCollector {
	return &BadCollector{
		policy:    policy,
		tolerance: policy.EffectiveTolerance(),
		report:    report,
	}
}

// Collect implements Collector
func (c *BadCollector) Collect(entry BadEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if c.policy.LoggingEnabled && c.report != nil {
		if err := c.report.Write(entry); err != nil {
			return err
		}
	}

	if c.policy.Suppresses(entry.Kind) {
		return nil
	}

	c.counted++
	if c.tolerance != UnlimitedTolerance && c.counted > c.tolerance {
		err := errors.Wrapf(errors.ErrDataQualityExceeded,
			"%d bad entries exceed tolerance %d, last: %s", c.counted, c.tolerance, entry)
		if ref := entry.Kind.sentinel(); ref != nil {
			err = errors.Mark(err, ref)
		}
		return err
	}
	return nil
}

// BadEntries implements Collector
func (c *BadCollector) BadEntries() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Close implements Collector
func (c *BadCollector) Close() error {
	if c.report == nil {
		return nil
	}
	return c.report.Close()
}

// sentinel maps an entry kind onto the error identity the classifier matches
func (k BadEntryKind) sentinel() error {
	switch k {
	case BadEntryDuplicateID:
		return errors.ErrDuplicateID
	case BadEntryMissingData:
		return errors.ErrMissingData
	case BadEntryExtraColumn, BadEntryOther:
		return errors.ErrBadInput
	}
	return nil
}
