// Package importer coordinates a bulk import run: resource setup, delegation
// to the store builder, progress monitoring, failure classification and
// guaranteed teardown. A run ends in exactly one of two states: the store is
// fully built, or it is explicitly declared unusable.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"

	"github.com/loamdb/loam/config"
	"github.com/loamdb/loam/errors"
	"github.com/loamdb/loam/input"
	"github.com/loamdb/loam/logger"
	"github.com/loamdb/loam/store"
)

// Status is the orchestrator's state machine position
type Status int

const (
	StatusIdle Status = iota
	StatusPreparing
	StatusExecuting
	StatusFinalizing
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPreparing:
		return "preparing"
	case StatusExecuting:
		return "executing"
	case StatusFinalizing:
		return "finalizing"
	case StatusCompleted:
		return "completed"
	default:
		return "failed"
	}
}

// Config is the immutable, fully validated description of one import run.
// Built once by the caller and never mutated; New rejects incomplete values
// up front instead of failing mid-run.
type Config struct {
	TargetDir string
	Database  config.Config

	IDType             input.IDType
	Reader             input.ReaderOptions
	Policy             input.TolerancePolicy
	ReportFile         string
	NodeGroups         []input.Group
	RelationshipGroups []input.Group

	Builder store.Config

	// Verbose switches the progress reporter to its dense mode and prints
	// full diagnostics on failure
	Verbose bool
}

// Importer runs a single non-resumable import. Runs are never retried
// automatically; a failed run leaves the target store unusable.
type Importer struct {
	cfg        Config
	status     Status
	badEntries int64
}

// New validates the configuration and returns an importer in Idle.
// Configuration problems fail here, before any resource is acquired.
func New(cfg Config) (*Importer, error) {
	if cfg.TargetDir == "" {
		return nil, errors.NewConfigurationError("target directory is required")
	}
	if len(cfg.NodeGroups) == 0 {
		return nil, errors.NewConfigurationError("at least one node file group is required")
	}
	if cfg.Policy.LoggingEnabled && cfg.ReportFile == "" {
		return nil, errors.NewConfigurationError("a report file is required when bad-entry logging is enabled")
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	return &Importer{cfg: cfg}, nil
}

// Status returns the current state machine position
func (imp *Importer) Status() Status { return imp.status }

// BadEntries returns the final bad-entry count; meaningful once the run has
// reached a terminal state
func (imp *Importer) BadEntries() int64 { return imp.badEntries }

// Run drives the whole state machine: Preparing acquires the report,
// collector and store log; Executing hands the assembled streams to the
// builder under a progress reporter; Finalizing releases every resource on
// both the success and the failure path.
func (imp *Importer) Run(ctx context.Context) error {
	imp.status = StatusPreparing
	logger.Infow("Import run starting",
		"target", imp.cfg.TargetDir,
		"node_groups", len(imp.cfg.NodeGroups),
		"relationship_groups", len(imp.cfg.RelationshipGroups))

	if err := os.MkdirAll(imp.cfg.TargetDir, 0o755); err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "cannot create target directory %s: %v", imp.cfg.TargetDir, err)
	}

	life := newLife(logger.Logger)

	var report *input.Report
	if imp.cfg.Policy.LoggingEnabled {
		var err error
		report, err = input.OpenReport(imp.cfg.ReportFile)
		if err != nil {
			return err
		}
	}
	collector := input.NewCollector(imp.cfg.Policy, report)
	life.Defer("bad-entry collector", collector.Close)

	storeLog, closeStoreLog, err := logger.NewFileLogger(filepath.Join(imp.cfg.TargetDir, imp.cfg.Database.Database.InternalLogFile))
	if err != nil {
		life.Shutdown()
		return err
	}
	life.Defer("store internal log", closeStoreLog)

	in := input.Assemble(imp.cfg.IDType, imp.cfg.NodeGroups, imp.cfg.RelationshipGroups, imp.cfg.Reader)
	builder := store.NewBuilder(imp.cfg.TargetDir, imp.cfg.Builder, collector, storeLog)

	imp.status = StatusExecuting
	printOverview(imp.cfg.TargetDir, in, imp.cfg.Builder)

	buildErr := func() error {
		rep := newReporter(builder, imp.cfg.Verbose, logger.Logger)
		rep.Start()
		defer rep.Stop()
		return builder.Build(ctx, in)
	}()

	// Finalizing runs unconditionally on both paths. The collector count is
	// read exactly once, after the builder has returned.
	imp.status = StatusFinalizing
	imp.badEntries = collector.BadEntries()
	life.Shutdown()

	if report != nil && imp.badEntries > 0 {
		pterm.Printf("There were bad entries which were skipped and logged into %s\n", report.Path())
	}

	if buildErr != nil {
		imp.status = StatusFailed
		imp.printFailure(buildErr)
		return buildErr
	}

	imp.status = StatusCompleted
	p := builder.Progress()
	pterm.Success.Printf("IMPORT DONE. Imported %d nodes and %d relationships (%d properties) into %s\n",
		p.Nodes, p.Relationships, p.Properties, imp.cfg.TargetDir)
	if imp.badEntries > 0 {
		pterm.Printf("%d bad entries were skipped within tolerance\n", imp.badEntries)
	}
	return nil
}

// printFailure emits the classified error message and the unconditional
// warning that the half-built store must not be started
func (imp *Importer) printFailure(err error) {
	c := Classify(err)
	pterm.Error.Println(c.Message)
	pterm.Error.Printf("Caused by: %v\n", err)
	if imp.cfg.Verbose || c.Unclassified {
		pterm.Println(fmt.Sprintf("%+v", err))
	}
	pterm.Println()
	pterm.Warning.Printf("WARNING Import failed. The store files in %s are left as they are, "+
		"although they are likely in an unusable state. Starting a database on these store "+
		"files will likely fail or observe inconsistent records, so start at your own risk "+
		"or delete the store manually.\n", imp.cfg.TargetDir)
}
