package importer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loamdb/loam/store"
)

// progressSource exposes the builder's monotonic counters; the reporter only
// ever reads them
type progressSource interface {
	Progress() store.Progress
}

const (
	reportInterval        = 2 * time.Second
	verboseReportInterval = 500 * time.Millisecond
)

// reporter periodically prints import progress. It runs independently of the
// main import path, never blocks it, and is stopped cooperatively when
// Executing transitions out.
type reporter struct {
	source   progressSource
	interval time.Duration
	verbose  bool
	log      *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	last store.Progress
}

func newReporter(source progressSource, verbose bool, log *zap.SugaredLogger) *reporter {
	ctx, cancel := context.WithCancel(context.Background())
	interval := reportInterval
	if verbose {
		interval = verboseReportInterval
	}
	return &reporter{
		source:   source,
		interval: interval,
		verbose:  verbose,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the reporting loop
func (r *reporter) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop cancels the loop. The reporter performs no irreversible mutation, so
// stopping is a plain cooperative cancellation.
func (r *reporter) Stop() error {
	r.cancel()
	r.wg.Wait()
	return nil
}

func (r *reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *reporter) tick() {
	p := r.source.Progress()

	r.mu.Lock()
	changed := p != r.last
	last := r.last
	r.last = p
	r.mu.Unlock()

	if !changed && !r.verbose {
		return // keep quiet while nothing moves
	}

	if r.verbose {
		r.log.Infow("Import progress",
			"stage", p.Stage,
			"nodes", p.Nodes,
			"relationships", p.Relationships,
			"properties", p.Properties,
			"nodes_delta", p.Nodes-last.Nodes,
			"relationships_delta", p.Relationships-last.Relationships)
		return
	}
	r.log.Infow("Import progress",
		"stage", p.Stage,
		"nodes", p.Nodes,
		"relationships", p.Relationships)
}
