package importer

import (
	"go.uber.org/zap"
)

type release struct {
	name string
	fn   func() error
}

// life holds the run's acquired resources and releases them in
// reverse-acquisition order on every exit path. Release failures are logged
// and do not stop the remaining releases; Shutdown runs the list exactly once.
type life struct {
	log      *zap.SugaredLogger
	releases []release
	done     bool
}

func newLife(log *zap.SugaredLogger) *life {
	return &life{log: log}
}

// Defer registers a release to run at Shutdown
func (l *life) Defer(name string, fn func() error) {
	l.releases = append(l.releases, release{name: name, fn: fn})
}

// Shutdown releases everything in reverse order, best-effort. Safe to call
// more than once; only the first call releases.
func (l *life) Shutdown() {
	if l.done {
		return
	}
	l.done = true

	for i := len(l.releases) - 1; i >= 0; i-- {
		r := l.releases[i]
		if err := r.fn(); err != nil {
			l.log.Warnw("Failed to release resource", "resource", r.name, "error", err)
		}
	}
}
