package store

import "sync/atomic"

// Stage names exposed to the progress reporter
const (
	StageIdle          = "idle"
	StageNodes         = "nodes"
	StageRelationships = "relationships"
	StageDone          = "done"
)

// Progress is a read-only snapshot of the builder's monotonic counters.
// The progress reporter polls it without blocking the import path.
type Progress struct {
	Stage         string
	Nodes         int64
	Relationships int64
	Properties    int64
}

// counters is the builder's shared counter block, mutated with atomics only
type counters struct {
	stage atomic.Int32
	nodes atomic.Int64
	rels  atomic.Int64
	props atomic.Int64
}

var stageNames = []string{StageIdle, StageNodes, StageRelationships, StageDone}

func (c *counters) setStage(name string) {
	for i, n := range stageNames {
		if n == name {
			c.stage.Store(int32(i))
			return
		}
	}
}

func (c *counters) snapshot() Progress {
	return Progress{
		Stage:         stageNames[c.stage.Load()],
		Nodes:         c.nodes.Load(),
		Relationships: c.rels.Load(),
		Properties:    c.props.Load(),
	}
}
