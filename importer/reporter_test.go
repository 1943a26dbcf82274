package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/loamdb/loam/store"
)

type fakeProgress struct {
	p store.Progress
}

func (f *fakeProgress) Progress() store.Progress { return f.p }

func TestReporterStaysQuietWithoutChange(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	src := &fakeProgress{p: store.Progress{Stage: store.StageNodes, Nodes: 5}}
	r := newReporter(src, false, zap.New(core).Sugar())

	r.tick()
	r.tick()
	r.tick()

	// First tick observes the initial counters, the repeats say nothing new
	assert.Equal(t, 1, logs.Len())
}

func TestReporterLogsOnChange(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	src := &fakeProgress{p: store.Progress{Stage: store.StageNodes, Nodes: 5}}
	r := newReporter(src, false, zap.New(core).Sugar())

	r.tick()
	src.p.Nodes = 9
	r.tick()

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[1]
	assert.Equal(t, "Import progress", entry.Message)
	assert.Equal(t, int64(9), entry.ContextMap()["nodes"])
}

func TestReporterVerboseIncludesDeltas(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	src := &fakeProgress{p: store.Progress{Stage: store.StageNodes, Nodes: 3}}
	r := newReporter(src, true, zap.New(core).Sugar())

	r.tick()
	src.p.Nodes = 10
	r.tick()

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, int64(7), logs.All()[1].ContextMap()["nodes_delta"])
}

func TestReporterStartStop(t *testing.T) {
	src := &fakeProgress{}
	r := newReporter(src, false, zap.NewNop().Sugar())

	r.Start()
	assert.NoError(t, r.Stop())
	// Stop after Stop must not block or panic
	assert.NoError(t, r.Stop())
}
