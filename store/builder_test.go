package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loamdb/loam/errors"
	"github.com/loamdb/loam/input"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assemble(t *testing.T, idType input.IDType, nodes []input.NodeGroupSpec, rels []input.RelationshipGroupSpec) *input.Input {
	t.Helper()
	nodeGroups, err := input.ResolveNodeGroups(nodes)
	require.NoError(t, err)
	relGroups, err := input.ResolveRelationshipGroups(rels)
	require.NoError(t, err)
	return input.Assemble(idType, nodeGroups, relGroups, input.ReaderOptions{})
}

func openBuilt(t *testing.T, targetDir string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(targetDir, StoreFileName))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestBuildNodesAndRelationships(t *testing.T) {
	dir := t.TempDir()
	people := writeFile(t, dir, "people.csv", "id:ID,name\n1,Keanu\n2,Carrie\n")
	knows := writeFile(t, dir, "knows.csv", ":START_ID,:END_ID,since\n1,2,1999\n")
	target := t.TempDir()

	in := assemble(t,
		input.IDTypeString,
		[]input.NodeGroupSpec{{Labels: []string{"Person"}, Files: []string{people}}},
		[]input.RelationshipGroupSpec{{DefaultType: "KNOWS", Files: []string{knows}}},
	)

	collector := input.NewBadCollector(input.TolerancePolicy{Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 2, RecordFormat: "standard", TimezoneDefault: "UTC"}, collector, testLogger())

	require.NoError(t, b.Build(context.Background(), in))
	assert.Equal(t, int64(0), collector.BadEntries())

	db := openBuilt(t, target)
	assert.Equal(t, 2, countRows(t, db, "nodes"))
	assert.Equal(t, 1, countRows(t, db, "relationships"))

	var labels, typ string
	require.NoError(t, db.QueryRow(`SELECT labels FROM nodes WHERE input_id = '1'`).Scan(&labels))
	assert.Equal(t, `["Person"]`, labels)
	require.NoError(t, db.QueryRow(`SELECT type FROM relationships`).Scan(&typ))
	assert.Equal(t, "KNOWS", typ)

	var format string
	require.NoError(t, db.QueryRow(`SELECT value FROM meta WHERE key = 'record_format'`).Scan(&format))
	assert.Equal(t, "standard", format)

	progress := b.Progress()
	assert.Equal(t, StageDone, progress.Stage)
	assert.Equal(t, int64(2), progress.Nodes)
	assert.Equal(t, int64(1), progress.Relationships)
}

func TestBuildDuplicateNodeFirstWins(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id:ID,name\n42,first\n")
	b2 := writeFile(t, dir, "b.csv", "id:ID,name\n42,second\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeString,
		[]input.NodeGroupSpec{
			{Labels: []string{"Person"}, Files: []string{a}},
			{Labels: []string{"Person"}, Files: []string{b2}},
		}, nil)

	collector := input.NewBadCollector(input.TolerancePolicy{SkipDuplicateNodes: true}, nil)
	b := NewBuilder(target, Config{Processors: 1}, collector, testLogger())
	require.NoError(t, b.Build(context.Background(), in))

	assert.Equal(t, int64(1), collector.BadEntries())

	db := openBuilt(t, target)
	var props string
	require.NoError(t, db.QueryRow(`SELECT props FROM nodes WHERE input_id = '42'`).Scan(&props))
	assert.Contains(t, props, "first", "the first occurrence of a duplicate id wins")
}

func TestBuildDuplicateAbortsAtZeroTolerance(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id:ID\n42\n42\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeString,
		[]input.NodeGroupSpec{{Files: []string{a}}}, nil)

	collector := input.NewBadCollector(input.TolerancePolicy{Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 2}, collector, testLogger())

	err := b.Build(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsDataQualityError(err))
	assert.True(t, errors.Is(err, errors.ErrDuplicateID))
}

func TestBuildRelationshipMissingData(t *testing.T) {
	dir := t.TempDir()
	people := writeFile(t, dir, "p.csv", "id:ID\n1\n2\n")
	rels := writeFile(t, dir, "r.csv", ":START_ID,:END_ID\n1,\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeString,
		[]input.NodeGroupSpec{{Files: []string{people}}},
		[]input.RelationshipGroupSpec{{DefaultType: "KNOWS", Files: []string{rels}}})

	collector := input.NewBadCollector(input.TolerancePolicy{Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 1}, collector, testLogger())

	err := b.Build(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsDataQualityError(err))
	assert.True(t, errors.Is(err, errors.ErrMissingData))
}

func TestBuildRelationshipMissingDataSkipped(t *testing.T) {
	dir := t.TempDir()
	people := writeFile(t, dir, "p.csv", "id:ID\n1\n2\n")
	rels := writeFile(t, dir, "r.csv", ":START_ID,:END_ID\n1,\n1,2\n9,2\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeString,
		[]input.NodeGroupSpec{{Files: []string{people}}},
		[]input.RelationshipGroupSpec{{DefaultType: "KNOWS", Files: []string{rels}}})

	collector := input.NewBadCollector(input.TolerancePolicy{SkipBadRelationships: true, Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 1}, collector, testLogger())
	require.NoError(t, b.Build(context.Background(), in))

	// Missing end id and unresolvable start node both skipped, one rel written
	assert.Equal(t, int64(2), collector.BadEntries())
	db := openBuilt(t, target)
	assert.Equal(t, 1, countRows(t, db, "relationships"))
}

func TestBuildSequenceIDs(t *testing.T) {
	dir := t.TempDir()
	nodes := writeFile(t, dir, "n.csv", "id:ID,name\n10,ten\n11,eleven\n")
	rels := writeFile(t, dir, "r.csv", ":START_ID,:END_ID\n10,11\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeSequence,
		[]input.NodeGroupSpec{{Files: []string{nodes}}},
		[]input.RelationshipGroupSpec{{DefaultType: "NEXT", Files: []string{rels}}})

	collector := input.NewBadCollector(input.TolerancePolicy{Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 1}, collector, testLogger())
	require.NoError(t, b.Build(context.Background(), in))

	db := openBuilt(t, target)
	var id int64
	require.NoError(t, db.QueryRow(`SELECT id FROM nodes WHERE input_id = '10'`).Scan(&id))
	assert.Equal(t, int64(10), id, "sequence ids map directly onto record ids")

	var start, end int64
	require.NoError(t, db.QueryRow(`SELECT start_id, end_id FROM relationships`).Scan(&start, &end))
	assert.Equal(t, int64(10), start)
	assert.Equal(t, int64(11), end)
}

func TestBuildSequenceIDRejectsNonNumeric(t *testing.T) {
	dir := t.TempDir()
	nodes := writeFile(t, dir, "n.csv", "id:ID\nabc\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeSequence,
		[]input.NodeGroupSpec{{Files: []string{nodes}}}, nil)

	collector := input.NewBadCollector(input.TolerancePolicy{Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 1}, collector, testLogger())

	err := b.Build(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsDataQualityError(err))
}

func TestBuildNormalizeTypes(t *testing.T) {
	dir := t.TempDir()
	nodes := writeFile(t, dir, "n.csv", "id:ID,age,score,active\n1,56,7.5,true\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeString,
		[]input.NodeGroupSpec{{Files: []string{nodes}}}, nil)

	collector := input.NewBadCollector(input.TolerancePolicy{Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 1, NormalizeTypes: true}, collector, testLogger())
	require.NoError(t, b.Build(context.Background(), in))

	db := openBuilt(t, target)
	var props string
	require.NoError(t, db.QueryRow(`SELECT props FROM nodes`).Scan(&props))
	assert.Contains(t, props, `"age":56`)
	assert.Contains(t, props, `"score":7.5`)
	assert.Contains(t, props, `"active":true`)
}

func TestBuildExtraColumnRoutedThroughCollector(t *testing.T) {
	dir := t.TempDir()
	nodes := writeFile(t, dir, "n.csv", "id:ID,name\n1,one,surplus\n2,two\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeString,
		[]input.NodeGroupSpec{{Files: []string{nodes}}}, nil)

	collector := input.NewBadCollector(input.TolerancePolicy{IgnoreExtraColumns: true}, nil)
	b := NewBuilder(target, Config{Processors: 1}, collector, testLogger())
	require.NoError(t, b.Build(context.Background(), in))

	assert.Equal(t, int64(1), collector.BadEntries())
	db := openBuilt(t, target)
	assert.Equal(t, 1, countRows(t, db, "nodes"))
}

func TestBuildContextCancellation(t *testing.T) {
	dir := t.TempDir()
	nodes := writeFile(t, dir, "n.csv", "id:ID\n1\n2\n3\n")
	target := t.TempDir()

	in := assemble(t, input.IDTypeString,
		[]input.NodeGroupSpec{{Files: []string{nodes}}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collector := input.NewBadCollector(input.TolerancePolicy{Tolerance: 0}, nil)
	b := NewBuilder(target, Config{Processors: 1}, collector, testLogger())

	err := b.Build(ctx, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
