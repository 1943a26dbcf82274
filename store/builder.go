package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loamdb/loam/errors"
	"github.com/loamdb/loam/input"
)

// Builder drains decorated entity streams into the physical store. A single
// drain goroutine consumes each stream exactly once (identity resolution is
// order-sensitive), while a pool of writers persists batches concurrently.
// The bad-entry collector is the only shared-mutable object crossing that
// worker boundary.
type Builder struct {
	targetDir string
	cfg       Config
	collector input.Collector
	log       *zap.SugaredLogger
	counters  counters
}

// NewBuilder creates a builder for the given target directory
func NewBuilder(targetDir string, cfg Config, collector input.Collector, log *zap.SugaredLogger) *Builder {
	return &Builder{
		targetDir: targetDir,
		cfg:       cfg.withDefaults(),
		collector: collector,
		log:       log,
	}
}

// Progress returns a snapshot of the builder's monotonic counters. Safe to
// call concurrently with Build.
func (b *Builder) Progress() Progress {
	return b.counters.snapshot()
}

// Build runs the multi-phase store construction pass: nodes first (building
// the identity mapping), then relationships (resolving endpoints against it),
// then store metadata. Any returned error means the run is fatal and the
// store files are in an indeterminate state.
func (b *Builder) Build(ctx context.Context, in *input.Input) error {
	db, err := openStore(b.targetDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ids := newIDMapper(in.IDType)

	b.counters.setStage(StageNodes)
	b.log.Infow("Node import stage started", "sources", len(in.Nodes), "workers", b.cfg.Processors)
	if err := b.importNodes(ctx, db, in.Nodes, ids); err != nil {
		return errors.Wrap(err, "node import stage")
	}

	b.counters.setStage(StageRelationships)
	b.log.Infow("Relationship import stage started", "sources", len(in.Relationships))
	if err := b.importRelationships(ctx, db, in.Relationships, ids); err != nil {
		return errors.Wrap(err, "relationship import stage")
	}

	if err := writeMeta(db, b.cfg, b.counters.nodes.Load(), b.counters.rels.Load()); err != nil {
		return err
	}
	b.counters.setStage(StageDone)
	return nil
}

// queueDepth bounds in-flight batches by the configured memory budget,
// assuming a rough 256 bytes per buffered row
func (b *Builder) queueDepth() int {
	const rowBytes = 256
	depth := int(b.cfg.MaxMemory / uint64(b.cfg.BatchSize*rowBytes))
	if depth < 2 {
		depth = 2
	}
	if depth > 64 {
		depth = 64
	}
	return depth
}

type nodeRow struct {
	id      int64
	inputID string
	labels  string
	props   string
}

type relRow struct {
	start int64
	end   int64
	typ   string
	props string
}

func (b *Builder) importNodes(ctx context.Context, db *sql.DB, sources []*input.Source, ids *idMapper) error {
	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan []nodeRow, b.queueDepth())

	for i := 0; i < b.cfg.Processors; i++ {
		g.Go(func() error { return b.writeNodeBatches(ctx, db, batches) })
	}
	g.Go(func() error {
		defer close(batches)
		return b.drainNodes(ctx, sources, ids, batches)
	})
	return g.Wait()
}

func (b *Builder) drainNodes(ctx context.Context, sources []*input.Source, ids *idMapper, batches chan<- []nodeRow) error {
	batch := make([]nodeRow, 0, b.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case batches <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([]nodeRow, 0, b.cfg.BatchSize)
		return nil
	}

	for _, src := range sources {
		if err := b.drainNodeSource(ctx, src, ids, &batch, flush); err != nil {
			return err
		}
	}
	return flush()
}

func (b *Builder) drainNodeSource(ctx context.Context, src *input.Source, ids *idMapper, batch *[]nodeRow, flush func() error) error {
	stream, err := src.Open()
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		var bad *input.BadEntryError
		if errors.As(err, &bad) {
			if cerr := b.collector.Collect(bad.Entry); cerr != nil {
				return cerr
			}
			continue
		}
		if err != nil {
			return err
		}

		id, entry := ids.assignNode(rec)
		if entry != nil {
			if cerr := b.collector.Collect(*entry); cerr != nil {
				return cerr
			}
			continue
		}

		row, err := b.encodeNode(id, rec)
		if err != nil {
			return err
		}
		*batch = append(*batch, row)
		b.counters.nodes.Add(1)
		b.counters.props.Add(int64(len(rec.Props)))

		if len(*batch) >= b.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func (b *Builder) writeNodeBatches(ctx context.Context, db *sql.DB, batches <-chan []nodeRow) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if err := b.insertNodes(db, batch); err != nil {
				return err
			}
		}
	}
}

func (b *Builder) insertNodes(db *sql.DB, batch []nodeRow) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin node batch")
	}
	stmt, err := tx.Prepare(`INSERT INTO nodes (id, input_id, labels, props) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to prepare node insert")
	}
	defer stmt.Close()

	for _, row := range batch {
		if _, err := stmt.Exec(row.id, row.inputID, row.labels, row.props); err != nil {
			// Record-level store faults route through the shared collector
			// like any other rejection
			if cerr := b.collector.Collect(input.BadEntry{
				Kind:    input.BadEntryOther,
				Message: fmt.Sprintf("node record %d rejected by store: %v", row.id, err),
			}); cerr != nil {
				tx.Rollback()
				return cerr
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit node batch")
	}
	return nil
}

func (b *Builder) importRelationships(ctx context.Context, db *sql.DB, sources []*input.Source, ids *idMapper) error {
	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan []relRow, b.queueDepth())

	for i := 0; i < b.cfg.Processors; i++ {
		g.Go(func() error { return b.writeRelBatches(ctx, db, batches) })
	}
	g.Go(func() error {
		defer close(batches)
		return b.drainRelationships(ctx, sources, ids, batches)
	})
	return g.Wait()
}

func (b *Builder) drainRelationships(ctx context.Context, sources []*input.Source, ids *idMapper, batches chan<- []relRow) error {
	batch := make([]relRow, 0, b.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case batches <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([]relRow, 0, b.cfg.BatchSize)
		return nil
	}

	for _, src := range sources {
		if err := b.drainRelSource(ctx, src, ids, &batch, flush); err != nil {
			return err
		}
	}
	return flush()
}

func (b *Builder) drainRelSource(ctx context.Context, src *input.Source, ids *idMapper, batch *[]relRow, flush func() error) error {
	stream, err := src.Open()
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		var bad *input.BadEntryError
		if errors.As(err, &bad) {
			if cerr := b.collector.Collect(bad.Entry); cerr != nil {
				return cerr
			}
			continue
		}
		if err != nil {
			return err
		}

		row, entry := b.resolveRelationship(rec, ids)
		if entry != nil {
			if cerr := b.collector.Collect(*entry); cerr != nil {
				return cerr
			}
			continue
		}
		*batch = append(*batch, row)
		b.counters.rels.Add(1)
		b.counters.props.Add(int64(len(rec.Props)))

		if len(*batch) >= b.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

// resolveRelationship checks mandatory fields and maps endpoint identities
// onto node record ids. Violations come back as bad entries for the collector.
func (b *Builder) resolveRelationship(rec *input.Record, ids *idMapper) (relRow, *input.BadEntry) {
	missing := func(what string) *input.BadEntry {
		return &input.BadEntry{
			Kind:    input.BadEntryMissingData,
			Source:  rec.Source,
			Message: fmt.Sprintf("relationship missing %s: %s", what, rec),
		}
	}
	switch {
	case rec.StartID == "":
		return relRow{}, missing("start id")
	case rec.EndID == "":
		return relRow{}, missing("end id")
	case rec.Type == "":
		return relRow{}, missing("type")
	}

	start, ok := ids.lookup(rec.StartID)
	if !ok {
		return relRow{}, missing(fmt.Sprintf("start node %q", rec.StartID))
	}
	end, ok := ids.lookup(rec.EndID)
	if !ok {
		return relRow{}, missing(fmt.Sprintf("end node %q", rec.EndID))
	}

	props, err := b.encodeProps(rec.Props)
	if err != nil {
		return relRow{}, &input.BadEntry{
			Kind:    input.BadEntryOther,
			Source:  rec.Source,
			Message: fmt.Sprintf("unencodable properties: %v", err),
		}
	}
	return relRow{start: start, end: end, typ: rec.Type, props: props}, nil
}

func (b *Builder) writeRelBatches(ctx context.Context, db *sql.DB, batches <-chan []relRow) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if err := b.insertRels(db, batch); err != nil {
				return err
			}
		}
	}
}

func (b *Builder) insertRels(db *sql.DB, batch []relRow) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin relationship batch")
	}
	stmt, err := tx.Prepare(`INSERT INTO relationships (start_id, end_id, type, props) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to prepare relationship insert")
	}
	defer stmt.Close()

	for _, row := range batch {
		if _, err := stmt.Exec(row.start, row.end, row.typ, row.props); err != nil {
			if cerr := b.collector.Collect(input.BadEntry{
				Kind:    input.BadEntryOther,
				Message: fmt.Sprintf("relationship record rejected by store: %v", err),
			}); cerr != nil {
				tx.Rollback()
				return cerr
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit relationship batch")
	}
	return nil
}

func (b *Builder) encodeNode(id int64, rec *input.Record) (nodeRow, error) {
	labels, err := json.Marshal(rec.Labels)
	if err != nil {
		return nodeRow{}, errors.Wrap(err, "failed to encode labels")
	}
	props, err := b.encodeProps(rec.Props)
	if err != nil {
		return nodeRow{}, err
	}
	return nodeRow{id: id, inputID: rec.ID, labels: string(labels), props: props}, nil
}

// encodeProps serializes properties, optionally normalizing values that parse
// as numbers or booleans into their typed form
func (b *Builder) encodeProps(props map[string]string) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	if !b.cfg.NormalizeTypes {
		data, err := json.Marshal(props)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode properties")
		}
		return string(data), nil
	}

	normalized := make(map[string]interface{}, len(props))
	for k, v := range props {
		normalized[k] = normalizeValue(v)
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode properties")
	}
	return string(data), nil
}

func normalizeValue(v string) interface{} {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
