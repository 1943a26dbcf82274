package input

// Source lazily opens one decorated entity stream over a single file-set.
// Opening is deferred until the store builder drains the source, so no file
// handles are held before Executing begins.
type Source struct {
	Kind  Kind
	Group Group

	files    []string
	decorate Decorator
	opts     ReaderOptions
}

// Open produces the source's stream. Each source is opened and drained at
// most once; streams are never shared or replayed.
func (s *Source) Open() (Stream, error) {
	raw, err := OpenStream(s.Kind, s.files, s.opts)
	if err != nil {
		return nil, err
	}
	return &decoratedStream{inner: raw, decorate: s.decorate}, nil
}

// Files exposes the file-set for the pre-run overview
func (s *Source) Files() []string { return s.files }

type decoratedStream struct {
	inner    Stream
	decorate Decorator
}

func (d *decoratedStream) Next() (*Record, error) {
	rec, err := d.inner.Next()
	if err != nil {
		return nil, err
	}
	return d.decorate(rec), nil
}

func (d *decoratedStream) Close() error { return d.inner.Close() }

// Input is the assembled import input handed to the store builder: ordered
// decorated sources for nodes and relationships plus the identity model.
// Order of sources within a group follows the caller's file-set order, which
// fixes identity-resolution order (first-seen id wins).
type Input struct {
	IDType        IDType
	Nodes         []*Source
	Relationships []*Source
}

// Assemble composes resolved file groups with their decorators into lazy
// per-file-set sources
func Assemble(idType IDType, nodeGroups, relGroups []Group, opts ReaderOptions) *Input {
	in := &Input{IDType: idType}
	for _, g := range nodeGroups {
		dec := decoratorFor(KindNode, g)
		for _, fs := range g.FileSets {
			in.Nodes = append(in.Nodes, &Source{Kind: KindNode, Group: g, files: fs, decorate: dec, opts: opts})
		}
	}
	for _, g := range relGroups {
		dec := decoratorFor(KindRelationship, g)
		for _, fs := range g.FileSets {
			in.Relationships = append(in.Relationships, &Source{Kind: KindRelationship, Group: g, files: fs, decorate: dec, opts: opts})
		}
	}
	return in
}
