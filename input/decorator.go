package input

// Decorator is a pure mapping applied to every record of a stream, attaching
// the group's label set or default relationship type when the record itself
// does not specify one
type Decorator func(*Record) *Record

// NoDecorator passes records through untouched
func NoDecorator(r *Record) *Record { return r }

// AdditiveLabels attaches the given labels to every node record, on top of
// any labels the record already carries. Duplicates are not added twice.
func AdditiveLabels(labels []string) Decorator {
	if len(labels) == 0 {
		return NoDecorator
	}
	return func(r *Record) *Record {
		for _, l := range labels {
			if !hasLabel(r.Labels, l) {
				r.Labels = append(r.Labels, l)
			}
		}
		return r
	}
}

// DefaultRelationshipType assigns the given type to relationship records
// that omit an explicit one
func DefaultRelationshipType(typeName string) Decorator {
	if typeName == "" {
		return NoDecorator
	}
	return func(r *Record) *Record {
		if r.Type == "" {
			r.Type = typeName
		}
		return r
	}
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// decoratorFor picks the decorator a group's records need
func decoratorFor(kind Kind, g Group) Decorator {
	if kind == KindNode {
		return AdditiveLabels(g.Labels)
	}
	return DefaultRelationshipType(g.DefaultType)
}
