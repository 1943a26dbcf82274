package input

import "fmt"

// BadEntryKind classifies a rejected input record
type BadEntryKind int

const (
	// BadEntryDuplicateID marks a record whose identity was already seen in
	// the same id space; the first occurrence wins
	BadEntryDuplicateID BadEntryKind = iota
	// BadEntryMissingData marks a relationship missing a mandatory endpoint
	// identity or type
	BadEntryMissingData
	// BadEntryExtraColumn marks a row carrying more values than the header
	// declares
	BadEntryExtraColumn
	// BadEntryOther marks rejections not covered by a more specific kind
	BadEntryOther
)

func (k BadEntryKind) String() string {
	switch k {
	case BadEntryDuplicateID:
		return "duplicate id"
	case BadEntryMissingData:
		return "missing data"
	case BadEntryExtraColumn:
		return "extra column"
	default:
		return "other"
	}
}

// BadEntry is a classified rejection of one input record
type BadEntry struct {
	Kind    BadEntryKind
	Source  string // file:line of the offending record
	Message string // textual representation of the record and the violation
}

func (e BadEntry) String() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Source)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// BadEntryError carries a recoverable rejection out of a Reader so the drain
// loop can hand it to the collector instead of failing the run
type BadEntryError struct {
	Entry BadEntry
}

func (e *BadEntryError) Error() string { return e.Entry.String() }
