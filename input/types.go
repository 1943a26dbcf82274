// Package input turns delimited text files into decorated entity streams for
// the store builder, and enforces the bad-entry tolerance policy while doing so.
package input

import (
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes the two entity kinds the importer handles
type Kind int

const (
	KindNode Kind = iota
	KindRelationship
)

func (k Kind) String() string {
	if k == KindNode {
		return "node"
	}
	return "relationship"
}

// IDType selects how input identities are interpreted
type IDType int

const (
	// IDTypeString treats identities as arbitrary string values
	IDTypeString IDType = iota
	// IDTypeSequence treats identities as positional numeric values that map
	// directly onto store record ids
	IDTypeSequence
)

// ParseIDType resolves the --id-type flag value
func ParseIDType(s string) (IDType, bool) {
	switch strings.ToLower(s) {
	case "string", "":
		return IDTypeString, true
	case "sequence":
		return IDTypeSequence, true
	}
	return IDTypeString, false
}

// Record is one raw entity produced by a Reader, after decoration.
// Nodes carry ID and Labels; relationships carry Type, StartID and EndID.
type Record struct {
	Kind    Kind
	ID      string
	Labels  []string
	Type    string
	StartID string
	EndID   string
	Props   map[string]string

	// Source is the file:line position of the record, used in bad-entry reports
	Source string
}

// String renders the record the way it appears in the bad-entry report
func (r *Record) String() string {
	var b strings.Builder
	if r.Kind == KindNode {
		fmt.Fprintf(&b, "node id=%q labels=%v", r.ID, r.Labels)
	} else {
		fmt.Fprintf(&b, "relationship type=%q start=%q end=%q", r.Type, r.StartID, r.EndID)
	}
	if r.Source != "" {
		fmt.Fprintf(&b, " (%s)", r.Source)
	}
	return b.String()
}

// Stream is a lazy, single-pass sequence of records over one file-set.
// Next returns io.EOF when the stream is exhausted; streams are never replayed.
type Stream interface {
	Next() (*Record, error)
	Close() error
}

// Group is one file group: a grouping key plus the ordered file-sets that
// belong to it. For nodes the key is the label set (order irrelevant), for
// relationships it is the default type name (exact match).
type Group struct {
	Labels      []string
	DefaultType string
	FileSets    [][]string
}

// Key renders the grouping key for display and report lines
func (g Group) Key() string {
	if g.DefaultType != "" {
		return g.DefaultType
	}
	if len(g.Labels) == 0 {
		return "(no labels)"
	}
	return strings.Join(g.Labels, ":")
}

// labelSetKey produces the canonical, order-insensitive identity of a label set
func labelSetKey(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
