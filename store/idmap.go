package store

import (
	"fmt"
	"strconv"

	"github.com/loamdb/loam/input"
)

// idMapper resolves input identities onto node record ids. Only the drain
// goroutine touches it during the node stage; the relationship stage reads it
// after that stage has finished, so no locking is needed.
//
// All groups share one global id space, so duplicate detection is
// order-sensitive across the whole node input: the first-seen identity wins.
type idMapper struct {
	idType  input.IDType
	byValue map[string]int64
	next    int64
}

func newIDMapper(idType input.IDType) *idMapper {
	return &idMapper{idType: idType, byValue: make(map[string]int64)}
}

// assignNode resolves a node record's identity. A non-nil BadEntry means the
// record must be rejected (duplicate or unusable id) and handed to the
// collector; the record id is only valid when the entry is nil.
func (m *idMapper) assignNode(rec *input.Record) (int64, *input.BadEntry) {
	if rec.ID == "" {
		if m.idType == input.IDTypeSequence {
			return 0, &input.BadEntry{
				Kind:    input.BadEntryOther,
				Source:  rec.Source,
				Message: fmt.Sprintf("sequence id import requires an id on every node: %s", rec),
			}
		}
		// Anonymous nodes get a fresh record id and never join the id space
		m.next++
		return m.next, nil
	}

	key, id, entry := m.resolve(rec)
	if entry != nil {
		return 0, entry
	}
	if _, seen := m.byValue[key]; seen {
		return 0, &input.BadEntry{
			Kind:    input.BadEntryDuplicateID,
			Source:  rec.Source,
			Message: fmt.Sprintf("id %q is already in use: %s", rec.ID, rec),
		}
	}
	m.byValue[key] = id
	return id, nil
}

// resolve canonicalizes the raw identity and picks the record id for it
func (m *idMapper) resolve(rec *input.Record) (key string, id int64, entry *input.BadEntry) {
	if m.idType == input.IDTypeString {
		m.next++
		return rec.ID, m.next, nil
	}

	n, err := strconv.ParseInt(rec.ID, 10, 64)
	if err != nil || n < 0 {
		return "", 0, &input.BadEntry{
			Kind:    input.BadEntryOther,
			Source:  rec.Source,
			Message: fmt.Sprintf("id %q is not a valid sequence id: %s", rec.ID, rec),
		}
	}
	if n > m.next {
		m.next = n // keep anonymous allocation clear of explicit ids
	}
	return strconv.FormatInt(n, 10), n, nil
}

// lookup maps a relationship endpoint identity onto its node record id
func (m *idMapper) lookup(rawID string) (int64, bool) {
	key := rawID
	if m.idType == input.IDTypeSequence {
		n, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return 0, false
		}
		key = strconv.FormatInt(n, 10)
	}
	id, ok := m.byValue[key]
	return id, ok
}
