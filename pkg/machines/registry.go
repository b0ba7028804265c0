// Package machines holds the fleet catalog: machine records, their status
// and the read-only registry every view queries.
package machines

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID   = errors.New("duplicate machine id")
	ErrInvalidRecord = errors.New("invalid machine record")
)

// Registry is the authoritative, read-only list of machines for a session.
// It never changes after construction, so concurrent readers need no locking.
type Registry struct {
	records []Record
	index   map[string]int
}

// NewRegistry validates records and keeps them in the given order.
// Status values outside the closed set are folded into StatusUnknown.
func NewRegistry(records []Record) (*Registry, error) {
	r := &Registry{
		records: make([]Record, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		if !rec.Status.Known() {
			rec.Status = ParseStatus(string(rec.Status))
		}
		r.index[rec.ID] = len(r.records)
		r.records = append(r.records, rec)
	}
	return r, nil
}

// All returns every record in insertion order.
func (r *Registry) All() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// ByStatus returns the records matching filter in registry order.
// AnyStatus returns everything.
func (r *Registry) ByStatus(filter Status) []Record {
	if filter == AnyStatus {
		return r.All()
	}
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Status == filter {
			out = append(out, rec)
		}
	}
	return out
}

// StatusColor maps a status to its display color.
func (r *Registry) StatusColor(status Status) Color { return ColorOf(status) }

// Get looks a record up by id.
func (r *Registry) Get(id string) (Record, bool) {
	i, ok := r.index[id]
	if !ok {
		return Record{}, false
	}
	return r.records[i], true
}

// Len is the number of records.
func (r *Registry) Len() int { return len(r.records) }

// Counts tallies records per status. Every concrete status is present,
// possibly with zero.
func (r *Registry) Counts() map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		out[s] = 0
	}
	for _, rec := range r.records {
		out[rec.Status]++
	}
	return out
}
