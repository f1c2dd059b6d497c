package listing

import (
	"time"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/query"
)

// Status describes where a snapshot is in the fetch cycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is an immutable view of one reconciled list fetch.
// TotalCount comes from the stats endpoint and is never derived from
// len(Records).
type Snapshot struct {
	Records    []catalog.Product
	TotalCount int64
	Status     Status
	Err        error // set iff Status == StatusError

	Query      query.State
	Generation uint64
	// Revision increases on every write to the synchronizer, including
	// optimistic edits within one generation.
	Revision  uint64
	UpdatedAt time.Time
}

// ErrorDetail returns a human-readable cause for an error snapshot.
func (s Snapshot) ErrorDetail() string {
	if s.Status != StatusError || s.Err == nil {
		return ""
	}
	return catalog.Describe(s.Err)
}

// TotalPages is the page count for TotalCount under the snapshot's query.
func (s Snapshot) TotalPages() int {
	return s.Query.TotalPages(int(s.TotalCount))
}

// IndexOf returns the position of the record with id, or -1.
func (s Snapshot) IndexOf(id int64) int {
	for i, p := range s.Records {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Without returns a copy with the record removed and TotalCount decremented
// (never below zero). ok is false when id is not present.
func (s Snapshot) Without(id int64) (Snapshot, bool) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return s.clone(), false
	}
	out := s.clone()
	out.Records = append(out.Records[:idx:idx], s.Records[idx+1:]...)
	if out.TotalCount > 0 {
		out.TotalCount--
	}
	return out, true
}

// WithInserted returns a copy with p placed at index (clamped to the record
// range) and TotalCount incremented.
func (s Snapshot) WithInserted(index int, p catalog.Product) Snapshot {
	out := s.clone()
	if index < 0 {
		index = 0
	}
	if index > len(out.Records) {
		index = len(out.Records)
	}
	out.Records = append(out.Records, catalog.Product{})
	copy(out.Records[index+1:], out.Records[index:])
	out.Records[index] = p
	out.TotalCount++
	return out
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Records = cloneRecords(s.Records)
	return out
}

func cloneRecords(items []catalog.Product) []catalog.Product {
	if len(items) == 0 {
		return nil
	}
	dup := make([]catalog.Product, len(items))
	copy(dup, items)
	return dup
}
