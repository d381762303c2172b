package pgsess

import (
	"sync"
)

// StatsSink receives per-(section,label) outcome deltas from the
// Executor. This layer only writes counters; aggregation and reporting
// belong to the sink's owner.
//
// attempted and errs are non-negative; rows may be negative (a failed
// batch retracts the count optimistically added elsewhere); seconds is
// elapsed wall time and is always >= 0.
type StatsSink interface {
	Update(section, label string, attempted, rows, errs int64, seconds float64)
}

// Stat is one accumulated counter row.
type Stat struct {
	Attempted int64
	Rows      int64
	Errors    int64
	Seconds   float64
}

type statKey struct {
	section string
	label   string
}

// MemoryStats is an in-process StatsSink. Entries are created lazily on
// first update and live for the duration of the run. Safe for
// concurrent use — it is the one piece of this layer multiple workers
// share by design.
type MemoryStats struct {
	mu sync.Mutex
	m  map[statKey]*Stat
}

// NewMemoryStats creates an empty accumulator.
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{m: make(map[statKey]*Stat)}
}

// Update implements StatsSink.
func (s *MemoryStats) Update(section, label string, attempted, rows, errs int64, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statKey{section: section, label: label}
	st := s.m[key]
	if st == nil {
		st = &Stat{}
		s.m[key] = st
	}
	st.Attempted += attempted
	st.Rows += rows
	st.Errors += errs
	st.Seconds += seconds
}

// Get returns the accumulated counters for (section, label). A pair
// that was never updated reads as all zeros.
func (s *MemoryStats) Get(section, label string) Stat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.m[statKey{section: section, label: label}]; st != nil {
		return *st
	}
	return Stat{}
}
