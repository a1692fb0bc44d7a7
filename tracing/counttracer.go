package tracing

import (
	"sort"
	"sync"
)

// CountTracer counts the residency events of each kind.
type CountTracer struct {
	lock   sync.Mutex
	counts map[EventKind]uint64
}

// NewCountTracer creates a new CountTracer.
func NewCountTracer() *CountTracer {
	return &CountTracer{
		counts: make(map[EventKind]uint64),
	}
}

// Trace counts the event.
func (t *CountTracer) Trace(event ResidencyEvent) {
	t.lock.Lock()
	t.counts[event.Kind]++
	t.lock.Unlock()
}

// Count returns how many events of the kind were traced.
func (t *CountTracer) Count(kind EventKind) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[kind]
}

// Kinds returns the kinds seen so far, sorted by name.
func (t *CountTracer) Kinds() []EventKind {
	t.lock.Lock()
	defer t.lock.Unlock()

	kinds := make([]EventKind, 0, len(t.counts))
	for k := range t.counts {
		kinds = append(kinds, k)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}
