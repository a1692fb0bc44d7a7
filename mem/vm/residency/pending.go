package residency

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// DefaultPendingLimit is the number of in-flight transactions the
// accelerator supports per registry.
const DefaultPendingLimit = 32

// A PendingFault is a fault that waits for the eviction of its host page.
type PendingFault struct {
	Key       vm.GVPKey `json:"key"`
	HVP       vm.HVP    `json:"hvp"`
	Requester uint32    `json:"requester"`
}

// PendingFaults holds the faults deferred because their host page is being
// written back. A limit of zero or less means no limit.
type PendingFaults struct {
	limit int
	count int
	byHVP map[vm.HVP][]PendingFault
}

// NewPendingFaults creates an empty registry.
func NewPendingFaults(limit int) *PendingFaults {
	return &PendingFaults{
		limit: limit,
		byHVP: make(map[vm.HVP][]PendingFault),
	}
}

// Add defers a fault.
func (r *PendingFaults) Add(key vm.GVPKey, hvp vm.HVP, requester uint32) error {
	if r.limit > 0 && r.count >= r.limit {
		return fmt.Errorf("%w: %d faults pending", ErrRegistryFull, r.count)
	}

	r.byHVP[hvp] = append(r.byHVP[hvp], PendingFault{
		Key:       key,
		HVP:       hvp,
		Requester: requester,
	})
	r.count++

	return nil
}

// HasHVP reports whether a fault waits on hvp.
func (r *PendingFaults) HasHVP(hvp vm.HVP) bool {
	_, found := r.byHVP[hvp]
	return found
}

// Count returns the number of faults waiting on hvp.
func (r *PendingFaults) Count(hvp vm.HVP) int {
	return len(r.byHVP[hvp])
}

// Take removes and returns every fault waiting on hvp, in arrival order.
func (r *PendingFaults) Take(hvp vm.HVP) []PendingFault {
	faults := r.byHVP[hvp]
	delete(r.byHVP, hvp)
	r.count -= len(faults)

	return faults
}

// Len returns the number of deferred faults.
func (r *PendingFaults) Len() int {
	return r.count
}

// All returns a copy of every deferred fault, grouped by host page in
// ascending order.
func (r *PendingFaults) All() []PendingFault {
	hvps := make([]vm.HVP, 0, len(r.byHVP))
	for hvp := range r.byHVP {
		hvps = append(hvps, hvp)
	}

	slices.Sort(hvps)

	out := make([]PendingFault, 0, r.count)
	for _, hvp := range hvps {
		out = append(out, r.byHVP[hvp]...)
	}

	return out
}

// A PendingEviction is a modified page whose write back has not arrived.
type PendingEviction struct {
	Key vm.GVPKey `json:"key"`
	HVP vm.HVP    `json:"hvp"`
}

// PendingEvictions holds the modified pages being written back. A limit of
// zero or less means no limit.
type PendingEvictions struct {
	limit   int
	entries map[vm.GVPKey]vm.HVP
	perHVP  map[vm.HVP]int
}

// NewPendingEvictions creates an empty registry.
func NewPendingEvictions(limit int) *PendingEvictions {
	return &PendingEvictions{
		limit:   limit,
		entries: make(map[vm.GVPKey]vm.HVP),
		perHVP:  make(map[vm.HVP]int),
	}
}

// Add records the start of a write back.
func (r *PendingEvictions) Add(key vm.GVPKey, hvp vm.HVP) error {
	if _, found := r.entries[key]; found {
		return fmt.Errorf("%w: eviction of %s is already pending",
			ErrDuplicateKey, key)
	}

	if r.limit > 0 && len(r.entries) >= r.limit {
		return fmt.Errorf("%w: %d evictions pending",
			ErrRegistryFull, len(r.entries))
	}

	r.entries[key] = hvp
	r.perHVP[hvp]++

	return nil
}

// HasHVP reports whether a write back of hvp is in flight.
func (r *PendingEvictions) HasHVP(hvp vm.HVP) bool {
	return r.perHVP[hvp] > 0
}

// Has reports whether the eviction of key is pending.
func (r *PendingEvictions) Has(key vm.GVPKey) bool {
	_, found := r.entries[key]
	return found
}

// Lookup returns the host page being written back for key.
func (r *PendingEvictions) Lookup(key vm.GVPKey) (vm.HVP, bool) {
	hvp, found := r.entries[key]
	return hvp, found
}

// Clear ends the write back of key and returns its host page.
func (r *PendingEvictions) Clear(key vm.GVPKey) (vm.HVP, error) {
	hvp, found := r.entries[key]
	if !found {
		return 0, fmt.Errorf("%w: no eviction pending for %s",
			ErrUnknownKey, key)
	}

	delete(r.entries, key)

	r.perHVP[hvp]--
	if r.perHVP[hvp] == 0 {
		delete(r.perHVP, hvp)
	}

	return hvp, nil
}

// Len returns the number of pending evictions.
func (r *PendingEvictions) Len() int {
	return len(r.entries)
}

// All returns a copy of every pending eviction, ordered by key.
func (r *PendingEvictions) All() []PendingEviction {
	out := make([]PendingEviction, 0, len(r.entries))
	for key, hvp := range r.entries {
		out = append(out, PendingEviction{Key: key, HVP: hvp})
	}

	slices.SortFunc(out, func(a, b PendingEviction) int {
		return cmp.Compare(a.Key, b.Key)
	})

	return out
}
