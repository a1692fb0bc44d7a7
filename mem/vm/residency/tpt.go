package residency

import (
	"fmt"
	"log"
	"slices"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// TemporalPageTable is the forward index from guest keys to the host pages
// they are resident through. Flush operations enumerate it.
type TemporalPageTable struct {
	entries map[vm.GVPKey]vm.HVP
}

// NewTemporalPageTable creates an empty table.
func NewTemporalPageTable() *TemporalPageTable {
	return &TemporalPageTable{
		entries: make(map[vm.GVPKey]vm.HVP),
	}
}

// Add records that key resolves to hvp.
func (t *TemporalPageTable) Add(key vm.GVPKey, hvp vm.HVP) error {
	if _, found := t.entries[key]; found {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	t.entries[key] = hvp

	return nil
}

// Remove forgets key.
func (t *TemporalPageTable) Remove(key vm.GVPKey) error {
	if _, found := t.entries[key]; !found {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	delete(t.entries, key)

	return nil
}

// Has reports whether key is resident.
func (t *TemporalPageTable) Has(key vm.GVPKey) bool {
	_, found := t.entries[key]
	return found
}

// Lookup returns the host page of key. Callers must check Has first.
func (t *TemporalPageTable) Lookup(key vm.GVPKey) vm.HVP {
	hvp, found := t.entries[key]
	if !found {
		log.Panicf("key %s is not in the temporal page table", key)
	}

	return hvp
}

// AllKeys returns every resident key in ascending order. Enumerating is
// proportional to the resident set and is meant for flushes.
func (t *TemporalPageTable) AllKeys() []vm.GVPKey {
	keys := make([]vm.GVPKey, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// Len returns the number of resident keys.
func (t *TemporalPageTable) Len() int {
	return len(t.entries)
}
