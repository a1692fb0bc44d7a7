package mmu

import (
	"fmt"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/residency"
	"github.com/sarchlab/flexmmu/tracing"
)

// SynchronizePage prepares a page before the emulator accesses it directly.
// If the access is a store, or if the accelerator may have modified the page,
// every synonym of the host page is evicted so that host memory holds the
// only copy. It returns whether an eviction was needed. Addresses that do
// not translate are left to the emulator's own fault handling.
func (c *Comp) SynchronizePage(
	asid vm.ASID,
	va uint64,
	kind vm.AccessKind,
) (bool, error) {
	hvp, ok := c.translator.Translate(asid, va, kind)
	if !ok {
		return false, nil
	}

	hvp = vm.HVPOf(uint64(hvp))

	synonyms := c.state.IPT.Lookup(hvp)
	if len(synonyms) == 0 {
		return false, nil
	}

	if kind != vm.AccessStore && !anyWritable(synonyms) {
		return false, nil
	}

	n := c.flush(synonyms)

	if c.state.HasTrace(hvp) {
		return true, fmt.Errorf("%w: %s is still resident after synchronization",
			residency.ErrInconsistent, hvp)
	}

	c.emit(tracing.ResidencyEvent{
		Kind:  tracing.EventSynchronize,
		HVP:   hvp,
		Count: n,
	})

	return true, nil
}

func anyWritable(keys []vm.GVPKey) bool {
	for _, k := range keys {
		if k.Kind() == vm.AccessStore {
			return true
		}
	}

	return false
}
