package mmu

import (
	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/tracing"
)

// FlushByVAASID evicts every access kind of the page that holds va in the
// address space. It returns the number of evicted keys.
func (c *Comp) FlushByVAASID(va uint64, asid vm.ASID) int {
	page := vm.NewGVPKey(va, asid, vm.AccessLoad).Compare()

	return c.flush(c.state.Select(func(k vm.GVPKey, _ vm.HVP) bool {
		return k.Compare() == page
	}))
}

// FlushByVA evicts the page that holds va in every address space.
func (c *Comp) FlushByVA(va uint64) int {
	pageVA := vm.NewGVPKey(va, 0, vm.AccessLoad).VA()

	return c.flush(c.state.Select(func(k vm.GVPKey, _ vm.HVP) bool {
		return k.VA() == pageVA
	}))
}

// FlushByASID evicts every page of an address space. It walks the whole
// resident set and is meant for address space teardown.
func (c *Comp) FlushByASID(asid vm.ASID) int {
	return c.flush(c.state.Select(func(k vm.GVPKey, _ vm.HVP) bool {
		return k.ASID() == asid
	}))
}

// FlushByHVP evicts every synonym of a host page.
func (c *Comp) FlushByHVP(hvp vm.HVP) int {
	return c.flush(c.state.IPT.Lookup(vm.HVPOf(uint64(hvp))))
}

// FlushByHVPASID evicts the synonyms of a host page that belong to the
// address space.
func (c *Comp) FlushByHVPASID(hvp vm.HVP, asid vm.ASID) int {
	var keys []vm.GVPKey

	for _, k := range c.state.IPT.Lookup(vm.HVPOf(uint64(hvp))) {
		if k.ASID() == asid {
			keys = append(keys, k)
		}
	}

	return c.flush(keys)
}

// FlushAll evicts every resident page. It walks the whole resident set.
func (c *Comp) FlushAll() int {
	return c.flush(c.state.TPT.AllKeys())
}

// flush requests the eviction of every key and ticks until all of them are
// acknowledged.
func (c *Comp) flush(keys []vm.GVPKey) int {
	for _, k := range keys {
		c.requestEviction(k)
	}

	c.TickUntil(func() bool {
		for _, k := range keys {
			if c.awaiting[k] {
				return false
			}
		}

		return true
	})

	c.emit(tracing.ResidencyEvent{
		Kind:  tracing.EventFlush,
		Count: len(keys),
	})

	return len(keys)
}

func (c *Comp) requestEviction(key vm.GVPKey) {
	if c.awaiting[key] {
		return
	}

	c.awaiting[key] = true

	// The accelerator already gave the page up and its write back is on the
	// way.
	if c.state.PendingEvictions.Has(key) {
		return
	}

	c.topSender.Send(vm.EvictRequestBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(c.accelerator).
		WithKey(key).
		Build())

	c.emit(tracing.ResidencyEvent{
		Kind: tracing.EventEvictRequested,
		Key:  key,
		HVP:  c.state.TPT.Lookup(key),
	})
}
