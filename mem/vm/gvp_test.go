package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GVPKey", func() {
	It("should pack the fields", func() {
		key := NewGVPKey(0x1234_5678_9abc, 7, AccessStore)

		Expect(key.IsKernel()).To(BeFalse())
		Expect(key.ASID()).To(Equal(ASID(7)))
		Expect(key.VA()).To(Equal(uint64(0x1234_5678_9000)))
		Expect(key.PageNumber()).To(Equal(uint64(0x1234_5678_9)))
		Expect(key.Kind()).To(Equal(AccessStore))
	})

	It("should restore kernel addresses", func() {
		key := NewGVPKey(0xffff_8000_0000_1000, 0, AccessFetch)

		Expect(key.IsKernel()).To(BeTrue())
		Expect(key.VA()).To(Equal(uint64(0xffff_8000_0000_1000)))
		Expect(key.Kind()).To(Equal(AccessFetch))
	})

	It("should ignore the page offset", func() {
		Expect(NewGVPKey(0x1fff, 1, AccessLoad)).
			To(Equal(NewGVPKey(0x1000, 1, AccessLoad)))
	})

	It("should panic if the asid is too large", func() {
		Expect(func() { NewGVPKey(0x1000, MaxASID+1, AccessLoad) }).
			To(Panic())
	})

	It("should compare pages regardless of the kind", func() {
		load := NewGVPKey(0x1000, 1, AccessLoad)
		store := NewGVPKey(0x1000, 1, AccessStore)
		other := NewGVPKey(0x1000, 2, AccessStore)

		Expect(load).NotTo(Equal(store))
		Expect(load.Compare()).To(Equal(store.Compare()))
		Expect(load.SamePage(store)).To(BeTrue())
		Expect(store.SamePage(other)).To(BeFalse())
		Expect(load.WithKind(AccessStore)).To(Equal(store))
	})

	It("should round trip through a page reference", func() {
		key := NewGVPKey(0xffff_8000_0040_2000, 12, AccessStore)

		Expect(RefOf(key).Key()).To(Equal(key))
	})

	It("should order access kinds", func() {
		Expect(AccessStore.Stronger(AccessLoad)).To(BeTrue())
		Expect(AccessFetch.Stronger(AccessLoad)).To(BeTrue())
		Expect(AccessLoad.Stronger(AccessStore)).To(BeFalse())
		Expect(AccessStore.Stronger(AccessFetch)).To(BeFalse())
		Expect(AccessStore.Stronger(AccessStore)).To(BeFalse())
	})

	It("should align host addresses", func() {
		Expect(HVPOf(0x7f00_0000_1234)).To(Equal(HVP(0x7f00_0000_1000)))
	})
})
