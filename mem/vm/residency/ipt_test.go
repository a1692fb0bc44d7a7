package residency

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flexmmu/mem/vm"
)

var _ = Describe("InvertedPageTable", func() {
	var (
		ipt   *InvertedPageTable
		hvp   vm.HVP
		load  vm.GVPKey
		store vm.GVPKey
		alias vm.GVPKey
	)

	BeforeEach(func() {
		ipt = NewInvertedPageTable()
		hvp = 0x7f00_0000_1000
		load = vm.NewGVPKey(0x1000, 1, vm.AccessLoad)
		store = vm.NewGVPKey(0x1000, 1, vm.AccessStore)
		alias = vm.NewGVPKey(0x9000, 2, vm.AccessLoad)
	})

	It("should register the first key as first resident", func() {
		reg, err := ipt.Register(hvp, load)

		Expect(err).NotTo(HaveOccurred())
		Expect(reg).To(Equal(FirstResident))
		Expect(ipt.Lookup(hvp)).To(Equal([]vm.GVPKey{load}))
	})

	It("should append synonyms in order", func() {
		_, _ = ipt.Register(hvp, load)
		reg, err := ipt.Register(hvp, alias)
		Expect(err).NotTo(HaveOccurred())
		Expect(reg).To(Equal(Synonym))

		_, _ = ipt.Register(hvp, store)

		Expect(ipt.Lookup(hvp)).To(Equal([]vm.GVPKey{load, alias, store}))
		Expect(ipt.Count(hvp)).To(Equal(3))
	})

	It("should reject a duplicate key", func() {
		_, _ = ipt.Register(hvp, load)
		reg, err := ipt.Register(hvp, load)

		Expect(reg).To(Equal(Synonym))
		Expect(err).To(MatchError(ErrDuplicateKey))
		Expect(ipt.Count(hvp)).To(Equal(1))
	})

	It("should return an owned copy", func() {
		_, _ = ipt.Register(hvp, load)

		keys := ipt.Lookup(hvp)
		keys[0] = alias

		Expect(ipt.Lookup(hvp)).To(Equal([]vm.GVPKey{load}))
	})

	It("should return nothing for an unknown page", func() {
		Expect(ipt.Lookup(hvp)).To(BeEmpty())
		Expect(ipt.Has(hvp)).To(BeFalse())
	})

	It("should remove the entry with the last synonym", func() {
		_, _ = ipt.Register(hvp, load)
		_, _ = ipt.Register(hvp, alias)

		removed, last, err := ipt.Evict(hvp, load)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal(load))
		Expect(last).To(BeFalse())

		_, last, err = ipt.Evict(hvp, alias)
		Expect(err).NotTo(HaveOccurred())
		Expect(last).To(BeTrue())
		Expect(ipt.Has(hvp)).To(BeFalse())
		Expect(ipt.Len()).To(Equal(0))
	})

	It("should fall back to the same page with another kind", func() {
		_, _ = ipt.Register(hvp, store)

		removed, last, err := ipt.Evict(hvp, load)

		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal(store))
		Expect(last).To(BeTrue())
	})

	It("should report unknown pages and keys", func() {
		_, _, err := ipt.Evict(hvp, load)
		Expect(err).To(MatchError(ErrUnknownHVP))

		_, _ = ipt.Register(hvp, load)
		_, _, err = ipt.Evict(hvp, alias)
		Expect(err).To(MatchError(ErrUnknownKey))
	})

	It("should reuse arena slots", func() {
		other := vm.HVP(0x7f00_0000_2000)

		_, _ = ipt.Register(hvp, load)
		_, _, _ = ipt.Evict(hvp, load)
		_, _ = ipt.Register(other, alias)

		Expect(ipt.arena).To(HaveLen(1))
		Expect(ipt.Lookup(other)).To(Equal([]vm.GVPKey{alias}))
		Expect(ipt.Lookup(hvp)).To(BeEmpty())
	})

	It("should find the highest access kind of a page", func() {
		_, _ = ipt.Register(hvp, alias)
		_, _ = ipt.Register(hvp, load)

		kind, found := ipt.HighestKind(hvp, load)
		Expect(found).To(BeTrue())
		Expect(kind).To(Equal(vm.AccessLoad))

		_, _ = ipt.Register(hvp, store)

		kind, _ = ipt.HighestKind(hvp, load)
		Expect(kind).To(Equal(vm.AccessStore))

		_, found = ipt.HighestKind(hvp, vm.NewGVPKey(0x5000, 1, vm.AccessLoad))
		Expect(found).To(BeFalse())
	})
})
