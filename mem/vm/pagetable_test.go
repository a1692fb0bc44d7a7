package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PageTable", func() {
	var (
		pt PageTable
	)

	BeforeEach(func() {
		pt = NewPageTable()
	})

	It("should insert and find", func() {
		pt.Insert(Page{ASID: 1, VAddr: 0x1000, HVP: 0x8000, Valid: true})

		page, found := pt.Find(1, 0x1abc)

		Expect(found).To(BeTrue())
		Expect(page.HVP).To(Equal(HVP(0x8000)))

		_, found = pt.Find(2, 0x1000)
		Expect(found).To(BeFalse())
	})

	It("should panic when inserting a page twice", func() {
		pt.Insert(Page{ASID: 1, VAddr: 0x1000})

		Expect(func() { pt.Insert(Page{ASID: 1, VAddr: 0x1010}) }).To(Panic())
	})

	It("should remove", func() {
		pt.Insert(Page{ASID: 1, VAddr: 0x1000})
		pt.Remove(1, 0x1000)

		_, found := pt.Find(1, 0x1000)
		Expect(found).To(BeFalse())
	})

	It("should panic when removing a missing page", func() {
		Expect(func() { pt.Remove(1, 0x1000) }).To(Panic())
	})

	It("should update", func() {
		pt.Insert(Page{ASID: 1, VAddr: 0x1000, Perm: PermRead})
		pt.Update(Page{ASID: 1, VAddr: 0x1000, Perm: PermRead | PermWrite})

		page, _ := pt.Find(1, 0x1000)
		Expect(page.Perm.Allows(AccessStore)).To(BeTrue())
	})
})

var _ = Describe("PageTableTranslator", func() {
	var (
		pt         PageTable
		translator *PageTableTranslator
	)

	BeforeEach(func() {
		pt = NewPageTable()
		translator = NewPageTableTranslator(pt)

		pt.Insert(Page{
			ASID:  1,
			VAddr: 0x1000,
			HVP:   0x7f00_0000_0000,
			Perm:  PermRead,
			Valid: true,
		})
		pt.Insert(Page{
			ASID:  1,
			VAddr: 0x2000,
			HVP:   0x7f00_0000_1000,
			Perm:  PermRead | PermWrite | PermExec,
		})
	})

	It("should translate a permitted access", func() {
		hvp, ok := translator.Translate(1, 0x1008, AccessLoad)

		Expect(ok).To(BeTrue())
		Expect(hvp).To(Equal(HVP(0x7f00_0000_0000)))
	})

	It("should refuse an access without permission", func() {
		_, ok := translator.Translate(1, 0x1008, AccessStore)

		Expect(ok).To(BeFalse())
	})

	It("should refuse an invalid page", func() {
		_, ok := translator.Translate(1, 0x2000, AccessLoad)

		Expect(ok).To(BeFalse())
	})

	It("should refuse an unmapped page", func() {
		_, ok := translator.Translate(3, 0x1000, AccessLoad)

		Expect(ok).To(BeFalse())
	})
})
