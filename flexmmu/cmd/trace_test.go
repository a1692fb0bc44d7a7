package cmd

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flexmmu/mem/vm"
)

var _ = Describe("Trace", func() {
	It("should parse pages and operations", func() {
		trace, err := ParseTrace(strings.NewReader(`
pages:
  - {asid: 1, va: 0x1000, hvp: 0x40000, perm: rw, fill: 7}
  - {asid: 2, va: 0x7000, hvp: 0x40000, perm: r}
ops:
  - {op: access, thread: 1, asid: 1, va: 0x1010, kind: store, value: 9}
  - {op: flush, scope: hvp, hvp: 0x40000}
  - {op: sync, asid: 2, va: 0x7000}
`))

		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Pages).To(HaveLen(2))
		Expect(*trace.Pages[0].Fill).To(Equal(uint8(7)))
		Expect(trace.Ops).To(HaveLen(3))
		Expect(vm.AccessKind(trace.Ops[0].Kind)).To(Equal(vm.AccessStore))
		Expect(*trace.Ops[0].Value).To(Equal(uint8(9)))
		Expect(vm.AccessKind(trace.Ops[2].Kind)).To(Equal(vm.AccessLoad))
		Expect(trace.Ops[1].HVP).To(Equal(uint64(0x40000)))
	})

	It("should build the page table", func() {
		trace, err := ParseTrace(strings.NewReader(`
pages:
  - {asid: 1, va: 0x1000, hvp: 0x40000, perm: r-x}
`))
		Expect(err).NotTo(HaveOccurred())

		translator := vm.NewPageTableTranslator(trace.PageTable())

		hvp, ok := translator.Translate(1, 0x1234, vm.AccessFetch)
		Expect(ok).To(BeTrue())
		Expect(uint64(hvp)).To(Equal(uint64(0x40000)))

		_, ok = translator.Translate(1, 0x1234, vm.AccessStore)
		Expect(ok).To(BeFalse())
	})

	It("should reject unknown fields", func() {
		_, err := ParseTrace(strings.NewReader(`
ops:
  - {op: access, speed: fast}
`))

		Expect(err).To(HaveOccurred())
	})

	It("should reject an unknown access kind", func() {
		_, err := ParseTrace(strings.NewReader(`
ops:
  - {op: access, kind: jump}
`))

		Expect(err).To(MatchError(ContainSubstring("jump")))
	})

	It("should report every problem", func() {
		_, err := ParseTrace(strings.NewReader(`
pages:
  - {asid: 1, va: 0x1000, hvp: 0x40000, perm: rw}
  - {asid: 1, va: 0x1800, hvp: 0x41000, perm: rq}
ops:
  - {op: jump}
  - {op: flush, scope: everything}
  - {op: access, kind: load, value: 3}
`))

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("mapped twice"))
		Expect(err.Error()).To(ContainSubstring(`unknown permission 'q'`))
		Expect(err.Error()).To(ContainSubstring(`unknown operation "jump"`))
		Expect(err.Error()).To(ContainSubstring(`"everything"`))
		Expect(err.Error()).To(ContainSubstring("only a store"))
	})
})
