package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Naming", func() {
	DescribeTable("should accept",
		func(name string) {
			Expect(func() { NameMustBeValid(name) }).NotTo(Panic())
		},
		Entry("a single element", "MMU"),
		Entry("a port", "MMU.TopPort"),
		Entry("an indexed element", "Accel[2].Port"),
		Entry("several indices", "Accel[0][1]"),
	)

	DescribeTable("should reject",
		func(name string) {
			Expect(func() { NameMustBeValid(name) }).To(Panic())
		},
		Entry("an empty name", ""),
		Entry("an empty element", "MMU..Port"),
		Entry("a trailing dot", "MMU."),
		Entry("a lower case element", "mmu"),
		Entry("an underscore", "Top_Port"),
		Entry("a dash", "Top-Port"),
		Entry("an unclosed bracket", "Accel[0"),
		Entry("a stray bracket", "Accel0]"),
		Entry("a non-integer index", "Accel[x]"),
	)

	It("should build names", func() {
		Expect(BuildName("", "MMU")).To(Equal("MMU"))
		Expect(BuildName("MMU", "TopPort")).To(Equal("MMU.TopPort"))
	})
})
