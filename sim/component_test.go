package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// portOwner lets a bare ComponentBase own ports in tests.
type portOwner struct {
	*ComponentBase
}

func (c portOwner) NotifyRecv(_ Port)     {}
func (c portOwner) NotifyPortFree(_ Port) {}

var _ = Describe("ComponentBase", func() {
	var component *ComponentBase

	BeforeEach(func() {
		component = NewComponentBase("Comp")
	})

	It("should set and get name", func() {
		Expect(component.Name()).To(Equal("Comp"))
	})

	It("should reject an invalid name", func() {
		Expect(func() { NewComponentBase("comp_0") }).To(Panic())
	})

	It("should list ports by their short names", func() {
		top := NewPort(portOwner{component}, 1, 1, "Comp.TopPort")
		ctrl := NewPort(portOwner{component}, 1, 1, "Comp.CtrlPort")

		component.AddPort("Top", top)
		component.AddPort("Ctrl", ctrl)

		Expect(component.Ports()).To(Equal([]Port{ctrl, top}))
		Expect(component.GetPortByName("Top")).To(BeIdenticalTo(top))
		Expect(func() { component.AddPort("Top", top) }).To(Panic())
	})
})
