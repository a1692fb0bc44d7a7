package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flexmmu/sim"
)

var _ = Describe("Builders", func() {
	It("should build a page fault", func() {
		msg := PageFaultNotifyBuilder{}.
			WithSrc("Accel.Port").
			WithDst("MMU.Top").
			WithPage(0x1234, 3, AccessStore).
			WithThreadID(9).
			Build()

		Expect(msg.Src).To(Equal(sim.RemotePort("Accel.Port")))
		Expect(msg.Dst).To(Equal(sim.RemotePort("MMU.Top")))
		Expect(msg.Key()).To(Equal(NewGVPKey(0x1000, 3, AccessStore)))
		Expect(msg.ThreadID).To(Equal(uint32(9)))
		Expect(msg.TrafficClass).To(Equal("vm.PageFaultNotify"))
		Expect(msg.ID).NotTo(BeEmpty())
	})

	It("should request an icache flush for instruction pages", func() {
		fetch := EvictRequestBuilder{}.
			WithKey(NewGVPKey(0x4000, 1, AccessFetch)).
			Build()
		load := EvictRequestBuilder{}.
			WithKey(NewGVPKey(0x4000, 1, AccessLoad)).
			Build()

		Expect(fetch.FlushICache).To(BeTrue())
		Expect(load.FlushICache).To(BeFalse())
	})

	It("should give a clone a new id", func() {
		msg := MissReplyBuilder{}.WithFrame(4).Build()
		clone := msg.Clone().(*MissReply)

		Expect(clone.Frame).To(Equal(FrameID(4)))
		Expect(clone.ID).NotTo(Equal(msg.ID))
	})
})
