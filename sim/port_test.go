package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

type sampleMsg struct {
	MsgMeta
}

func (m *sampleMsg) Meta() *MsgMeta {
	return &m.MsgMeta
}

func (m *sampleMsg) Clone() Msg {
	cloneMsg := *m
	cloneMsg.ID = GetIDGenerator().Generate()

	return &cloneMsg
}

var _ = Describe("DefaultPort", func() {
	var (
		mockController *gomock.Controller
		comp           *MockComponent
		conn           *MockConnection
		port           *defaultPort
	)

	BeforeEach(func() {
		mockController = gomock.NewController(GinkgoT())
		comp = NewMockComponent(mockController)
		conn = NewMockConnection(mockController)
		port = NewPort(comp, 4, 4, "Port").(*defaultPort)
		port.SetConnection(conn)
	})

	AfterEach(func() {
		mockController.Finish()
	})

	It("should return component and name", func() {
		Expect(port.Component()).To(BeIdenticalTo(comp))
		Expect(port.Name()).To(Equal("Port"))
		Expect(port.AsRemote()).To(Equal(RemotePort("Port")))
	})

	It("should panic when connecting twice", func() {
		other := NewMockConnection(mockController)
		conn.EXPECT().Name().Return("Conn").AnyTimes()
		other.EXPECT().Name().Return("Other").AnyTimes()

		Expect(func() { port.SetConnection(other) }).To(Panic())
	})

	It("should panic if port is not msg src", func() {
		msg := &sampleMsg{}

		Expect(func() { port.Send(msg) }).To(Panic())
	})

	It("should panic if msg dst is not set", func() {
		msg := &sampleMsg{}
		msg.Src = port.AsRemote()

		Expect(func() { port.Send(msg) }).To(Panic())
	})

	It("should panic if msg src is the same as dst", func() {
		msg := &sampleMsg{}
		msg.Src = port.AsRemote()
		msg.Dst = port.AsRemote()

		Expect(func() { port.Send(msg) }).To(Panic())
	})

	It("should send successfully", func() {
		msg := &sampleMsg{}
		msg.Src = port.AsRemote()
		msg.Dst = "DstPort"
		conn.EXPECT().NotifySend()

		err := port.Send(msg)

		Expect(err).To(BeNil())
		Expect(port.PeekOutgoing()).To(BeIdenticalTo(msg))
	})

	It("should return error when outgoing buffer is full", func() {
		msg := &sampleMsg{}
		msg.Src = port.AsRemote()
		msg.Dst = "DstPort"

		for i := 0; i < 4; i++ {
			port.outgoingBuf.Push(msg)
		}

		Expect(port.CanSend()).To(BeFalse())
		Expect(port.Send(msg)).NotTo(BeNil())
	})

	It("should notify the component only when the buffer was empty", func() {
		comp.EXPECT().NotifyRecv(port).Times(1)

		Expect(port.Deliver(&sampleMsg{})).To(BeNil())
		Expect(port.Deliver(&sampleMsg{})).To(BeNil())
		Expect(port.NumIncoming()).To(Equal(2))
	})

	It("should fail to deliver when incoming buffer is full", func() {
		msg := &sampleMsg{}
		for i := 0; i < 4; i++ {
			port.incomingBuf.Push(msg)
		}

		Expect(port.Deliver(msg)).NotTo(BeNil())
	})

	It("should return nil when nothing has arrived", func() {
		Expect(port.PeekIncoming()).To(BeNil())
		Expect(port.RetrieveIncoming()).To(BeNil())
		Expect(port.PeekOutgoing()).To(BeNil())
		Expect(port.RetrieveOutgoing()).To(BeNil())
	})

	It("should retrieve incoming messages in order", func() {
		msg1 := &sampleMsg{}
		msg2 := &sampleMsg{}
		port.incomingBuf.Push(msg1)
		port.incomingBuf.Push(msg2)

		Expect(port.PeekIncoming()).To(BeIdenticalTo(msg1))
		Expect(port.RetrieveIncoming()).To(BeIdenticalTo(msg1))
		Expect(port.RetrieveIncoming()).To(BeIdenticalTo(msg2))
	})

	It("should notify the connection when a full incoming buffer drains",
		func() {
			msg := &sampleMsg{}
			for i := 0; i < 4; i++ {
				port.incomingBuf.Push(msg)
			}
			conn.EXPECT().NotifyAvailable(port)

			port.RetrieveIncoming()
		})

	It("should notify the component when a full outgoing buffer drains",
		func() {
			msg := &sampleMsg{}
			for i := 0; i < 4; i++ {
				port.outgoingBuf.Push(msg)
			}
			comp.EXPECT().NotifyPortFree(port)

			Expect(port.RetrieveOutgoing()).To(BeIdenticalTo(msg))
		})
})
