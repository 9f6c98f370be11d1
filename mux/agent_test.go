package mux

import (
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/portmux/layer"
	"github.com/sarchlab/portmux/network"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Agent", func() {
	var (
		mockCtrl *gomock.Controller
		lower    *MockLower
		agent    *Agent
		local    netip.Addr
		remote   netip.Addr
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		lower = NewMockLower(mockCtrl)
		local = netip.MustParseAddr("10.0.0.1")
		remote = netip.MustParseAddr("10.0.0.2")
		agent = NewAgent("Agent", 5)
		agent.Addr = local
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should not send before being attached", func() {
		err := agent.Send(remote, 6, 10, nil)

		Expect(errors.Is(err, ErrAgentNotAttached)).To(BeTrue())
	})

	It("should number segments and send them", func() {
		agent.AttachLower(lower)
		lower.EXPECT().CanSend(remote, 10).Return(true).Times(2)
		first := lower.EXPECT().
			Send(local, remote, 10, &Segment{SrcPort: 5, DstPort: 6, Seq: 0,
				Payload: "a"}, 5)
		lower.EXPECT().
			Send(local, remote, 10, &Segment{SrcPort: 5, DstPort: 6, Seq: 1,
				Payload: "b"}, 5).
			After(first)

		Expect(agent.Send(remote, 6, 10, "a")).To(Succeed())
		Expect(agent.Send(remote, 6, 10, "b")).To(Succeed())

		Expect(agent.NumSent()).To(Equal(2))
		Expect(agent.NumQueued()).To(Equal(0))
	})

	It("should hold segments until ready to send", func() {
		agent.AttachLower(lower)
		lower.EXPECT().CanSend(remote, 10).Return(false)

		Expect(agent.Send(remote, 6, 10, "a")).To(Succeed())
		Expect(agent.NumQueued()).To(Equal(1))

		lower.EXPECT().CanSend(remote, 10).Return(true)
		lower.EXPECT().Send(local, remote, 10, gomock.Any(), 5)

		agent.Indicate(layer.ReadyToSend, lower)

		Expect(agent.NumQueued()).To(Equal(0))
		Expect(agent.NumSent()).To(Equal(1))
		Expect(agent.outbox).To(BeNil())
	})

	It("should release sent segments while others are still queued", func() {
		agent.AttachLower(lower)
		lower.EXPECT().CanSend(remote, 10).Return(false).Times(2)
		Expect(agent.Send(remote, 6, 10, "a")).To(Succeed())
		Expect(agent.Send(remote, 6, 10, "b")).To(Succeed())
		backing := agent.outbox[:2]

		gomock.InOrder(
			lower.EXPECT().CanSend(remote, 10).Return(true),
			lower.EXPECT().Send(local, remote, 10, gomock.Any(), 5),
			lower.EXPECT().CanSend(remote, 10).Return(false),
		)
		agent.Indicate(layer.ReadyToSend, lower)

		Expect(agent.NumQueued()).To(Equal(1))
		Expect(backing[0].seg).To(BeNil())
		Expect(agent.outbox[0].seg.Payload).To(Equal("b"))
	})

	It("should stop flushing at the first send error", func() {
		agent.AttachLower(lower)
		sendErr := errors.New("no route")
		lower.EXPECT().CanSend(remote, 10).Return(true)
		lower.EXPECT().Send(local, remote, 10, gomock.Any(), 5).Return(sendErr)

		err := agent.Send(remote, 6, 10, "a")

		Expect(err).To(MatchError(sendErr))
		Expect(agent.NumQueued()).To(Equal(1))
		Expect(agent.NumSent()).To(Equal(0))
	})

	It("should read packets it is told about", func() {
		var got []*network.Packet
		agent.OnReceive = func(pkt *network.Packet) {
			got = append(got, pkt)
		}
		agent.AttachLower(lower)
		pkt := network.NewPacket(remote, local, 10,
			&Segment{DstPort: 5}, network.ProtocolMPTCP)
		lower.EXPECT().Read(5).Return(pkt, nil)

		agent.Indicate(layer.PacketAvailable, lower)

		Expect(got).To(Equal([]*network.Packet{pkt}))
		Expect(agent.NumReceived()).To(Equal(1))
	})

	It("should ignore empty reads", func() {
		agent.AttachLower(lower)
		lower.EXPECT().Read(5).Return(nil, ErrMailboxEmpty)

		agent.Indicate(layer.PacketAvailable, lower)

		Expect(agent.NumReceived()).To(Equal(0))
	})

	It("should read through the mux while being indicated", func() {
		sink := NewMockService(mockCtrl)
		m := MakeBuilder().Build("Mux")
		m.AttachLower(sink)
		Expect(m.Attach(agent, 5)).To(Succeed())

		pkt := network.NewPacket(remote, local, 10,
			&Segment{DstPort: 5}, network.ProtocolMPTCP)
		sink.EXPECT().Read(network.ProtocolMPTCP).Return(pkt)

		m.Indicate(layer.PacketAvailable, sink)

		Expect(agent.NumReceived()).To(Equal(1))
		Expect(m.Pending(5)).To(Equal(0))
	})
})
