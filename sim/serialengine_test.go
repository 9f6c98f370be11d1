package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type engineEndHandler struct {
	endTime VTimeInSec
	called  bool
}

func (h *engineEndHandler) Handle(now VTimeInSec) {
	h.endTime = now
	h.called = true
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	mockEvent := func(t VTimeInSec, h Handler, secondary bool) *MockEvent {
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(t).AnyTimes()
		evt.EXPECT().Handler().Return(h).AnyTimes()
		evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

		return evt
	}

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(4.0, handler1, false)
		evt2 := mockEvent(2.0, handler2, false)
		evt3 := mockEvent(3.0, handler1, false)
		evt4 := mockEvent(5.0, handler1, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(e Event) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().Handle(evt3).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(5.0)))
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(2.0, handler1, true)
		evt2 := mockEvent(2.0, handler2, false)
		evt3 := mockEvent(2.0, handler3, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2)
		handleEvt3 := handler3.EXPECT().Handle(evt3)
		handler1.EXPECT().
			Handle(evt1).
			After(handleEvt2).
			After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should stop at the first handler error", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(1.0, handler, false)
		evt2 := mockEvent(2.0, handler, false)
		handlerErr := errors.New("handler failed")

		handler.EXPECT().Handle(evt1).Return(handlerErr)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(MatchError(handlerErr))
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1.0)))
	})

	It("should panic when scheduling in the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(2.0, handler, false)
		evt2 := mockEvent(1.0, handler, false)

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			Expect(func() { engine.Schedule(evt2) }).To(Panic())
		})

		engine.Schedule(evt1)
		Expect(engine.Run()).To(Succeed())
	})

	It("should invoke hooks around events", func() {
		handler := NewMockHandler(mockCtrl)
		hook := NewMockHook(mockCtrl)
		evt := mockEvent(1.0, handler, false)
		engine.AcceptHook(hook)

		before := hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosBeforeEvent))
			Expect(ctx.Item).To(BeIdenticalTo(evt))
		})
		handling := handler.EXPECT().Handle(evt).After(before)
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosAfterEvent))
		}).After(handling)

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())
	})

	It("should call simulation end handlers", func() {
		h := &engineEndHandler{}
		engine.RegisterSimulationEndHandler(h)

		engine.Finished()

		Expect(h.called).To(BeTrue())
		Expect(h.endTime).To(Equal(VTimeInSec(0)))
	})
})

var _ = Describe("SerialEngine pausing", func() {
	It("should not handle events while paused", func() {
		engine := NewSerialEngine()
		handled := make(chan struct{}, 1)
		engine.Schedule(funcEvent{
			EventBase: NewEventBase(1, handlerFunc(func(Event) error {
				handled <- struct{}{}
				return nil
			})),
		})

		engine.Pause()

		done := make(chan error, 1)
		go func() { done <- engine.Run() }()

		Consistently(handled, "50ms").ShouldNot(Receive())

		engine.Continue()

		Eventually(handled).Should(Receive())
		Eventually(done).Should(Receive(BeNil()))
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1)))
	})
})

type funcEvent struct {
	*EventBase
}

type handlerFunc func(e Event) error

func (f handlerFunc) Handle(e Event) error {
	return f(e)
}
