package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

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

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := NewMockEvent(mockCtrl)
		evt2 := NewMockEvent(mockCtrl)
		evt3 := NewMockEvent(mockCtrl)
		evt4 := NewMockEvent(mockCtrl)

		evt1.EXPECT().Time().Return(VTimeInSec(4.0)).AnyTimes()
		evt1.EXPECT().Handler().Return(handler1).AnyTimes()
		evt1.EXPECT().IsSecondary().Return(false).AnyTimes()
		evt2.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt2.EXPECT().Handler().Return(handler2).AnyTimes()
		evt2.EXPECT().IsSecondary().Return(false).AnyTimes()
		evt3.EXPECT().Time().Return(VTimeInSec(3.0)).AnyTimes()
		evt3.EXPECT().Handler().Return(handler1).AnyTimes()
		evt3.EXPECT().IsSecondary().Return(false).AnyTimes()
		evt4.EXPECT().Time().Return(VTimeInSec(5.0)).AnyTimes()
		evt4.EXPECT().Handler().Return(handler1).AnyTimes()
		evt4.EXPECT().IsSecondary().Return(false).AnyTimes()
		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(_ Event) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().
			Handle(evt3).Do(func(_ Event) {}).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().
			Handle(evt1).Do(func(_ Event) {}).After(handleEvt3)
		handler1.EXPECT().
			Handle(evt4).Do(func(_ Event) {}).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		_ = engine.Run()
	})

	It("should dispatch same-time events in insertion order", func() {
		handler := NewMockHandler(mockCtrl)
		evts := make([]*MockEvent, 4)
		for i := range evts {
			evt := NewMockEvent(mockCtrl)
			evt.EXPECT().Time().Return(VTimeInSec(1.0)).AnyTimes()
			evt.EXPECT().Handler().Return(handler).AnyTimes()
			evt.EXPECT().IsSecondary().Return(false).AnyTimes()
			evts[i] = evt
		}

		prev := handler.EXPECT().Handle(evts[0])
		for _, evt := range evts[1:] {
			prev = handler.EXPECT().Handle(evt).After(prev)
		}

		for _, evt := range evts {
			engine.Schedule(evt)
		}

		_ = engine.Run()
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)
		evt1 := NewMockEvent(mockCtrl)
		evt2 := NewMockEvent(mockCtrl)
		evt3 := NewMockEvent(mockCtrl)

		evt1.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt1.EXPECT().Handler().Return(handler1).AnyTimes()
		evt1.EXPECT().IsSecondary().Return(true).AnyTimes()
		evt2.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt2.EXPECT().Handler().Return(handler2).AnyTimes()
		evt2.EXPECT().IsSecondary().Return(false).AnyTimes()
		evt3.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt3.EXPECT().Handler().Return(handler3).AnyTimes()
		evt3.EXPECT().IsSecondary().Return(false).AnyTimes()

		handleEvt2 := handler2.EXPECT().Handle(evt2)
		handleEvt3 := handler3.EXPECT().Handle(evt3)
		handler1.EXPECT().
			Handle(evt1).Do(func(_ Event) {}).
			After(handleEvt2).
			After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		_ = engine.Run()
	})

	It("should panic when scheduling in the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := NewMockEvent(mockCtrl)
		evt1.EXPECT().Time().Return(VTimeInSec(2.0)).AnyTimes()
		evt1.EXPECT().Handler().Return(handler).AnyTimes()
		evt1.EXPECT().IsSecondary().Return(false).AnyTimes()

		late := NewMockEvent(mockCtrl)
		late.EXPECT().Time().Return(VTimeInSec(1.0)).AnyTimes()
		late.EXPECT().Handler().Return(handler).AnyTimes()
		late.EXPECT().IsSecondary().Return(false).AnyTimes()

		handler.EXPECT().Handle(evt1).Do(func(_ Event) {
			Expect(func() {
				engine.Schedule(late)
			}).To(PanicWith(BeAssignableToTypeOf(
				&CausalityViolationError{})))
		})

		engine.Schedule(evt1)
		_ = engine.Run()
	})

	It("should stop at the end time of RunUntil", func() {
		handler := NewMockHandler(mockCtrl)
		early := NewMockEvent(mockCtrl)
		early.EXPECT().Time().Return(VTimeInSec(1.0)).AnyTimes()
		early.EXPECT().Handler().Return(handler).AnyTimes()
		early.EXPECT().IsSecondary().Return(false).AnyTimes()

		beyond := NewMockEvent(mockCtrl)
		beyond.EXPECT().Time().Return(VTimeInSec(10.0)).AnyTimes()
		beyond.EXPECT().Handler().Return(handler).AnyTimes()
		beyond.EXPECT().IsSecondary().Return(false).AnyTimes()

		handler.EXPECT().Handle(early)

		engine.Schedule(early)
		engine.Schedule(beyond)

		err := engine.RunUntil(5.0)

		Expect(err).ToNot(HaveOccurred())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1.0)))

		handler.EXPECT().Handle(beyond)
		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(10.0)))
	})

	It("should skip canceled events", func() {
		handler := NewMockHandler(mockCtrl)

		evt := &TickEvent{EventBase: *NewEventBase(1.0, handler)}
		evt.Cancel()

		engine.Schedule(evt)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1.0)))
	})
})
