package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type watermarkRecorder struct {
	high, low int
}

func (r *watermarkRecorder) NotifyHighWatermark(_ Buffer) {
	r.high++
}

func (r *watermarkRecorder) NotifyLowWatermark(_ Buffer) {
	r.low++
}

var _ = Describe("BufferImpl", func() {
	var (
		buf Buffer
	)

	BeforeEach(func() {
		buf = NewBuffer("Buf", 2)
	})

	It("should allow push and pop", func() {
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		buf.Push(2)
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(func() {
			buf.Push(3)
		}).To(Panic())

		Expect(buf.Peek()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(buf.Peek()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(2))
		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
		Expect(buf.Pop()).To(BeNil())
	})

	It("should clear", func() {
		buf.Push(2)
		Expect(buf.Size()).To(Equal(1))

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
	})

	Context("with watermarks", func() {
		var recorder *watermarkRecorder

		BeforeEach(func() {
			buf = NewBuffer("Buf", 10)
			recorder = &watermarkRecorder{}
			buf.SetWatermarks(8, 4, recorder)
		})

		It("should notify when crossing the high watermark", func() {
			for i := 0; i < 7; i++ {
				buf.Push(i)
			}
			Expect(recorder.high).To(Equal(0))

			buf.Push(7)
			Expect(recorder.high).To(Equal(1))

			buf.Push(8)
			Expect(recorder.high).To(Equal(1))
		})

		It("should apply hysteresis before notifying low", func() {
			for i := 0; i < 8; i++ {
				buf.Push(i)
			}
			Expect(recorder.high).To(Equal(1))

			buf.Pop()
			buf.Pop()
			buf.Pop()
			Expect(recorder.low).To(Equal(0))

			buf.Pop()
			Expect(recorder.low).To(Equal(1))

			// Re-crossing high fires again after the band reset.
			for i := 0; i < 4; i++ {
				buf.Push(i)
			}
			Expect(recorder.high).To(Equal(2))
		})
	})
})
