package sim

import "log"

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &HookPos{Name: "Buffer Pop"}

// A WatermarkListener is notified when a buffer's occupancy crosses its
// configured thresholds. The high and low thresholds form a hysteresis band:
// after a high notification, no further notification fires until occupancy
// falls to or below the low threshold.
type WatermarkListener interface {
	NotifyHighWatermark(buf Buffer)
	NotifyLowWatermark(buf Buffer)
}

// A Buffer is a fifo queue for anything.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int

	// SetWatermarks configures occupancy thresholds and the listener to
	// notify when they are crossed.
	SetWatermarks(high, low int, listener WatermarkListener)

	// Remove all elements in the buffer
	Clear()
}

// NewBuffer creates a default buffer object.
func NewBuffer(name string, capacity int) Buffer {
	return &bufferImpl{
		name:     name,
		capacity: capacity,
	}
}

type bufferImpl struct {
	HookableBase

	name     string
	capacity int
	elements []interface{}

	highWatermark int
	lowWatermark  int
	listener      WatermarkListener
	aboveHigh     bool
}

// Name returns the name of the buffer.
func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e interface{}) {
	if len(b.elements) >= b.capacity {
		log.Panic("buffer overflow")
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}

	b.checkHighWatermark()
}

func (b *bufferImpl) Pop() interface{} {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	b.checkLowWatermark()

	return e
}

func (b *bufferImpl) Peek() interface{} {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	return len(b.elements)
}

func (b *bufferImpl) SetWatermarks(high, low int, listener WatermarkListener) {
	if high <= low {
		log.Panic("high watermark must be above low watermark")
	}
	if high > b.capacity {
		log.Panic("high watermark cannot exceed capacity")
	}

	b.highWatermark = high
	b.lowWatermark = low
	b.listener = listener
}

func (b *bufferImpl) Clear() {
	b.elements = nil
	b.aboveHigh = false
}

func (b *bufferImpl) checkHighWatermark() {
	if b.listener == nil || b.aboveHigh {
		return
	}

	if len(b.elements) >= b.highWatermark {
		b.aboveHigh = true
		b.listener.NotifyHighWatermark(b)
	}
}

func (b *bufferImpl) checkLowWatermark() {
	if b.listener == nil || !b.aboveHigh {
		return
	}

	if len(b.elements) <= b.lowWatermark {
		b.aboveHigh = false
		b.listener.NotifyLowWatermark(b)
	}
}
