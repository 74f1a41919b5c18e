// Package links provides the channel that connects two ports of the fabric.
package links

import (
	"github.com/fabriclab/cxlfabric/sim"
)

// A deliverEvent fires when the head of a link end's in-flight queue has
// finished propagating.
type deliverEvent struct {
	sim.EventBase

	end *linkEnd
}

type inflight struct {
	msg      sim.Msg
	arriveAt sim.VTimeInSec
}

// A linkEnd carries the traffic flowing toward dstPort.
type linkEnd struct {
	srcPort sim.Port
	dstPort sim.Port

	queue []inflight

	// headBytesSent counts the bytes of the head outgoing message already
	// transmitted on earlier cycles. A message wider than the per-cycle
	// budget crosses the link over several cycles.
	headBytesSent int

	deliverScheduled bool
}

// Comp is a link: a propagation-delay and bandwidth-limited channel between
// exactly two ports. It owns no state beyond the delay, the per-cycle byte
// budget, and the messages currently in flight.
type Comp struct {
	*sim.TickingComponent

	delay         sim.VTimeInSec
	bytesPerCycle int

	port1, port2 sim.Port
	ends         []*linkEnd
}

// PlugIn connects a port to the link. A link accepts exactly two ports.
func (c *Comp) PlugIn(port sim.Port) {
	c.Lock()
	defer c.Unlock()

	switch {
	case c.port1 == nil:
		c.port1 = port
	case c.port2 == nil:
		c.port2 = port
		c.ends = []*linkEnd{
			{srcPort: c.port1, dstPort: c.port2},
			{srcPort: c.port2, dstPort: c.port1},
		}
	default:
		panic("link already has two ports connected")
	}

	port.SetConnection(c)
}

// Unplug removes a port from the link.
func (c *Comp) Unplug(_ sim.Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that it can receive again.
func (c *Comp) NotifyAvailable(_ sim.Port) {
	c.TickLater()
}

// NotifySend is called by a port to notify that messages are waiting to be
// sent.
func (c *Comp) NotifySend() {
	c.TickLater()
}

// Handle processes tick events and in-flight deliveries.
func (c *Comp) Handle(evt sim.Event) error {
	switch evt := evt.(type) {
	case *deliverEvent:
		evt.end.deliverScheduled = false
		c.flushArrivals(evt.end)
		return nil
	default:
		return c.TickingComponent.Handle(evt)
	}
}

// Tick moves messages from the ports onto the link, subject to the per-cycle
// bandwidth budget.
func (c *Comp) Tick() bool {
	madeProgress := false

	for _, end := range c.ends {
		madeProgress = c.flushArrivals(end) || madeProgress
		madeProgress = c.pickUp(end) || madeProgress
	}

	return madeProgress
}

// pickUp drains the sender's outgoing buffer until the cycle's byte budget
// is spent. Zero-byte control messages ride for free.
func (c *Comp) pickUp(end *linkEnd) bool {
	madeProgress := false
	budget := c.bytesPerCycle
	now := c.Engine.CurrentTime()

	for {
		msg := end.srcPort.PeekOutgoing()
		if msg == nil {
			break
		}

		remaining := msg.Meta().TrafficBytes - end.headBytesSent
		if remaining > budget {
			// Out of bandwidth this cycle. Spend what is left of the
			// budget on the head message and finish it on later cycles.
			end.headBytesSent += budget
			if budget > 0 {
				madeProgress = true
			}
			c.TickLater()
			break
		}

		end.srcPort.RetrieveOutgoing()
		budget -= remaining
		end.headBytesSent = 0

		end.queue = append(end.queue, inflight{
			msg:      msg,
			arriveAt: now + c.delay,
		})

		c.scheduleDeliver(end, now+c.delay)
		madeProgress = true
	}

	return madeProgress
}

// flushArrivals delivers due messages, in order, to the receiving port.
func (c *Comp) flushArrivals(end *linkEnd) bool {
	madeProgress := false
	now := c.Engine.CurrentTime()

	for len(end.queue) > 0 {
		head := end.queue[0]

		if head.arriveAt > now {
			c.scheduleDeliver(end, head.arriveAt)
			break
		}

		if err := end.dstPort.Deliver(head.msg); err != nil {
			// Receiver is full. NotifyAvailable restarts the ticking when
			// space frees up.
			break
		}

		end.queue = end.queue[1:]
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) scheduleDeliver(end *linkEnd, t sim.VTimeInSec) {
	if end.deliverScheduled {
		return
	}

	evt := &deliverEvent{
		EventBase: *sim.NewEventBase(t, c),
		end:       end,
	}

	end.deliverScheduled = true
	c.Engine.Schedule(evt)
}
