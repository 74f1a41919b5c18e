// Package device provides the CXL memory device model. It answers every
// read and write after a fixed access latency.
package device

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
)

// A wakeEvent fires when the oldest in-flight access completes.
type wakeEvent struct {
	sim.EventBase
}

type pendingRsp struct {
	rsp     sim.Msg
	readyAt sim.VTimeInSec
}

// Comp is the device component. ToFabric is the device port that plugs into
// an endpoint.
type Comp struct {
	*sim.TickingComponent

	ToFabric sim.Port

	latency      int
	writeAckSize int

	serving       []pendingRsp
	wakeScheduled bool

	numReads  int
	numWrites int
}

// NumReads returns the number of reads the device has accepted.
func (c *Comp) NumReads() int {
	return c.numReads
}

// NumWrites returns the number of writes the device has accepted.
func (c *Comp) NumWrites() int {
	return c.numWrites
}

// Handle processes tick and wake events.
func (c *Comp) Handle(evt sim.Event) error {
	switch evt.(type) {
	case *wakeEvent:
		c.wakeScheduled = false
		c.TickNow()
		return nil
	default:
		return c.TickingComponent.Handle(evt)
	}
}

// Tick sends finished responses and accepts new requests.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.respond() || madeProgress
	madeProgress = c.accept() || madeProgress

	return madeProgress
}

// respond sends the responses whose access latency has elapsed, in order.
func (c *Comp) respond() bool {
	madeProgress := false
	now := c.Engine.CurrentTime()

	for len(c.serving) > 0 {
		head := c.serving[0]

		if head.readyAt > now {
			c.scheduleWake(head.readyAt)
			break
		}

		if err := c.ToFabric.Send(head.rsp); err != nil {
			break
		}

		c.serving = c.serving[1:]
		madeProgress = true
	}

	return madeProgress
}

// accept takes arriving requests and starts their access.
func (c *Comp) accept() bool {
	madeProgress := false
	now := c.Engine.CurrentTime()

	for {
		msg := c.ToFabric.PeekIncoming()
		if msg == nil {
			break
		}

		rsp := c.buildRsp(msg)
		readyAt := c.Freq.NCyclesLater(c.latency, now)

		c.serving = append(c.serving, pendingRsp{rsp: rsp, readyAt: readyAt})
		c.scheduleWake(readyAt)

		c.ToFabric.RetrieveIncoming()
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) buildRsp(msg sim.Msg) sim.Msg {
	builder := messaging.RspBuilder{}.
		WithSrc(c.ToFabric.AsRemote()).
		WithDst(msg.Meta().Src).
		WithReq(msg)

	switch req := msg.(type) {
	case *messaging.MemReadReq:
		c.numReads++
		return builder.WithTrafficBytes(req.AccessBytes).BuildReadRsp()
	case *messaging.MemWriteReq:
		c.numWrites++
		return builder.WithTrafficBytes(c.writeAckSize).BuildWriteAck()
	default:
		panic(fmt.Sprintf("%s: unexpected message type %T", c.Name(), msg))
	}
}

func (c *Comp) scheduleWake(t sim.VTimeInSec) {
	if c.wakeScheduled {
		return
	}

	evt := &wakeEvent{
		EventBase: *sim.NewEventBase(t, c),
	}

	c.wakeScheduled = true
	c.Engine.Schedule(evt)
}
