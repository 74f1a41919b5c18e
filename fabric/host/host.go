// Package host provides the compute host model. A host replays a workload
// source, issuing CXL.mem requests into the fabric and retiring them when
// the responses come back.
package host

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
	"github.com/fabriclab/cxlfabric/workload"
)

// A wakeEvent fires when the next injection of the workload becomes due.
type wakeEvent struct {
	sim.EventBase
}

// Comp is the host component. ToFabric is the device port that plugs into
// an endpoint.
type Comp struct {
	*sim.TickingComponent

	ToFabric sim.Port

	source         workload.Source
	devices        []sim.RemotePort
	maxOutstanding int

	nextInjection *workload.Injection
	lastInjection sim.VTimeInSec
	wakeScheduled bool
	pending       []workload.Injection

	outstanding  map[string]struct{}
	numIssued    int
	numCompleted int
}

// NumIssued returns the number of requests the host has sent.
func (c *Comp) NumIssued() int {
	return c.numIssued
}

// NumCompleted returns the number of responses the host has received.
func (c *Comp) NumCompleted() int {
	return c.numCompleted
}

// NumOutstanding returns the number of in-flight requests.
func (c *Comp) NumOutstanding() int {
	return len(c.outstanding)
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

// Tick issues due requests and retires arriving responses.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.issueDue() || madeProgress
	madeProgress = c.sendReqs() || madeProgress
	madeProgress = c.recv() || madeProgress

	return madeProgress
}

// issueDue moves injections whose time has come into the pending queue and
// sets a wakeup for the first one still in the future.
func (c *Comp) issueDue() bool {
	madeProgress := false
	now := c.Engine.CurrentTime()

	for {
		if c.nextInjection == nil {
			injection, ok := c.source.Next()
			if !ok {
				break
			}

			// The workload stream must not run backward in time.
			if injection.Time < c.lastInjection {
				panic(&sim.CausalityViolationError{
					Now:       now,
					EventTime: injection.Time,
					Component: c.Name(),
				})
			}
			c.lastInjection = injection.Time

			c.nextInjection = &injection
		}

		if c.nextInjection.Time > now {
			c.scheduleWake(c.nextInjection.Time)
			break
		}

		c.pending = append(c.pending, *c.nextInjection)
		c.nextInjection = nil
		madeProgress = true
	}

	return madeProgress
}

// sendReqs turns pending injections into CXL.mem requests, bounded by the
// outstanding-request window.
func (c *Comp) sendReqs() bool {
	madeProgress := false
	now := c.Engine.CurrentTime()

	for len(c.pending) > 0 {
		if len(c.outstanding) >= c.maxOutstanding {
			break
		}

		injection := c.pending[0]
		req := c.buildReq(injection, now)

		if err := c.ToFabric.Send(req); err != nil {
			break
		}

		c.outstanding[req.Meta().ID] = struct{}{}
		c.numIssued++
		c.pending = c.pending[1:]
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) buildReq(
	injection workload.Injection,
	now sim.VTimeInSec,
) sim.Msg {
	builder := messaging.MemReqBuilder{}.
		WithSrc(c.ToFabric.AsRemote()).
		WithDst(c.devices[injection.Device]).
		WithFlowID(c.Name()).
		WithClass(injection.Class).
		WithAddress(injection.Address).
		WithAccessBytes(injection.Bytes).
		WithCreationTime(now)

	if injection.IsRead {
		return builder.BuildRead()
	}

	return builder.BuildWrite()
}

func (c *Comp) recv() bool {
	madeProgress := false

	for {
		msg := c.ToFabric.PeekIncoming()
		if msg == nil {
			break
		}

		switch rsp := msg.(type) {
		case *messaging.MemReadRsp:
			c.retire(rsp.RspTo)
		case *messaging.MemWriteAck:
			c.retire(rsp.RspTo)
		default:
			panic(fmt.Sprintf(
				"%s: unexpected message type %T", c.Name(), msg))
		}

		c.ToFabric.RetrieveIncoming()
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) retire(reqID string) {
	if _, found := c.outstanding[reqID]; !found {
		panic(c.Name() + ": response to unknown request " + reqID)
	}

	delete(c.outstanding, reqID)
	c.numCompleted++
}

func (c *Comp) scheduleWake(t sim.VTimeInSec) {
	if c.wakeScheduled {
		return
	}

	evt := &wakeEvent{
		EventBase: *sim.NewEventBase(c.Freq.ThisTick(t), c),
	}

	c.wakeScheduled = true
	c.Engine.Schedule(evt)
}
