// Package endpoint provides the component that attaches hosts and devices
// to the fabric. It fragments outgoing messages into flits and reassembles
// arriving flits into messages.
package endpoint

import (
	"container/list"
	"math"

	"github.com/fabriclab/cxlfabric/fabric/flowctrl"
	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
)

// A CompletionObserver is notified when a message is fully delivered at its
// destination endpoint.
type CompletionObserver interface {
	MsgCompleted(msg sim.Msg, hopCount int, now sim.VTimeInSec)
}

type msgToAssemble struct {
	msg             sim.Msg
	numFlitRequired int
	numFlitArrived  int
	maxHopCount     int
}

// Comp is the endpoint component. It delegates the sending and receiving
// actions of the device ports plugged into it.
type Comp struct {
	*sim.TickingComponent

	DevicePorts []sim.Port
	NetworkPort sim.Port

	numInputChannels  int
	numOutputChannels int
	flitByteSize      int

	useCredits bool
	credits    *flowctrl.CreditCounter
	pause      *flowctrl.PauseState
	ctrlOut    []sim.Msg

	msgOutBuf   []sim.Msg
	flitsToSend []*messaging.Flit

	assemblingMsgTable map[string]*list.Element
	assemblingMsgs     *list.List
	assembledMsgs      []sim.Msg

	completionObserver CompletionObserver
}

// PlugIn connects a device port to the endpoint.
func (c *Comp) PlugIn(port sim.Port) {
	port.SetConnection(c)
	c.DevicePorts = append(c.DevicePorts, port)
}

// Unplug removes the association of a port and an endpoint.
func (c *Comp) Unplug(_ sim.Port) {
	panic("not implemented")
}

// NotifyAvailable triggers the endpoint to continue to tick.
func (c *Comp) NotifyAvailable(_ sim.Port) {
	c.TickLater()
}

// NotifySend is called by a device port to notify that messages are waiting
// to be sent.
func (c *Comp) NotifySend() {
	c.TickLater()
}

// Tick updates the endpoint state.
func (c *Comp) Tick() bool {
	c.Lock()
	defer c.Unlock()

	madeProgress := false

	madeProgress = c.sendControl() || madeProgress
	madeProgress = c.sendFlitOut() || madeProgress
	madeProgress = c.prepareMsg() || madeProgress
	madeProgress = c.prepareFlits() || madeProgress
	madeProgress = c.tryDeliver() || madeProgress
	madeProgress = c.assemble() || madeProgress
	madeProgress = c.recv() || madeProgress

	return madeProgress
}

func (c *Comp) sendControl() bool {
	madeProgress := false

	for len(c.ctrlOut) > 0 {
		msg := c.ctrlOut[0]
		if err := c.NetworkPort.Send(msg); err != nil {
			break
		}

		c.ctrlOut = c.ctrlOut[1:]
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) sendFlitOut() bool {
	madeProgress := false

	for i := 0; i < c.numOutputChannels; i++ {
		if len(c.flitsToSend) == 0 {
			return madeProgress
		}

		flit := c.flitsToSend[0]

		if c.pause.IsPaused(flit.Class) {
			return madeProgress
		}

		if c.useCredits && c.credits.Available(flit.Class) == 0 {
			return madeProgress
		}

		if err := c.NetworkPort.Send(flit); err != nil {
			return madeProgress
		}

		if c.useCredits {
			c.credits.Consume(flit.Class)
		}

		c.flitsToSend = c.flitsToSend[1:]

		if len(c.flitsToSend) == 0 {
			for _, p := range c.DevicePorts {
				p.NotifyAvailable()
			}
		}

		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) prepareMsg() bool {
	madeProgress := false

	for i := 0; i < len(c.DevicePorts); i++ {
		port := c.DevicePorts[i]
		if port.PeekOutgoing() == nil {
			continue
		}

		msg := port.RetrieveOutgoing()
		c.msgOutBuf = append(c.msgOutBuf, msg)

		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) prepareFlits() bool {
	madeProgress := false

	for {
		if len(c.msgOutBuf) == 0 {
			return madeProgress
		}

		msg := c.msgOutBuf[0]
		c.msgOutBuf = c.msgOutBuf[1:]
		c.flitsToSend = append(c.flitsToSend, c.msgToFlits(msg)...)

		madeProgress = true
	}
}

func (c *Comp) msgToFlits(msg sim.Msg) []*messaging.Flit {
	numFlit := 1
	if msg.Meta().TrafficBytes > 0 {
		numFlit = int(math.Ceil(
			float64(msg.Meta().TrafficBytes) / float64(c.flitByteSize)))
	}

	flits := make([]*messaging.Flit, numFlit)
	for i := 0; i < numFlit; i++ {
		flits[i] = messaging.FlitBuilder{}.
			WithSrc(c.NetworkPort.AsRemote()).
			WithDst(msg.Meta().Dst).
			WithSeqID(i).
			WithNumFlitInMsg(numFlit).
			WithTrafficBytes(c.flitByteSize).
			WithMsg(msg).
			Build()
	}

	return flits
}

func (c *Comp) recv() bool {
	madeProgress := false

	for i := 0; i < c.numInputChannels; i++ {
		received := c.NetworkPort.PeekIncoming()
		if received == nil {
			return madeProgress
		}

		switch received := received.(type) {
		case *messaging.PauseMsg:
			c.pause.Pause(received.PauseClass)
		case *messaging.ResumeMsg:
			c.pause.Resume(received.ResumeClass)
		case *messaging.CreditMsg:
			c.credits.Return(received.CreditClass, received.Count)
		case *messaging.Flit:
			c.acceptFlit(received)
		}

		c.NetworkPort.RetrieveIncoming()
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) acceptFlit(flit *messaging.Flit) {
	msg := flit.Msg

	assemblingElem := c.assemblingMsgTable[msg.Meta().ID]
	if assemblingElem == nil {
		assemblingElem = c.assemblingMsgs.PushBack(&msgToAssemble{
			msg:             msg,
			numFlitRequired: flit.NumFlitInMsg,
		})
		c.assemblingMsgTable[msg.Meta().ID] = assemblingElem
	}

	assembling := assemblingElem.Value.(*msgToAssemble)
	assembling.numFlitArrived++
	if flit.HopCount > assembling.maxHopCount {
		assembling.maxHopCount = flit.HopCount
	}

	if c.useCredits {
		c.ctrlOut = append(c.ctrlOut, messaging.NewCreditMsg(
			c.NetworkPort.AsRemote(),
			flit.Meta().Src,
			flit.Class,
			1,
		))
	}
}

func (c *Comp) assemble() bool {
	madeProgress := false

	for e := c.assemblingMsgs.Front(); e != nil; {
		assembling := e.Value.(*msgToAssemble)

		next := e.Next()

		if assembling.numFlitArrived < assembling.numFlitRequired {
			e = next
			continue
		}

		c.assembledMsgs = append(c.assembledMsgs, assembling.msg)
		c.assemblingMsgs.Remove(e)
		delete(c.assemblingMsgTable, assembling.msg.Meta().ID)

		if c.completionObserver != nil {
			c.completionObserver.MsgCompleted(
				assembling.msg,
				assembling.maxHopCount,
				c.Engine.CurrentTime(),
			)
		}

		e = next
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) tryDeliver() bool {
	madeProgress := false

	for len(c.assembledMsgs) > 0 {
		msg := c.assembledMsgs[0]

		var dstPort sim.Port
		for _, port := range c.DevicePorts {
			if port.AsRemote() == msg.Meta().Dst {
				dstPort = port
				break
			}
		}

		if dstPort == nil {
			panic("endpoint " + c.Name() +
				" received message for unknown port " +
				string(msg.Meta().Dst))
		}

		if err := dstPort.Deliver(msg); err != nil {
			return madeProgress
		}

		c.assembledMsgs = c.assembledMsgs[1:]
		madeProgress = true
	}

	return madeProgress
}
