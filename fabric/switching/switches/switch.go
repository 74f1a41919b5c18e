// Package switches provides the switch implementation of the fabric.
package switches

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/fabric/arbitration"
	"github.com/fabriclab/cxlfabric/fabric/flowctrl"
	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/fabric/routing"
	"github.com/fabriclab/cxlfabric/sim"
)

// A DropObserver is notified whenever the switch drops a flit. The metrics
// collector implements this to record drop statistics.
type DropObserver interface {
	FlitDropped(flit *messaging.Flit, reason string, now sim.VTimeInSec)
}

// A portComplex is the infrastructure related to one port of the switch.
type portComplex struct {
	// localPort is the port that is equipped on the switch.
	localPort sim.Port

	// remotePort is the port on the other side of the link.
	remotePort sim.RemotePort

	// inputBuffers hold arriving flits, one virtual channel per priority
	// class. These are the credited buffers: the upstream sender owns one
	// credit per slot.
	inputBuffers []sim.Buffer

	// sendOutBuffer stages flits that won arbitration and wait for the
	// egress channel.
	sendOutBuffer sim.Buffer

	// credits tracks the space left in the downstream input buffers, per
	// class.
	credits *flowctrl.CreditCounter

	// pause records backpressure signals received from the downstream
	// neighbor on this port.
	pause *flowctrl.PauseState

	// ctrlOut queues credit returns and pause/resume signals waiting to go
	// out on localPort. Control messages bypass credit accounting.
	ctrlOut []sim.Msg

	numInputChannel  int
	numOutputChannel int
}

// Comp is a fabric switch. Flits arrive at per-class virtual-channel
// buffers, get a routing decision, compete in crossbar arbitration, and
// leave through the egress port when credits and backpressure allow.
type Comp struct {
	*sim.TickingComponent

	ports                []sim.Port
	portToComplexMapping map[sim.Port]*portComplex

	routingTable  routing.Table
	arbiter       arbitration.Arbiter
	requiredDests []sim.RemotePort

	useCredits   bool
	dropPolicy   flowctrl.DropPolicy
	dropObserver DropObserver
}

// GetRoutingTable returns the routing table used by the switch.
func (c *Comp) GetRoutingTable() routing.Table {
	return c.routingTable
}

// RequireRoutesTo registers destinations the switch must be able to route
// toward. Validate reports the first one the routing table cannot serve, so
// a missing route surfaces before the run instead of mid-flight.
func (c *Comp) RequireRoutesTo(dests ...sim.RemotePort) {
	c.requiredDests = append(c.requiredDests, dests...)
}

// Validate checks the switch configuration before a run starts.
func (c *Comp) Validate() error {
	if c.arbiter == nil {
		return &sim.UnconfiguredArbiterError{Component: c.Name()}
	}

	if c.routingTable == nil {
		return &sim.NoRouteError{Component: c.Name(), Destination: "any"}
	}

	for _, dst := range c.routingTable.Destinations() {
		egress := c.routingTable.FindPort(dst)
		if !c.ownsPort(egress) {
			return fmt.Errorf(
				"%s: route toward %s leaves through foreign port %s",
				c.Name(), dst, egress.Name())
		}
	}

	for _, dst := range c.requiredDests {
		if c.routingTable.FindPort(dst) == nil {
			return &sim.NoRouteError{
				Component:   c.Name(),
				Destination: string(dst),
			}
		}
	}

	return nil
}

func (c *Comp) ownsPort(port sim.Port) bool {
	for _, p := range c.ports {
		if p == port {
			return true
		}
	}

	return false
}

// creditFor reports whether the egress port has a credit available for the
// class. The arbiter consults this so that it never selects a buffer whose
// egress cannot accept the flit downstream.
func (c *Comp) creditFor(egress sim.RemotePort, class int) bool {
	for _, pc := range c.portToComplexMapping {
		if pc.localPort.AsRemote() == egress {
			if !pc.sendOutBuffer.CanPush() {
				return false
			}
			if !c.useCredits {
				return true
			}
			return pc.credits.Available(class) > 0
		}
	}

	return false
}

// Tick updates the switch's state. Stages run in reverse pipeline order so
// that a flit advances at most one stage per cycle.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.sendControl() || madeProgress
	madeProgress = c.sendOut() || madeProgress
	madeProgress = c.forward() || madeProgress
	madeProgress = c.recv() || madeProgress

	return madeProgress
}

// sendControl flushes pending credit returns and pause/resume signals.
func (c *Comp) sendControl() (madeProgress bool) {
	for _, port := range c.ports {
		pc := c.portToComplexMapping[port]

		for len(pc.ctrlOut) > 0 {
			msg := pc.ctrlOut[0]
			if err := pc.localPort.Send(msg); err != nil {
				break
			}

			pc.ctrlOut = pc.ctrlOut[1:]
			madeProgress = true
		}
	}

	return madeProgress
}

// sendOut moves staged flits onto the link, spending one credit per flit.
func (c *Comp) sendOut() (madeProgress bool) {
	for _, port := range c.ports {
		pc := c.portToComplexMapping[port]

		for i := 0; i < pc.numOutputChannel; i++ {
			item := pc.sendOutBuffer.Peek()
			if item == nil {
				break
			}

			flit := item.(*messaging.Flit)

			if pc.pause.IsPaused(flit.Class) {
				break
			}

			if c.useCredits && pc.credits.Available(flit.Class) == 0 {
				break
			}

			flit.Meta().Src = pc.localPort.AsRemote()
			flit.Meta().Dst = pc.remotePort

			if err := pc.localPort.Send(flit); err != nil {
				break
			}

			if c.useCredits {
				pc.credits.Consume(flit.Class)
			}

			pc.sendOutBuffer.Pop()
			madeProgress = true
		}
	}

	return madeProgress
}

// forward runs crossbar arbitration and moves the winners to their egress
// staging buffers. Draining a credited input buffer queues a credit return
// to the upstream sender.
func (c *Comp) forward() (madeProgress bool) {
	winners := c.arbiter.Arbitrate()

	for _, winner := range winners {
		flit := winner.Flit
		outPC := c.complexByRemote(flit.OutputPort)

		if !outPC.sendOutBuffer.CanPush() {
			continue
		}

		winner.Contender.Buffer.Pop()
		outPC.sendOutBuffer.Push(flit)

		if c.useCredits {
			inPC := c.complexByRemote(winner.Contender.Ingress)
			inPC.ctrlOut = append(inPC.ctrlOut, messaging.NewCreditMsg(
				inPC.localPort.AsRemote(),
				inPC.remotePort,
				flit.Class,
				1,
			))
		}

		madeProgress = true
	}

	return madeProgress
}

// recv takes arriving messages from the ports: flits go to their virtual
// channel with a routing decision attached, control messages update flow
// control state.
func (c *Comp) recv() (madeProgress bool) {
	for _, port := range c.ports {
		pc := c.portToComplexMapping[port]

		for i := 0; i < pc.numInputChannel; i++ {
			item := port.PeekIncoming()
			if item == nil {
				break
			}

			if !c.handleIncoming(port, pc, item) {
				break
			}

			madeProgress = true
		}
	}

	return madeProgress
}

func (c *Comp) handleIncoming(
	port sim.Port,
	pc *portComplex,
	msg sim.Msg,
) bool {
	switch msg := msg.(type) {
	case *messaging.CreditMsg:
		pc.credits.Return(msg.CreditClass, msg.Count)
		port.RetrieveIncoming()
		return true
	case *messaging.PauseMsg:
		pc.pause.Pause(msg.PauseClass)
		port.RetrieveIncoming()
		return true
	case *messaging.ResumeMsg:
		pc.pause.Resume(msg.ResumeClass)
		port.RetrieveIncoming()
		return true
	case *messaging.Flit:
		return c.acceptFlit(port, pc, msg)
	default:
		panic(fmt.Sprintf("%s: unexpected message type %T", c.Name(), msg))
	}
}

func (c *Comp) acceptFlit(
	port sim.Port,
	pc *portComplex,
	flit *messaging.Flit,
) bool {
	buf := pc.inputBuffers[flit.Class]

	if c.useCredits {
		// The sender spent a credit for this slot; a full buffer means the
		// credit protocol was violated.
		if !buf.CanPush() {
			panic(&sim.BufferOverflowError{
				Now:    c.Engine.CurrentTime(),
				Buffer: buf.Name(),
			})
		}
	} else if c.dropPolicy.ShouldDrop(buf) {
		port.RetrieveIncoming()
		if c.dropObserver != nil {
			c.dropObserver.FlitDropped(
				flit, "buffer_overflow", c.Engine.CurrentTime())
		}
		return true
	}

	c.assignFlitOutputPort(flit)
	flit.HopCount++

	buf.Push(flit)
	port.RetrieveIncoming()

	return true
}

func (c *Comp) assignFlitOutputPort(f *messaging.Flit) {
	outPort := c.routingTable.FindPort(f.Msg.Meta().Dst)
	if outPort == nil {
		panic(&sim.NoRouteError{
			Component:   c.Name(),
			Destination: string(f.Msg.Meta().Dst),
		})
	}

	f.OutputPort = outPort.AsRemote()
}

func (c *Comp) complexByRemote(local sim.RemotePort) *portComplex {
	for _, pc := range c.portToComplexMapping {
		if pc.localPort.AsRemote() == local {
			return pc
		}
	}

	panic(fmt.Sprintf("%s: no port complex for %s", c.Name(), local))
}

// vcWatcher relays the watermark crossings of one virtual channel into
// pause/resume signals toward the upstream sender on that port.
type vcWatcher struct {
	sw    *Comp
	pc    *portComplex
	class int
}

func (w *vcWatcher) NotifyHighWatermark(_ sim.Buffer) {
	w.pc.ctrlOut = append(w.pc.ctrlOut, messaging.NewPauseMsg(
		w.pc.localPort.AsRemote(), w.pc.remotePort, w.class))
	w.sw.TickLater()
}

func (w *vcWatcher) NotifyLowWatermark(_ sim.Buffer) {
	w.pc.ctrlOut = append(w.pc.ctrlOut, messaging.NewResumeMsg(
		w.pc.localPort.AsRemote(), w.pc.remotePort, w.class))
	w.sw.TickLater()
}

func (c *Comp) addPort(pc *portComplex) {
	c.ports = append(c.ports, pc.localPort)
	c.portToComplexMapping[pc.localPort] = pc

	for class, buf := range pc.inputBuffers {
		c.arbiter.AddContender(arbitration.Contender{
			Buffer:  buf,
			Ingress: pc.localPort.AsRemote(),
			Class:   class,
		})
	}
}
