// Package messaging defines the messages and flits that travel through the
// fabric.
package messaging

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/sim"
)

// Flit is the smallest transferring unit on the fabric. A message is
// fragmented into flits at the sending endpoint and reassembled at the
// receiving endpoint.
type Flit struct {
	sim.MsgMeta

	SeqID        int
	NumFlitInMsg int
	Msg          sim.Msg

	// OutputPort is the egress port assigned by the routing stage of the
	// switch that currently holds the flit.
	OutputPort sim.RemotePort

	// HopCount is the number of switches the flit has traversed.
	HopCount int
}

// Meta returns the meta data associated with the Flit.
func (f *Flit) Meta() *sim.MsgMeta {
	return &f.MsgMeta
}

// Clone returns a cloned Flit with a different ID.
func (f *Flit) Clone() sim.Msg {
	cloneMsg := *f
	cloneMsg.ID = flitID(cloneMsg.SeqID, cloneMsg.Msg)

	return &cloneMsg
}

func flitID(seqID int, msg sim.Msg) string {
	return fmt.Sprintf("flit-%d-msg-%s-%s",
		seqID, msg.Meta().ID, sim.GetIDGenerator().Generate())
}

// FlitBuilder can build flits.
type FlitBuilder struct {
	src, dst            sim.RemotePort
	msg                 sim.Msg
	seqID, numFlitInMsg int
	bytes               int
}

// WithSrc sets the src of the flit to build.
func (b FlitBuilder) WithSrc(src sim.RemotePort) FlitBuilder {
	b.src = src
	return b
}

// WithDst sets the dst of the flit to build.
func (b FlitBuilder) WithDst(dst sim.RemotePort) FlitBuilder {
	b.dst = dst
	return b
}

// WithSeqID sets the SeqID of the flit to build.
func (b FlitBuilder) WithSeqID(i int) FlitBuilder {
	b.seqID = i
	return b
}

// WithNumFlitInMsg sets the NumFlitInMsg of the flit to build.
func (b FlitBuilder) WithNumFlitInMsg(n int) FlitBuilder {
	b.numFlitInMsg = n
	return b
}

// WithMsg sets the msg of the flit to build.
func (b FlitBuilder) WithMsg(msg sim.Msg) FlitBuilder {
	b.msg = msg
	return b
}

// WithTrafficBytes sets the number of bytes the flit carries on a link.
func (b FlitBuilder) WithTrafficBytes(bytes int) FlitBuilder {
	b.bytes = bytes
	return b
}

// Build creates a new flit.
func (b FlitBuilder) Build() *Flit {
	f := &Flit{}
	f.ID = flitID(b.seqID, b.msg)
	f.Src = b.src
	f.Dst = b.dst
	f.Msg = b.msg
	f.SeqID = b.seqID
	f.NumFlitInMsg = b.numFlitInMsg
	f.TrafficBytes = b.bytes
	f.FlowID = b.msg.Meta().FlowID
	f.Class = b.msg.Meta().Class
	f.CreationTime = b.msg.Meta().CreationTime

	return f
}
