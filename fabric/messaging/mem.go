package messaging

import (
	"github.com/fabriclab/cxlfabric/sim"
)

// Priority classes of CXL.mem traffic. Higher values win under strict
// priority arbitration.
const (
	ClassLow = iota
	ClassMedium
	ClassHigh
	ClassCritical
)

// NumClasses is the number of priority classes the fabric distinguishes.
const NumClasses = 4

// A MemReadReq is a CXL.mem memory read request.
type MemReadReq struct {
	sim.MsgMeta

	Address     uint64
	AccessBytes int
}

// Meta returns the meta data of the message.
func (r *MemReadReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a cloned MemReadReq with a different ID.
func (r *MemReadReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A MemWriteReq is a CXL.mem memory write request.
type MemWriteReq struct {
	sim.MsgMeta

	Address     uint64
	AccessBytes int
}

// Meta returns the meta data of the message.
func (r *MemWriteReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a cloned MemWriteReq with a different ID.
func (r *MemWriteReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A MemReadRsp carries the data of a completed read back to the requester.
type MemReadRsp struct {
	sim.MsgMeta

	RspTo string
}

// Meta returns the meta data of the message.
func (r *MemReadRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a cloned MemReadRsp with a different ID.
func (r *MemReadRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the request this response answers.
func (r *MemReadRsp) GetRspTo() string {
	return r.RspTo
}

// A MemWriteAck acknowledges a completed write.
type MemWriteAck struct {
	sim.MsgMeta

	RspTo string
}

// Meta returns the meta data of the message.
func (r *MemWriteAck) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a cloned MemWriteAck with a different ID.
func (r *MemWriteAck) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the request this ack answers.
func (r *MemWriteAck) GetRspTo() string {
	return r.RspTo
}

// MemReqBuilder can build memory requests.
type MemReqBuilder struct {
	src, dst     sim.RemotePort
	flowID       string
	class        int
	address      uint64
	accessBytes  int
	creationTime sim.VTimeInSec
}

// WithSrc sets the source of the request to build.
func (b MemReqBuilder) WithSrc(src sim.RemotePort) MemReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b MemReqBuilder) WithDst(dst sim.RemotePort) MemReqBuilder {
	b.dst = dst
	return b
}

// WithFlowID sets the flow the request belongs to.
func (b MemReqBuilder) WithFlowID(flowID string) MemReqBuilder {
	b.flowID = flowID
	return b
}

// WithClass sets the priority class of the request.
func (b MemReqBuilder) WithClass(class int) MemReqBuilder {
	b.class = class
	return b
}

// WithAddress sets the address of the request to build.
func (b MemReqBuilder) WithAddress(address uint64) MemReqBuilder {
	b.address = address
	return b
}

// WithAccessBytes sets the number of bytes to access.
func (b MemReqBuilder) WithAccessBytes(n int) MemReqBuilder {
	b.accessBytes = n
	return b
}

// WithCreationTime records when the request was injected.
func (b MemReqBuilder) WithCreationTime(t sim.VTimeInSec) MemReqBuilder {
	b.creationTime = t
	return b
}

func (b MemReqBuilder) meta() sim.MsgMeta {
	return sim.MsgMeta{
		ID:           sim.GetIDGenerator().Generate(),
		Src:          b.src,
		Dst:          b.dst,
		FlowID:       b.flowID,
		Class:        b.class,
		TrafficBytes: b.accessBytes,
		CreationTime: b.creationTime,
	}
}

// BuildRead creates a new MemReadReq.
func (b MemReqBuilder) BuildRead() *MemReadReq {
	return &MemReadReq{
		MsgMeta:     b.meta(),
		Address:     b.address,
		AccessBytes: b.accessBytes,
	}
}

// BuildWrite creates a new MemWriteReq.
func (b MemReqBuilder) BuildWrite() *MemWriteReq {
	return &MemWriteReq{
		MsgMeta:     b.meta(),
		Address:     b.address,
		AccessBytes: b.accessBytes,
	}
}

// RspBuilder can build responses to memory requests.
type RspBuilder struct {
	src, dst sim.RemotePort
	req      sim.Msg
	bytes    int
}

// WithSrc sets the source of the response to build.
func (b RspBuilder) WithSrc(src sim.RemotePort) RspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b RspBuilder) WithDst(dst sim.RemotePort) RspBuilder {
	b.dst = dst
	return b
}

// WithReq sets the request the response answers.
func (b RspBuilder) WithReq(req sim.Msg) RspBuilder {
	b.req = req
	return b
}

// WithTrafficBytes sets the payload size of the response.
func (b RspBuilder) WithTrafficBytes(n int) RspBuilder {
	b.bytes = n
	return b
}

func (b RspBuilder) meta() sim.MsgMeta {
	return sim.MsgMeta{
		ID:           sim.GetIDGenerator().Generate(),
		Src:          b.src,
		Dst:          b.dst,
		FlowID:       b.req.Meta().FlowID,
		Class:        b.req.Meta().Class,
		TrafficBytes: b.bytes,
		CreationTime: b.req.Meta().CreationTime,
	}
}

// BuildReadRsp creates a new MemReadRsp.
func (b RspBuilder) BuildReadRsp() *MemReadRsp {
	return &MemReadRsp{
		MsgMeta: b.meta(),
		RspTo:   b.req.Meta().ID,
	}
}

// BuildWriteAck creates a new MemWriteAck.
func (b RspBuilder) BuildWriteAck() *MemWriteAck {
	return &MemWriteAck{
		MsgMeta: b.meta(),
		RspTo:   b.req.Meta().ID,
	}
}
