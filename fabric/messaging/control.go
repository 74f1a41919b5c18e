package messaging

import (
	"github.com/fabriclab/cxlfabric/sim"
)

// A CreditMsg returns buffer credits to the upstream sender of a link. It is
// sent when the receiving side drains a flit from its credited input buffer,
// so the credit-return delay equals the return-path link delay.
type CreditMsg struct {
	sim.MsgMeta

	CreditClass int
	Count       int
}

// Meta returns the meta data of the message.
func (m *CreditMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned CreditMsg with a different ID.
func (m *CreditMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// NewCreditMsg creates a credit return of the given count for a class.
func NewCreditMsg(src, dst sim.RemotePort, class, count int) *CreditMsg {
	m := &CreditMsg{
		CreditClass: class,
		Count:       count,
	}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = src
	m.Dst = dst

	return m
}

// A PauseMsg tells the immediate upstream sender to stop issuing new sends
// for a priority class. It is emitted when a credited input buffer crosses
// its pause watermark.
type PauseMsg struct {
	sim.MsgMeta

	PauseClass int
}

// Meta returns the meta data of the message.
func (m *PauseMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned PauseMsg with a different ID.
func (m *PauseMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// NewPauseMsg creates a pause signal for a class.
func NewPauseMsg(src, dst sim.RemotePort, class int) *PauseMsg {
	m := &PauseMsg{PauseClass: class}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = src
	m.Dst = dst

	return m
}

// A ResumeMsg lifts a previously sent pause for a priority class. It is
// emitted when occupancy falls back below the resume watermark.
type ResumeMsg struct {
	sim.MsgMeta

	ResumeClass int
}

// Meta returns the meta data of the message.
func (m *ResumeMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned ResumeMsg with a different ID.
func (m *ResumeMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// NewResumeMsg creates a resume signal for a class.
func NewResumeMsg(src, dst sim.RemotePort, class int) *ResumeMsg {
	m := &ResumeMsg{ResumeClass: class}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = src
	m.Dst = dst

	return m
}
