// Package vm provides the models for guest pages, the keys that name them,
// and the messages exchanged with the accelerator about their residency.
package vm

import (
	"reflect"

	"github.com/sarchlab/flexmmu/sim"
)

// PageRef names a guest page and the access kind of a request.
type PageRef struct {
	VAddr uint64
	ASID  ASID
	Kind  AccessKind
}

// Key returns the GVPKey of the referenced page.
func (r PageRef) Key() GVPKey {
	return NewGVPKey(r.VAddr, r.ASID, r.Kind)
}

// RefOf converts a key back to a page reference.
func RefOf(key GVPKey) PageRef {
	return PageRef{VAddr: key.VA(), ASID: key.ASID(), Kind: key.Kind()}
}

func trafficClass(msg any) string {
	return reflect.TypeOf(msg).Elem().String()
}

// A PageFaultNotify is sent by the accelerator when a thread misses in its
// translation structures.
type PageFaultNotify struct {
	sim.MsgMeta
	PageRef
	ThreadID uint32
}

// Meta returns the meta data associated with the message.
func (m *PageFaultNotify) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned PageFaultNotify with different ID
func (m *PageFaultNotify) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A PageEvictNotify is sent by the accelerator when it drops a page. If the
// page is modified, the data follows with a PageEvictDone.
type PageEvictNotify struct {
	sim.MsgMeta
	PageRef
	Modified bool
}

// Meta returns the meta data associated with the message.
func (m *PageEvictNotify) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned PageEvictNotify with different ID
func (m *PageEvictNotify) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A PageEvictDone tells that the write back of a modified page has been
// placed in the page buffer.
type PageEvictDone struct {
	sim.MsgMeta
	PageRef
	Frame FrameID
}

// Meta returns the meta data associated with the message.
func (m *PageEvictDone) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned PageEvictDone with different ID
func (m *PageEvictDone) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A MissReply resolves a page fault with a freshly loaded frame, or reports
// that the access is not permitted.
type MissReply struct {
	sim.MsgMeta
	PageRef
	ThreadID        uint32
	Frame           FrameID
	PermissionFault bool
}

// Meta returns the meta data associated with the message.
func (m *MissReply) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned MissReply with different ID
func (m *MissReply) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A SynonymReply resolves a page fault by pointing at a frame that is already
// resident under another key.
type SynonymReply struct {
	sim.MsgMeta
	PageRef
	ThreadID uint32
	Frame    FrameID
	Source   GVPKey

	// Upgrade is set when the source is the same page with a weaker access
	// kind, so that the accelerator can widen the permission of its entry.
	Upgrade bool
}

// Meta returns the meta data associated with the message.
func (m *SynonymReply) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned SynonymReply with different ID
func (m *SynonymReply) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// An EvictRequest asks the accelerator to give a page back.
type EvictRequest struct {
	sim.MsgMeta
	PageRef
	FlushICache bool
}

// Meta returns the meta data associated with the message.
func (m *EvictRequest) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned EvictRequest with different ID
func (m *EvictRequest) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A PageLoad tells the accelerator that the page buffer holds the content of
// a frame it should install.
type PageLoad struct {
	sim.MsgMeta
	Key   GVPKey
	Frame FrameID
}

// Meta returns the meta data associated with the message.
func (m *PageLoad) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned PageLoad with different ID
func (m *PageLoad) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A PageFetch tells the accelerator that the host consumed the write back of
// a frame.
type PageFetch struct {
	sim.MsgMeta
	Frame FrameID
}

// Meta returns the meta data associated with the message.
func (m *PageFetch) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns cloned PageFetch with different ID
func (m *PageFetch) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}
