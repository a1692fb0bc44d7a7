package vm

import "github.com/sarchlab/flexmmu/sim"

// PageFaultNotifyBuilder can build PageFaultNotify messages.
type PageFaultNotifyBuilder struct {
	meta     sim.MsgMetaBuilder
	ref      PageRef
	threadID uint32
}

// WithSrc sets the source of the message.
func (b PageFaultNotifyBuilder) WithSrc(src sim.RemotePort) PageFaultNotifyBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b PageFaultNotifyBuilder) WithDst(dst sim.RemotePort) PageFaultNotifyBuilder {
	b.meta.Dst = dst
	return b
}

// WithPage sets the faulting page.
func (b PageFaultNotifyBuilder) WithPage(
	va uint64,
	asid ASID,
	kind AccessKind,
) PageFaultNotifyBuilder {
	b.ref = PageRef{VAddr: va, ASID: asid, Kind: kind}
	return b
}

// WithThreadID sets the accelerator thread that waits for the page.
func (b PageFaultNotifyBuilder) WithThreadID(id uint32) PageFaultNotifyBuilder {
	b.threadID = id
	return b
}

// Build creates a new PageFaultNotify.
func (b PageFaultNotifyBuilder) Build() *PageFaultNotify {
	m := &PageFaultNotify{PageRef: b.ref, ThreadID: b.threadID}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))

	return m
}

// PageEvictNotifyBuilder can build PageEvictNotify messages.
type PageEvictNotifyBuilder struct {
	meta     sim.MsgMetaBuilder
	ref      PageRef
	modified bool
}

// WithSrc sets the source of the message.
func (b PageEvictNotifyBuilder) WithSrc(src sim.RemotePort) PageEvictNotifyBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b PageEvictNotifyBuilder) WithDst(dst sim.RemotePort) PageEvictNotifyBuilder {
	b.meta.Dst = dst
	return b
}

// WithKey sets the evicted page.
func (b PageEvictNotifyBuilder) WithKey(key GVPKey) PageEvictNotifyBuilder {
	b.ref = RefOf(key)
	return b
}

// WithModified marks that the page has been written by the accelerator.
func (b PageEvictNotifyBuilder) WithModified(modified bool) PageEvictNotifyBuilder {
	b.modified = modified
	return b
}

// Build creates a new PageEvictNotify.
func (b PageEvictNotifyBuilder) Build() *PageEvictNotify {
	m := &PageEvictNotify{PageRef: b.ref, Modified: b.modified}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))

	return m
}

// PageEvictDoneBuilder can build PageEvictDone messages.
type PageEvictDoneBuilder struct {
	meta  sim.MsgMetaBuilder
	ref   PageRef
	frame FrameID
}

// WithSrc sets the source of the message.
func (b PageEvictDoneBuilder) WithSrc(src sim.RemotePort) PageEvictDoneBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b PageEvictDoneBuilder) WithDst(dst sim.RemotePort) PageEvictDoneBuilder {
	b.meta.Dst = dst
	return b
}

// WithKey sets the written back page.
func (b PageEvictDoneBuilder) WithKey(key GVPKey) PageEvictDoneBuilder {
	b.ref = RefOf(key)
	return b
}

// WithFrame sets the frame whose content is written back.
func (b PageEvictDoneBuilder) WithFrame(frame FrameID) PageEvictDoneBuilder {
	b.frame = frame
	return b
}

// Build creates a new PageEvictDone.
func (b PageEvictDoneBuilder) Build() *PageEvictDone {
	m := &PageEvictDone{PageRef: b.ref, Frame: b.frame}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))
	m.TrafficBytes = PageSize

	return m
}

// MissReplyBuilder can build MissReply messages.
type MissReplyBuilder struct {
	meta            sim.MsgMetaBuilder
	ref             PageRef
	threadID        uint32
	frame           FrameID
	permissionFault bool
}

// WithSrc sets the source of the message.
func (b MissReplyBuilder) WithSrc(src sim.RemotePort) MissReplyBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b MissReplyBuilder) WithDst(dst sim.RemotePort) MissReplyBuilder {
	b.meta.Dst = dst
	return b
}

// WithRef sets the page the reply is about.
func (b MissReplyBuilder) WithRef(ref PageRef) MissReplyBuilder {
	b.ref = ref
	return b
}

// WithThreadID sets the thread to resume.
func (b MissReplyBuilder) WithThreadID(id uint32) MissReplyBuilder {
	b.threadID = id
	return b
}

// WithFrame sets the frame that now holds the page.
func (b MissReplyBuilder) WithFrame(frame FrameID) MissReplyBuilder {
	b.frame = frame
	return b
}

// WithPermissionFault marks the reply as a refused translation.
func (b MissReplyBuilder) WithPermissionFault() MissReplyBuilder {
	b.permissionFault = true
	return b
}

// Build creates a new MissReply.
func (b MissReplyBuilder) Build() *MissReply {
	m := &MissReply{
		PageRef:         b.ref,
		ThreadID:        b.threadID,
		Frame:           b.frame,
		PermissionFault: b.permissionFault,
	}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))

	return m
}

// SynonymReplyBuilder can build SynonymReply messages.
type SynonymReplyBuilder struct {
	meta     sim.MsgMetaBuilder
	ref      PageRef
	threadID uint32
	frame    FrameID
	source   GVPKey
	upgrade  bool
}

// WithSrc sets the source of the message.
func (b SynonymReplyBuilder) WithSrc(src sim.RemotePort) SynonymReplyBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b SynonymReplyBuilder) WithDst(dst sim.RemotePort) SynonymReplyBuilder {
	b.meta.Dst = dst
	return b
}

// WithRef sets the page the reply is about.
func (b SynonymReplyBuilder) WithRef(ref PageRef) SynonymReplyBuilder {
	b.ref = ref
	return b
}

// WithThreadID sets the thread to resume.
func (b SynonymReplyBuilder) WithThreadID(id uint32) SynonymReplyBuilder {
	b.threadID = id
	return b
}

// WithFrame sets the shared frame.
func (b SynonymReplyBuilder) WithFrame(frame FrameID) SynonymReplyBuilder {
	b.frame = frame
	return b
}

// WithSource sets the resident key whose translation is reused.
func (b SynonymReplyBuilder) WithSource(source GVPKey) SynonymReplyBuilder {
	b.source = source
	return b
}

// WithUpgrade marks the reply as a permission upgrade of the source.
func (b SynonymReplyBuilder) WithUpgrade(upgrade bool) SynonymReplyBuilder {
	b.upgrade = upgrade
	return b
}

// Build creates a new SynonymReply.
func (b SynonymReplyBuilder) Build() *SynonymReply {
	m := &SynonymReply{
		PageRef:  b.ref,
		ThreadID: b.threadID,
		Frame:    b.frame,
		Source:   b.source,
		Upgrade:  b.upgrade,
	}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))

	return m
}

// EvictRequestBuilder can build EvictRequest messages.
type EvictRequestBuilder struct {
	meta        sim.MsgMetaBuilder
	ref         PageRef
	flushICache bool
}

// WithSrc sets the source of the message.
func (b EvictRequestBuilder) WithSrc(src sim.RemotePort) EvictRequestBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b EvictRequestBuilder) WithDst(dst sim.RemotePort) EvictRequestBuilder {
	b.meta.Dst = dst
	return b
}

// WithKey sets the page to evict. Instruction pages also request an
// instruction cache flush.
func (b EvictRequestBuilder) WithKey(key GVPKey) EvictRequestBuilder {
	b.ref = RefOf(key)
	b.flushICache = key.Kind() == AccessFetch

	return b
}

// Build creates a new EvictRequest.
func (b EvictRequestBuilder) Build() *EvictRequest {
	m := &EvictRequest{PageRef: b.ref, FlushICache: b.flushICache}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))

	return m
}

// PageLoadBuilder can build PageLoad messages.
type PageLoadBuilder struct {
	meta  sim.MsgMetaBuilder
	key   GVPKey
	frame FrameID
}

// WithSrc sets the source of the message.
func (b PageLoadBuilder) WithSrc(src sim.RemotePort) PageLoadBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b PageLoadBuilder) WithDst(dst sim.RemotePort) PageLoadBuilder {
	b.meta.Dst = dst
	return b
}

// WithKey sets the key the frame is loaded for.
func (b PageLoadBuilder) WithKey(key GVPKey) PageLoadBuilder {
	b.key = key
	return b
}

// WithFrame sets the frame to load.
func (b PageLoadBuilder) WithFrame(frame FrameID) PageLoadBuilder {
	b.frame = frame
	return b
}

// Build creates a new PageLoad.
func (b PageLoadBuilder) Build() *PageLoad {
	m := &PageLoad{Key: b.key, Frame: b.frame}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))
	m.TrafficBytes = PageSize

	return m
}

// PageFetchBuilder can build PageFetch messages.
type PageFetchBuilder struct {
	meta  sim.MsgMetaBuilder
	frame FrameID
}

// WithSrc sets the source of the message.
func (b PageFetchBuilder) WithSrc(src sim.RemotePort) PageFetchBuilder {
	b.meta.Src = src
	return b
}

// WithDst sets the destination of the message.
func (b PageFetchBuilder) WithDst(dst sim.RemotePort) PageFetchBuilder {
	b.meta.Dst = dst
	return b
}

// WithFrame sets the frame that was fetched.
func (b PageFetchBuilder) WithFrame(frame FrameID) PageFetchBuilder {
	b.frame = frame
	return b
}

// Build creates a new PageFetch.
func (b PageFetchBuilder) Build() *PageFetch {
	m := &PageFetch{Frame: b.frame}
	m.MsgMeta = b.meta.BuildMeta(trafficClass(m))

	return m
}
