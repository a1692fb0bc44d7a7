// Package mmu implements the component that keeps the accelerator's resident
// pages coherent with the emulated machine. It answers the faults and the
// evictions reported by the accelerator, and offers bulk flushes to the
// emulator.
package mmu

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/residency"
	"github.com/sarchlab/flexmmu/sim"
	"github.com/sarchlab/flexmmu/tracing"
)

// The sender holds the replies of a single message; replaying the faults of a
// page can produce many.
const senderBufSize = math.MaxInt32

// Comp is the MMU component. All its methods, except Do and Run, must be
// called from the goroutine that runs it.
type Comp struct {
	*sim.ComponentBase
	sim.MiddlewareHolder

	topPort   sim.Port
	topSender sim.BufferedSender

	translator  vm.Translator
	hostMemory  HostMemory
	pageBuffer  PageBuffer
	cores       CoreRegistry
	state       *residency.State
	accelerator sim.RemotePort

	// awaiting holds the keys whose eviction was requested and not yet
	// acknowledged.
	awaiting map[vm.GVPKey]bool

	pollInterval time.Duration
	requests     chan func()
	wake         chan struct{}
}

// TopPort returns the port that connects to the accelerator.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// State returns the residency state managed by the MMU.
func (c *Comp) State() *residency.State {
	return c.state
}

// Tick handles at most one message from the accelerator. It returns true if
// progress is made.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// NotifyRecv wakes up Run when a message arrives.
func (c *Comp) NotifyRecv(_ sim.Port) {
	c.wakeUp()
}

// NotifyPortFree wakes up Run so that buffered replies are sent.
func (c *Comp) NotifyPortFree(_ sim.Port) {
	c.wakeUp()
}

func (c *Comp) wakeUp() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

type middleware struct {
	*Comp
}

// Tick sends the buffered replies and dispatches one message.
func (m *middleware) Tick() bool {
	madeProgress := false

	madeProgress = m.topSender.Tick() || madeProgress
	madeProgress = m.parseFromTop() || madeProgress

	return madeProgress
}

func (m *middleware) parseFromTop() bool {
	msg := m.topPort.PeekIncoming()
	if msg == nil {
		return false
	}

	if !m.topSender.CanSend(m.repliesNeeded(msg)) {
		return false
	}

	m.topPort.RetrieveIncoming()

	if m.accelerator == "" {
		m.accelerator = msg.Meta().Src
	}

	switch msg := msg.(type) {
	case *vm.PageFaultNotify:
		m.handleFault(msg)
	case *vm.PageEvictNotify:
		m.handleEvictNotify(msg)
	case *vm.PageEvictDone:
		m.handleEvictDone(msg)
	default:
		m.fatal(fmt.Errorf("%w: %s",
			residency.ErrUnexpectedMessage, reflect.TypeOf(msg)))
	}

	return true
}

// repliesNeeded returns the number of messages that handling msg can send.
func (c *Comp) repliesNeeded(msg sim.Msg) int {
	switch msg := msg.(type) {
	case *vm.PageFaultNotify:
		return 2
	case *vm.PageEvictDone:
		hvp, found := c.state.PendingEvictions.Lookup(msg.Key())
		if !found {
			return 1
		}

		return 1 + 2*c.state.PendingFaults.Count(hvp)
	default:
		return 0
	}
}

func (c *Comp) handleFault(msg *vm.PageFaultNotify) {
	key := msg.Key()

	hvp, ok := c.translator.Translate(msg.ASID, msg.VAddr, msg.Kind)
	if !ok {
		c.replyPermissionFault(msg)
		return
	}

	hvp = vm.HVPOf(uint64(hvp))

	if c.state.PendingEvictions.HasHVP(hvp) {
		err := c.state.PendingFaults.Add(key, hvp, msg.ThreadID)
		if err != nil {
			c.fatal(err)
		}

		c.emit(tracing.ResidencyEvent{
			Kind:     tracing.EventFaultDeferred,
			Key:      key,
			HVP:      hvp,
			ThreadID: msg.ThreadID,
		})

		return
	}

	c.resolve(key, hvp, msg.ThreadID, tracing.EventFirstResident)
}

func (c *Comp) replyPermissionFault(msg *vm.PageFaultNotify) {
	key := msg.Key()

	rsp := vm.MissReplyBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(msg.Src).
		WithRef(msg.PageRef).
		WithThreadID(msg.ThreadID).
		WithPermissionFault().
		Build()
	c.topSender.Send(rsp)

	if core, found := c.coreFor(key); found {
		core.PermissionFault(key, msg.ThreadID)
	}

	c.emit(tracing.ResidencyEvent{
		Kind:     tracing.EventPermissionFault,
		Key:      key,
		ThreadID: msg.ThreadID,
	})
}

// resolve makes key resident and replies to the thread that faulted. The
// event kind tells a replayed fault from a fresh one.
func (c *Comp) resolve(
	key vm.GVPKey,
	hvp vm.HVP,
	threadID uint32,
	firstKind tracing.EventKind,
) {
	if c.alreadyResident(key, hvp, threadID) {
		return
	}

	res, err := c.state.Resolve(key, hvp)
	if err != nil {
		c.fatal(err)
	}

	event := tracing.ResidencyEvent{
		Key:      key,
		HVP:      hvp,
		Frame:    res.Frame,
		ThreadID: threadID,
	}

	switch res.Registration {
	case residency.FirstResident:
		c.loadPage(key, hvp, res.Frame)
		c.topSender.Send(vm.MissReplyBuilder{}.
			WithSrc(c.topPort.AsRemote()).
			WithDst(c.accelerator).
			WithRef(vm.RefOf(key)).
			WithThreadID(threadID).
			WithFrame(res.Frame).
			Build())

		event.Kind = firstKind
	case residency.Synonym:
		c.topSender.Send(vm.SynonymReplyBuilder{}.
			WithSrc(c.topPort.AsRemote()).
			WithDst(c.accelerator).
			WithRef(vm.RefOf(key)).
			WithThreadID(threadID).
			WithFrame(res.Frame).
			WithSource(res.Source).
			WithUpgrade(res.Upgrade).
			Build())

		event.Kind = tracing.EventSynonym
	}

	if core, found := c.coreFor(key); found {
		core.FaultResolved(key, threadID)
	}

	c.emit(event)
}

// alreadyResident answers a fault on a key that is resident through hvp. Two
// threads may miss on the same key before the first reply arrives; the later
// one gets the frame the first one loaded.
func (c *Comp) alreadyResident(key vm.GVPKey, hvp vm.HVP, threadID uint32) bool {
	if !c.state.TPT.Has(key) || c.state.TPT.Lookup(key) != hvp {
		return false
	}

	frame := c.state.SPT.Lookup(hvp)

	c.topSender.Send(vm.MissReplyBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(c.accelerator).
		WithRef(vm.RefOf(key)).
		WithThreadID(threadID).
		WithFrame(frame).
		Build())

	if core, found := c.coreFor(key); found {
		core.FaultResolved(key, threadID)
	}

	c.emit(tracing.ResidencyEvent{
		Kind:     tracing.EventAlreadyResident,
		Key:      key,
		HVP:      hvp,
		Frame:    frame,
		ThreadID: threadID,
	})

	return true
}

func (c *Comp) loadPage(key vm.GVPKey, hvp vm.HVP, frame vm.FrameID) {
	data, err := c.hostMemory.ReadPage(hvp)
	if err != nil {
		c.fatal(fmt.Errorf("loading %s from %s: %w", key, hvp, err))
	}

	c.pageBuffer.PushPage(frame, data)

	c.topSender.Send(vm.PageLoadBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(c.accelerator).
		WithKey(key).
		WithFrame(frame).
		Build())
}

// hvpOfEvicted finds the host page of a key the accelerator gave back. The
// temporal table is tried first, so that a mapping changed in the guest page
// table since the fault does not hide the resident page.
func (c *Comp) hvpOfEvicted(ref vm.PageRef) vm.HVP {
	key := ref.Key()
	if c.state.TPT.Has(key) {
		return c.state.TPT.Lookup(key)
	}

	hvp, ok := c.translator.Translate(ref.ASID, ref.VAddr, ref.Kind)
	if !ok {
		c.fatal(fmt.Errorf("%w: evicted page %s does not translate",
			residency.ErrUnknownKey, key))
	}

	return vm.HVPOf(uint64(hvp))
}

// holds reports whether key, or another kind of the same page, is resident
// through hvp.
func (c *Comp) holds(key vm.GVPKey, hvp vm.HVP) bool {
	if c.state.TPT.Has(key) {
		return true
	}

	for _, k := range c.state.IPT.Lookup(hvp) {
		if k.SamePage(key) {
			return true
		}
	}

	return false
}

func (c *Comp) handleEvictNotify(msg *vm.PageEvictNotify) {
	key := msg.Key()
	hvp := c.hvpOfEvicted(msg.PageRef)

	if msg.Modified {
		if !c.holds(key, hvp) {
			c.fatal(fmt.Errorf("%w: modified page %s is not resident",
				residency.ErrUnknownKey, key))
		}

		if err := c.state.PendingEvictions.Add(key, hvp); err != nil {
			c.fatal(err)
		}

		c.emit(tracing.ResidencyEvent{
			Kind: tracing.EventEvictPending,
			Key:  key,
			HVP:  hvp,
		})

		return
	}

	ev, err := c.state.Evict(key, hvp)
	if err != nil {
		c.fatal(err)
	}

	c.acknowledge(key, ev.Key)

	c.emit(tracing.ResidencyEvent{
		Kind:  tracing.EventEvicted,
		Key:   ev.Key,
		HVP:   hvp,
		Frame: ev.Frame,
	})
}

func (c *Comp) handleEvictDone(msg *vm.PageEvictDone) {
	key := msg.Key()

	hvp, found := c.state.PendingEvictions.Lookup(key)
	if !found {
		c.fatal(fmt.Errorf("%w: write back of %s was never announced",
			residency.ErrUnknownKey, key))
	}

	if !c.state.SPT.Has(hvp) {
		c.fatal(fmt.Errorf("%w: %s is written back but not resident",
			residency.ErrUnknownHVP, hvp))
	}

	frame := c.state.SPT.Lookup(hvp)

	if err := c.hostMemory.WritePage(hvp, c.pageBuffer.FetchPage(frame)); err != nil {
		c.fatal(fmt.Errorf("writing back %s to %s: %w", key, hvp, err))
	}

	c.topSender.Send(vm.PageFetchBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(msg.Src).
		WithFrame(frame).
		Build())

	ev, err := c.state.Evict(key, hvp)
	if err != nil {
		c.fatal(err)
	}

	if _, err := c.state.PendingEvictions.Clear(key); err != nil {
		c.fatal(err)
	}

	c.acknowledge(key, ev.Key)

	c.emit(tracing.ResidencyEvent{
		Kind:  tracing.EventWrittenBack,
		Key:   ev.Key,
		HVP:   hvp,
		Frame: frame,
	})

	c.runPendingForHVP(hvp)
}

// runPendingForHVP replays the faults that waited for the write back of hvp.
// It returns whether any was found.
func (c *Comp) runPendingForHVP(hvp vm.HVP) bool {
	if c.state.PendingEvictions.HasHVP(hvp) {
		return false
	}

	faults := c.state.PendingFaults.Take(hvp)
	for _, f := range faults {
		c.resolve(f.Key, f.HVP, f.Requester, tracing.EventFaultReplayed)
	}

	return len(faults) > 0
}

func (c *Comp) acknowledge(keys ...vm.GVPKey) {
	for _, k := range keys {
		delete(c.awaiting, k)
	}
}

func (c *Comp) coreFor(key vm.GVPKey) (Core, bool) {
	if c.cores == nil {
		return nil, false
	}

	return c.cores.CoreForAddressSpace(key.ASID())
}

func (c *Comp) emit(event tracing.ResidencyEvent) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    tracing.HookPosResidency,
		Item:   event,
	})
}

// fatal reports err and panics with a *residency.FatalError.
func (c *Comp) fatal(err error) {
	fe := residency.NewFatalError(err)

	c.emit(tracing.ResidencyEvent{Kind: tracing.EventFatal, Err: fe})

	panic(fe)
}
