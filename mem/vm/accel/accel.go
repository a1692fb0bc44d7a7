// Package accel provides a behavioral model of the accelerator. It holds a
// bounded set of translations, tracks which pages it modified, and follows
// the residency protocol of the MMU.
package accel

import (
	"fmt"
	"log"
	"reflect"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/sim"
)

type entry struct {
	frame   vm.FrameID
	dirty   bool
	lastUse uint64
}

// ThreadState tells where a thread is in resolving its fault.
type ThreadState int

// The thread states.
const (
	ThreadIdle ThreadState = iota
	ThreadWaiting
	ThreadResolved
	ThreadFaulted
)

type thread struct {
	key   vm.GVPKey
	state ThreadState
}

// Stats counts what happened on the accelerator.
type Stats struct {
	Hits             uint64
	Misses           uint64
	SelfEvictions    uint64
	RequestedEvicts  uint64
	Writebacks       uint64
	ICacheFlushes    uint64
	PermissionFaults uint64
}

// Comp is the accelerator model. It reacts to messages as they are delivered,
// on the goroutine of the sender.
type Comp struct {
	*sim.ComponentBase

	port sim.Port
	mmu  sim.RemotePort

	capacity        int
	deferWritebacks bool
	clock           uint64

	tlb        map[vm.GVPKey]*entry
	frames     map[vm.FrameID][]byte
	staged     map[vm.FrameID][]byte
	writebacks map[vm.FrameID][]byte
	threads    map[uint32]*thread
	deferred   []*vm.PageEvictDone

	stats Stats
}

// Port returns the port that connects to the MMU.
func (c *Comp) Port() sim.Port {
	return c.port
}

// Stats returns the counters.
func (c *Comp) Stats() Stats {
	return c.stats
}

// Access runs an access of a thread. It returns true on a hit. On a miss the
// fault is sent to the MMU and the thread waits until ThreadState reports the
// outcome. If the accelerator is full, the least recently used translation is
// evicted first.
func (c *Comp) Access(
	threadID uint32,
	asid vm.ASID,
	va uint64,
	kind vm.AccessKind,
) bool {
	key := vm.NewGVPKey(va, asid, kind)
	c.clock++

	if e, found := c.tlb[key]; found {
		e.lastUse = c.clock
		if kind == vm.AccessStore {
			e.dirty = true
		}

		c.stats.Hits++

		return true
	}

	if t, found := c.threads[threadID]; found && t.state == ThreadWaiting {
		log.Panicf("thread %d faults on %s while waiting for %s",
			threadID, key, t.key)
	}

	c.stats.Misses++

	for len(c.tlb)+c.numWaiting() >= c.capacity && len(c.tlb) > 0 {
		c.stats.SelfEvictions++
		c.evict(c.leastRecentlyUsed())
	}

	c.threads[threadID] = &thread{key: key, state: ThreadWaiting}

	c.send(vm.PageFaultNotifyBuilder{}.
		WithSrc(c.port.AsRemote()).
		WithDst(c.mmu).
		WithPage(va, asid, kind).
		WithThreadID(threadID).
		Build())

	return false
}

// ThreadState returns the state of a thread.
func (c *Comp) ThreadState(threadID uint32) ThreadState {
	t, found := c.threads[threadID]
	if !found {
		return ThreadIdle
	}

	return t.state
}

// Resident reports whether the accelerator holds key.
func (c *Comp) Resident(key vm.GVPKey) bool {
	_, found := c.tlb[key]
	return found
}

// Len returns the number of translations held.
func (c *Comp) Len() int {
	return len(c.tlb)
}

// Frame returns the frame of a resident key.
func (c *Comp) Frame(key vm.GVPKey) (vm.FrameID, bool) {
	e, found := c.tlb[key]
	if !found {
		return 0, false
	}

	return e.frame, true
}

// Store writes a byte through a resident store translation.
func (c *Comp) Store(asid vm.ASID, va uint64, b byte) bool {
	e, found := c.tlb[vm.NewGVPKey(va, asid, vm.AccessStore)]
	if !found {
		return false
	}

	c.frames[e.frame][va%vm.PageSize] = b
	e.dirty = true

	return true
}

// Load reads a byte through any resident translation of the page.
func (c *Comp) Load(asid vm.ASID, va uint64) (byte, bool) {
	for _, kind := range []vm.AccessKind{vm.AccessLoad, vm.AccessStore, vm.AccessFetch} {
		if e, found := c.tlb[vm.NewGVPKey(va, asid, kind)]; found {
			return c.frames[e.frame][va%vm.PageSize], true
		}
	}

	return 0, false
}

// Evict gives a translation back on the accelerator's own initiative.
func (c *Comp) Evict(key vm.GVPKey) bool {
	if _, found := c.tlb[key]; !found {
		return false
	}

	c.stats.SelfEvictions++
	c.evict(key)

	return true
}

// CompleteWritebacks sends the completions held back by deferred write backs.
// It returns the number of completions sent.
func (c *Comp) CompleteWritebacks() int {
	done := c.deferred
	c.deferred = nil

	for _, msg := range done {
		c.send(msg)
	}

	return len(done)
}

// PushPage stages the content of a page that a PageLoad will install.
func (c *Comp) PushPage(frame vm.FrameID, data []byte) {
	c.staged[frame] = clonePage(data)
}

// FetchPage returns the content written back from a frame.
func (c *Comp) FetchPage(frame vm.FrameID) []byte {
	data, found := c.writebacks[frame]
	if !found {
		log.Panicf("frame %d has no write back", frame)
	}

	return data
}

// NotifyRecv handles everything that arrived.
func (c *Comp) NotifyRecv(_ sim.Port) {
	for {
		msg := c.port.RetrieveIncoming()
		if msg == nil {
			return
		}

		c.handle(msg)
	}
}

// NotifyPortFree does nothing. Messages are sent right away.
func (c *Comp) NotifyPortFree(_ sim.Port) {
}

func (c *Comp) handle(msg sim.Msg) {
	switch msg := msg.(type) {
	case *vm.PageLoad:
		c.handlePageLoad(msg)
	case *vm.MissReply:
		c.handleMissReply(msg)
	case *vm.SynonymReply:
		c.install(msg.Key(), msg.ThreadID, msg.Frame)
	case *vm.EvictRequest:
		c.handleEvictRequest(msg)
	case *vm.PageFetch:
		delete(c.writebacks, msg.Frame)
	default:
		log.Panicf("accelerator cannot handle message of type %s",
			reflect.TypeOf(msg))
	}
}

func (c *Comp) handlePageLoad(msg *vm.PageLoad) {
	data, found := c.staged[msg.Frame]
	if !found {
		log.Panicf("page load of frame %d without data", msg.Frame)
	}

	delete(c.staged, msg.Frame)
	c.frames[msg.Frame] = data
}

func (c *Comp) handleMissReply(msg *vm.MissReply) {
	if msg.PermissionFault {
		c.stats.PermissionFaults++
		c.threadDone(msg.ThreadID, msg.Key(), ThreadFaulted)

		return
	}

	if _, found := c.frames[msg.Frame]; !found {
		log.Panicf("miss reply for frame %d that was never loaded", msg.Frame)
	}

	c.install(msg.Key(), msg.ThreadID, msg.Frame)
}

func (c *Comp) install(key vm.GVPKey, threadID uint32, frame vm.FrameID) {
	c.clock++

	if e, found := c.tlb[key]; found && e.frame == frame {
		e.lastUse = c.clock
		c.threadDone(threadID, key, ThreadResolved)

		return
	}

	c.tlb[key] = &entry{
		frame:   frame,
		dirty:   key.Kind() == vm.AccessStore,
		lastUse: c.clock,
	}

	c.threadDone(threadID, key, ThreadResolved)
}

func (c *Comp) threadDone(threadID uint32, key vm.GVPKey, state ThreadState) {
	t, found := c.threads[threadID]
	if !found || t.state != ThreadWaiting || t.key != key {
		log.Panicf("reply for %s to thread %d that is not waiting for it",
			key, threadID)
	}

	t.state = state
}

func (c *Comp) handleEvictRequest(msg *vm.EvictRequest) {
	if msg.FlushICache {
		c.stats.ICacheFlushes++
	}

	key := msg.Key()
	if _, found := c.tlb[key]; !found {
		return
	}

	c.stats.RequestedEvicts++
	c.evict(key)
}

func (c *Comp) evict(key vm.GVPKey) {
	e := c.tlb[key]
	delete(c.tlb, key)

	notify := vm.PageEvictNotifyBuilder{}.
		WithSrc(c.port.AsRemote()).
		WithDst(c.mmu).
		WithKey(key).
		WithModified(e.dirty).
		Build()
	c.send(notify)

	if !e.dirty {
		return
	}

	c.stats.Writebacks++
	c.writebacks[e.frame] = clonePage(c.frames[e.frame])

	done := vm.PageEvictDoneBuilder{}.
		WithSrc(c.port.AsRemote()).
		WithDst(c.mmu).
		WithKey(key).
		WithFrame(e.frame).
		Build()

	if c.deferWritebacks {
		c.deferred = append(c.deferred, done)
		return
	}

	c.send(done)
}

func (c *Comp) leastRecentlyUsed() vm.GVPKey {
	var (
		victim vm.GVPKey
		oldest *entry
	)

	for key, e := range c.tlb {
		if oldest == nil ||
			e.lastUse < oldest.lastUse ||
			(e.lastUse == oldest.lastUse && key < victim) {
			victim, oldest = key, e
		}
	}

	return victim
}

func (c *Comp) numWaiting() int {
	n := 0

	for _, t := range c.threads {
		if t.state == ThreadWaiting {
			n++
		}
	}

	return n
}

func (c *Comp) send(msg sim.Msg) {
	if err := c.port.Send(msg); err != nil {
		panic(fmt.Sprintf("%s: link to the MMU is congested", c.Name()))
	}
}

func clonePage(data []byte) []byte {
	page := make([]byte, vm.PageSize)
	copy(page, data)

	return page
}
