package tracing

import (
	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/sim"
)

// HookPosResidency marks a change of the residency state, or a decision
// about it.
var HookPosResidency = &sim.HookPos{Name: "Residency"}

// An EventKind tells what happened to a page.
type EventKind string

// The residency events.
const (
	EventFirstResident   EventKind = "first_resident"
	EventSynonym         EventKind = "synonym"
	EventAlreadyResident EventKind = "already_resident"
	EventPermissionFault EventKind = "permission_fault"
	EventFaultDeferred   EventKind = "fault_deferred"
	EventFaultReplayed   EventKind = "fault_replayed"
	EventEvicted         EventKind = "evicted"
	EventEvictPending    EventKind = "evict_pending"
	EventWrittenBack     EventKind = "written_back"
	EventEvictRequested  EventKind = "evict_requested"
	EventFlush           EventKind = "flush"
	EventSynchronize     EventKind = "synchronize"
	EventFatal           EventKind = "fatal"
)

// A ResidencyEvent is the item of hooks invoked at HookPosResidency.
type ResidencyEvent struct {
	Kind     EventKind
	Key      vm.GVPKey
	HVP      vm.HVP
	Frame    vm.FrameID
	ThreadID uint32

	// Count is the number of pages a flush or a synchronization evicted.
	Count int

	// Err is set on fatal events.
	Err error
}
