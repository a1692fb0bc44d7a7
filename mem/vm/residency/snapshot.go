package residency

import "github.com/sarchlab/flexmmu/mem/vm"

// ResidentPage is a host page resident on the accelerator.
type ResidentPage struct {
	HVP   vm.HVP      `json:"hvp"`
	Frame vm.FrameID  `json:"frame"`
	Keys  []vm.GVPKey `json:"keys"`
}

// A Snapshot is a copy of the residency state that can be read outside the
// dispatcher.
type Snapshot struct {
	Resident         []ResidentPage    `json:"resident"`
	FreeFrames       int               `json:"free_frames"`
	TotalFrames      uint64            `json:"total_frames"`
	PendingFaults    []PendingFault    `json:"pending_faults"`
	PendingEvictions []PendingEviction `json:"pending_evictions"`
}

// Snapshot copies the state, ordered by host page.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Resident:         make([]ResidentPage, 0, s.SPT.Len()),
		FreeFrames:       s.Frames.Len(),
		TotalFrames:      s.Frames.Capacity(),
		PendingFaults:    s.PendingFaults.All(),
		PendingEvictions: s.PendingEvictions.All(),
	}

	for _, hvp := range s.SPT.AllKeys() {
		snap.Resident = append(snap.Resident, ResidentPage{
			HVP:   hvp,
			Frame: s.SPT.Lookup(hvp),
			Keys:  s.IPT.Lookup(hvp),
		})
	}

	return snap
}
