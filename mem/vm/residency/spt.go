package residency

import (
	"fmt"
	"log"
	"slices"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// ShadowPageTable records which accelerator frame holds each resident host
// page. No two host pages hold the same frame.
type ShadowPageTable struct {
	frames map[vm.HVP]vm.FrameID
	owners map[vm.FrameID]vm.HVP
}

// NewShadowPageTable creates an empty table.
func NewShadowPageTable() *ShadowPageTable {
	return &ShadowPageTable{
		frames: make(map[vm.HVP]vm.FrameID),
		owners: make(map[vm.FrameID]vm.HVP),
	}
}

// Add records that hvp lives in frame.
func (t *ShadowPageTable) Add(hvp vm.HVP, frame vm.FrameID) error {
	if _, found := t.frames[hvp]; found {
		return fmt.Errorf("%w: %s already has a frame", ErrDuplicateKey, hvp)
	}

	if owner, found := t.owners[frame]; found {
		return fmt.Errorf("%w: frame %d belongs to %s", ErrFrameAliased, frame, owner)
	}

	t.frames[hvp] = frame
	t.owners[frame] = hvp

	return nil
}

// Remove forgets hvp and returns the frame it held.
func (t *ShadowPageTable) Remove(hvp vm.HVP) (vm.FrameID, error) {
	frame, found := t.frames[hvp]
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrUnknownHVP, hvp)
	}

	delete(t.frames, hvp)
	delete(t.owners, frame)

	return frame, nil
}

// Has reports whether hvp is resident.
func (t *ShadowPageTable) Has(hvp vm.HVP) bool {
	_, found := t.frames[hvp]
	return found
}

// Lookup returns the frame of hvp. Callers must check Has first.
func (t *ShadowPageTable) Lookup(hvp vm.HVP) vm.FrameID {
	frame, found := t.frames[hvp]
	if !found {
		log.Panicf("host page %s is not in the shadow page table", hvp)
	}

	return frame
}

// Owner returns the host page that holds frame.
func (t *ShadowPageTable) Owner(frame vm.FrameID) (vm.HVP, bool) {
	hvp, found := t.owners[frame]
	return hvp, found
}

// AllKeys returns the resident host pages in ascending order.
func (t *ShadowPageTable) AllKeys() []vm.HVP {
	keys := make([]vm.HVP, 0, len(t.frames))
	for hvp := range t.frames {
		keys = append(keys, hvp)
	}

	slices.Sort(keys)

	return keys
}

// Len returns the number of resident host pages.
func (t *ShadowPageTable) Len() int {
	return len(t.frames)
}
