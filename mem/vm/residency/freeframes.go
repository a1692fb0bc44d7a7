package residency

import (
	"fmt"

	"github.com/google/btree"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// FreeFramePool holds the accelerator frames that no host page occupies. The
// lowest free frame is always handed out first.
type FreeFramePool struct {
	free  *btree.BTreeG[vm.FrameID]
	first vm.FrameID
	total uint64
}

// NewFreeFramePool seeds a pool with totalFrames frames, starting at the
// frame that holds baseAddress.
func NewFreeFramePool(
	totalFrames uint64,
	baseAddress uint64,
	log2PageSize uint,
) *FreeFramePool {
	p := &FreeFramePool{
		free: btree.NewG(32, func(a, b vm.FrameID) bool {
			return a < b
		}),
		first: vm.FrameID(baseAddress >> log2PageSize),
		total: totalFrames,
	}

	for i := uint64(0); i < totalFrames; i++ {
		p.free.ReplaceOrInsert(p.first + vm.FrameID(i))
	}

	return p
}

// Get takes a frame out of the pool.
func (p *FreeFramePool) Get() (vm.FrameID, error) {
	frame, ok := p.free.DeleteMin()
	if !ok {
		return 0, ErrFramesExhausted
	}

	return frame, nil
}

// Push returns a frame to the pool. The caller must make sure that no host
// page still holds it.
func (p *FreeFramePool) Push(frame vm.FrameID) error {
	if !p.Owns(frame) {
		return fmt.Errorf("%w: %d", ErrForeignFrame, frame)
	}

	if _, replaced := p.free.ReplaceOrInsert(frame); replaced {
		return fmt.Errorf("%w: %d", ErrDoubleFree, frame)
	}

	return nil
}

// Owns reports whether frame was seeded into the pool.
func (p *FreeFramePool) Owns(frame vm.FrameID) bool {
	return frame >= p.first && uint64(frame-p.first) < p.total
}

// IsFree reports whether frame is currently in the pool.
func (p *FreeFramePool) IsFree(frame vm.FrameID) bool {
	return p.free.Has(frame)
}

// Len returns the number of free frames.
func (p *FreeFramePool) Len() int {
	return p.free.Len()
}

// Capacity returns the number of frames the pool was seeded with.
func (p *FreeFramePool) Capacity() uint64 {
	return p.total
}
