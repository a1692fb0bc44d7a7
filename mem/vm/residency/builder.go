package residency

import "github.com/sarchlab/flexmmu/mem/vm"

// A Builder can build residency states.
type Builder struct {
	frames       uint64
	frameBase    uint64
	log2PageSize uint
	pendingLimit int
}

// MakeBuilder creates a builder with a 64-frame accelerator at address 0.
func MakeBuilder() Builder {
	return Builder{
		frames:       64,
		log2PageSize: vm.Log2PageSize,
		pendingLimit: DefaultPendingLimit,
	}
}

// WithFrames sets the number of accelerator frames.
func (b Builder) WithFrames(n uint64) Builder {
	b.frames = n
	return b
}

// WithFrameBase sets the accelerator address of the first frame.
func (b Builder) WithFrameBase(addr uint64) Builder {
	b.frameBase = addr
	return b
}

// WithLog2PageSize sets the page size used to number the frames.
func (b Builder) WithLog2PageSize(n uint) Builder {
	b.log2PageSize = n
	return b
}

// WithPendingLimit sets the capacity of each pending registry.
func (b Builder) WithPendingLimit(n int) Builder {
	b.pendingLimit = n
	return b
}

// Build creates a State with every frame free.
func (b Builder) Build() *State {
	return &State{
		IPT:              NewInvertedPageTable(),
		SPT:              NewShadowPageTable(),
		TPT:              NewTemporalPageTable(),
		Frames:           NewFreeFramePool(b.frames, b.frameBase, b.log2PageSize),
		PendingFaults:    NewPendingFaults(b.pendingLimit),
		PendingEvictions: NewPendingEvictions(b.pendingLimit),
	}
}
