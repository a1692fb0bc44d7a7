package accel

import (
	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/sim"
)

// A Builder can build accelerator models.
type Builder struct {
	capacity        int
	mmu             sim.RemotePort
	deferWritebacks bool
	portBufSize     int
}

// MakeBuilder creates a builder for an accelerator that holds 64 pages.
func MakeBuilder() Builder {
	return Builder{
		capacity:    64,
		portBufSize: 4096,
	}
}

// WithCapacity sets the number of translations the accelerator can hold.
func (b Builder) WithCapacity(n int) Builder {
	b.capacity = n
	return b
}

// WithMMU sets the port of the MMU that faults and evictions are reported to.
func (b Builder) WithMMU(p sim.RemotePort) Builder {
	b.mmu = p
	return b
}

// WithDeferredWritebacks holds back the completion of write backs until
// CompleteWritebacks is called.
func (b Builder) WithDeferredWritebacks(d bool) Builder {
	b.deferWritebacks = d
	return b
}

// WithPortBufferSize sets the capacity of the port buffers.
func (b Builder) WithPortBufferSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates the accelerator.
func (b Builder) Build(name string) *Comp {
	if b.capacity <= 0 {
		panic("accelerator capacity must be positive")
	}

	c := &Comp{
		ComponentBase:   sim.NewComponentBase(name),
		mmu:             b.mmu,
		capacity:        b.capacity,
		deferWritebacks: b.deferWritebacks,
		tlb:             make(map[vm.GVPKey]*entry),
		frames:          make(map[vm.FrameID][]byte),
		staged:          make(map[vm.FrameID][]byte),
		writebacks:      make(map[vm.FrameID][]byte),
		threads:         make(map[uint32]*thread),
	}

	c.port = sim.NewPort(c, b.portBufSize, b.portBufSize, sim.BuildName(name, "Port"))
	c.AddPort("MMU", c.port)

	return c
}
