package mmu

import (
	"log"
	"time"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/residency"
	"github.com/sarchlab/flexmmu/sim"
)

// A Builder can build MMU components.
type Builder struct {
	translator   vm.Translator
	hostMemory   HostMemory
	pageBuffer   PageBuffer
	cores        CoreRegistry
	state        *residency.State
	stateBuilder residency.Builder
	accelerator  sim.RemotePort
	pollInterval time.Duration
	portBufSize  int
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		stateBuilder: residency.MakeBuilder(),
		pollInterval: time.Millisecond,
		portBufSize:  4096,
	}
}

// WithTranslator sets the service that translates guest accesses.
func (b Builder) WithTranslator(t vm.Translator) Builder {
	b.translator = t
	return b
}

// WithHostMemory sets the memory that pages are loaded from and written back
// to.
func (b Builder) WithHostMemory(m HostMemory) Builder {
	b.hostMemory = m
	return b
}

// WithPageBuffer sets the DMA buffer of the accelerator.
func (b Builder) WithPageBuffer(p PageBuffer) Builder {
	b.pageBuffer = p
	return b
}

// WithCoreRegistry sets the registry used to notify cores. It is optional.
func (b Builder) WithCoreRegistry(r CoreRegistry) Builder {
	b.cores = r
	return b
}

// WithState uses an existing residency state instead of building one.
func (b Builder) WithState(s *residency.State) Builder {
	b.state = s
	return b
}

// WithFrames sets the number of accelerator frames.
func (b Builder) WithFrames(n uint64) Builder {
	b.stateBuilder = b.stateBuilder.WithFrames(n)
	return b
}

// WithFrameBase sets the accelerator address of the first frame.
func (b Builder) WithFrameBase(addr uint64) Builder {
	b.stateBuilder = b.stateBuilder.WithFrameBase(addr)
	return b
}

// WithLog2PageSize sets the page size used to number the frames.
func (b Builder) WithLog2PageSize(n uint) Builder {
	b.stateBuilder = b.stateBuilder.WithLog2PageSize(n)
	return b
}

// WithPendingLimit sets the capacity of the pending registries.
func (b Builder) WithPendingLimit(n int) Builder {
	b.stateBuilder = b.stateBuilder.WithPendingLimit(n)
	return b
}

// WithAccelerator sets the remote port that eviction requests are sent to.
func (b Builder) WithAccelerator(p sim.RemotePort) Builder {
	b.accelerator = p
	return b
}

// WithPollInterval sets how long Run sleeps when there is nothing to do.
func (b Builder) WithPollInterval(d time.Duration) Builder {
	b.pollInterval = d
	return b
}

// WithPortBufferSize sets the capacity of the port buffers.
func (b Builder) WithPortBufferSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build returns a newly created MMU component.
func (b Builder) Build(name string) *Comp {
	b.mustBeComplete()

	c := &Comp{
		ComponentBase: sim.NewComponentBase(name),
		translator:    b.translator,
		hostMemory:    b.hostMemory,
		pageBuffer:    b.pageBuffer,
		cores:         b.cores,
		state:         b.state,
		accelerator:   b.accelerator,
		pollInterval:  b.pollInterval,
		awaiting:      make(map[vm.GVPKey]bool),
		requests:      make(chan func()),
		wake:          make(chan struct{}, 1),
	}

	if c.state == nil {
		c.state = b.stateBuilder.Build()
	}

	b.createPorts(name, c)

	c.AddMiddleware(&middleware{Comp: c})

	return c
}

func (b Builder) mustBeComplete() {
	if b.translator == nil {
		log.Panic("mmu: a translator is required")
	}

	if b.hostMemory == nil {
		log.Panic("mmu: host memory is required")
	}

	if b.pageBuffer == nil {
		log.Panic("mmu: a page buffer is required")
	}
}

func (b Builder) createPorts(name string, c *Comp) {
	c.topPort = sim.NewPort(c, b.portBufSize, b.portBufSize, sim.BuildName(name, "TopPort"))
	c.AddPort("Top", c.topPort)

	c.topSender = sim.NewBufferedSender(
		c.topPort, sim.NewBuffer(name+".TopSenderBuf", senderBufSize))
}
