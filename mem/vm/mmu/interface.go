package mmu

import "github.com/sarchlab/flexmmu/mem/vm"

// HostMemory gives access to the pages of the emulated machine.
type HostMemory interface {
	ReadPage(hvp vm.HVP) ([]byte, error)
	WritePage(hvp vm.HVP, data []byte) error
}

// A PageBuffer is the accelerator's DMA area through which page contents
// move. PushPage stages a page before a PageLoad; FetchPage returns the page
// written back before a PageEvictDone.
type PageBuffer interface {
	PushPage(frame vm.FrameID, data []byte)
	FetchPage(frame vm.FrameID) []byte
}

// A Core is an emulated core that waits for the accelerator threads it
// offloaded.
type Core interface {
	FaultResolved(key vm.GVPKey, threadID uint32)
	PermissionFault(key vm.GVPKey, threadID uint32)
}

// CoreRegistry finds the core that runs an address space.
type CoreRegistry interface {
	CoreForAddressSpace(asid vm.ASID) (Core, bool)
}
