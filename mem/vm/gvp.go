package vm

import "fmt"

// Log2PageSize is the page granularity shared by the emulator and the
// accelerator.
const Log2PageSize = 12

// PageSize is the size of a page in bytes.
const PageSize = 1 << Log2PageSize

// An AccessKind is the permission a guest access requires.
type AccessKind uint8

// The access kinds, numbered as the accelerator reports them.
const (
	AccessLoad  AccessKind = 0
	AccessStore AccessKind = 1
	AccessFetch AccessKind = 2
)

func (k AccessKind) String() string {
	switch k {
	case AccessLoad:
		return "load"
	case AccessStore:
		return "store"
	case AccessFetch:
		return "fetch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Stronger reports whether k needs a stronger permission than other. A
// store is stronger than a load; an instruction fetch is its own class and
// is only stronger than a load.
func (k AccessKind) Stronger(other AccessKind) bool {
	return k != other && other == AccessLoad
}

// ASID identifies a guest address space. Only the low 15 bits are kept in a
// GVPKey.
type ASID uint16

// MaxASID is the largest address space id a GVPKey can hold.
const MaxASID ASID = 0x7fff

// HVP is the page-aligned host address that backs a guest page.
type HVP uint64

// HVPOf aligns a host address down to its page.
func HVPOf(addr uint64) HVP {
	return HVP(addr &^ (PageSize - 1))
}

func (h HVP) String() string {
	return fmt.Sprintf("0x%016x", uint64(h))
}

// FrameID is the physical page number of an accelerator frame.
type FrameID uint64

// GVPKey packs a guest virtual page together with its address space and the
// access kind.
//
//	| K  |  ASID  |  PAGE NUMBER  | unused | KIND |
//	| 63 | 62  48 | 47         12 | 11   2 | 1  0 |
type GVPKey uint64

const (
	keyKernelBit  uint64 = 1 << 63
	keyASIDShift         = 48
	keyASIDMask   uint64 = uint64(MaxASID) << keyASIDShift
	keyPageMask   uint64 = 0xfffffffff << Log2PageSize
	keyKindMask   uint64 = 0x3
	keyOffsetMask uint64 = PageSize - 1
	kernelVAHigh  uint64 = 0xffff << 48
)

// NewGVPKey builds the key of the page that contains va.
func NewGVPKey(va uint64, asid ASID, kind AccessKind) GVPKey {
	if asid > MaxASID {
		panic(fmt.Sprintf("asid %d does not fit in a GVPKey", asid))
	}

	return GVPKey(va&keyKernelBit |
		uint64(asid)<<keyASIDShift&keyASIDMask |
		va&keyPageMask |
		uint64(kind)&keyKindMask)
}

// IsKernel reports whether the key refers to a kernel half address.
func (k GVPKey) IsKernel() bool {
	return uint64(k)&keyKernelBit != 0
}

// ASID returns the address space of the key.
func (k GVPKey) ASID() ASID {
	return ASID((uint64(k) & keyASIDMask) >> keyASIDShift)
}

// PageNumber returns the virtual page number, without the kernel flag.
func (k GVPKey) PageNumber() uint64 {
	return (uint64(k) & keyPageMask) >> Log2PageSize
}

// VA returns the page-aligned virtual address. Kernel addresses get their
// upper 16 bits restored.
func (k GVPKey) VA() uint64 {
	va := uint64(k) & keyPageMask
	if k.IsKernel() {
		va |= kernelVAHigh
	}

	return va
}

// Kind returns the access kind carried by the key.
func (k GVPKey) Kind() AccessKind {
	return AccessKind(uint64(k) & keyKindMask)
}

// Compare drops the access kind, so that the same page under different
// permissions compares equal.
func (k GVPKey) Compare() GVPKey {
	return GVPKey(uint64(k) &^ keyOffsetMask)
}

// SamePage reports whether two keys name the same page in the same address
// space, regardless of the access kind.
func (k GVPKey) SamePage(other GVPKey) bool {
	return k.Compare() == other.Compare()
}

// WithKind returns the key of the same page with another access kind.
func (k GVPKey) WithKind(kind AccessKind) GVPKey {
	return k.Compare() | GVPKey(uint64(kind)&keyKindMask)
}

func (k GVPKey) String() string {
	return fmt.Sprintf("%d:0x%x:%s", k.ASID(), k.VA(), k.Kind())
}
