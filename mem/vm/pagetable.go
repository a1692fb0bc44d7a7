package vm

import (
	"fmt"
	"sync"
)

// Perm is a set of access permissions on a guest page.
type Perm uint8

// The permission bits.
const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// Allows reports whether the permission set admits the access kind.
func (p Perm) Allows(kind AccessKind) bool {
	switch kind {
	case AccessLoad:
		return p&PermRead != 0
	case AccessStore:
		return p&PermWrite != 0
	case AccessFetch:
		return p&PermExec != 0
	default:
		return false
	}
}

// A Page is an entry in the guest page table, maintaining the information
// about which host page backs a guest virtual page.
type Page struct {
	ASID  ASID
	VAddr uint64
	HVP   HVP
	Perm  Perm
	Valid bool
}

// A PageTable holds the guest mappings of every address space.
type PageTable interface {
	Insert(page Page)
	Remove(asid ASID, vAddr uint64)
	Find(asid ASID, vAddr uint64) (Page, bool)
	Update(page Page)
}

// NewPageTable creates a new PageTable.
func NewPageTable() PageTable {
	return &pageTableImpl{
		tables: make(map[ASID]*addressSpaceTable),
	}
}

type pageTableImpl struct {
	sync.Mutex
	tables map[ASID]*addressSpaceTable
}

func (pt *pageTableImpl) getTable(asid ASID) *addressSpaceTable {
	pt.Lock()
	defer pt.Unlock()

	table, found := pt.tables[asid]
	if !found {
		table = &addressSpaceTable{
			entries: make(map[uint64]Page),
		}
		pt.tables[asid] = table
	}

	return table
}

func alignToPage(addr uint64) uint64 {
	return addr &^ (PageSize - 1)
}

// Insert puts a new page into the PageTable. Inserting a page twice panics.
func (pt *pageTableImpl) Insert(page Page) {
	page.VAddr = alignToPage(page.VAddr)
	pt.getTable(page.ASID).insert(page)
}

// Remove removes the entry in the page table that contains the target
// address.
func (pt *pageTableImpl) Remove(asid ASID, vAddr uint64) {
	pt.getTable(asid).remove(alignToPage(vAddr))
}

// Find returns the page that contains the given virtual address. The bool
// return value indicates if the page is found or not.
func (pt *pageTableImpl) Find(asid ASID, vAddr uint64) (Page, bool) {
	return pt.getTable(asid).find(alignToPage(vAddr))
}

// Update changes the field of an existing page. The ASID and the VAddr field
// will be used to locate the page to update.
func (pt *pageTableImpl) Update(page Page) {
	page.VAddr = alignToPage(page.VAddr)
	pt.getTable(page.ASID).update(page)
}

type addressSpaceTable struct {
	sync.Mutex
	entries map[uint64]Page
}

func (t *addressSpaceTable) insert(page Page) {
	t.Lock()
	defer t.Unlock()

	if _, found := t.entries[page.VAddr]; found {
		panic(fmt.Sprintf("page 0x%x already exists", page.VAddr))
	}

	t.entries[page.VAddr] = page
}

func (t *addressSpaceTable) remove(vAddr uint64) {
	t.Lock()
	defer t.Unlock()

	t.pageMustExist(vAddr)
	delete(t.entries, vAddr)
}

func (t *addressSpaceTable) update(page Page) {
	t.Lock()
	defer t.Unlock()

	t.pageMustExist(page.VAddr)
	t.entries[page.VAddr] = page
}

func (t *addressSpaceTable) find(vAddr uint64) (Page, bool) {
	t.Lock()
	defer t.Unlock()

	page, found := t.entries[vAddr]

	return page, found
}

func (t *addressSpaceTable) pageMustExist(vAddr uint64) {
	if _, found := t.entries[vAddr]; !found {
		panic("page does not exist")
	}
}
