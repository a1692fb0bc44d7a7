package vm

// A Translator maps a guest access to the host page that backs it. The second
// return value is false if the address is not mapped for that kind of
// access.
type Translator interface {
	Translate(asid ASID, va uint64, kind AccessKind) (HVP, bool)
}

// PageTableTranslator translates through a guest PageTable.
type PageTableTranslator struct {
	PageTable PageTable
}

// NewPageTableTranslator creates a translator backed by the page table.
func NewPageTableTranslator(pt PageTable) *PageTableTranslator {
	return &PageTableTranslator{PageTable: pt}
}

// Translate looks up the page and checks its permission.
func (t *PageTableTranslator) Translate(
	asid ASID,
	va uint64,
	kind AccessKind,
) (HVP, bool) {
	page, found := t.PageTable.Find(asid, va)
	if !found || !page.Valid || !page.Perm.Allows(kind) {
		return 0, false
	}

	return page.HVP, true
}
