package residency

import (
	"fmt"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// A Registration tells how a key joined the inverted page table.
type Registration int

// The registration results.
const (
	// FirstResident means the host page was not resident. The caller must
	// allocate a frame and load the page.
	FirstResident Registration = iota

	// Synonym means the host page is already resident under another key
	// and its frame is reused.
	Synonym
)

func (r Registration) String() string {
	if r == FirstResident {
		return "first-resident"
	}

	return "synonym"
}

type iptHandle int

type iptEntry struct {
	hvp      vm.HVP
	synonyms []vm.GVPKey
}

// InvertedPageTable maps a host page to the ordered list of guest keys that
// alias it on the accelerator. Entries live in an arena and the index holds
// their handles, so removing an entry never invalidates another one.
type InvertedPageTable struct {
	index map[vm.HVP]iptHandle
	arena []iptEntry
	free  []iptHandle
}

// NewInvertedPageTable creates an empty table.
func NewInvertedPageTable() *InvertedPageTable {
	return &InvertedPageTable{
		index: make(map[vm.HVP]iptHandle),
	}
}

// Register adds key to the synonyms of hvp. An exact duplicate is not added
// again; it reports Synonym together with ErrDuplicateKey.
func (t *InvertedPageTable) Register(
	hvp vm.HVP,
	key vm.GVPKey,
) (Registration, error) {
	h, found := t.index[hvp]
	if !found {
		h = t.alloc(hvp)
		t.arena[h].synonyms = append(t.arena[h].synonyms, key)

		return FirstResident, nil
	}

	entry := &t.arena[h]
	for _, k := range entry.synonyms {
		if k == key {
			return Synonym, fmt.Errorf("%w: %s at %s", ErrDuplicateKey, key, hvp)
		}
	}

	entry.synonyms = append(entry.synonyms, key)

	return Synonym, nil
}

// Lookup returns a copy of the synonyms of hvp, oldest first.
func (t *InvertedPageTable) Lookup(hvp vm.HVP) []vm.GVPKey {
	h, found := t.index[hvp]
	if !found {
		return nil
	}

	synonyms := t.arena[h].synonyms
	out := make([]vm.GVPKey, len(synonyms))
	copy(out, synonyms)

	return out
}

// Has reports whether hvp has at least one synonym.
func (t *InvertedPageTable) Has(hvp vm.HVP) bool {
	_, found := t.index[hvp]
	return found
}

// Count returns the number of synonyms of hvp.
func (t *InvertedPageTable) Count(hvp vm.HVP) int {
	h, found := t.index[hvp]
	if !found {
		return 0
	}

	return len(t.arena[h].synonyms)
}

// Len returns the number of resident host pages.
func (t *InvertedPageTable) Len() int {
	return len(t.index)
}

// HVPs returns the resident host pages in no particular order.
func (t *InvertedPageTable) HVPs() []vm.HVP {
	out := make([]vm.HVP, 0, len(t.index))
	for hvp := range t.index {
		out = append(out, hvp)
	}

	return out
}

// Evict removes one synonym of hvp. The exact key is preferred; otherwise the
// first synonym of the same page with any access kind is removed. last is
// true if hvp has no synonym left and its entry is gone.
func (t *InvertedPageTable) Evict(
	hvp vm.HVP,
	key vm.GVPKey,
) (removed vm.GVPKey, last bool, err error) {
	h, found := t.index[hvp]
	if !found {
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownHVP, hvp)
	}

	entry := &t.arena[h]

	i := indexOf(entry.synonyms, func(k vm.GVPKey) bool { return k == key })
	if i < 0 {
		i = indexOf(entry.synonyms, key.SamePage)
	}

	if i < 0 {
		return 0, false, fmt.Errorf("%w: %s at %s", ErrUnknownKey, key, hvp)
	}

	removed = entry.synonyms[i]
	entry.synonyms = append(entry.synonyms[:i], entry.synonyms[i+1:]...)

	if len(entry.synonyms) > 0 {
		return removed, false, nil
	}

	t.release(h)

	return removed, true, nil
}

// HighestKind returns the strongest access kind among the synonyms of hvp
// that name the same page as key. The bool is false if none does.
func (t *InvertedPageTable) HighestKind(
	hvp vm.HVP,
	key vm.GVPKey,
) (vm.AccessKind, bool) {
	h, found := t.index[hvp]
	if !found {
		return 0, false
	}

	var (
		highest vm.AccessKind
		seen    bool
	)

	for _, k := range t.arena[h].synonyms {
		if !k.SamePage(key) {
			continue
		}

		if !seen || k.Kind().Stronger(highest) {
			highest = k.Kind()
		}

		seen = true
	}

	return highest, seen
}

func (t *InvertedPageTable) alloc(hvp vm.HVP) iptHandle {
	var h iptHandle

	if n := len(t.free); n > 0 {
		h = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.arena = append(t.arena, iptEntry{})
		h = iptHandle(len(t.arena) - 1)
	}

	t.arena[h] = iptEntry{hvp: hvp}
	t.index[hvp] = h

	return h
}

func (t *InvertedPageTable) release(h iptHandle) {
	delete(t.index, t.arena[h].hvp)
	t.arena[h] = iptEntry{}
	t.free = append(t.free, h)
}

func indexOf(keys []vm.GVPKey, match func(vm.GVPKey) bool) int {
	for i, k := range keys {
		if match(k) {
			return i
		}
	}

	return -1
}
