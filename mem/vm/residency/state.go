// Package residency keeps track of which guest pages are resident on the
// accelerator. The inverted, shadow and temporal page tables are three views
// of the same residency facts and are only changed together through State.
package residency

import (
	"errors"
	"fmt"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// ErrInconsistent is reported by the invariant checks.
var ErrInconsistent = errors.New("residency tables disagree")

// State owns the residency tables, the free frames, and the pending
// registries. It is not safe for concurrent use.
type State struct {
	IPT              *InvertedPageTable
	SPT              *ShadowPageTable
	TPT              *TemporalPageTable
	Frames           *FreeFramePool
	PendingFaults    *PendingFaults
	PendingEvictions *PendingEvictions
}

// A Resolution describes how a fault was resolved.
type Resolution struct {
	Registration Registration
	Frame        vm.FrameID

	// Source is the resident key whose translation is shared. It is only
	// set for synonyms.
	Source vm.GVPKey

	// Upgrade is set when Source is the same page with a weaker access kind.
	Upgrade bool
}

// Resolve makes key resident through hvp. A first resident page takes a frame
// from the pool; if none is left, nothing is changed and ErrFramesExhausted
// is returned.
func (s *State) Resolve(key vm.GVPKey, hvp vm.HVP) (Resolution, error) {
	if s.TPT.Has(key) && s.TPT.Lookup(key) != hvp {
		return Resolution{}, fmt.Errorf("%w: %s is resident through %s, not %s",
			ErrDuplicateKey, key, s.TPT.Lookup(key), hvp)
	}

	reg, err := s.IPT.Register(hvp, key)
	if err != nil {
		return s.synonymOf(key, hvp), err
	}

	if reg == Synonym {
		res := s.synonymOf(key, hvp)

		if err := s.TPT.Add(key, hvp); err != nil {
			s.rollbackRegister(hvp, key)
			return Resolution{}, err
		}

		return res, nil
	}

	frame, err := s.Frames.Get()
	if err != nil {
		s.rollbackRegister(hvp, key)
		return Resolution{}, fmt.Errorf("resolving %s: %w", key, err)
	}

	if err := s.SPT.Add(hvp, frame); err != nil {
		s.rollbackRegister(hvp, key)
		s.mustPush(frame)

		return Resolution{}, err
	}

	if err := s.TPT.Add(key, hvp); err != nil {
		s.rollbackRegister(hvp, key)
		_, _ = s.SPT.Remove(hvp)
		s.mustPush(frame)

		return Resolution{}, err
	}

	return Resolution{Registration: FirstResident, Frame: frame}, nil
}

func (s *State) synonymOf(key vm.GVPKey, hvp vm.HVP) Resolution {
	res := Resolution{Registration: Synonym}
	if s.SPT.Has(hvp) {
		res.Frame = s.SPT.Lookup(hvp)
	}

	found := false

	for _, k := range s.IPT.Lookup(hvp) {
		if k == key {
			continue
		}

		if !found {
			res.Source = k
			found = true
		}

		if k.SamePage(key) {
			res.Source = k
			res.Upgrade = key.Kind().Stronger(k.Kind())

			break
		}
	}

	return res
}

func (s *State) rollbackRegister(hvp vm.HVP, key vm.GVPKey) {
	if _, _, err := s.IPT.Evict(hvp, key); err != nil {
		panic(err)
	}
}

func (s *State) mustPush(frame vm.FrameID) {
	if err := s.Frames.Push(frame); err != nil {
		panic(err)
	}
}

// An Eviction describes what an eviction removed.
type Eviction struct {
	Key   vm.GVPKey
	Last  bool
	Frame vm.FrameID
}

// Evict removes key from the synonyms of hvp. When the last synonym goes, the
// host page leaves the shadow page table and its frame returns to the pool.
func (s *State) Evict(key vm.GVPKey, hvp vm.HVP) (Eviction, error) {
	removed, last, err := s.IPT.Evict(hvp, key)
	if err != nil {
		return Eviction{}, err
	}

	ev := Eviction{Key: removed, Last: last}

	if err := s.TPT.Remove(removed); err != nil {
		return ev, err
	}

	if !last {
		return ev, nil
	}

	ev.Frame, err = s.SPT.Remove(hvp)
	if err != nil {
		return ev, err
	}

	if err := s.Frames.Push(ev.Frame); err != nil {
		return ev, err
	}

	return ev, nil
}

// Select returns the resident keys, in ascending order, for which match
// returns true.
func (s *State) Select(match func(key vm.GVPKey, hvp vm.HVP) bool) []vm.GVPKey {
	var keys []vm.GVPKey

	for _, key := range s.TPT.AllKeys() {
		if match(key, s.TPT.Lookup(key)) {
			keys = append(keys, key)
		}
	}

	return keys
}

// IsResident reports whether key is resident.
func (s *State) IsResident(key vm.GVPKey) bool {
	return s.TPT.Has(key)
}

// HasTrace reports whether any table or registry still mentions hvp.
func (s *State) HasTrace(hvp vm.HVP) bool {
	return s.IPT.Has(hvp) ||
		s.SPT.Has(hvp) ||
		s.PendingEvictions.HasHVP(hvp) ||
		s.PendingFaults.HasHVP(hvp) ||
		len(s.Select(func(_ vm.GVPKey, h vm.HVP) bool { return h == hvp })) > 0
}

// CheckInvariants verifies that the three tables agree and that no frame is
// held twice or held while free.
func (s *State) CheckInvariants() error {
	var errs []error

	fail := func(format string, args ...any) {
		errs = append(errs,
			fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...)))
	}

	for _, hvp := range s.IPT.HVPs() {
		if !s.SPT.Has(hvp) {
			fail("%s has synonyms but no frame", hvp)
		}

		for _, key := range s.IPT.Lookup(hvp) {
			if !s.TPT.Has(key) {
				fail("synonym %s of %s is not in the temporal table", key, hvp)
			} else if s.TPT.Lookup(key) != hvp {
				fail("synonym %s of %s points to %s", key, hvp, s.TPT.Lookup(key))
			}
		}
	}

	for _, hvp := range s.SPT.AllKeys() {
		frame := s.SPT.Lookup(hvp)

		if !s.IPT.Has(hvp) {
			fail("%s holds frame %d without synonyms", hvp, frame)
		}

		if owner, _ := s.SPT.Owner(frame); owner != hvp {
			fail("frame %d is held by %s and %s", frame, hvp, owner)
		}

		if s.Frames.IsFree(frame) {
			fail("frame %d of %s is also free", frame, hvp)
		}
	}

	for _, key := range s.TPT.AllKeys() {
		hvp := s.TPT.Lookup(key)
		if !contains(s.IPT.Lookup(hvp), key) {
			fail("%s points to %s which does not list it", key, hvp)
		}
	}

	if used := uint64(s.SPT.Len()) + uint64(s.Frames.Len()); used != s.Frames.Capacity() {
		fail("%d frames in use and %d free out of %d",
			s.SPT.Len(), s.Frames.Len(), s.Frames.Capacity())
	}

	return errors.Join(errs...)
}

// CheckQuiescent reports pending entries that were never completed.
func (s *State) CheckQuiescent() error {
	var errs []error

	for _, f := range s.PendingFaults.All() {
		errs = append(errs, fmt.Errorf("%w: fault on %s by thread %d never resolved",
			ErrInconsistent, f.Key, f.Requester))
	}

	for _, e := range s.PendingEvictions.All() {
		errs = append(errs, fmt.Errorf("%w: write back of %s never completed",
			ErrInconsistent, e.Key))
	}

	return errors.Join(errs...)
}

func contains(keys []vm.GVPKey, key vm.GVPKey) bool {
	return indexOf(keys, func(k vm.GVPKey) bool { return k == key }) >= 0
}
