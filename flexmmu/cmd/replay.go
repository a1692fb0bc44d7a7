package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/accel"
	"github.com/sarchlab/flexmmu/mem/vm/residency"
	"github.com/sarchlab/flexmmu/monitoring"
)

// A Summary reports the outcome of a replay.
type Summary struct {
	Ops              int
	Hits             uint64
	Misses           uint64
	PermissionFaults uint64
	SelfEvictions    uint64
	Flushed          int
	Synchronized     int
	Snapshot         residency.Snapshot
}

// replayer drives the accelerator model through the operations of a trace.
// Everything touching the accelerator or the MMU runs through Do.
type replayer struct {
	sys        *system
	acc        *accel.Comp
	translator vm.Translator
	logger     logrus.FieldLogger
	bar        *monitoring.ProgressBar
	summary    Summary
}

func (r *replayer) replay(ctx context.Context, ops []Op) error {
	if r.bar != nil {
		r.bar.Begin(uint64(len(ops)))
	}

	for i, op := range ops {
		if err := r.step(ctx, op); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}

		r.summary.Ops++

		if r.bar != nil {
			r.bar.Done(1)
		}
	}

	return r.sys.mmu.Do(ctx, func() {
		stats := r.acc.Stats()
		r.summary.Hits = stats.Hits
		r.summary.Misses = stats.Misses
		r.summary.PermissionFaults = stats.PermissionFaults
		r.summary.SelfEvictions = stats.SelfEvictions
		r.summary.Snapshot = r.sys.mmu.State().Snapshot()
	})
}

func (r *replayer) step(ctx context.Context, op Op) error {
	switch op.Op {
	case OpAccess:
		return r.access(ctx, op)
	case OpFlush:
		return r.flush(ctx, op)
	case OpSync:
		return r.sync(ctx, op)
	case OpEvict:
		return r.evict(ctx, op)
	default:
		return fmt.Errorf("unknown operation %q", op.Op)
	}
}

func (r *replayer) access(ctx context.Context, op Op) error {
	asid, kind := vm.ASID(op.ASID), vm.AccessKind(op.Kind)
	faulted := false

	err := r.sys.mmu.Do(ctx, func() {
		if !r.acc.Access(op.Thread, asid, op.VA, kind) {
			r.sys.mmu.TickUntil(func() bool {
				return r.acc.ThreadState(op.Thread) != accel.ThreadWaiting
			})

			faulted = r.acc.ThreadState(op.Thread) == accel.ThreadFaulted
		}

		if !faulted && op.Value != nil {
			r.acc.Store(asid, op.VA, *op.Value)
		}
	})

	if faulted {
		r.logger.WithFields(logrus.Fields{
			"thread": op.Thread,
			"asid":   asid,
			"va":     fmt.Sprintf("0x%x", op.VA),
			"kind":   kind,
		}).Warn("access not permitted")
	}

	return err
}

func (r *replayer) flush(ctx context.Context, op Op) error {
	asid, va, hvp := vm.ASID(op.ASID), op.VA, vm.HVP(op.HVP)

	return r.sys.mmu.Do(ctx, func() {
		c := r.sys.mmu

		switch op.Scope {
		case ScopeVAASID:
			r.summary.Flushed += c.FlushByVAASID(va, asid)
		case ScopeVA:
			r.summary.Flushed += c.FlushByVA(va)
		case ScopeASID:
			r.summary.Flushed += c.FlushByASID(asid)
		case ScopeHVP:
			r.summary.Flushed += c.FlushByHVP(hvp)
		case ScopeHVPASID:
			r.summary.Flushed += c.FlushByHVPASID(hvp, asid)
		case ScopeAll:
			r.summary.Flushed += c.FlushAll()
		}
	})
}

// sync prepares a page for an access of the emulator and then performs it.
// A store writes its value into host memory.
func (r *replayer) sync(ctx context.Context, op Op) error {
	asid, kind := vm.ASID(op.ASID), vm.AccessKind(op.Kind)

	var (
		synchronized bool
		syncErr      error
	)

	err := r.sys.mmu.Do(ctx, func() {
		synchronized, syncErr = r.sys.mmu.SynchronizePage(asid, op.VA, kind)
	})
	if err != nil {
		return err
	}

	if syncErr != nil {
		return syncErr
	}

	if synchronized {
		r.summary.Synchronized++
	}

	if op.Value == nil || kind != vm.AccessStore {
		return nil
	}

	hvp, ok := r.translator.Translate(asid, op.VA, kind)
	if !ok {
		return fmt.Errorf("store to 0x%x in address space %d is not mapped", op.VA, asid)
	}

	addr := uint64(vm.HVPOf(uint64(hvp))) + op.VA%vm.PageSize

	return r.sys.host.Write(addr, []byte{*op.Value})
}

func (r *replayer) evict(ctx context.Context, op Op) error {
	key := vm.NewGVPKey(op.VA, vm.ASID(op.ASID), vm.AccessKind(op.Kind))

	return r.sys.mmu.Do(ctx, func() {
		r.acc.Evict(key)
	})
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "ops:               %d\n", s.Ops)
	fmt.Fprintf(w, "hits:              %d\n", s.Hits)
	fmt.Fprintf(w, "misses:            %d\n", s.Misses)
	fmt.Fprintf(w, "permission faults: %d\n", s.PermissionFaults)
	fmt.Fprintf(w, "self evictions:    %d\n", s.SelfEvictions)
	fmt.Fprintf(w, "flushed keys:      %d\n", s.Flushed)
	fmt.Fprintf(w, "synchronizations:  %d\n", s.Synchronized)
	fmt.Fprintf(w, "resident pages:    %d\n", len(s.Snapshot.Resident))
	fmt.Fprintf(w, "free frames:       %d/%d\n",
		s.Snapshot.FreeFrames, s.Snapshot.TotalFrames)
}
