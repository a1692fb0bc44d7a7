package cmd

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flexmmu/mem/vm/residency"
)

var _ = Describe("Run", func() {
	var (
		cfg Config
		ctx context.Context
	)

	BeforeEach(func() {
		cfg = DefaultConfig()
		cfg.Frames = 4
		cfg.HostMemory = 1 << 20
		cfg.LogLevel = "error"

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)
	})

	parse := func(s string) *Trace {
		trace, err := ParseTrace(strings.NewReader(s))
		Expect(err).NotTo(HaveOccurred())

		return trace
	}

	It("should replay a trace", func() {
		trace := parse(`
pages:
  - {asid: 1, va: 0x1000, hvp: 0x40000, perm: rw, fill: 7}
ops:
  - {op: access, thread: 1, asid: 1, va: 0x1000}
  - {op: access, thread: 1, asid: 1, va: 0x1010}
  - {op: access, thread: 2, asid: 1, va: 0x1020, kind: store, value: 9}
  - {op: sync, asid: 1, va: 0x1000}
`)

		summary, err := runTrace(ctx, cfg, trace, runOptions{})

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Ops).To(Equal(4))
		Expect(summary.Hits).To(Equal(uint64(1)))
		Expect(summary.Misses).To(Equal(uint64(2)))
		Expect(summary.Synchronized).To(Equal(1))
		Expect(summary.Snapshot.Resident).To(BeEmpty())
		Expect(summary.Snapshot.FreeFrames).To(Equal(4))
	})

	It("should count a permission fault", func() {
		trace := parse(`
pages:
  - {asid: 1, va: 0x1000, hvp: 0x40000, perm: r}
ops:
  - {op: access, thread: 1, asid: 1, va: 0x1000, kind: store}
  - {op: access, thread: 1, asid: 1, va: 0x1000}
  - {op: flush, scope: all}
`)

		summary, err := runTrace(ctx, cfg, trace, runOptions{})

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.PermissionFaults).To(Equal(uint64(1)))
		Expect(summary.Flushed).To(Equal(1))
		Expect(summary.Snapshot.Resident).To(BeEmpty())
	})

	It("should self-evict when the accelerator is full", func() {
		cfg.AccelCapacity = 1

		trace := parse(`
pages:
  - {asid: 1, va: 0x1000, hvp: 0x40000, perm: rw}
  - {asid: 1, va: 0x2000, hvp: 0x41000, perm: rw}
ops:
  - {op: access, thread: 1, asid: 1, va: 0x1000}
  - {op: access, thread: 1, asid: 1, va: 0x2000}
`)

		summary, err := runTrace(ctx, cfg, trace, runOptions{})

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.SelfEvictions).To(Equal(uint64(1)))
		Expect(summary.Snapshot.Resident).To(HaveLen(1))
	})

	It("should return a fatal error when the frames run out", func() {
		cfg.Frames = 1

		trace := parse(`
pages:
  - {asid: 1, va: 0x1000, hvp: 0x40000, perm: rw}
  - {asid: 1, va: 0x2000, hvp: 0x41000, perm: rw}
ops:
  - {op: access, thread: 1, asid: 1, va: 0x1000}
  - {op: access, thread: 2, asid: 1, va: 0x2000}
`)

		_, err := runTrace(ctx, cfg, trace, runOptions{})

		var fe *residency.FatalError
		Expect(err).To(BeAssignableToTypeOf(fe))
		Expect(err.(*residency.FatalError).Class).
			To(Equal(residency.CapacityExhausted))
	})
})
