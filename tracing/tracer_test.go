package tracing

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/flexmmu/datarecording"
	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/sim"
)

type hookDomain struct {
	sim.HookableBase
}

var _ = Describe("CollectTrace", func() {
	It("should forward residency events only", func() {
		domain := &hookDomain{}
		counter := NewCountTracer()
		CollectTrace(domain, counter)

		domain.InvokeHook(sim.HookCtx{
			Domain: domain,
			Pos:    HookPosResidency,
			Item:   ResidencyEvent{Kind: EventSynonym},
		})
		domain.InvokeHook(sim.HookCtx{
			Domain: domain,
			Pos:    sim.HookPosPortMsgSend,
			Item:   ResidencyEvent{Kind: EventSynonym},
		})

		Expect(counter.Count(EventSynonym)).To(Equal(uint64(1)))
		Expect(counter.Kinds()).To(Equal([]EventKind{EventSynonym}))
	})
})

var _ = Describe("LogTracer", func() {
	var (
		logger *logrus.Logger
		hook   *logtest.Hook
		tracer *LogTracer
		key    vm.GVPKey
	)

	BeforeEach(func() {
		logger, hook = logtest.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		tracer = NewLogTracer(logger)
		key = vm.NewGVPKey(0x1000, 3, vm.AccessStore)
	})

	It("should log events with fields", func() {
		tracer.Trace(ResidencyEvent{
			Kind:     EventFirstResident,
			Key:      key,
			HVP:      0x8000,
			Frame:    5,
			ThreadID: 2,
		})

		entry := hook.LastEntry()
		Expect(entry.Level).To(Equal(logrus.DebugLevel))
		Expect(entry.Message).To(Equal("first_resident"))
		Expect(entry.Data).To(HaveKeyWithValue("asid", vm.ASID(3)))
		Expect(entry.Data).To(HaveKeyWithValue("frame", vm.FrameID(5)))
		Expect(entry.Data).To(HaveKeyWithValue("thread", uint32(2)))
	})

	It("should log fatal events as errors", func() {
		tracer.Trace(ResidencyEvent{Kind: EventFatal, Err: errors.New("boom")})

		entry := hook.LastEntry()
		Expect(entry.Level).To(Equal(logrus.ErrorLevel))
		Expect(entry.Data).To(HaveKey(logrus.ErrorKey))
	})
})

var _ = Describe("RecordingTracer", func() {
	It("should store events", func() {
		db, err := sql.Open("sqlite3",
			filepath.Join(GinkgoT().TempDir(), "events.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		tracer := NewRecordingTracer(datarecording.NewWithDB(db))
		kernel := vm.NewGVPKey(0xffff_8000_0000_1000, 1, vm.AccessFetch)

		tracer.Trace(ResidencyEvent{Kind: EventEvicted, Key: kernel, HVP: 0x8000})
		tracer.Trace(ResidencyEvent{Kind: EventFlush, Count: 4})
		tracer.Terminate()

		reader := datarecording.NewReaderWithDB(db)
		reader.MapTable(ResidencyTable, RecordedEvent{})

		results, total, err := reader.Query(context.Background(),
			ResidencyTable, datarecording.QueryParams{OrderBy: "Seq"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))

		first := results[0].(*RecordedEvent)
		Expect(first.Kind).To(Equal("evicted"))
		Expect(vm.GVPKey(first.Key)).To(Equal(kernel))
		Expect(first.ASID).To(Equal(uint16(1)))
		Expect(results[1].(*RecordedEvent).Count).To(Equal(4))
	})
	It("should query events by kind", func() {
		db, err := sql.Open("sqlite3",
			filepath.Join(GinkgoT().TempDir(), "events.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		tracer := NewRecordingTracer(datarecording.NewWithDB(db))
		key := vm.NewGVPKey(0x1000, 2, vm.AccessStore)

		tracer.Trace(ResidencyEvent{Kind: EventFlush, Count: 1})
		tracer.Trace(ResidencyEvent{Kind: EventWrittenBack, Key: key, HVP: 0x9000, Frame: 3})
		tracer.Trace(ResidencyEvent{Kind: EventFlush, Count: 2})
		tracer.Terminate()

		events, total, err := QueryRecordedEvents(context.Background(),
			datarecording.NewReaderWithDB(db),
			datarecording.QueryParams{
				Where: "Kind = ?",
				Args:  []any{string(EventFlush)},
			})

		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))
		Expect(events).To(HaveLen(2))
		Expect(events[0].Seq).To(BeNumerically("<", events[1].Seq))
		Expect(events[1].Count).To(Equal(2))
	})
})
