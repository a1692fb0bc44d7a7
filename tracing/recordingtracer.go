package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/flexmmu/datarecording"
)

// ResidencyTable is the table that RecordingTracer writes into.
const ResidencyTable = "residency_events"

// A RecordedEvent is a row of the residency event table. Keys and addresses
// are stored as signed integers, as sqlite has no unsigned 64-bit type.
type RecordedEvent struct {
	Seq      int64   `record:"unique"`
	Time     float64
	Kind     string `record:"index"`
	Key      int64  `record:"index"`
	ASID     uint16 `record:"index"`
	VAddr    int64
	HVP      int64 `record:"index"`
	Frame    int64
	ThreadID uint32
	Count    int
	Err      string
}

// RecordingTracer stores residency events into a data recorder.
type RecordingTracer struct {
	lock    sync.Mutex
	backend datarecording.DataRecorder
	start   time.Time
	seq     int64
}

// NewRecordingTracer creates a RecordingTracer. The recorder is flushed when
// the process exits through atexit.
func NewRecordingTracer(
	recorder datarecording.DataRecorder,
) *RecordingTracer {
	recorder.CreateTable(ResidencyTable, RecordedEvent{})

	t := &RecordingTracer{
		backend: recorder,
		start:   time.Now(),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// Trace records the event.
func (t *RecordingTracer) Trace(event ResidencyEvent) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.seq++

	entry := RecordedEvent{
		Seq:      t.seq,
		Time:     time.Since(t.start).Seconds(),
		Kind:     string(event.Kind),
		Key:      int64(event.Key),
		ASID:     uint16(event.Key.ASID()),
		VAddr:    int64(event.Key.VA()),
		HVP:      int64(event.HVP),
		Frame:    int64(event.Frame),
		ThreadID: event.ThreadID,
		Count:    event.Count,
	}

	if event.Err != nil {
		entry.Err = event.Err.Error()
	}

	t.backend.InsertData(ResidencyTable, entry)
}

// Terminate flushes the recorded events.
func (t *RecordingTracer) Terminate() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.backend.Flush()
}

// QueryRecordedEvents reads residency events back from a recording.
func QueryRecordedEvents(
	ctx context.Context,
	reader datarecording.DataReader,
	params datarecording.QueryParams,
) ([]RecordedEvent, int, error) {
	reader.MapTable(ResidencyTable, RecordedEvent{})

	if params.OrderBy == "" {
		params.OrderBy = "Seq"
	}

	rows, total, err := reader.Query(ctx, ResidencyTable, params)
	if err != nil {
		return nil, 0, err
	}

	events := make([]RecordedEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, *row.(*RecordedEvent))
	}

	return events, total, nil
}
