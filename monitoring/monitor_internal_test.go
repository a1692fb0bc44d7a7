package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/residency"
	"github.com/sarchlab/flexmmu/sim"
	"github.com/sarchlab/flexmmu/tracing"
)

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
}

func (c *sampleComponent) NotifyRecv(_ sim.Port) {
	// Do nothing
}

func (c *sampleComponent) NotifyPortFree(_ sim.Port) {
	// Do nothing
}

func newSampleComponent() *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase("Comp"),
		buffer:        sim.NewBuffer("Comp.Buf", 10),
	}

	c.AddPort("Port1", sim.NewPort(c, 2, 2, "Comp.Port1"))

	return c
}

type executorFunc func(ctx context.Context, fn func()) error

func (f executorFunc) Do(ctx context.Context, fn func()) error {
	return f(ctx, fn)
}

type snapshotFunc func(ctx context.Context) (residency.Snapshot, error)

func (f snapshotFunc) Snapshot(ctx context.Context) (residency.Snapshot, error) {
	return f(ctx)
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent()
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))

		var names []string
		Expect(json.Unmarshal(get("/api/list_components").Body.Bytes(), &names)).
			To(Succeed())
		Expect(names).To(Equal([]string{"Comp"}))
	})

	It("should serve the residency state", func() {
		state := residency.MakeBuilder().WithFrames(4).Build()
		_, err := state.Resolve(vm.NewGVPKey(0x1000, 1, vm.AccessLoad), 0x8000)
		Expect(err).To(BeNil())
		Expect(state.PendingEvictions.Add(
			vm.NewGVPKey(0x1000, 1, vm.AccessLoad), 0x8000)).To(Succeed())

		m.RegisterSnapshotSource(snapshotFunc(
			func(context.Context) (residency.Snapshot, error) {
				return state.Snapshot(), nil
			}))

		rec := get("/api/residency")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var snap residency.Snapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
		Expect(snap.Resident).To(HaveLen(1))
		Expect(snap.Resident[0].HVP).To(Equal(vm.HVP(0x8000)))
		Expect(snap.FreeFrames).To(Equal(3))

		var pending pendingRsp
		Expect(json.Unmarshal(get("/api/pending").Body.Bytes(), &pending)).
			To(Succeed())
		Expect(pending.Evictions).To(HaveLen(1))
		Expect(pending.Faults).To(BeEmpty())
	})

	It("should report an unavailable MMU", func() {
		Expect(get("/api/residency").Code).To(Equal(http.StatusServiceUnavailable))

		m.RegisterSnapshotSource(snapshotFunc(
			func(context.Context) (residency.Snapshot, error) {
				return residency.Snapshot{}, errors.New("stopped")
			}))

		Expect(get("/api/pending").Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should count events", func() {
		counter := tracing.NewCountTracer()
		counter.Trace(tracing.ResidencyEvent{Kind: tracing.EventSynonym})
		counter.Trace(tracing.ResidencyEvent{Kind: tracing.EventSynonym})
		m.RegisterEventCounter(counter)

		var counts map[string]uint64
		Expect(json.Unmarshal(get("/api/events").Body.Bytes(), &counts)).
			To(Succeed())
		Expect(counts).To(Equal(map[string]uint64{"synonym": 2}))
	})

	Context("when inspecting components", func() {
		BeforeEach(func() {
			m.RegisterComponent(newSampleComponent())
		})

		It("should serialize a component", func() {
			rec := get("/api/component/Comp")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
		})

		It("should read components through the executor", func() {
			calls := 0
			m.RegisterExecutor(executorFunc(func(_ context.Context, fn func()) error {
				calls++
				fn()

				return nil
			}))

			Expect(get("/api/component/Comp").Code).To(Equal(http.StatusOK))
			Expect(calls).To(Equal(1))
		})

		It("should report a stopped executor", func() {
			m.RegisterExecutor(executorFunc(func(context.Context, func()) error {
				return context.Canceled
			}))

			Expect(get("/api/component/Comp").Code).
				To(Equal(http.StatusServiceUnavailable))
		})

		It("should serialize a field", func() {
			rec := get("/api/field/" +
				url.PathEscape(`{"comp_name":"Comp","field_name":"buffer"}`))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
		})

		It("should not find an unknown component", func() {
			Expect(get("/api/component/Other").Code).To(Equal(http.StatusNotFound))
			Expect(get("/api/field/" + url.PathEscape(`{"comp_name":"Other"}`)).Code).
				To(Equal(http.StatusNotFound))
		})
	})

	It("should collect a CPU profile", func() {
		rec := get("/api/profile?duration=20ms")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
		Expect(get("/api/profile?duration=soon").Code).
			To(Equal(http.StatusBadRequest))
	})

	Context("when sorting buffers", func() {
		BeforeEach(func() {
			small := sim.NewBuffer("Small", 2)
			small.Push(1)

			large := sim.NewBuffer("Large", 10)
			large.Push(1)
			large.Push(2)

			empty := sim.NewBuffer("Empty", 4)

			m.buffers = []sim.Buffer{empty, large, small}
		})

		It("should sort by percent", func() {
			sorted := m.sortAndSelectBuffers("percent", 0, 0)
			Expect(sorted[0].Name()).To(Equal("Small"))
			Expect(sorted[1].Name()).To(Equal("Large"))
		})

		It("should sort by level", func() {
			sorted := m.sortAndSelectBuffers("level", 1, 0)
			Expect(sorted).To(HaveLen(1))
			Expect(sorted[0].Name()).To(Equal("Large"))
		})

		It("should clamp the offset", func() {
			Expect(m.sortAndSelectBuffers("level", 2, 5)).To(BeEmpty())
		})

		It("should reject an unknown sort method", func() {
			rec := get("/api/hangdetector/buffers?sort=name")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should serve the buffer levels", func() {
			var rsp []bufferRsp
			rec := get("/api/hangdetector/buffers?sort=level&limit=2")
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp).To(Equal([]bufferRsp{
				{Buffer: "Large", Level: 2, Cap: 10},
				{Buffer: "Small", Level: 1, Cap: 2},
			}))
		})
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("replay", 10)
		bar.Begin(3)
		bar.Done(2)

		var bars []progressView
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Name).To(Equal("replay"))

		bar.Done(5)
		Expect(bar.view().Finished).To(Equal(uint64(3)))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should report the resources of the process", func() {
		var rsp resourceRsp
		Expect(json.Unmarshal(get("/api/resource").Body.Bytes(), &rsp)).
			To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should not accept a reserved port number", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})
