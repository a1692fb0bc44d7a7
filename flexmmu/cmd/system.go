package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/structs"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/flexmmu/datarecording"
	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/mmu"
	"github.com/sarchlab/flexmmu/mem/vm/residency"
	"github.com/sarchlab/flexmmu/memory"
	"github.com/sarchlab/flexmmu/monitoring"
	"github.com/sarchlab/flexmmu/sim"
	"github.com/sarchlab/flexmmu/tracing"
)

// system is an MMU with its host memory and the sinks of its events.
type system struct {
	cfg     Config
	logger  *logrus.Logger
	host    *memory.Storage
	mmu     *mmu.Comp
	counter *tracing.CountTracer
	exec    *datarecording.ExecRecorder
}

func newSystem(
	cfg Config,
	logger *logrus.Logger,
	translator vm.Translator,
	pageBuffer mmu.PageBuffer,
	accelerator sim.RemotePort,
) *system {
	s := &system{
		cfg:     cfg,
		logger:  logger,
		host:    memory.NewStorage(cfg.HostMemory),
		counter: tracing.NewCountTracer(),
	}

	s.mmu = mmu.MakeBuilder().
		WithTranslator(translator).
		WithHostMemory(s.host).
		WithPageBuffer(pageBuffer).
		WithState(cfg.StateBuilder().Build()).
		WithAccelerator(accelerator).
		WithPollInterval(cfg.PollInterval).
		Build("MMU")

	tracing.CollectTrace(s.mmu, s.counter)
	tracing.CollectTrace(s.mmu, tracing.NewLogTracer(logger))

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		s.mmu.TopPort().AcceptHook(sim.NewPortMsgLogger(logger))
	}

	if cfg.Record != "" {
		recorder := datarecording.New(cfg.Record)
		tracing.CollectTrace(s.mmu, tracing.NewRecordingTracer(recorder))

		s.exec = datarecording.NewExecRecorder(recorder)
		s.exec.Start()

		for name, value := range structs.Map(cfg) {
			s.exec.Set(name, fmt.Sprint(value))
		}
	}

	return s
}

// fillPages writes the initial content of the mapped host pages.
func (s *system) fillPages(pages []PageMapping) error {
	for _, p := range pages {
		if p.Fill == nil {
			continue
		}

		page := make([]byte, vm.PageSize)
		for i := range page {
			page[i] = *p.Fill
		}

		if err := s.host.WritePage(vm.HVP(p.HVP), page); err != nil {
			return err
		}
	}

	return nil
}

// runMMU runs the MMU until ctx is done. A fatal residency error is turned
// into the returned error.
func (s *system) runMMU(ctx context.Context) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		fe, ok := r.(*residency.FatalError)
		if !ok {
			panic(r)
		}

		err = fe
	}()

	err = s.mmu.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (s *system) newMonitor() *monitoring.Monitor {
	m := monitoring.NewMonitor().WithPortNumber(s.cfg.MonitorPort)
	m.RegisterSnapshotSource(s.mmu)
	m.RegisterExecutor(s.mmu)
	m.RegisterEventCounter(s.counter)
	m.RegisterComponent(s.mmu)

	return m
}

func (s *system) finish() {
	if s.exec != nil {
		s.exec.End()
	}
}

// exitOnFatal terminates the process through atexit if err carries a fatal
// residency error, so that the recorders are flushed.
func exitOnFatal(err error) {
	var fe *residency.FatalError
	if errors.As(err, &fe) {
		atexit.Fatalf("flexmmu: %s: %v", fe.Class, fe.Err)
	}
}

func printEvents(w io.Writer, counter *tracing.CountTracer) {
	for _, kind := range counter.Kinds() {
		fmt.Fprintf(w, "  %-18s %d\n", kind, counter.Count(kind))
	}
}
