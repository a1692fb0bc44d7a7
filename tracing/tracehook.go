package tracing

import (
	"github.com/sarchlab/flexmmu/sim"
)

// CollectTrace lets the tracer collect the residency events of a domain.
func CollectTrace(domain sim.Hookable, tracer Tracer) {
	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// A traceHook forwards residency events to a tracer.
type traceHook struct {
	t Tracer
}

// Func calls the tracer when the hook is triggered at a residency position.
func (h *traceHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosResidency {
		return
	}

	event, ok := ctx.Item.(ResidencyEvent)
	if !ok {
		return
	}

	h.t.Trace(event)
}
