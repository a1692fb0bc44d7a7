package tracing

// A Tracer collects residency events.
type Tracer interface {
	Trace(event ResidencyEvent)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(event ResidencyEvent)

// Trace calls f(event).
func (f TracerFunc) Trace(event ResidencyEvent) {
	f(event)
}
