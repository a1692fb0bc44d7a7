package tracing

import (
	"github.com/sirupsen/logrus"
)

// LogTracer writes residency events into a logger. Fatal events are logged
// at error level and everything else at debug level.
type LogTracer struct {
	logger logrus.FieldLogger
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(logger logrus.FieldLogger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Trace logs the event.
func (t *LogTracer) Trace(event ResidencyEvent) {
	entry := t.logger.WithFields(logrus.Fields{
		"event": string(event.Kind),
		"key":   event.Key.String(),
		"asid":  event.Key.ASID(),
		"hvp":   event.HVP.String(),
		"frame": event.Frame,
	})

	switch event.Kind {
	case EventFatal:
		entry.WithError(event.Err).Error("residency state is broken")
	case EventFlush, EventSynchronize:
		entry.WithField("count", event.Count).Info(string(event.Kind))
	case EventPermissionFault, EventFaultDeferred, EventFaultReplayed,
		EventFirstResident, EventSynonym, EventAlreadyResident:
		entry.WithField("thread", event.ThreadID).Debug(string(event.Kind))
	default:
		entry.Debug(string(event.Kind))
	}
}
