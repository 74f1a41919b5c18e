package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// EventLogger is an engine hook that prints every dispatched event. It is
// mainly used to debug simulator internals.
type EventLogger struct {
	log *logrus.Logger
}

// NewEventLogger creates a new EventLogger that writes to the given logger.
func NewEventLogger(log *logrus.Logger) *EventLogger {
	return &EventLogger{log: log}
}

// Func writes a log line before each event is dispatched.
func (l *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt := ctx.Item.(Event)
	fields := logrus.Fields{
		"time": float64(evt.Time()),
		"kind": reflect.TypeOf(evt).String(),
	}

	if comp, ok := evt.Handler().(Named); ok {
		fields["component"] = comp.Name()
	}

	l.log.WithFields(fields).Debug("dispatch event")
}
