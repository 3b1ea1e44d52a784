package session

import (
	"fmt"

	"github.com/glassbead-io/prism/log"
	"github.com/glassbead-io/prism/metrics"
	"github.com/glassbead-io/prism/types"
)

// Handlers receive dispatched session callbacks. Any nil handler is
// skipped. Callbacks run synchronously on the session's read loop, in
// strict frame-completion order; no event is delivered twice.
type Handlers struct {
	// OnThought receives each thought replacement (last value wins).
	OnThought func(content string)
	// OnCode receives each code chunk with the running concatenation,
	// so the caller can keep a live preview current.
	OnCode func(chunk, accumulated string)
	// OnData receives each query result as a discrete notification.
	OnData func(result types.QueryResult)
	// OnError is the single error channel for backend error events,
	// decode/validation failures, and transport errors.
	OnError func(err error)
	// OnComplete fires exactly once per session, on every exit path.
	// err is nil on clean stream end; a *TransportError on transport
	// failure; the context error on cancellation.
	OnComplete func(err error)
}

// Dispatcher routes decoded events to accumulation state and handlers.
// Tolerates malformed individual events without aborting the session.
type Dispatcher struct {
	state     *State
	handlers  Handlers
	logger    *log.Logger
	collector *metrics.Collector
}

// NewDispatcher creates a dispatcher over the given accumulation state.
func NewDispatcher(state *State, handlers Handlers, logger *log.Logger, collector *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		state:     state,
		handlers:  handlers,
		logger:    logger,
		collector: collector,
	}
}

// Dispatch routes one decoded event by tag.
func (d *Dispatcher) Dispatch(ev types.Event) {
	switch ev := ev.(type) {
	case types.ThoughtEvent:
		if ev.Content == "" {
			d.rejectEvent("thought event missing content")
			return
		}
		d.state.SetThought(ev.Content)
		if d.handlers.OnThought != nil {
			d.handlers.OnThought(ev.Content)
		}

	case types.CodeEvent:
		accumulated := d.state.AppendCode(ev.Content)
		if d.handlers.OnCode != nil {
			d.handlers.OnCode(ev.Content, accumulated)
		}

	case types.DataEvent:
		if ev.Payload == nil {
			d.rejectEvent("data event missing payload")
			return
		}
		for i, row := range ev.Payload.Rows {
			if len(row) != len(ev.Payload.Columns) {
				d.logger.Warn("row width does not match column count", map[string]any{
					"row":     i,
					"width":   len(row),
					"columns": len(ev.Payload.Columns),
				})
				break
			}
		}
		d.state.SetData(*ev.Payload)
		if d.handlers.OnData != nil {
			d.handlers.OnData(*ev.Payload)
		}

	case types.ErrorEvent:
		d.collector.IncBackendErrors()
		if d.handlers.OnError != nil {
			d.handlers.OnError(ev)
		}

	case types.UnknownEvent:
		// Forward compatibility: future event types are logged and
		// dropped, never fatal.
		d.collector.IncUnknownEvents()
		d.logger.Warn("unrecognized event type", map[string]any{
			"tag": ev.Tag,
		})

	default:
		d.collector.IncUnknownEvents()
		d.logger.Warn("unhandled event variant", map[string]any{
			"type": fmt.Sprintf("%T", ev),
		})
	}
}

// rejectEvent surfaces a validation failure through the error channel.
// Reported, not fatal: the session continues.
func (d *Dispatcher) rejectEvent(msg string) {
	d.collector.IncValidationErrors()
	d.logger.Warn("event rejected", map[string]any{
		"reason": msg,
	})
	if d.handlers.OnError != nil {
		d.handlers.OnError(types.ErrorEvent{Message: msg})
	}
}
