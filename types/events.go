package types

// EventType is the type discriminator carried in every event payload.
type EventType string

// Event type constants matching the backend wire protocol.
const (
	EventTypeThought EventType = "thought"
	EventTypeCode    EventType = "code"
	EventTypeData    EventType = "data"
	EventTypeError   EventType = "error"
)

// IsKnown returns true if this event type belongs to the closed variant set.
// Unknown types are surfaced as a distinct unrecognized outcome, never
// silently coerced into a known variant.
func (e EventType) IsKnown() bool {
	switch e {
	case EventTypeThought, EventTypeCode, EventTypeData, EventTypeError:
		return true
	}
	return false
}

// ErrorStage identifies the backend stage an error event originated from.
type ErrorStage string

// Error stage constants matching the backend wire protocol.
const (
	StageSQLExecution   ErrorStage = "sql_execution"
	StageCodeGeneration ErrorStage = "code_generation"
	StageDataFetch      ErrorStage = "data_fetch"
)

// Event is a decoded, typed unit of the stream protocol.
// Implementations: ThoughtEvent, CodeEvent, DataEvent, ErrorEvent, UnknownEvent.
type Event interface {
	// Type returns the event type discriminator.
	Type() EventType
}

// ThoughtEvent carries a chunk of assistant reasoning text.
// Accumulation semantics are replace-wholesale: the last thought wins.
type ThoughtEvent struct {
	// Content is the reasoning text.
	Content string `json:"content"`
}

// Type implements Event.
func (ThoughtEvent) Type() EventType { return EventTypeThought }

// CodeEvent carries a chunk of generated UI source text.
// Accumulation semantics are append-only in arrival order.
type CodeEvent struct {
	// Language is an informational language label (e.g. "tsx").
	Language string `json:"language"`
	// Content is the source text chunk.
	Content string `json:"content"`
}

// Type implements Event.
func (CodeEvent) Type() EventType { return EventTypeCode }

// DataEvent carries a tabular query result.
// Accumulation semantics are replace-wholesale: the latest result wins.
type DataEvent struct {
	// Payload is the tabular result set. Nil when the wire payload omitted
	// the field entirely; an empty-but-present result decodes non-nil. The
	// dispatcher rejects the nil case as a validation failure.
	Payload *QueryResult `json:"payload"`
}

// Type implements Event.
func (DataEvent) Type() EventType { return EventTypeData }

// ErrorEvent carries a backend-reported or locally synthesized error.
// Passed through to the caller's error channel; never fatal to the session.
type ErrorEvent struct {
	// Message is the error description.
	Message string `json:"message"`
	// Stage is the originating backend stage, when known.
	Stage ErrorStage `json:"stage,omitempty"`
}

// Type implements Event.
func (ErrorEvent) Type() EventType { return EventTypeError }

// Error implements the error interface so an ErrorEvent can travel
// through error-shaped plumbing without loss of the stage field.
func (e ErrorEvent) Error() string {
	if e.Stage != "" {
		return string(e.Stage) + ": " + e.Message
	}
	return e.Message
}

// UnknownEvent represents a payload whose type tag is outside the closed
// variant set. Logged and dropped by the dispatcher; forward compatibility
// requires that future event types never break this consumer.
type UnknownEvent struct {
	// Tag is the unrecognized type discriminator.
	Tag string
}

// Type implements Event.
func (e UnknownEvent) Type() EventType { return EventType(e.Tag) }
