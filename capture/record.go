// Package capture implements the session capture file format: decoded
// events serialized as length-prefixed msgpack records, so a streamed
// session can be replayed offline through the same dispatch path.
//
// Capture files are diagnostic artifacts for reproducing transform
// behavior, not conversation persistence.
package capture

import (
	"github.com/glassbead-io/prism/types"
)

// Record is one captured event plus sequencing metadata.
// All fields use msgpack tags; wire names are part of the file format.
type Record struct {
	// Seq is the monotonic record sequence, starts at 1.
	Seq int64 `msgpack:"seq"`
	// Ts is the capture timestamp in ISO 8601 UTC format.
	Ts string `msgpack:"ts"`
	// Type is the event type discriminator.
	Type string `msgpack:"type"`

	// Type-specific fields; unset fields are omitted.
	Content  string             `msgpack:"content,omitempty"`
	Language string             `msgpack:"language,omitempty"`
	Message  string             `msgpack:"message,omitempty"`
	Stage    string             `msgpack:"stage,omitempty"`
	Data     *types.QueryResult `msgpack:"data,omitempty"`
}

// FromEvent converts a decoded event into its record form.
func FromEvent(ev types.Event) Record {
	switch ev := ev.(type) {
	case types.ThoughtEvent:
		return Record{Type: string(types.EventTypeThought), Content: ev.Content}
	case types.CodeEvent:
		return Record{Type: string(types.EventTypeCode), Language: ev.Language, Content: ev.Content}
	case types.DataEvent:
		return Record{Type: string(types.EventTypeData), Data: ev.Payload}
	case types.ErrorEvent:
		return Record{Type: string(types.EventTypeError), Message: ev.Message, Stage: string(ev.Stage)}
	default:
		return Record{Type: string(ev.Type())}
	}
}

// Event converts a record back into its decoded event.
func (r Record) Event() (types.Event, error) {
	switch types.EventType(r.Type) {
	case types.EventTypeThought:
		return types.ThoughtEvent{Content: r.Content}, nil
	case types.EventTypeCode:
		return types.CodeEvent{Language: r.Language, Content: r.Content}, nil
	case types.EventTypeData:
		// A nil payload round-trips as nil; the dispatcher rejects it on
		// replay exactly as it would have live.
		return types.DataEvent{Payload: r.Data}, nil
	case types.EventTypeError:
		return types.ErrorEvent{Message: r.Message, Stage: types.ErrorStage(r.Stage)}, nil
	default:
		return types.UnknownEvent{Tag: r.Type}, nil
	}
}
