package sse

import (
	"encoding/json"
	"fmt"

	"github.com/glassbead-io/prism/types"
)

// PreviewLimit bounds the payload preview embedded in synthesized error
// events, so a corrupt megabyte payload cannot flood logs.
const PreviewLimit = 200

// Outcome classifies the result of decoding one frame.
type Outcome int

const (
	// OutcomeSkip: frame carried no data line (e.g. a heartbeat), no event.
	OutcomeSkip Outcome = iota
	// OutcomeEvent: one well-formed event of a known type.
	OutcomeEvent
	// OutcomeMalformed: payload was undecodable; the returned event is a
	// synthesized types.ErrorEvent carrying a bounded diagnostic.
	OutcomeMalformed
	// OutcomeUnknown: payload type tag is outside the closed variant set;
	// the returned event is a types.UnknownEvent.
	OutcomeUnknown
)

// typeProbe peeks at the payload's type discriminator without full decode.
type typeProbe struct {
	Type *string `json:"type"`
}

// Decode decodes one scanned frame into at most one event.
//
// A payload that fails JSON parsing, lacks a string type field, or does not
// match its variant's shape yields OutcomeMalformed with a synthesized
// types.ErrorEvent embedding a bounded preview of the offending payload and
// its length. Decode never returns an error and never panics; decode
// failures must not terminate the session.
func Decode(frame Frame) (types.Event, Outcome) {
	if !frame.HasData {
		return nil, OutcomeSkip
	}
	payload := frame.Data

	var probe typeProbe
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return synthesizeError("malformed event payload", payload, err), OutcomeMalformed
	}
	if probe.Type == nil || *probe.Type == "" {
		return synthesizeError("event payload missing type field", payload, nil), OutcomeMalformed
	}

	switch types.EventType(*probe.Type) {
	case types.EventTypeThought:
		var ev types.ThoughtEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return synthesizeError("invalid thought payload", payload, err), OutcomeMalformed
		}
		return ev, OutcomeEvent
	case types.EventTypeCode:
		var ev types.CodeEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return synthesizeError("invalid code payload", payload, err), OutcomeMalformed
		}
		return ev, OutcomeEvent
	case types.EventTypeData:
		var ev types.DataEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return synthesizeError("invalid data payload", payload, err), OutcomeMalformed
		}
		return ev, OutcomeEvent
	case types.EventTypeError:
		var ev types.ErrorEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return synthesizeError("invalid error payload", payload, err), OutcomeMalformed
		}
		return ev, OutcomeEvent
	default:
		return types.UnknownEvent{Tag: *probe.Type}, OutcomeUnknown
	}
}

// synthesizeError builds the error event substituted for an undecodable
// payload. The preview is rune-safe truncated to PreviewLimit characters
// and paired with the full payload length, so truncation and corruption
// are distinguishable from the diagnostic alone.
func synthesizeError(msg, payload string, cause error) types.ErrorEvent {
	detail := fmt.Sprintf("%s (payload %q, %d bytes)", msg, preview(payload), len(payload))
	if cause != nil {
		detail = fmt.Sprintf("%s (payload %q, %d bytes): %v", msg, preview(payload), len(payload), cause)
	}
	return types.ErrorEvent{Message: detail}
}

// preview truncates s to PreviewLimit runes without splitting a rune.
func preview(s string) string {
	runes := 0
	for i := range s {
		if runes == PreviewLimit {
			return s[:i] + "..."
		}
		runes++
	}
	return s
}
