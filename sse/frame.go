package sse

import "strings"

// DefaultTag is the event tag assumed when a frame has no "event:" line.
// Informational only; the payload's type field is authoritative.
const DefaultTag = "message"

// Frame is one scanned frame: its event tag and raw JSON payload text,
// before JSON decoding.
type Frame struct {
	// Tag is the value of the frame's "event:" line, or DefaultTag.
	Tag string
	// Data is the payload text of the first "data:" line.
	Data string
	// HasData reports whether any "data:" line was present. Frames
	// without one (e.g. heartbeats) yield no event.
	HasData bool
	// Unexpected holds non-blank lines with no recognized prefix.
	// Callers log these; they never abort decoding.
	Unexpected []string
}

// ScanFrame scans the lines of a raw frame.
//
// Rules:
//   - "event: <tag>" sets the tag (last occurrence wins)
//   - the first "data: <payload>" supplies the payload; the protocol
//     guarantees single-line payloads, additional data lines are ignored
//   - lines starting with ":" are comments and skipped
//   - anything else non-blank is collected as unexpected
func ScanFrame(raw string) Frame {
	frame := Frame{Tag: DefaultTag}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "event:"):
			frame.Tag = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if frame.HasData {
				continue
			}
			frame.Data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			frame.HasData = true
		default:
			frame.Unexpected = append(frame.Unexpected, line)
		}
	}

	return frame
}
