// Package sse implements the event-stream wire protocol: frame splitting
// and payload decoding.
//
// The stream is UTF-8 text carrying blank-line-delimited frames of the shape
//
//	event: <tag>\n
//	data: <single-line JSON>\n
//	\n
//
// Splitting is boundary-independent: feeding the same bytes in any chunking
// yields the same ordered frame sequence. Decoding is total: a malformed
// frame yields a synthesized error event, never a panic or a lost session.
package sse

import "strings"

// frameDelimiter separates frames: a blank line.
const frameDelimiter = "\n\n"

// Splitter extracts complete frames from arbitrarily fragmented text chunks.
//
// Chunks are appended to an internal carry-over buffer; each Push drains all
// complete frames, leaving any trailing incomplete remainder buffered for the
// next chunk. A delimiter split across two chunks is detected once both are
// buffered: no loss, no duplication.
type Splitter struct {
	carry strings.Builder
}

// NewSplitter creates an empty splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Push appends a chunk and returns all complete frames now available,
// in order. An empty chunk yields nothing; a chunk containing multiple
// delimiters yields multiple frames from one call.
func (s *Splitter) Push(chunk string) []string {
	if chunk == "" && s.carry.Len() == 0 {
		return nil
	}
	s.carry.WriteString(chunk)

	buffered := s.carry.String()
	var frames []string
	for {
		idx := strings.Index(buffered, frameDelimiter)
		if idx < 0 {
			break
		}
		frames = append(frames, buffered[:idx])
		buffered = buffered[idx+len(frameDelimiter):]
	}

	s.carry.Reset()
	s.carry.WriteString(buffered)
	return frames
}

// Flush returns the trailing remainder at stream end, whitespace-trimmed.
// The remainder may be structurally incomplete; callers feed it through the
// same decode path best-effort. Returns false when nothing is buffered.
func (s *Splitter) Flush() (string, bool) {
	remainder := strings.TrimSpace(s.carry.String())
	s.carry.Reset()
	if remainder == "" {
		return "", false
	}
	return remainder, true
}

// Pending returns the number of buffered bytes awaiting a delimiter.
func (s *Splitter) Pending() int {
	return s.carry.Len()
}
