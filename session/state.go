// Package session owns the per-request read loop: it pumps bytes from the
// transport, splits and decodes frames, and dispatches typed events to the
// caller's handlers in strict arrival order.
//
// One Session serves exactly one byte stream. All accumulation state is
// scoped to the session and touched only by its single sequential loop;
// starting a new request while one is in flight is a caller-level
// precondition violation.
package session

import (
	"strings"

	"github.com/glassbead-io/prism/types"
)

// State is the per-session accumulation of dispatched events.
//
// Owned by the session's single read loop; not safe for concurrent
// mutation. Snapshot accessors copy, so handlers may retain results.
type State struct {
	thought string
	code    strings.Builder
	latest  *types.QueryResult
}

// NewState creates empty accumulation state.
func NewState() *State {
	return &State{}
}

// SetThought replaces the thought accumulation wholesale. Last value wins.
func (s *State) SetThought(content string) {
	s.thought = content
}

// AppendCode appends a code chunk and returns the running concatenation.
func (s *State) AppendCode(chunk string) string {
	s.code.WriteString(chunk)
	return s.code.String()
}

// SetData replaces the latest query result.
func (s *State) SetData(result types.QueryResult) {
	s.latest = &result
}

// ThoughtText returns the current thought accumulation.
func (s *State) ThoughtText() string {
	return s.thought
}

// CodeText returns the code accumulation in arrival order.
func (s *State) CodeText() string {
	return s.code.String()
}

// LatestData returns the latest query result, or nil when none arrived.
func (s *State) LatestData() *types.QueryResult {
	return s.latest
}

// Reset clears all accumulation for reuse at the next request start.
func (s *State) Reset() {
	s.thought = ""
	s.code.Reset()
	s.latest = nil
}
