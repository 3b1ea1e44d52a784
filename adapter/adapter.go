// Package adapter defines the notification boundary for downstream systems.
//
// Adapters publish session completion events so external consumers (sandbox
// hosts, dashboards) can react without polling. The CLI owns adapter
// lifecycle; users provide configuration only.
package adapter

import "context"

// SessionCompletedEvent is the payload published when a session finishes.
type SessionCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "session_completed"
	SessionID       string `json:"session_id"`
	ConversationID  string `json:"conversation_id,omitempty"`
	Prompt          string `json:"prompt"`
	Outcome         string `json:"outcome"` // success, transport_error, canceled
	Timestamp       string `json:"timestamp"` // ISO 8601
	EventCount      int64  `json:"event_count"`
	CodeBytes       int64  `json:"code_bytes"`
	RowCount        int    `json:"row_count"`
	Shape           string `json:"shape,omitempty"` // tabular or records
	DurationMs      int64  `json:"duration_ms"`
}

// Adapter publishes session completion events to a downstream system.
// Implementations must be safe for single-use per session.
type Adapter interface {
	// Publish sends a session completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *SessionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
