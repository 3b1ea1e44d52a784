package types

import (
	"errors"
	"fmt"
)

// SessionMeta is the identity attached to one streaming request.
// All log entries and capture records for a session carry these fields.
type SessionMeta struct {
	// SessionID is the canonical session identifier.
	SessionID string
	// ConversationID groups sequential sessions of one conversation.
	ConversationID *string
	// Prompt is the user message that opened the session.
	Prompt string
}

// Validate checks session metadata for required fields.
func (m *SessionMeta) Validate() error {
	if m == nil {
		return errors.New("session metadata is nil")
	}
	if m.SessionID == "" {
		return errors.New("session_id is required")
	}
	if m.ConversationID != nil && *m.ConversationID == "" {
		return fmt.Errorf("conversation_id must be non-empty when set")
	}
	return nil
}
