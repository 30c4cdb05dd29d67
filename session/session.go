// Package session holds conversational state for ongoing and recently
// completed agent invocations: parent/child lineage, a capped message list,
// and TTL-based pruning for sessions no longer in active use.
package session

import (
	"errors"
	"time"
)

type (
	// Session is the first-class conversational container. A run/turn must
	// always belong to a session.
	Session struct {
		ID            string
		ParentID      string
		Agent         string
		ProjectID     string
		UserID        string
		TaskID        string
		CreatedAt     time.Time
		UpdatedAt     time.Time
		Title         string
		Status        Status
		Messages      []Message
		ActiveSkills  []string
		Category      string
	}

	// Message is one turn of the session's conversation.
	Message struct {
		Role      Role
		Content   string
		Timestamp time.Time
		Agent     string
		ToolCalls []ToolCallRecord
	}

	// ToolCallRecord is an attributed tool invocation recorded on a message.
	ToolCallRecord struct {
		Name string
		Args map[string]any
	}

	// Status is the lifecycle state of a Session.
	Status string

	// Role is the speaker of a Message.
	Role string
)

const (
	StatusActive    Status = "active"
	StatusIdle      Status = "idle"
	StatusCompleted Status = "completed"

	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

var (
	// ErrSessionNotFound indicates a session does not exist in the store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded indicates a session exists but is in a terminal status.
	ErrSessionEnded = errors.New("session ended")
	// ErrCycle indicates a session's parent chain would form a cycle.
	ErrCycle = errors.New("session parent chain forms a cycle")
)

// IsTerminal reports whether s is in a status from which it should not
// accept new runs.
func (s Session) IsTerminal() bool {
	return s.Status == StatusCompleted
}
