package core

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn authored by the engine.
	RoleAssistant Role = "assistant"
)

// Turn is one exchanged message. Turns are immutable once appended to a
// session; Meta carries ad-hoc annotations (intent label, agent name) that
// never influence control flow.
type Turn struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Meta      map[string]string `json:"meta,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current UTC time. A nil meta map
// is normalized to an empty one so callers can always range over it.
func NewTurn(role Role, content string, meta map[string]string) Turn {
	if meta == nil {
		meta = map[string]string{}
	}
	return Turn{Role: role, Content: content, Meta: meta, Timestamp: time.Now().UTC()}
}
