package store

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageType tags how a reply should be rendered.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeEmail    MessageType = "email"
	TypeCalendar MessageType = "calendar"
	TypeResearch MessageType = "research"
	TypeSystem   MessageType = "system"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeEmail, TypeCalendar, TypeResearch, TypeSystem:
		return true
	}
	return false
}

// Message is one entry of a session's history, as held by every cache tier.
type Message struct {
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	Type       MessageType     `json:"type"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// IsSystem is true for control records that never reach a model prompt.
func (m Message) IsSystem() bool {
	return m.Role == RoleSystem || m.Type == TypeSystem
}
