package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Type          string
	Content       string
	Structured    json.RawMessage
	CreatedAt     time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
