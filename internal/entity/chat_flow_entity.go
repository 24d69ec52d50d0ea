package entity

import (
	"encoding/json"
	"time"
)

// ChatFlow persists the active multi-turn flow of a session, one row per session.
type ChatFlow struct {
	SessionKey string
	Kind       string
	Payload    json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
