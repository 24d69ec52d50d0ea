package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is the durable record of one conversation. SessionKey is the
// opaque client-supplied identifier; UserId is empty for anonymous chats.
type ChatSession struct {
	Id         uuid.UUID
	SessionKey string
	UserId     string
	Title      string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
