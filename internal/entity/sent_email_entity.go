package entity

import (
	"time"

	"github.com/google/uuid"
)

type SentEmail struct {
	Id         uuid.UUID
	SessionKey string
	Recipient  string
	Subject    string
	Body       string
	SentAt     time.Time
}
