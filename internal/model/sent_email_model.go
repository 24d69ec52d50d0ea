package model

import (
	"time"

	"github.com/google/uuid"
)

type SentEmail struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionKey string    `gorm:"type:varchar(128);index"`
	Recipient  string    `gorm:"type:varchar(320);not null;index"`
	Subject    string    `gorm:"type:text;not null"`
	Body       string    `gorm:"type:text;not null"`
	SentAt     time.Time `gorm:"not null;index"`
}

func (SentEmail) TableName() string {
	return "sent_emails"
}
