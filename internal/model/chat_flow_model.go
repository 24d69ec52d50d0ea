package model

import (
	"time"

	"gorm.io/datatypes"
)

type ChatFlow struct {
	SessionKey string         `gorm:"type:varchar(128);primaryKey"`
	Kind       string         `gorm:"type:varchar(40);not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"not null;index"`
}

func (ChatFlow) TableName() string {
	return "chat_flows"
}
