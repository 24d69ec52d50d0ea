package dto

import (
	"encoding/json"
	"time"
)

type SendChatRequest struct {
	SessionId string `json:"session_id" validate:"required,max=128"`
	Chat      string `json:"chat" validate:"required,max=4000"`
}

type SendChatResponse struct {
	SessionId  string          `json:"session_id"`
	Content    string          `json:"content"`
	Type       string          `json:"type"`
	Structured json.RawMessage `json:"structured,omitempty"`
}

type ResetSessionRequest struct {
	SessionId string `json:"session_id" validate:"required,max=128"`
}

type GetAllSessionsResponse struct {
	SessionId string     `json:"session_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Type       string          `json:"type"`
	Structured json.RawMessage `json:"structured,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
