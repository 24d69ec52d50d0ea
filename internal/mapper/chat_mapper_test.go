package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"twinai-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSessionMapping(t *testing.T) {
	m := NewChatMapper()
	now := time.Now()
	in := &entity.ChatSession{
		Id:         uuid.New(),
		SessionKey: "sess-1",
		UserId:     "user-1",
		Title:      "Hello there...",
		CreatedAt:  now,
		IsDeleted:  true,
	}

	model := m.ChatSessionToModel(in)
	require.True(t, model.DeletedAt.Valid)

	out := m.ChatSessionToEntity(model)
	assert.Equal(t, in.SessionKey, out.SessionKey)
	assert.Equal(t, in.UserId, out.UserId)
	assert.True(t, out.IsDeleted)
	assert.Nil(t, out.UpdatedAt)
}

func TestChatMessageKeepsStructuredContent(t *testing.T) {
	m := NewChatMapper()
	payload := json.RawMessage(`{"event_id":"e1"}`)

	out := m.ChatMessageToEntity(m.ChatMessageToModel(&entity.ChatMessage{
		Id:         uuid.New(),
		Role:       "assistant",
		Type:       "calendar",
		Content:    "Scheduled",
		Structured: payload,
	}))

	assert.JSONEq(t, string(payload), string(out.Structured))
	assert.Equal(t, "calendar", out.Type)
	assert.False(t, out.IsDeleted)
}

func TestNilMapping(t *testing.T) {
	m := NewChatMapper()
	assert.Nil(t, m.ChatSessionToEntity(nil))
	assert.Nil(t, m.ChatFlowToModel(nil))
	assert.Nil(t, m.SentEmailToEntity(nil))
}
