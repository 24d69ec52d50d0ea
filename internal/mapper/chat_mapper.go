package mapper

import (
	"encoding/json"
	"time"

	"twinai-be/internal/entity"
	"twinai-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func toDeletedAt(deletedAt *time.Time, isDeleted bool) gorm.DeletedAt {
	if deletedAt != nil {
		return gorm.DeletedAt{Time: *deletedAt, Valid: true}
	}
	if isDeleted {
		return gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return gorm.DeletedAt{}
}

func fromDeletedAt(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:         s.Id,
		SessionKey: s.SessionKey,
		UserId:     s.UserId,
		Title:      s.Title,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  fromDeletedAt(s.DeletedAt),
		IsDeleted:  s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:         s.Id,
		SessionKey: s.SessionKey,
		UserId:     s.UserId,
		Title:      s.Title,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  toDeletedAt(s.DeletedAt, s.IsDeleted),
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Type:          msg.Type,
		Content:       msg.Content,
		Structured:    json.RawMessage(msg.Structured),
		CreatedAt:     msg.CreatedAt,
		DeletedAt:     fromDeletedAt(msg.DeletedAt),
		IsDeleted:     msg.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Type:          msg.Type,
		Content:       msg.Content,
		Structured:    datatypes.JSON(msg.Structured),
		CreatedAt:     msg.CreatedAt,
		DeletedAt:     toDeletedAt(msg.DeletedAt, msg.IsDeleted),
	}
}

func (m *ChatMapper) ChatMessagesToEntities(models []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(models))
	for i, msg := range models {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}

// Flow Mappers

func (m *ChatMapper) ChatFlowToEntity(f *model.ChatFlow) *entity.ChatFlow {
	if f == nil {
		return nil
	}
	return &entity.ChatFlow{
		SessionKey: f.SessionKey,
		Kind:       f.Kind,
		Payload:    json.RawMessage(f.Payload),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

func (m *ChatMapper) ChatFlowToModel(f *entity.ChatFlow) *model.ChatFlow {
	if f == nil {
		return nil
	}
	return &model.ChatFlow{
		SessionKey: f.SessionKey,
		Kind:       f.Kind,
		Payload:    datatypes.JSON(f.Payload),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Sent Email Mappers

func (m *ChatMapper) SentEmailToEntity(e *model.SentEmail) *entity.SentEmail {
	if e == nil {
		return nil
	}
	return &entity.SentEmail{
		Id:         e.Id,
		SessionKey: e.SessionKey,
		Recipient:  e.Recipient,
		Subject:    e.Subject,
		Body:       e.Body,
		SentAt:     e.SentAt,
	}
}

func (m *ChatMapper) SentEmailToModel(e *entity.SentEmail) *model.SentEmail {
	if e == nil {
		return nil
	}
	return &model.SentEmail{
		Id:         e.Id,
		SessionKey: e.SessionKey,
		Recipient:  e.Recipient,
		Subject:    e.Subject,
		Body:       e.Body,
		SentAt:     e.SentAt,
	}
}
