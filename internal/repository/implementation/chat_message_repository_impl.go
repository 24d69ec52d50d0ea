package implementation

import (
	"context"

	"twinai-be/internal/entity"
	"twinai-be/internal/mapper"
	"twinai-be/internal/model"
	"twinai-be/internal/repository/contract"
	"twinai-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

// Create keeps the caller's CreatedAt; the history manager assigns strictly
// increasing timestamps per session.
func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	row := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	message.Id = row.Id
	return nil
}

func (r *ChatMessageRepositoryImpl) DeleteBySession(ctx context.Context, chatSessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("chat_session_id = ?", chatSessionID).
		Delete(&model.ChatMessage{}).Error
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var rows []*model.ChatMessage
	if err := scoped(ctx, r.db, &model.ChatMessage{}, specs).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatMessagesToEntities(rows), nil
}
