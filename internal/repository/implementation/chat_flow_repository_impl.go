package implementation

import (
	"context"
	"errors"

	"twinai-be/internal/entity"
	"twinai-be/internal/mapper"
	"twinai-be/internal/model"
	"twinai-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatFlowRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatFlowRepository(db *gorm.DB) contract.ChatFlowRepository {
	return &ChatFlowRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatFlowRepositoryImpl) Upsert(ctx context.Context, flow *entity.ChatFlow) error {
	m := r.mapper.ChatFlowToModel(flow)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "payload", "updated_at"}),
	}).Create(m).Error
}

func (r *ChatFlowRepositoryImpl) FindBySessionKey(ctx context.Context, sessionKey string) (*entity.ChatFlow, error) {
	var m model.ChatFlow
	if err := r.db.WithContext(ctx).Where("session_key = ?", sessionKey).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatFlowToEntity(&m), nil
}

func (r *ChatFlowRepositoryImpl) DeleteBySessionKey(ctx context.Context, sessionKey string) error {
	return r.db.WithContext(ctx).Where("session_key = ?", sessionKey).Delete(&model.ChatFlow{}).Error
}
