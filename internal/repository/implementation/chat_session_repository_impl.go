package implementation

import (
	"context"
	"errors"
	"time"

	"twinai-be/internal/entity"
	"twinai-be/internal/mapper"
	"twinai-be/internal/model"
	"twinai-be/internal/repository/contract"
	"twinai-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

// scoped starts a query on table with every specification applied in order.
func scoped(ctx context.Context, db *gorm.DB, table interface{}, specs []specification.Specification) *gorm.DB {
	query := db.WithContext(ctx).Model(table)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	return query
}

func (r *ChatSessionRepositoryImpl) Create(ctx context.Context, session *entity.ChatSession) error {
	row := r.mapper.ChatSessionToModel(session)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	*session = *r.mapper.ChatSessionToEntity(row)
	return nil
}

func (r *ChatSessionRepositoryImpl) Update(ctx context.Context, session *entity.ChatSession) error {
	row := r.mapper.ChatSessionToModel(session)
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{Id: row.Id}).
		Select("user_id", "title", "updated_at").
		Updates(row).Error
}

func (r *ChatSessionRepositoryImpl) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.ChatSession{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	var row model.ChatSession
	if err := scoped(ctx, r.db, &model.ChatSession{}, specs).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&row), nil
}

func (r *ChatSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var rows []*model.ChatSession
	if err := scoped(ctx, r.db, &model.ChatSession{}, specs).Find(&rows).Error; err != nil {
		return nil, err
	}
	sessions := make([]*entity.ChatSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, r.mapper.ChatSessionToEntity(row))
	}
	return sessions, nil
}
