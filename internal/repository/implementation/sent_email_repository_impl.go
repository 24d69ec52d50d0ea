package implementation

import (
	"context"

	"twinai-be/internal/entity"
	"twinai-be/internal/mapper"
	"twinai-be/internal/model"
	"twinai-be/internal/repository/contract"
	"twinai-be/internal/repository/specification"

	"gorm.io/gorm"
)

type SentEmailRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewSentEmailRepository(db *gorm.DB) contract.SentEmailRepository {
	return &SentEmailRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *SentEmailRepositoryImpl) Create(ctx context.Context, email *entity.SentEmail) error {
	m := r.mapper.SentEmailToModel(email)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*email = *r.mapper.SentEmailToEntity(m)
	return nil
}

func (r *SentEmailRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SentEmail, error) {
	var rows []*model.SentEmail
	if err := scoped(ctx, r.db, &model.SentEmail{}, specs).Find(&rows).Error; err != nil {
		return nil, err
	}
	emails := make([]*entity.SentEmail, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, r.mapper.SentEmailToEntity(row))
	}
	return emails, nil
}
