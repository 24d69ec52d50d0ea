package contract

import (
	"context"

	"twinai-be/internal/entity"
	"twinai-be/internal/repository/specification"
)

type SentEmailRepository interface {
	Create(ctx context.Context, email *entity.SentEmail) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SentEmail, error)
}
