package contract

import (
	"context"

	"twinai-be/internal/entity"
)

type ChatFlowRepository interface {
	// Upsert replaces the flow row of the session.
	Upsert(ctx context.Context, flow *entity.ChatFlow) error
	FindBySessionKey(ctx context.Context, sessionKey string) (*entity.ChatFlow, error)
	DeleteBySessionKey(ctx context.Context, sessionKey string) error
}
