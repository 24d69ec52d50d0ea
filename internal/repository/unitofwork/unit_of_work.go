package unitofwork

import (
	"context"

	"twinai-be/internal/repository/contract"
)

// UnitOfWork scopes the chat repositories to one transaction, so a message
// is never stored without its chat.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
}
