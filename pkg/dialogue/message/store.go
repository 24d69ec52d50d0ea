package message

import (
	"context"
	"fmt"

	"twinai-be/internal/entity"
	"twinai-be/internal/repository/specification"
	"twinai-be/internal/repository/unitofwork"
	"twinai-be/pkg/store"

	"github.com/google/uuid"
)

const DefaultTitle = "New Chat"

// Store persists conversation messages in the relational database.
type Store struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewStore(uowFactory unitofwork.RepositoryFactory) *Store {
	return &Store{uowFactory: uowFactory}
}

// Append finds or creates the chat for sessionID and stores msg in one transaction.
func (s *Store) Append(ctx context.Context, sessionID, userID string, msg store.Message) (err error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = uow.Rollback()
		}
	}()

	session, err := s.findOrCreate(ctx, uow, sessionID, userID, msg)
	if err != nil {
		return err
	}

	record := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          string(msg.Role),
		Type:          string(msg.Type),
		Content:       msg.Content,
		Structured:    msg.Structured,
		CreatedAt:     msg.Timestamp,
	}
	if err = uow.ChatMessageRepository().Create(ctx, record); err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	if err = uow.Commit(); err != nil {
		return fmt.Errorf("commit message: %w", err)
	}
	return nil
}

func (s *Store) findOrCreate(ctx context.Context, uow unitofwork.UnitOfWork, sessionID, userID string, msg store.Message) (*entity.ChatSession, error) {
	repo := uow.ChatSessionRepository()
	session, err := repo.FindOne(ctx, specification.BySessionKey{SessionKey: sessionID})
	if err != nil {
		return nil, fmt.Errorf("find chat session: %w", err)
	}

	if session == nil {
		session = &entity.ChatSession{
			Id:         uuid.New(),
			SessionKey: sessionID,
			UserId:     userID,
			Title:      DefaultTitle,
			CreatedAt:  msg.Timestamp,
		}
		if msg.Role == store.RoleUser {
			session.Title = TitleFrom(msg.Content)
		}
		if err := repo.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("create chat session: %w", err)
		}
		return session, nil
	}

	if session.UserId != "" && session.UserId != userID {
		return nil, store.ErrSessionForbidden
	}

	changed := false
	if session.UserId == "" && userID != "" {
		session.UserId = userID
		changed = true
	}
	if session.Title == DefaultTitle && msg.Role == store.RoleUser {
		session.Title = TitleFrom(msg.Content)
		changed = true
	}

	activeAt := msg.Timestamp
	session.UpdatedAt = &activeAt
	if changed {
		if err := repo.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("update chat session: %w", err)
		}
		return session, nil
	}
	if err := repo.Touch(ctx, session.Id, activeAt); err != nil {
		return nil, fmt.Errorf("touch chat session: %w", err)
	}
	return session, nil
}

// OwnerOf returns the user owning the chat, empty when it is anonymous.
func (s *Store) OwnerOf(ctx context.Context, sessionID string) (string, bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.BySessionKey{SessionKey: sessionID})
	if err != nil {
		return "", false, fmt.Errorf("find chat session: %w", err)
	}
	if session == nil {
		return "", false, nil
	}
	return session.UserId, true, nil
}

// Recent returns the last n messages of the session in chronological order.
func (s *Store) Recent(ctx context.Context, sessionID string, n int) ([]store.Message, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.BySessionKey{SessionKey: sessionID})
	if err != nil {
		return nil, fmt.Errorf("find chat session: %w", err)
	}
	if session == nil {
		return []store.Message{}, nil
	}

	records, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: n},
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	msgs := make([]store.Message, len(records))
	for i, r := range records {
		msgs[len(records)-1-i] = store.Message{
			Role:       store.Role(r.Role),
			Content:    r.Content,
			Type:       store.MessageType(r.Type),
			Structured: r.Structured,
			Timestamp:  r.CreatedAt,
		}
	}
	return msgs, nil
}

// ListSessions returns the chats owned by userID, most recently active first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatSessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userID},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
}

// DeleteSession soft-deletes a chat and its messages. Returns false when the
// chat does not exist or belongs to another user.
func (s *Store) DeleteSession(ctx context.Context, sessionID, userID string) (deleted bool, err error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !deleted {
			_ = uow.Rollback()
		}
	}()

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.BySessionKey{SessionKey: sessionID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return false, fmt.Errorf("find chat session: %w", err)
	}
	if session == nil {
		return false, nil
	}

	if err = uow.ChatMessageRepository().DeleteBySession(ctx, session.Id); err != nil {
		return false, fmt.Errorf("delete messages: %w", err)
	}
	if err = uow.ChatSessionRepository().Delete(ctx, session.Id); err != nil {
		return false, fmt.Errorf("delete chat session: %w", err)
	}
	if err = uow.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return true, nil
}
