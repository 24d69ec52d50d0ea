package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"twinai-be/internal/entity"
	"twinai-be/internal/pkg/logger"
	"twinai-be/internal/repository/contract"
	"twinai-be/pkg/store"
)

const module = "SESSION"

// ErrFlowActive is returned when a different flow already owns the session.
var ErrFlowActive = errors.New("another flow is active for this session")

// Manager loads and persists the active Flow of each session. Repository
// failures are wrapped with store.ErrDurableStore.
type Manager struct {
	repo   contract.ChatFlowRepository
	ttl    time.Duration
	logger logger.ILogger
	now    func() time.Time
}

func NewManager(repo contract.ChatFlowRepository, ttl time.Duration, log logger.ILogger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{repo: repo, ttl: ttl, logger: log, now: time.Now}
}

// Load returns the active flow, or nil. Flows idle for longer than the TTL are
// discarded.
func (m *Manager) Load(ctx context.Context, sessionID string) (*store.Flow, error) {
	record, err := m.repo.FindBySessionKey(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load flow: %w", store.ErrDurableStore, err)
	}
	if record == nil {
		return nil, nil
	}

	if m.ttl > 0 && m.now().Sub(record.UpdatedAt) > m.ttl {
		m.logger.Info(module, "Flow expired", map[string]interface{}{
			"session_id": sessionID,
			"kind":       record.Kind,
			"idle":       m.now().Sub(record.UpdatedAt).String(),
		})
		if err := m.repo.DeleteBySessionKey(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("%w: delete expired flow: %w", store.ErrDurableStore, err)
		}
		return nil, nil
	}

	flow, err := decode(record)
	if err != nil {
		// unreadable state cannot be resumed; drop it rather than wedge the session
		m.logger.Warn(module, "Discarding undecodable flow", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
		if err := m.repo.DeleteBySessionKey(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("%w: delete corrupt flow: %w", store.ErrDurableStore, err)
		}
		return nil, nil
	}
	return flow, nil
}

// Begin stores a new flow. It fails with ErrFlowActive when the session
// already has one; flows are never replaced implicitly.
func (m *Manager) Begin(ctx context.Context, flow *store.Flow) error {
	current, err := m.Load(ctx, flow.SessionID)
	if err != nil {
		return err
	}
	if current != nil {
		return fmt.Errorf("%w: %s", ErrFlowActive, current.Describe())
	}
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = m.now()
	}
	return m.Save(ctx, flow)
}

func (m *Manager) Save(ctx context.Context, flow *store.Flow) error {
	if err := flow.Validate(); err != nil {
		return err
	}
	flow.UpdatedAt = m.now()

	record, err := encode(flow)
	if err != nil {
		return err
	}
	if err := m.repo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("%w: save flow: %w", store.ErrDurableStore, err)
	}
	return nil
}

func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if err := m.repo.DeleteBySessionKey(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: clear flow: %w", store.ErrDurableStore, err)
	}
	return nil
}

func encode(flow *store.Flow) (*entity.ChatFlow, error) {
	var payload interface{}
	switch flow.Kind {
	case store.FlowEmail:
		payload = flow.Email
	case store.FlowCalendarConfirmation:
		payload = flow.Confirmation
	case store.FlowCalendarSuggestion:
		payload = flow.Suggestion
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode flow: %w", err)
	}
	return &entity.ChatFlow{
		SessionKey: flow.SessionID,
		Kind:       string(flow.Kind),
		Payload:    raw,
		CreatedAt:  flow.CreatedAt,
		UpdatedAt:  flow.UpdatedAt,
	}, nil
}

func decode(record *entity.ChatFlow) (*store.Flow, error) {
	flow := &store.Flow{
		SessionID: record.SessionKey,
		Kind:      store.FlowKind(record.Kind),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}

	var target interface{}
	switch flow.Kind {
	case store.FlowEmail:
		flow.Email = &store.EmailDraft{}
		target = flow.Email
	case store.FlowCalendarConfirmation:
		flow.Confirmation = &store.PendingConfirmation{}
		target = flow.Confirmation
	case store.FlowCalendarSuggestion:
		flow.Suggestion = &store.PendingSuggestion{}
		target = flow.Suggestion
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", store.ErrInvalidFlow, record.Kind)
	}

	if err := json.Unmarshal(record.Payload, target); err != nil {
		return nil, fmt.Errorf("decode flow payload: %w", err)
	}
	return flow, nil
}
