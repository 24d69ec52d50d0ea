package history

import (
	"context"
	"fmt"
	"time"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/store"
)

const module = "HISTORY"

var ErrDurableStore = store.ErrDurableStore

// Fill stores msgs only when the session has no entry yet and reports whether
// it did. Refills from a slower tier use it so they never replace a window
// written by a concurrent Append.
type LocalCache interface {
	Get(sessionID string) ([]store.Message, bool)
	Set(sessionID string, msgs []store.Message)
	Fill(sessionID string, msgs []store.Message) bool
	Delete(sessionID string)
}

type RemoteCache interface {
	Get(ctx context.Context, sessionID string) ([]store.Message, bool, error)
	Set(ctx context.Context, sessionID string, msgs []store.Message) error
	Fill(ctx context.Context, sessionID string, msgs []store.Message) (bool, error)
	Delete(ctx context.Context, sessionID string) error
}

type DurableStore interface {
	Append(ctx context.Context, sessionID, userID string, msg store.Message) error
	Recent(ctx context.Context, sessionID string, n int) ([]store.Message, error)
}

// Manager reads history through local → remote → durable tiers and writes
// through to all of them. The durable store is authoritative.
type Manager struct {
	local   LocalCache
	remote  RemoteCache
	durable DurableStore
	window  int
	logger  logger.ILogger
	now     func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager. remote may be nil when no distributed cache is configured.
func NewManager(local LocalCache, remote RemoteCache, durable DurableStore, window int, log logger.ILogger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if window <= 0 {
		window = 20
	}
	m := &Manager{
		local:   local,
		remote:  remote,
		durable: durable,
		window:  window,
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Window() int {
	return m.window
}

// Read returns up to limit of the latest messages, oldest first.
func (m *Manager) Read(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = m.window
	}
	if limit > m.window {
		msgs, err := m.durable.Recent(ctx, sessionID, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
		}
		return msgs, nil
	}

	msgs, err := m.readWindow(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return tail(msgs, limit), nil
}

func (m *Manager) readWindow(ctx context.Context, sessionID string) ([]store.Message, error) {
	if msgs, ok := m.local.Get(sessionID); ok {
		return msgs, nil
	}

	if m.remote != nil {
		msgs, ok, err := m.remote.Get(ctx, sessionID)
		if err != nil {
			m.logger.Warn(module, "Remote cache read failed", map[string]interface{}{
				"session_id": sessionID,
				"error":      err,
			})
		} else if ok {
			return m.fillLocal(sessionID, msgs), nil
		}
	}

	msgs, err := m.durable.Recent(ctx, sessionID, m.window)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}
	m.fillRemote(ctx, sessionID, msgs)
	return m.fillLocal(sessionID, msgs), nil
}

// fillLocal caches a refilled window unless a newer one landed meanwhile, in
// which case the newer one is returned.
func (m *Manager) fillLocal(sessionID string, msgs []store.Message) []store.Message {
	if m.local.Fill(sessionID, msgs) {
		return msgs
	}
	if cached, ok := m.local.Get(sessionID); ok {
		return cached
	}
	return msgs
}

func (m *Manager) fillRemote(ctx context.Context, sessionID string, msgs []store.Message) {
	if m.remote == nil {
		return
	}
	if _, err := m.remote.Fill(ctx, sessionID, msgs); err != nil {
		m.logger.Warn(module, "Remote cache refill failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
	}
}

// Append persists msg and refreshes the cached window. The stored message is
// returned with its final timestamp.
func (m *Manager) Append(ctx context.Context, sessionID, userID string, msg store.Message) (store.Message, error) {
	window, err := m.readWindow(ctx, sessionID)
	if err != nil {
		return store.Message{}, err
	}

	if msg.Type == "" {
		msg.Type = store.TypeText
	}
	msg.Timestamp = nextTimestamp(window, msg.Timestamp, m.now)

	if err := m.durable.Append(ctx, sessionID, userID, msg); err != nil {
		return store.Message{}, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}

	window = tail(append(window, msg), m.window)
	m.local.Set(sessionID, window)
	m.writeRemote(ctx, sessionID, window)
	return msg, nil
}

// Invalidate drops the session from both caches.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) {
	m.local.Delete(sessionID)
	if m.remote == nil {
		return
	}
	if err := m.remote.Delete(ctx, sessionID); err != nil {
		m.logger.Warn(module, "Remote cache invalidation failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
	}
}

func (m *Manager) writeRemote(ctx context.Context, sessionID string, msgs []store.Message) {
	if m.remote == nil {
		return
	}
	if err := m.remote.Set(ctx, sessionID, msgs); err != nil {
		m.logger.Warn(module, "Remote cache write failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
		// a stale entry would shadow the durable store on the next read
		_ = m.remote.Delete(ctx, sessionID)
	}
}

// nextTimestamp keeps timestamps strictly increasing within a session.
func nextTimestamp(window []store.Message, ts time.Time, now func() time.Time) time.Time {
	if ts.IsZero() {
		ts = now()
	}
	ts = ts.UTC().Truncate(time.Microsecond)
	if len(window) == 0 {
		return ts
	}
	last := window[len(window)-1].Timestamp.UTC()
	if !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	return ts
}

func tail(msgs []store.Message, n int) []store.Message {
	if len(msgs) <= n {
		return msgs
	}
	out := make([]store.Message, n)
	copy(out, msgs[len(msgs)-n:])
	return out
}
