package message

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"twinai-be/internal/entity"
	"twinai-be/internal/repository/contract"
	"twinai-be/internal/repository/specification"
	"twinai-be/internal/repository/unitofwork"
	"twinai-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory doubles that understand the specifications used by Store.

type fakeDB struct {
	sessions []*entity.ChatSession
	messages []*entity.ChatMessage
}

type fakeFactory struct{ db *fakeDB }

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{db: f.db}
}

type fakeUoW struct{ db *fakeDB }

func (u *fakeUoW) Begin(ctx context.Context) error { return nil }
func (u *fakeUoW) Commit() error                   { return nil }
func (u *fakeUoW) Rollback() error                 { return nil }
func (u *fakeUoW) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessions{db: u.db}
}
func (u *fakeUoW) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessages{db: u.db}
}

type fakeSessions struct{ db *fakeDB }

func matchSession(s *entity.ChatSession, specs []specification.Specification) bool {
	if s.IsDeleted {
		return false
	}
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.BySessionKey:
			if s.SessionKey != v.SessionKey {
				return false
			}
		case specification.ByUserID:
			if s.UserId != v.UserID {
				return false
			}
		}
	}
	return true
}

func (r *fakeSessions) Create(ctx context.Context, s *entity.ChatSession) error {
	cp := *s
	r.db.sessions = append(r.db.sessions, &cp)
	return nil
}

func (r *fakeSessions) Update(ctx context.Context, s *entity.ChatSession) error {
	for i, existing := range r.db.sessions {
		if existing.Id == s.Id {
			cp := *s
			r.db.sessions[i] = &cp
		}
	}
	return nil
}

func (r *fakeSessions) Delete(ctx context.Context, id uuid.UUID) error {
	for _, s := range r.db.sessions {
		if s.Id == id {
			s.IsDeleted = true
		}
	}
	return nil
}

func (r *fakeSessions) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	for _, s := range r.db.sessions {
		if matchSession(s, specs) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessions) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var out []*entity.ChatSession
	for _, s := range r.db.sessions {
		if matchSession(s, specs) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessions) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	for _, s := range r.db.sessions {
		if s.Id == id {
			touched := at
			s.UpdatedAt = &touched
		}
	}
	return nil
}

type fakeMessages struct{ db *fakeDB }

func (r *fakeMessages) Create(ctx context.Context, m *entity.ChatMessage) error {
	cp := *m
	r.db.messages = append(r.db.messages, &cp)
	return nil
}

func (r *fakeMessages) DeleteBySession(ctx context.Context, id uuid.UUID) error {
	for _, m := range r.db.messages {
		if m.ChatSessionId == id {
			m.IsDeleted = true
		}
	}
	return nil
}

func (r *fakeMessages) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var out []*entity.ChatMessage
	limit := -1
	desc := false
	for _, m := range r.db.messages {
		ok := !m.IsDeleted
		for _, spec := range specs {
			if v, isSession := spec.(specification.ByChatSessionID); isSession && m.ChatSessionId != v.ChatSessionID {
				ok = false
			}
		}
		if ok {
			out = append(out, m)
		}
	}
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.OrderBy:
			desc = v.Desc
		case specification.Pagination:
			limit = v.Limit
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestTitleFrom(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "short", content: "hello there", want: "hello there"},
		{name: "exactly thirty", content: strings.Repeat("a", 30), want: strings.Repeat("a", 30)},
		{name: "long", content: "please schedule a meeting called Standup tomorrow", want: "please schedule a meeting call..."},
		{name: "blank", content: "   ", want: DefaultTitle},
		{name: "multibyte", content: strings.Repeat("é", 31), want: strings.Repeat("é", 30) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFrom(tt.content))
		})
	}
}

func TestStoreAppendAndRecent(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(&fakeFactory{db: db})
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, "sess", "", store.Message{
		Role: store.RoleAssistant, Content: "welcome", Type: store.TypeText, Timestamp: base,
	}))
	require.NoError(t, s.Append(ctx, "sess", "user-1", store.Message{
		Role: store.RoleUser, Content: "plan my week", Type: store.TypeText, Timestamp: base.Add(time.Second),
	}))
	require.NoError(t, s.Append(ctx, "sess", "user-1", store.Message{
		Role: store.RoleUser, Content: "second question", Type: store.TypeText, Timestamp: base.Add(2 * time.Second),
	}))

	require.Len(t, db.sessions, 1)
	assert.Equal(t, "plan my week", db.sessions[0].Title)
	assert.Equal(t, "user-1", db.sessions[0].UserId)
	require.NotNil(t, db.sessions[0].UpdatedAt)
	assert.Equal(t, base.Add(2*time.Second), *db.sessions[0].UpdatedAt)

	recent, err := s.Recent(ctx, "sess", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "plan my week", recent[0].Content)
	assert.Equal(t, "second question", recent[1].Content)

	empty, err := s.Recent(ctx, "unknown", 20)
	require.NoError(t, err)
	assert.Empty(t, empty)

	sessions, err := s.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestStoreDeleteSessionChecksOwner(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(&fakeFactory{db: db})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess", "owner", store.Message{
		Role: store.RoleUser, Content: "hi", Type: store.TypeText, Timestamp: time.Now(),
	}))

	deleted, err := s.DeleteSession(ctx, "sess", "intruder")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteSession(ctx, "sess", "owner")
	require.NoError(t, err)
	assert.True(t, deleted)

	recent, err := s.Recent(ctx, "sess", 20)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestStoreAppendRejectsOtherUsers(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(&fakeFactory{db: db})
	ctx := context.Background()
	msg := store.Message{Role: store.RoleUser, Content: "hi", Type: store.TypeText, Timestamp: time.Now()}

	require.NoError(t, s.Append(ctx, "sess", "owner", msg))

	for _, userID := range []string{"intruder", ""} {
		err := s.Append(ctx, "sess", userID, msg)
		assert.ErrorIs(t, err, store.ErrSessionForbidden, userID)
	}
	assert.Len(t, db.messages, 1)

	owner, found, err := s.OwnerOf(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "owner", owner)

	_, found, err = s.OwnerOf(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, found)
}
