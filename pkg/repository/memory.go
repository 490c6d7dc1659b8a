package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
)

// Memory is an in-process session repository for local runs and tests
type Memory struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]model.Session
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[model.SessionID]model.Session),
	}
}

func (r *Memory) PutSession(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *Memory) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V("session_id", id))
	}
	return &session, nil
}

func (r *Memory) ListSessions(ctx context.Context, offset, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	r.mu.RLock()
	sessions := make([]*model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		s := s
		sessions = append(sessions, &s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	if offset >= len(sessions) {
		return []*model.Session{}, nil
	}
	end := min(offset+limit, len(sessions))
	return sessions[offset:end], nil
}

func (r *Memory) DeleteSession(ctx context.Context, id model.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}
