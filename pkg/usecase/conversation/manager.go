package conversation

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
)

// Factory builds an Engine around a snapshot
type Factory func(snapshot *model.Snapshot) *Engine

// Manager keeps one Engine per session so concurrent requests for the same
// session share its in-flight guard
type Manager struct {
	mu      sync.Mutex
	engines map[model.SessionID]*Engine
	store   *Store
	factory Factory
}

// NewManager creates a Manager. factory should attach store to the engines it
// builds so that turns are persisted.
func NewManager(store *Store, factory Factory) *Manager {
	return &Manager{
		engines: make(map[model.SessionID]*Engine),
		store:   store,
		factory: factory,
	}
}

// Create starts and persists a new session
func (m *Manager) Create(ctx context.Context) (*Engine, error) {
	snapshot := &model.Snapshot{Session: model.NewSession()}
	if err := m.store.Save(ctx, snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to save new session")
	}

	engine := m.factory(snapshot)

	m.mu.Lock()
	m.engines[snapshot.Session.ID] = engine
	m.mu.Unlock()

	return engine, nil
}

// Get returns the engine of a session, loading it from the store if needed
func (m *Manager) Get(ctx context.Context, id model.SessionID) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if engine, ok := m.engines[id]; ok {
		return engine, nil
	}

	snapshot, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	engine := m.factory(snapshot)
	m.engines[id] = engine
	return engine, nil
}

// Delete forgets a session and removes it from the store
func (m *Manager) Delete(ctx context.Context, id model.SessionID) error {
	m.mu.Lock()
	delete(m.engines, id)
	m.mu.Unlock()

	return m.store.Delete(ctx, id)
}

// List returns stored sessions, most recently updated first
func (m *Manager) List(ctx context.Context, offset, limit int) ([]*model.Session, error) {
	return m.store.List(ctx, offset, limit)
}
