package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/adapter"
	"github.com/m-mizutani/wrinkle/pkg/interfaces"
	"github.com/m-mizutani/wrinkle/pkg/model"
)

// Store persists snapshots: session metadata goes to the repository and the
// message log to blob storage.
type Store struct {
	repo    interfaces.SessionRepository
	storage adapter.Storage
}

func NewStore(repo interfaces.SessionRepository, storage adapter.Storage) *Store {
	return &Store{
		repo:    repo,
		storage: storage,
	}
}

func messagesKey(id model.SessionID) string {
	return "sessions/" + string(id) + "/messages.json"
}

// Load reads a snapshot. A session without a stored log has no messages.
func (s *Store) Load(ctx context.Context, id model.SessionID) (*model.Snapshot, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get session from repository")
	}

	snapshot := &model.Snapshot{Session: session}

	reader, err := s.storage.Get(ctx, messagesKey(id))
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return snapshot, nil
		}
		return nil, goerr.Wrap(err, "failed to get messages from storage")
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read messages")
	}

	if err := json.Unmarshal(data, &snapshot.Messages); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal messages", goerr.V("session_id", id))
	}

	return snapshot, nil
}

// Save writes the message log without transient placeholders, then the
// session metadata.
func (s *Store) Save(ctx context.Context, snapshot *model.Snapshot) error {
	session := snapshot.Session
	if session.ID == "" {
		session.ID = model.NewSessionID()
		session.CreatedAt = time.Now()
	}
	session.UpdatedAt = time.Now()

	messages := make([]*model.Message, 0, len(snapshot.Messages))
	for _, msg := range snapshot.Messages {
		if !msg.IsPlaceholder() {
			messages = append(messages, msg)
		}
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal messages")
	}

	writer, err := s.storage.Put(ctx, messagesKey(session.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer")
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write messages to storage")
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer")
	}

	if err := s.repo.PutSession(ctx, session); err != nil {
		return goerr.Wrap(err, "failed to put session to repository")
	}

	return nil
}

// Delete removes the message log and the session metadata
func (s *Store) Delete(ctx context.Context, id model.SessionID) error {
	if err := s.storage.Delete(ctx, messagesKey(id)); err != nil {
		return goerr.Wrap(err, "failed to delete messages")
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete session")
	}
	return nil
}

// List returns session metadata, most recently updated first
func (s *Store) List(ctx context.Context, offset, limit int) ([]*model.Session, error) {
	sessions, err := s.repo.ListSessions(ctx, offset, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions")
	}
	return sessions, nil
}
