package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidResponseMode = goerr.New("invalid response mode")
)

// DefaultSessionName is the name a session carries until the user names it.
// No submission is processed while a session still has this name.
const DefaultSessionName = "New Session"

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

type ResponseMode string

const (
	ResponseModeSummary  ResponseMode = "summary"
	ResponseModeDetailed ResponseMode = "detailed"
)

// Validate checks if the response mode is valid
func (m ResponseMode) Validate() error {
	switch m {
	case ResponseModeSummary, ResponseModeDetailed:
		return nil
	default:
		return goerr.Wrap(ErrInvalidResponseMode, "unknown mode", goerr.V("mode", m))
	}
}

// Session holds the conversation state that is not derived from the message
// log. Firestore field names stay the Go names; the JSON shape is camelCase.
type Session struct {
	ID            SessionID `json:"id" firestore:"ID"`
	Name          string    `json:"name" firestore:"Name"`
	IsDefaultName bool      `json:"isDefaultName" firestore:"IsDefaultName"`

	CurrentIdea      string `json:"currentIdea" firestore:"CurrentIdea"`
	HasValidIdea     bool   `json:"hasValidIdea" firestore:"HasValidIdea"`
	OffTopicCount    int    `json:"offTopicCount" firestore:"OffTopicCount"`
	PersistenceLevel int    `json:"persistenceLevel" firestore:"PersistenceLevel"`
	Stopped          bool   `json:"stopped" firestore:"Stopped"`

	ResponseMode ResponseMode `json:"responseMode" firestore:"ResponseMode"`
	Persona      string       `json:"persona,omitempty" firestore:"Persona"`

	CreatedAt time.Time `json:"createdAt" firestore:"CreatedAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"UpdatedAt"`
}

// NewSession creates a session with the default name
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:            NewSessionID(),
		Name:          DefaultSessionName,
		IsDefaultName: true,
		ResponseMode:  ResponseModeSummary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Snapshot is the persisted unit of a conversation
type Snapshot struct {
	Session  *Session
	Messages []*Message
}

// Score returns the wrinkle point total derived from the message log
func (s *Snapshot) Score() int {
	return ComputeScore(s.Messages)
}
