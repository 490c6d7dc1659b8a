package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type MessageID string

// NewMessageID generates a new unique MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// MessageKind tags bot messages so that clients can render them differently
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindReply       MessageKind = "reply"
	KindGate        MessageKind = "gate"
	KindGlitch      MessageKind = "glitch"
	KindPushback    MessageKind = "pushback"
	KindOffTopic    MessageKind = "off_topic"
	KindStopped     MessageKind = "stopped"
	KindInstruction MessageKind = "instruction"
	KindTyping      MessageKind = "typing"
)

// Suggestion is a follow-up answer the user can pick. Remote functions return
// either a plain string or an object with an explanation; both end up here.
type Suggestion struct {
	Text        string `json:"text"`
	Explanation string `json:"explanation,omitempty"`
}

// UnmarshalJSON accepts a bare string or a {text, explanation} object
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = Suggestion{Text: text}
		return nil
	}

	type suggestion Suggestion
	var v suggestion
	if err := json.Unmarshal(data, &v); err != nil {
		return goerr.Wrap(err, "suggestion must be a string or an object")
	}
	*s = Suggestion(v)
	return nil
}

// Message is a single conversation turn. The ordered message log is the only
// source of truth for the score.
type Message struct {
	ID           MessageID    `json:"id"`
	Role         Role         `json:"role"`
	Kind         MessageKind  `json:"kind,omitempty"`
	Content      string       `json:"content"`
	Timestamp    time.Time    `json:"timestamp"`
	PointsEarned *int         `json:"pointsEarned,omitempty"`
	Suggestions  []Suggestion `json:"suggestions,omitempty"`
}

// NewUserMessage creates a user turn stamped with the current time
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Kind:      KindText,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewBotMessage creates a bot turn of the given kind
func NewBotMessage(kind MessageKind, content string) *Message {
	return &Message{
		ID:        NewMessageID(),
		Role:      RoleBot,
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// WithPoints sets PointsEarned and returns the message for chaining
func (m *Message) WithPoints(points int) *Message {
	m.PointsEarned = &points
	return m
}

// IsPlaceholder reports whether the message is the transient typing indicator
func (m *Message) IsPlaceholder() bool {
	return m.Role == RoleBot && m.Kind == KindTyping
}
