package interfaces

import (
	"context"

	"github.com/m-mizutani/wrinkle/pkg/model"
)

// IdeaValidator asks a remote model whether text is a concrete idea.
// A nil verdict with a nil error means the reply held no parseable verdict.
type IdeaValidator interface {
	Validate(ctx context.Context, text string) (*model.Verdict, error)
}

// ChatResponder produces assistant replies
type ChatResponder interface {
	Respond(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error)
}

// WrinkleEvaluator scores a user/bot exchange
type WrinkleEvaluator interface {
	Evaluate(ctx context.Context, req model.EvaluateRequest) (*model.PointChange, error)
}

// SuggestionGenerator proposes answers the user could give next
type SuggestionGenerator interface {
	Suggest(ctx context.Context, req model.SuggestRequest) ([]model.Suggestion, error)
}

// SaltyEnhancer rewrites pushback replies for manipulation attempts
type SaltyEnhancer interface {
	Enhance(ctx context.Context, req model.EnhanceRequest) (*model.EnhancedResponse, error)
}

// TopicChecker decides whether a message relates to the accepted idea
type TopicChecker interface {
	IsOnTopic(ctx context.Context, idea, message string) (bool, error)
}

// Assistant bundles every remote function the conversation engine needs
type Assistant interface {
	IdeaValidator
	ChatResponder
	WrinkleEvaluator
	SuggestionGenerator
	SaltyEnhancer
	TopicChecker
}

// SessionRepository persists session metadata. The message log lives in
// blob storage next to it.
type SessionRepository interface {
	PutSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)
	ListSessions(ctx context.Context, offset, limit int) ([]*model.Session, error)
	DeleteSession(ctx context.Context, id model.SessionID) error
}
