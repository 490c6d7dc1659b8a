package assistant

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/prompt"
)

type saltyReply struct {
	EnhancedResponse string             `json:"enhancedResponse" jsonschema:"rewritten pushback reply"`
	Suggestions      []model.Suggestion `json:"suggestions,omitempty" jsonschema:"prompts nudging toward a real idea"`
}

var saltySchema = mustSchema[saltyReply]()

// Enhance rewrites a pushback reply with attitude scaled by the persistence level
func (a *Assistant) Enhance(ctx context.Context, req model.EnhanceRequest) (*model.EnhancedResponse, error) {
	reply, ok, err := generateJSON[saltyReply](ctx, a, prompt.KindSalty, prompt.Context{
		Message:          req.UserMessage,
		BaseResponse:     req.BaseResponse,
		PersistenceLevel: req.PersistenceLevel,
		WrinklePoints:    req.WrinklePoints,
	}, saltySchema, a.temperature)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(reply.EnhancedResponse) == "" {
		return nil, goerr.New("no enhanced response in reply")
	}

	return &model.EnhancedResponse{
		EnhancedResponse: reply.EnhancedResponse,
		Suggestions:      cleanSuggestions(reply.Suggestions),
	}, nil
}
