package assistant

import (
	"context"
	"strings"

	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/prompt"
)

const maxSuggestions = 4

type suggestionsReply struct {
	Suggestions []model.Suggestion `json:"suggestions"`
}

var suggestionsSchema = mustSchema[suggestionsReply]()

// Suggest proposes up to four answers the founder could give to req.Question
func (a *Assistant) Suggest(ctx context.Context, req model.SuggestRequest) ([]model.Suggestion, error) {
	reply, ok, err := generateJSON[suggestionsReply](ctx, a, prompt.KindSuggestions, prompt.Context{
		Question:        req.Question,
		Idea:            req.IdeaDescription,
		PreviousAnswers: req.PreviousAnswers,
		ResponseMode:    string(req.ResponseMode),
	}, suggestionsSchema, a.temperature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	out := make([]model.Suggestion, 0, len(reply.Suggestions))
	for _, s := range reply.Suggestions {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if req.ResponseMode != model.ResponseModeDetailed {
			s.Explanation = ""
		}
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out, nil
}
