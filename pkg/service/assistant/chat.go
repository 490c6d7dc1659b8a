package assistant

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/prompt"
)

type chatReply struct {
	Response    string             `json:"response" jsonschema:"reply shown to the founder"`
	PMFAnalysis string             `json:"pmfAnalysis,omitempty" jsonschema:"one paragraph product-market fit assessment"`
	Suggestions []model.Suggestion `json:"suggestions,omitempty" jsonschema:"short answers the founder could give next"`
}

var chatSchema = mustSchema[chatReply]()

// Respond produces the assistant reply. In refinement mode the prompt is
// grounded in req.Idea; otherwise it opens the discussion of a freshly
// accepted idea.
func (a *Assistant) Respond(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	kind := prompt.KindRefine
	if !req.RefinementMode {
		kind = prompt.KindFirstMessage
	}

	idea := req.Idea
	if idea == "" {
		if req.RefinementMode {
			return nil, goerr.New("refinement requires an idea")
		}
		idea = req.Message
	}

	mode := req.ResponseMode
	if mode == "" {
		mode = model.ResponseModeSummary
	}

	reply, ok, err := generateJSON[chatReply](ctx, a, kind, prompt.Context{
		Message:      req.Message,
		Idea:         idea,
		History:      promptHistory(req.ConversationHistory),
		ResponseMode: string(mode),
	}, chatSchema, a.temperature)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(reply.Response) == "" {
		return nil, goerr.New("empty chat reply", goerr.V("kind", kind))
	}

	out := &model.ChatReply{
		Response:    reply.Response,
		PMFAnalysis: reply.PMFAnalysis,
		Suggestions: cleanSuggestions(reply.Suggestions),
	}
	if mode == model.ResponseModeDetailed {
		out.DetailedResponse = reply.Response
	} else {
		out.SummaryResponse = reply.Response
	}

	return out, nil
}
