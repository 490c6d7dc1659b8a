// Package assistant implements the remote functions of the idea chat on top
// of Gemini: idea validation, chat replies, wrinkle point scoring, answer
// suggestions, salty pushback and topic relevance.
package assistant

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/adapter"
	"github.com/m-mizutani/wrinkle/pkg/interfaces"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/prompt"
	"github.com/m-mizutani/wrinkle/pkg/utils/llmjson"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	"google.golang.org/genai"
)

const (
	systemInstruction = "You are Wrinkle, a sarcastic but genuinely useful startup idea coach."
	historyWindow     = 10
)

// Assistant implements interfaces.Assistant with Gemini
type Assistant struct {
	gemini      adapter.Gemini
	temperature float32
}

var _ interfaces.Assistant = (*Assistant)(nil)

type Option func(*Assistant)

// WithTemperature sets the sampling temperature for chat replies
func WithTemperature(t float32) Option {
	return func(a *Assistant) {
		a.temperature = t
	}
}

func New(gemini adapter.Gemini, opts ...Option) *Assistant {
	a := &Assistant{
		gemini:      gemini,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// generate renders kind, sends it and returns the raw reply text
func (a *Assistant) generate(ctx context.Context, kind prompt.Kind, pctx prompt.Context, config *genai.GenerateContentConfig) (string, error) {
	text, err := prompt.Build(kind, pctx)
	if err != nil {
		return "", err
	}

	if config.SystemInstruction == nil {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, "")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	resp, err := a.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "remote generation failed", goerr.V("kind", kind))
	}

	reply := adapter.ResponseText(resp)
	logging.From(ctx).Debug("remote reply", "kind", kind, "prompt_version", prompt.Version, "reply", reply)
	return reply, nil
}

// generateJSON asks for a structured reply shaped like T. ok is false when the
// reply holds no parseable object or misses a required key; err is set only
// when the call failed.
func generateJSON[T any](ctx context.Context, a *Assistant, kind prompt.Kind, pctx prompt.Context, schema *genai.Schema, temperature float32, required ...string) (T, bool, error) {
	var zero T

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	raw, err := a.generate(ctx, kind, pctx, config)
	if err != nil {
		return zero, false, err
	}

	v, ok := llmjson.Parse[T](raw, required...)
	if !ok {
		logging.From(ctx).Warn("no structured reply", "kind", kind, "reply", raw)
		return zero, false, nil
	}
	return v, true, nil
}

// promptHistory converts the tail of a conversation into prompt turns
func promptHistory(history []model.HistoryEntry) []prompt.Turn {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	turns := make([]prompt.Turn, 0, len(history))
	for _, h := range history {
		turns = append(turns, prompt.Turn{Role: string(h.Role), Content: h.Content})
	}
	return turns
}

// cleanSuggestions drops suggestions without text
func cleanSuggestions(in []model.Suggestion) []model.Suggestion {
	var out []model.Suggestion
	for _, s := range in {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}
