package assistant

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/prompt"
)

const maxPointChange = 10

type pointReply struct {
	PointChange int    `json:"pointChange" jsonschema:"integer between -10 and 10"`
	Explanation string `json:"explanation" jsonschema:"one sentence explaining the change"`
}

var pointSchema = mustSchema[pointReply]()

// Evaluate scores how much the exchange improved the idea. The change is
// clamped to [-10, 10].
func (a *Assistant) Evaluate(ctx context.Context, req model.EvaluateRequest) (*model.PointChange, error) {
	reply, ok, err := generateJSON[pointReply](ctx, a, prompt.KindWrinkleEval, prompt.Context{
		Message:       req.UserMessage,
		BotResponse:   req.BotResponse,
		History:       promptHistory(req.ConversationHistory),
		WrinklePoints: req.CurrentWrinklePoints,
	}, pointSchema, 0, "pointChange")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, goerr.New("no point change in reply")
	}

	return &model.PointChange{
		PointChange: max(-maxPointChange, min(maxPointChange, reply.PointChange)),
		Explanation: reply.Explanation,
	}, nil
}
