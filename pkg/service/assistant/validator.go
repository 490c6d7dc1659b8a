package assistant

import (
	"context"

	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/prompt"
)

var verdictSchema = mustSchema[model.Verdict]()

// Validate asks the model for a verdict on text. A reply without a parseable
// verdict, including an object missing "valid", yields (nil, nil).
func (a *Assistant) Validate(ctx context.Context, text string) (*model.Verdict, error) {
	verdict, ok, err := generateJSON[model.Verdict](ctx, a, prompt.KindValidateIdea, prompt.Context{
		Message: text,
	}, verdictSchema, 0, "valid")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return &verdict, nil
}
