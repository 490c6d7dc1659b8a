package assistant

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/prompt"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
)

type topicReply struct {
	OnTopic bool   `json:"onTopic" jsonschema:"true if the message is about the idea or building the business"`
	Reason  string `json:"reason" jsonschema:"short reason"`
}

var topicSchema = mustSchema[topicReply]()

// IsOnTopic reports whether message relates to idea
func (a *Assistant) IsOnTopic(ctx context.Context, idea, message string) (bool, error) {
	reply, ok, err := generateJSON[topicReply](ctx, a, prompt.KindOffTopicCheck, prompt.Context{
		Idea:    idea,
		Message: message,
	}, topicSchema, 0, "onTopic")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, goerr.New("no topic verdict in reply")
	}

	logging.From(ctx).Debug("topic check", "on_topic", reply.OnTopic, "reason", reply.Reason)
	return reply.OnTopic, nil
}
