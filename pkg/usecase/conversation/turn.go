package conversation

import (
	"context"
	"time"

	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// turn carries the inputs captured when a Submit started. Remote calls read
// only from it so no lock is held while waiting on the network.
type turn struct {
	engine          *Engine
	seq             uint64
	text            string
	session         model.Session
	history         []model.HistoryEntry
	previousAnswers []string
	score           int
	user            *model.Message
}

// outcome is what a finished turn changes
type outcome struct {
	label       string
	session     model.Session
	messages    []*model.Message
	validation  *model.ValidationResult
	pointChange *model.PointChange
}

func (t *turn) newOutcome(label string) *outcome {
	return &outcome{label: label, session: t.session}
}

// apply copies the turn-owned fields onto s. Name, mode and persona may have
// changed while the turn ran and are left alone.
func (o *outcome) apply(s *model.Session) {
	s.CurrentIdea = o.session.CurrentIdea
	s.HasValidIdea = o.session.HasValidIdea
	s.OffTopicCount = o.session.OffTopicCount
	s.PersistenceLevel = o.session.PersistenceLevel
	s.Stopped = o.session.Stopped
}

// pushback answers a manipulation attempt. It never touches the idea.
func (t *turn) pushback(ctx context.Context) *outcome {
	e := t.engine
	out := t.newOutcome("pushback")
	out.session.PersistenceLevel++
	level := out.session.PersistenceLevel

	base := pushbackLine(level)
	msg := model.NewBotMessage(model.KindPushback, base)

	started := time.Now()
	enhanced, err := e.assistant.Enhance(ctx, model.EnhanceRequest{
		BaseResponse:     base,
		UserMessage:      t.text,
		PersistenceLevel: level,
		WrinklePoints:    t.score,
	})
	e.observe("salty_enhance", started, err)

	switch {
	case err != nil:
		logging.From(ctx).Warn("salty enhancer failed, using canned pushback", "error", err)
	case enhanced != nil && enhanced.EnhancedResponse != "":
		msg.Content = enhanced.EnhancedResponse
		msg.Suggestions = enhanced.Suggestions
	}

	out.messages = append(out.messages, msg)
	return out
}

// pitch sends the submission through the idea gate
func (t *turn) pitch(ctx context.Context) (*outcome, error) {
	e := t.engine
	out := t.newOutcome("gate")
	out.session.PersistenceLevel = 0

	result := e.gate.Validate(ctx, t.text, t.session.HasValidIdea)
	out.validation = &result

	if !result.Valid {
		kind := model.KindGate
		if result.Glitch {
			kind = model.KindGlitch
		}
		out.messages = append(out.messages, model.NewBotMessage(kind, result.GateMessage))
		return out, nil
	}

	idea := result.Preview
	if idea == "" {
		idea = t.text
	}
	out.label = "accepted"
	out.session.CurrentIdea = idea
	out.session.HasValidIdea = true
	out.session.OffTopicCount = 0

	if err := t.reply(ctx, out, model.ChatRequest{
		Message:             t.text,
		ConversationHistory: t.history,
		ResponseMode:        t.session.ResponseMode,
		RefinementMode:      false,
		Idea:                idea,
	}); err != nil {
		return nil, err
	}

	return out, nil
}

// refine answers a turn about the accepted idea, or redirects it when the
// topic check says it is unrelated
func (t *turn) refine(ctx context.Context) (*outcome, error) {
	e := t.engine
	out := t.newOutcome("reply")
	out.session.PersistenceLevel = 0

	if !t.onTopic(ctx) {
		out.session.OffTopicCount++
		if out.session.OffTopicCount >= e.offTopicLimit {
			out.label = "stopped"
			out.session.Stopped = true
			out.messages = append(out.messages, model.NewBotMessage(model.KindStopped, stoppedMessage(e.offTopicLimit)))
			return out, nil
		}

		out.label = "off_topic"
		out.messages = append(out.messages, model.NewBotMessage(model.KindOffTopic,
			offTopicMessage(t.session.CurrentIdea, out.session.OffTopicCount, e.offTopicLimit)))
		return out, nil
	}
	out.session.OffTopicCount = 0

	if err := t.reply(ctx, out, model.ChatRequest{
		Message:             t.text,
		ConversationHistory: t.history,
		ResponseMode:        t.session.ResponseMode,
		RefinementMode:      true,
		Idea:                t.session.CurrentIdea,
	}); err != nil {
		return nil, err
	}

	return out, nil
}

// onTopic treats a failed check as on-topic so an outage never counts
// against the user
func (t *turn) onTopic(ctx context.Context) bool {
	e := t.engine
	started := time.Now()
	ok, err := e.assistant.IsOnTopic(ctx, t.session.CurrentIdea, t.text)
	e.observe("topic_check", started, err)
	if err != nil {
		logging.From(ctx).Warn("topic check failed, treating as on-topic", "error", err)
		return true
	}
	return ok
}

// reply calls the chat endpoint, then scores the exchange and generates
// suggestions concurrently. Only a chat failure is an error.
func (t *turn) reply(ctx context.Context, out *outcome, req model.ChatRequest) error {
	e := t.engine

	started := time.Now()
	chat, err := e.assistant.Respond(ctx, req)
	e.observe("chat", started, err)
	if err != nil {
		return err
	}

	content := chat.Response
	switch req.ResponseMode {
	case model.ResponseModeDetailed:
		if chat.DetailedResponse != "" {
			content = chat.DetailedResponse
		}
		if chat.PMFAnalysis != "" {
			content += "\n\nPMF check: " + chat.PMFAnalysis
		}
	default:
		if chat.SummaryResponse != "" {
			content = chat.SummaryResponse
		}
	}

	msg := model.NewBotMessage(model.KindReply, content)

	var (
		change      *model.PointChange
		suggestions []model.Suggestion
	)

	var eg errgroup.Group
	eg.Go(func() error {
		change = t.evaluate(ctx, content)
		return nil
	})
	eg.Go(func() error {
		suggestions = t.suggest(ctx, out.session.CurrentIdea, content, req.ResponseMode)
		return nil
	})
	_ = eg.Wait()

	if change != nil {
		msg.WithPoints(change.PointChange)
		out.pointChange = change
	}

	msg.Suggestions = suggestions
	if len(msg.Suggestions) == 0 {
		msg.Suggestions = chat.Suggestions
	}

	out.messages = append(out.messages, msg)
	return nil
}

func (t *turn) evaluate(ctx context.Context, botResponse string) *model.PointChange {
	e := t.engine
	started := time.Now()
	change, err := e.assistant.Evaluate(ctx, model.EvaluateRequest{
		UserMessage:          t.text,
		BotResponse:          botResponse,
		ConversationHistory:  t.history,
		CurrentWrinklePoints: t.score,
	})
	e.observe("wrinkle_eval", started, err)
	if err != nil {
		logging.From(ctx).Warn("wrinkle evaluation failed, no points this turn", "error", err)
		return nil
	}
	return change
}

func (t *turn) suggest(ctx context.Context, idea, question string, mode model.ResponseMode) []model.Suggestion {
	e := t.engine
	started := time.Now()
	suggestions, err := e.assistant.Suggest(ctx, model.SuggestRequest{
		Question:        question,
		IdeaDescription: idea,
		PreviousAnswers: t.previousAnswers,
		ResponseMode:    mode,
	})
	e.observe("suggestions", started, err)
	if err != nil {
		logging.From(ctx).Warn("suggestion generation failed", "error", err)
		return nil
	}
	return suggestions
}
