// Package conversation runs the idea chat: it gates sessions until they are
// named, gates submissions until one is a concrete idea, then refines that
// idea turn by turn while keeping the wrinkle point score.
package conversation

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/heuristic"
	"github.com/m-mizutani/wrinkle/pkg/interfaces"
	"github.com/m-mizutani/wrinkle/pkg/metrics"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/usecase/validation"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
)

var (
	// ErrEmptyMessage is returned for blank input. Callers ignore it.
	ErrEmptyMessage = goerr.New("empty message")
	// ErrTurnInFlight is returned while a previous turn is still running
	ErrTurnInFlight = goerr.New("another turn is in flight")
	// ErrConnection means the chat endpoint failed. The turn was rolled back
	// and the same text can be submitted again.
	ErrConnection = goerr.New("connection error, please try again")
	// ErrStaleTurn means the session was reset while the turn was running
	ErrStaleTurn = goerr.New("turn result is stale")
	// ErrInvalidName is returned when renaming to an empty or default name
	ErrInvalidName = goerr.New("invalid session name")
)

// DefaultOffTopicLimit is the number of consecutive off-topic turns that stops a session
const DefaultOffTopicLimit = 5

// TurnResult describes what one Submit did
type TurnResult struct {
	Seq   uint64
	State State
	// Messages are the bot messages produced by the turn
	Messages    []*model.Message
	Validation  *model.ValidationResult
	PointChange *model.PointChange
	Score       int
}

// Engine owns one session snapshot. Submit calls are serialized; a second
// call while one is running fails with ErrTurnInFlight.
type Engine struct {
	mu       sync.Mutex
	snapshot *model.Snapshot

	inFlight atomic.Bool
	active   atomic.Uint64

	assistant     interfaces.Assistant
	gate          *validation.Orchestrator
	trickery      *heuristic.TrickeryDetector
	store         *Store
	metrics       *metrics.Metrics
	offTopicLimit int
}

// Option is a functional option for Engine
type Option func(*Engine)

// WithStore persists the snapshot after every change
func WithStore(store *Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMetrics records turns and remote calls
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithOffTopicLimit overrides DefaultOffTopicLimit
func WithOffTopicLimit(n int) Option {
	return func(e *Engine) {
		e.offTopicLimit = n
	}
}

// New creates an Engine. A nil snapshot starts a fresh session; trickery may
// be nil to disable manipulation detection.
func New(snapshot *model.Snapshot, assistant interfaces.Assistant, gate *validation.Orchestrator, trickery *heuristic.TrickeryDetector, opts ...Option) *Engine {
	if snapshot == nil {
		snapshot = &model.Snapshot{}
	}
	if snapshot.Session == nil {
		snapshot.Session = model.NewSession()
	}

	e := &Engine{
		snapshot:      snapshot,
		assistant:     assistant,
		gate:          gate,
		trickery:      trickery,
		offTopicLimit: DefaultOffTopicLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the session ID
func (e *Engine) ID() model.SessionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot.Session.ID
}

// State returns the current conversation state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return StateOf(e.snapshot.Session)
}

// Score returns the wrinkle point total recomputed from the message log
func (e *Engine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.ComputeScore(e.snapshot.Messages)
}

// Busy reports whether a turn is running
func (e *Engine) Busy() bool {
	return e.inFlight.Load()
}

// Snapshot returns a copy of the session and message log
func (e *Engine) Snapshot() *model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cloneLocked()
}

func (e *Engine) cloneLocked() *model.Snapshot {
	session := *e.snapshot.Session
	return &model.Snapshot{
		Session:  &session,
		Messages: slices.Clone(e.snapshot.Messages),
	}
}

// Rename names the session. Naming a session for the first time opens the
// idea gate and returns the pitch instruction.
func (e *Engine) Rename(ctx context.Context, name string) (*model.Message, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == model.DefaultSessionName {
		return nil, goerr.Wrap(ErrInvalidName, "name must be non-empty and not the default", goerr.V("name", name))
	}

	e.mu.Lock()
	session := e.snapshot.Session
	wasGating := StateOf(session) == StateGating
	session.Name = name
	session.IsDefaultName = false

	var msg *model.Message
	if wasGating {
		msg = model.NewBotMessage(model.KindInstruction, pitchInstruction(name))
		e.snapshot.Messages = append(e.snapshot.Messages, msg)
	}
	snapshot := e.cloneLocked()
	e.mu.Unlock()

	logging.From(ctx).Info("session renamed", "session_id", snapshot.Session.ID, "name", name)
	e.save(ctx, snapshot)
	return msg, nil
}

// SetResponseMode switches between summary and detailed replies
func (e *Engine) SetResponseMode(ctx context.Context, mode model.ResponseMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.snapshot.Session.ResponseMode = mode
	snapshot := e.cloneLocked()
	e.mu.Unlock()

	e.save(ctx, snapshot)
	return nil
}

// SetPersona stores a free-form display persona for the session
func (e *Engine) SetPersona(ctx context.Context, persona string) {
	e.mu.Lock()
	e.snapshot.Session.Persona = strings.TrimSpace(persona)
	snapshot := e.cloneLocked()
	e.mu.Unlock()

	e.save(ctx, snapshot)
}

// Reset clears the log, the idea and the counters but keeps the name. A turn
// running during Reset is discarded when it completes.
func (e *Engine) Reset(ctx context.Context) {
	e.active.Add(1)

	e.mu.Lock()
	session := e.snapshot.Session
	session.CurrentIdea = ""
	session.HasValidIdea = false
	session.OffTopicCount = 0
	session.PersistenceLevel = 0
	session.Stopped = false
	e.snapshot.Messages = nil
	snapshot := e.cloneLocked()
	e.mu.Unlock()

	logging.From(ctx).Info("session reset", "session_id", snapshot.Session.ID)
	e.save(ctx, snapshot)
}

// Submit processes one user turn
func (e *Engine) Submit(ctx context.Context, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrTurnInFlight
	}
	defer e.inFlight.Store(false)

	seq := e.active.Add(1)

	e.mu.Lock()
	session := *e.snapshot.Session
	state := StateOf(&session)

	logger := logging.From(ctx).With("session_id", session.ID, "turn", seq)
	ctx = logging.With(ctx, logger)

	switch state {
	case StateGating:
		e.mu.Unlock()
		e.metrics.ObserveTurn("gating")
		return e.notice(seq, state, model.KindInstruction, instructionNameFirst), nil

	case StateStopped:
		score := model.ComputeScore(e.snapshot.Messages)
		e.mu.Unlock()
		e.metrics.ObserveTurn("stopped")
		result := e.notice(seq, state, model.KindStopped, stoppedMessage(e.offTopicLimit))
		result.Score = score
		return result, nil
	}

	t := &turn{
		engine:          e,
		seq:             seq,
		text:            text,
		session:         session,
		history:         historyOf(e.snapshot.Messages),
		previousAnswers: userAnswers(e.snapshot.Messages),
		score:           model.ComputeScore(e.snapshot.Messages),
		user:            model.NewUserMessage(text),
	}
	e.snapshot.Messages = append(e.snapshot.Messages, t.user, model.NewBotMessage(model.KindTyping, ""))
	e.mu.Unlock()

	var (
		out *outcome
		err error
	)
	switch {
	case e.trickery != nil && e.trickery.IsTrickery(text):
		out = t.pushback(ctx)
	case state == StateAwaitingIdea:
		out, err = t.pitch(ctx)
	default:
		out, err = t.refine(ctx)
	}

	return e.commit(ctx, t, out, err)
}

// notice answers a turn with a fixed message that is not added to the log
func (e *Engine) notice(seq uint64, state State, kind model.MessageKind, content string) *TurnResult {
	return &TurnResult{
		Seq:      seq,
		State:    state,
		Messages: []*model.Message{model.NewBotMessage(kind, content)},
	}
}

// commit applies a finished turn unless the session moved on. On error the
// user message is removed so the turn can be retried as if it never happened.
func (e *Engine) commit(ctx context.Context, t *turn, out *outcome, err error) (*TurnResult, error) {
	logger := logging.From(ctx)

	e.mu.Lock()
	if e.active.Load() != t.seq {
		e.mu.Unlock()
		e.metrics.ObserveStale("conversation")
		logger.Info("dropping stale turn result")
		return nil, goerr.Wrap(ErrStaleTurn, "session changed during turn", goerr.V("seq", t.seq))
	}

	if err != nil {
		e.snapshot.Messages = slices.DeleteFunc(e.snapshot.Messages, func(m *model.Message) bool {
			return m.ID == t.user.ID || m.IsPlaceholder()
		})
		e.mu.Unlock()
		e.metrics.ObserveTurn("connection_error")
		logger.Error("turn failed, rolled back", "error", err)
		return nil, goerr.Wrap(ErrConnection, "chat endpoint failed", goerr.V("cause", err.Error()))
	}

	out.apply(e.snapshot.Session)
	e.snapshot.Session.UpdatedAt = time.Now()
	e.snapshot.Messages = slices.DeleteFunc(e.snapshot.Messages, (*model.Message).IsPlaceholder)
	e.snapshot.Messages = append(e.snapshot.Messages, out.messages...)

	result := &TurnResult{
		Seq:         t.seq,
		State:       StateOf(e.snapshot.Session),
		Messages:    out.messages,
		Validation:  out.validation,
		PointChange: out.pointChange,
		Score:       model.ComputeScore(e.snapshot.Messages),
	}
	snapshot := e.cloneLocked()
	e.mu.Unlock()

	e.metrics.ObserveTurn(out.label)
	if out.pointChange != nil {
		e.metrics.ObservePointChange(out.pointChange.PointChange)
	}
	if out.session.Stopped && !t.session.Stopped {
		e.metrics.ObserveSessionStopped()
	}
	logger.Info("turn completed", "outcome", out.label, "state", result.State, "score", result.Score)

	e.save(ctx, snapshot)
	return result, nil
}

// save persists a snapshot. Failures are logged and never fail the turn.
func (e *Engine) save(ctx context.Context, snapshot *model.Snapshot) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, snapshot); err != nil {
		logging.From(ctx).Warn("failed to persist session", "session_id", snapshot.Session.ID, "error", err)
	}
}

func (e *Engine) observe(function string, started time.Time, err error) {
	e.metrics.ObserveRemoteCall(function, time.Since(started).Seconds(), err)
}

func historyOf(messages []*model.Message) []model.HistoryEntry {
	history := make([]model.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		if m.IsPlaceholder() || m.Content == "" {
			continue
		}
		history = append(history, model.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history
}

func userAnswers(messages []*model.Message) []string {
	var answers []string
	for _, m := range messages {
		if m.Role == model.RoleUser {
			answers = append(answers, m.Content)
		}
	}
	return answers
}
