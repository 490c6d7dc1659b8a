// Package validation decides whether a submission is a concrete business idea
// by combining the local heuristic with the remote validator.
package validation

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/heuristic"
	"github.com/m-mizutani/wrinkle/pkg/interfaces"
	"github.com/m-mizutani/wrinkle/pkg/metrics"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/policy"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the idea gate
type Orchestrator struct {
	classifier *heuristic.Classifier
	validator  interfaces.IdeaValidator
	policy     policy.Policy
	metrics    *metrics.Metrics
	intn       func(n int) int
}

// Option is a functional option for Orchestrator
type Option func(*Orchestrator)

// WithPolicy replaces the default conjunction policy
func WithPolicy(p policy.Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithMetrics records decisions and remote calls
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithRand sets the source used to pick the scolding line. intn must return a
// value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(o *Orchestrator) {
		o.intn = intn
	}
}

// New creates an Orchestrator. validator may be nil, in which case every
// decision is heuristic-only.
func New(classifier *heuristic.Classifier, validator interfaces.IdeaValidator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		validator:  validator,
		policy:     policy.Conjunction{},
		intn:       rand.IntN,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate never fails: every error path resolves to a ValidationResult.
// Once a conversation has a valid idea it is never gated again.
func (o *Orchestrator) Validate(ctx context.Context, text string, hasExistingValidIdea bool) model.ValidationResult {
	if hasExistingValidIdea {
		o.metrics.ObserveValidation(string(model.SourceExisting), "accepted")
		return model.ValidationResult{Valid: true, Source: model.SourceExisting}
	}

	logger := logging.From(ctx)

	var (
		looksLikeIdea bool
		verdict       *model.Verdict
		remoteErr     error
	)

	// Neither goroutine returns an error so a remote failure never cancels the heuristic
	var eg errgroup.Group
	eg.Go(func() error {
		looksLikeIdea = o.classifier.LooksLikeIdea(text)
		return nil
	})
	eg.Go(func() error {
		verdict, remoteErr = o.callRemote(ctx, text)
		return nil
	})
	_ = eg.Wait()

	signals := policy.Signals{Heuristic: looksLikeIdea}
	source := model.SourceHeuristicFallback

	switch {
	case remoteErr != nil:
		logger.Warn("remote validator failed, falling back to heuristic", "error", remoteErr)
		signals.RemoteFailed = true
	case verdict == nil:
		logger.Info("remote validator returned no verdict, falling back to heuristic")
	default:
		signals.Remote = verdict
		source = model.SourceCombined
	}

	accepted, err := o.policy.Accept(ctx, signals)
	if err != nil {
		logger.Error("policy evaluation failed, using conjunction", "policy", o.policy.Name(), "error", err)
		accepted, _ = policy.Conjunction{}.Accept(ctx, signals)
	}

	logger.Debug("idea gate decision",
		"policy", o.policy.Name(),
		"heuristic", looksLikeIdea,
		"remote", verdict,
		"remote_failed", signals.RemoteFailed,
		"accepted", accepted,
	)

	if accepted {
		o.metrics.ObserveValidation(string(source), "accepted")
		return model.ValidationResult{
			Valid:   true,
			Preview: Preview(text),
			Source:  source,
		}
	}

	o.metrics.ObserveValidation(string(source), "rejected")
	glitch := signals.RemoteFailed && !looksLikeIdea
	hints := improvementHints(signals.Remote)

	return model.ValidationResult{
		Valid:       false,
		GateMessage: o.gateMessage(signals.Remote, glitch, hints),
		Glitch:      glitch,
		Hints:       hints,
		Source:      source,
	}
}

// callRemote invokes the remote validator and turns a panic into an error
func (o *Orchestrator) callRemote(ctx context.Context, text string) (verdict *model.Verdict, err error) {
	if o.validator == nil {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			verdict = nil
			err = goerr.New("remote validator panicked", goerr.V("panic", r))
		}
	}()

	started := time.Now()
	verdict, err = o.validator.Validate(ctx, text)
	o.metrics.ObserveRemoteCall("validate_idea", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, goerr.Wrap(err, "remote validation failed")
	}

	return verdict, nil
}
