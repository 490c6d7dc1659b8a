// Package policy decides whether a submission is accepted as an idea from the
// heuristic and remote signals.
package policy

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/model"
)

// Signals are the inputs of an acceptance decision
type Signals struct {
	Heuristic bool
	// Remote is nil when the remote validator produced no verdict or failed
	Remote       *model.Verdict
	RemoteFailed bool
}

// Policy decides acceptance from Signals
type Policy interface {
	Name() string
	Accept(ctx context.Context, s Signals) (bool, error)
}

// Conjunction accepts only when the heuristic and the remote verdict agree the
// text is an idea. Without a remote verdict the heuristic decides alone.
type Conjunction struct{}

func (Conjunction) Name() string { return "conjunction" }

func (Conjunction) Accept(ctx context.Context, s Signals) (bool, error) {
	if s.Remote == nil {
		return s.Heuristic, nil
	}
	return s.Heuristic && s.Remote.Valid, nil
}

// Lenient accepts unless the remote verdict explicitly says invalid
type Lenient struct{}

func (Lenient) Name() string { return "lenient" }

func (Lenient) Accept(ctx context.Context, s Signals) (bool, error) {
	if s.Remote == nil {
		return s.Heuristic, nil
	}
	return s.Remote.Valid, nil
}

// ByName resolves "conjunction", "lenient" or a path to a .rego file
func ByName(ctx context.Context, name string) (Policy, error) {
	switch {
	case name == "" || name == "conjunction":
		return Conjunction{}, nil
	case name == "lenient":
		return Lenient{}, nil
	case name == "rego":
		return NewRego(ctx, "")
	case strings.HasSuffix(name, ".rego"):
		return NewRego(ctx, name)
	default:
		return nil, goerr.New("unknown policy", goerr.V("name", name))
	}
}
