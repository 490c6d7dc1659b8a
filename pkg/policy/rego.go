package policy

import (
	"context"
	_ "embed"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

const regoQuery = "data.wrinkle.gate.accept"

//go:embed gate.rego
var defaultGateRego string

// Rego evaluates acceptance with an OPA policy. The policy must define
// data.wrinkle.gate.accept as a boolean.
type Rego struct {
	query *rego.PreparedEvalQuery
	path  string
}

// NewRego prepares the policy at path, or the built-in conjunction policy when
// path is empty
func NewRego(ctx context.Context, path string) (*Rego, error) {
	module := defaultGateRego
	name := "gate.rego"
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", path))
		}
		module = string(data)
		name = path
	}

	prepared, err := rego.New(
		rego.Query(regoQuery),
		rego.Module(name, module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy", goerr.V("path", name))
	}

	return &Rego{query: &prepared, path: name}, nil
}

func (r *Rego) Name() string { return "rego:" + r.path }

func (r *Rego) Accept(ctx context.Context, s Signals) (bool, error) {
	input := map[string]any{
		"heuristic":     s.Heuristic,
		"has_remote":    s.Remote != nil,
		"remote_failed": s.RemoteFailed,
	}
	if s.Remote != nil {
		input["remote"] = map[string]any{
			"valid":  s.Remote.Valid,
			"reason": s.Remote.Reason,
		}
	}

	rs, err := r.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate policy", goerr.V("path", r.path))
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, goerr.New("policy returned no result", goerr.V("path", r.path))
	}

	accept, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, goerr.New("policy result is not boolean",
			goerr.V("path", r.path),
			goerr.V("value", rs[0].Expressions[0].Value))
	}

	return accept, nil
}
