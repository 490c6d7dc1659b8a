package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/wrinkle/pkg/model"
	"github.com/m-mizutani/wrinkle/pkg/policy"
)

var signalCases = []struct {
	name        string
	signals     policy.Signals
	conjunction bool
	lenient     bool
}{
	{
		name:        "both valid",
		signals:     policy.Signals{Heuristic: true, Remote: &model.Verdict{Valid: true}},
		conjunction: true,
		lenient:     true,
	},
	{
		name:        "heuristic fails, remote valid",
		signals:     policy.Signals{Heuristic: false, Remote: &model.Verdict{Valid: true}},
		conjunction: false,
		lenient:     true,
	},
	{
		name:        "heuristic passes, remote invalid",
		signals:     policy.Signals{Heuristic: true, Remote: &model.Verdict{Valid: false, Reason: "too vague"}},
		conjunction: false,
		lenient:     false,
	},
	{
		name:        "both invalid",
		signals:     policy.Signals{Heuristic: false, Remote: &model.Verdict{Valid: false}},
		conjunction: false,
		lenient:     false,
	},
	{
		name:        "remote failed, heuristic passes",
		signals:     policy.Signals{Heuristic: true, RemoteFailed: true},
		conjunction: true,
		lenient:     true,
	},
	{
		name:        "no verdict, heuristic fails",
		signals:     policy.Signals{Heuristic: false},
		conjunction: false,
		lenient:     false,
	},
}

func TestConjunction(t *testing.T) {
	ctx := context.Background()
	for _, tc := range signalCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := policy.Conjunction{}.Accept(ctx, tc.signals)
			gt.NoError(t, err)
			gt.Equal(t, got, tc.conjunction)
		})
	}
}

func TestLenient(t *testing.T) {
	ctx := context.Background()
	for _, tc := range signalCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := policy.Lenient{}.Accept(ctx, tc.signals)
			gt.NoError(t, err)
			gt.Equal(t, got, tc.lenient)
		})
	}
}

func TestDefaultRegoMatchesConjunction(t *testing.T) {
	ctx := context.Background()
	p, err := policy.NewRego(ctx, "")
	gt.NoError(t, err)

	for _, tc := range signalCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Accept(ctx, tc.signals)
			gt.NoError(t, err)
			gt.Equal(t, got, tc.conjunction)
		})
	}
}

func TestCustomRego(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "lenient.rego")

	lenient := `package wrinkle.gate

default accept := false

accept if {
	input.has_remote
	input.remote.valid
}

accept if {
	not input.has_remote
	input.heuristic
}
`
	gt.NoError(t, os.WriteFile(path, []byte(lenient), 0644))

	p, err := policy.ByName(ctx, path)
	gt.NoError(t, err)
	gt.S(t, p.Name()).Contains("lenient.rego")

	for _, tc := range signalCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Accept(ctx, tc.signals)
			gt.NoError(t, err)
			gt.Equal(t, got, tc.lenient)
		})
	}
}

func TestRegoNonBoolean(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bad.rego")
	gt.NoError(t, os.WriteFile(path, []byte("package wrinkle.gate\n\naccept := \"yes\"\n"), 0644))

	p, err := policy.NewRego(ctx, path)
	gt.NoError(t, err)

	_, err = p.Accept(ctx, policy.Signals{Heuristic: true})
	gt.Error(t, err)
}

func TestByName(t *testing.T) {
	ctx := context.Background()

	p, err := policy.ByName(ctx, "")
	gt.NoError(t, err)
	gt.Equal(t, p.Name(), "conjunction")

	p, err = policy.ByName(ctx, "lenient")
	gt.NoError(t, err)
	gt.Equal(t, p.Name(), "lenient")

	p, err = policy.ByName(ctx, "rego")
	gt.NoError(t, err)
	gt.Equal(t, p.Name(), "rego:gate.rego")

	_, err = policy.ByName(ctx, "strict")
	gt.Error(t, err)

	_, err = policy.ByName(ctx, "/nonexistent/gate.rego")
	gt.Error(t, err)
}
