package validation

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/wrinkle/pkg/model"
)

const (
	minHints = 2
	maxHints = 4

	genericReason = "This reads like a vibe, not a business. I need a customer, a problem and how you solve it."
	glitchNotice  = "My validation engine glitched, so I judged this on instinct alone. Instinct says no."
)

var scoldLines = []string{
	"Oh no. No no no. That is not an idea, that is a fortune cookie.",
	"I have seen napkin doodles with more business model than this.",
	"Bold of you to call this an idea.",
	"My circuits are wrinkling, and not in the good way.",
	"Investors would leave the room before you finished that sentence.",
	"That is a wish, not a startup.",
	"I asked for an idea and received a mood.",
}

var defaultHints = []string{
	"Who exactly is your customer? Describe one real person who would pay.",
	"What painful problem do they have today, and how do they cope with it now?",
	"What does your product do that their current workaround does not?",
}

// improvementHints returns 2 to 4 hints, preferring the ones in verdict
func improvementHints(verdict *model.Verdict) []string {
	var hints []string
	if verdict != nil {
		for _, h := range verdict.ImprovementHints {
			if h = strings.TrimSpace(h); h != "" {
				hints = append(hints, h)
			}
			if len(hints) == maxHints {
				break
			}
		}
	}

	if len(hints) < minHints {
		return append([]string(nil), defaultHints...)
	}
	return hints
}

func (o *Orchestrator) gateMessage(verdict *model.Verdict, glitch bool, hints []string) string {
	reason := genericReason
	if verdict != nil && strings.TrimSpace(verdict.Reason) != "" {
		reason = strings.TrimSpace(verdict.Reason)
	}

	var b strings.Builder
	b.WriteString(scoldLines[o.intn(len(scoldLines))])
	b.WriteString("\n\n")
	if glitch {
		b.WriteString(glitchNotice)
		b.WriteString("\n\n")
	}
	b.WriteString("🚫 NOT APPROVED\n\n")
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString("Before I let you through, answer these:\n")
	for i, h := range hints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}

	return strings.TrimRight(b.String(), "\n")
}
