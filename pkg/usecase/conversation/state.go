package conversation

import (
	"github.com/m-mizutani/wrinkle/pkg/model"
)

// State is the position of a session in the conversation flow
type State string

const (
	// StateGating means the session still has its default name
	StateGating State = "gating"
	// StateAwaitingIdea means the session is named but no idea passed the gate
	StateAwaitingIdea State = "awaiting_idea"
	// StateRefining means every turn is grounded in the accepted idea
	StateRefining State = "refining"
	// StateStopped is terminal
	StateStopped State = "stopped"
)

// StateOf derives the state from session fields
func StateOf(s *model.Session) State {
	switch {
	case s.Stopped:
		return StateStopped
	case s.IsDefaultName:
		return StateGating
	case !s.HasValidIdea:
		return StateAwaitingIdea
	default:
		return StateRefining
	}
}
