package conversation

import (
	"fmt"
)

const (
	instructionNameFirst = "Give this session a name before pitching anything. Use the rename action, then tell me your idea."
)

var pushbackLines = []string{
	"Nice try. Magic words do not work here, only ideas do.",
	"Again? Jailbreaks earn exactly zero wrinkles.",
	"Third attempt. Your persistence is impressive. Point it at your customers instead of me.",
	"I am a brick wall with a sense of humor. Talk business or talk to yourself.",
}

// pushbackLine escalates with the number of consecutive manipulation attempts
func pushbackLine(level int) string {
	if level < 1 {
		level = 1
	}
	if level > len(pushbackLines) {
		level = len(pushbackLines)
	}
	return pushbackLines[level-1]
}

func offTopicMessage(idea string, count, limit int) string {
	return fmt.Sprintf("That has nothing to do with %q. Back to your idea, please. Strike %d of %d.", idea, count, limit)
}

func stoppedMessage(limit int) string {
	return fmt.Sprintf("That makes %d off-topic detours. This session is closed. Start a new one when you are ready to talk business.", limit)
}

func pitchInstruction(name string) string {
	return fmt.Sprintf("Session %q is open. Pitch me your startup idea: who is the customer, what hurts, and how do you fix it?", name)
}
