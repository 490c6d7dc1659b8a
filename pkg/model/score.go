package model

// ComputeScore returns the wrinkle point total of a message log: the sum of
// PointsEarned over bot messages that carry points, never below zero.
//
// It always rescans the whole log so the total cannot drift from the turns.
func ComputeScore(messages []*Message) int {
	total := 0
	for _, msg := range messages {
		if msg == nil || msg.Role != RoleBot || msg.PointsEarned == nil {
			continue
		}
		total += *msg.PointsEarned
	}

	if total < 0 {
		return 0
	}
	return total
}
