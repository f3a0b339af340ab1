package dialogue

// Wire-visible conversation states. They are always derived from the
// dialogue stage, never stored independently.
const (
	ConversationAwaitingIdea       = "awaiting_idea"
	ConversationAddingCounterpoint = "adding_counterpoint"
	ConversationAwaitingFollowup   = "awaiting_followup"
	ConversationClosed             = "closed"
)

func ConversationStateFor(stage Stage, ended bool) string {
	if ended {
		return ConversationClosed
	}
	switch stage {
	case StageCaseChallenge:
		return ConversationAddingCounterpoint
	case StagePrincipleReasoning, StageClosure:
		return ConversationAwaitingFollowup
	default:
		return ConversationAwaitingIdea
	}
}

// Turn types.
const (
	TurnIdea         = "idea"
	TurnFollowup     = "followup"
	TurnCounterpoint = "counterpoint"
	TurnSummary      = "summary"
)

// UserTurnType is "idea" for the student's first message, "followup" after.
func UserTurnType(priorTurns int) string {
	if priorTurns == 0 {
		return TurnIdea
	}
	return TurnFollowup
}

// AITurnType classifies the tutor reply by the stage it was produced in.
func AITurnType(stage Stage, ended bool) string {
	switch {
	case ended:
		return TurnSummary
	case stage == StageCaseChallenge:
		return TurnCounterpoint
	default:
		return TurnFollowup
	}
}
