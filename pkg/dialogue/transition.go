package dialogue

import "time"

var now = time.Now

func NewState(topic string) State {
	return State{
		Topic:               topic,
		Stage:               StageAwaitingStart,
		SubState:            SubStateMain,
		StanceHistory:       []StanceVersion{},
		PrincipleHistory:    []PrincipleVersion{},
		ConversationHistory: []Entry{},
	}
}

// TransitionTo replaces stage and sub-state. The sub-state defaults to MAIN.
// Entering a different stage resets StageTurns.
func TransitionTo(s State, stage Stage, sub ...SubState) State {
	out := s.clone()
	if out.Stage != stage {
		out.StageTurns = 0
	}
	out.Stage = stage
	out.SubState = SubStateMain
	if len(sub) > 0 && sub[0] != "" {
		out.SubState = sub[0]
	}
	return out
}

// UpdateStance appends a new stance version. Earlier versions are kept as is.
func UpdateStance(s State, position, reason string) State {
	out := s.clone()
	out.StanceHistory = append(out.StanceHistory, StanceVersion{
		Version:       len(out.StanceHistory) + 1,
		Position:      position,
		Reason:        reason,
		EstablishedAt: now().UTC(),
	})
	return out
}

// UpdatePrinciple appends a new principle version.
func UpdatePrinciple(s State, statement, classification string) State {
	out := s.clone()
	out.PrincipleHistory = append(out.PrincipleHistory, PrincipleVersion{
		Version:        len(out.PrincipleHistory) + 1,
		Statement:      statement,
		Classification: classification,
		EstablishedAt:  now().UTC(),
	})
	return out
}

func AddToHistory(s State, role, text string) State {
	out := s.clone()
	out.ConversationHistory = append(out.ConversationHistory, Entry{Role: role, Text: text})
	return out
}

func IncrementLoop(s State) State {
	out := s.clone()
	out.LoopCount++
	return out
}

func CountStageTurn(s State) State {
	out := s.clone()
	out.StageTurns++
	return out
}

// Close moves the dialogue into CLOSURE with its terminal outputs.
func Close(s State, summary string, satisfied bool) State {
	out := TransitionTo(s, StageClosure)
	out.Summary = &summary
	out.DiscussionSatisfied = &satisfied
	return out
}
