package dialogue

import "time"

type Stage string

const (
	StageAwaitingStart      Stage = "AWAITING_START"
	StageAskingStance       Stage = "ASKING_STANCE"
	StageCaseChallenge      Stage = "CASE_CHALLENGE"
	StagePrincipleReasoning Stage = "PRINCIPLE_REASONING"
	StageClosure            Stage = "CLOSURE"
)

// Stages lists every stage in forward order.
var Stages = []Stage{
	StageAwaitingStart,
	StageAskingStance,
	StageCaseChallenge,
	StagePrincipleReasoning,
	StageClosure,
}

// Rank is the position of the stage in the forward order, or -1 if unknown.
func (s Stage) Rank() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool { return s.Rank() >= 0 }

// CanTransition forbids moving back to an earlier stage and leaving CLOSURE.
func CanTransition(from, to Stage) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == StageClosure {
		return to == StageClosure
	}
	return to.Rank() >= from.Rank()
}

type SubState string

const (
	SubStateMain     SubState = "MAIN"
	SubStateClarify  SubState = "CLARIFY"
	SubStateScaffold SubState = "SCAFFOLD"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type StanceVersion struct {
	Version       int       `json:"version"`
	Position      string    `json:"position"`
	Reason        string    `json:"reason,omitempty"`
	EstablishedAt time.Time `json:"establishedAt"`
}

type PrincipleVersion struct {
	Version        int       `json:"version"`
	Statement      string    `json:"statement"`
	Classification string    `json:"classification,omitempty"`
	EstablishedAt  time.Time `json:"establishedAt"`
}

type Entry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// State is the progress of one conversation. It is treated as a value:
// every transition returns a copy and never touches the input.
type State struct {
	Topic               string             `json:"topic"`
	Stage               Stage              `json:"stage"`
	SubState            SubState           `json:"subState"`
	LoopCount           int                `json:"loopCount"`
	StageTurns          int                `json:"stageTurns,omitempty"` // turns handled in the current stage
	StanceHistory       []StanceVersion    `json:"stanceHistory"`
	PrincipleHistory    []PrincipleVersion `json:"principleHistory"`
	ConversationHistory []Entry            `json:"conversationHistory"`
	Summary             *string            `json:"summary"`
	DiscussionSatisfied *bool              `json:"discussionSatisfied"`
}

func (s State) CurrentStance() *StanceVersion {
	if len(s.StanceHistory) == 0 {
		return nil
	}
	v := s.StanceHistory[len(s.StanceHistory)-1]
	return &v
}

func (s State) CurrentPrinciple() *PrincipleVersion {
	if len(s.PrincipleHistory) == 0 {
		return nil
	}
	v := s.PrincipleHistory[len(s.PrincipleHistory)-1]
	return &v
}

// Ended reports whether the closing summary has been produced.
func (s State) Ended() bool {
	return s.Stage == StageClosure && s.Summary != nil
}

// StanceReverted reports whether the current position repeats an earlier,
// abandoned one.
func (s State) StanceReverted() bool {
	n := len(s.StanceHistory)
	if n < 3 {
		return false
	}
	current := s.StanceHistory[n-1].Position
	if s.StanceHistory[n-2].Position == current {
		return false
	}
	for _, v := range s.StanceHistory[:n-2] {
		if v.Position == current {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	out := s
	out.StanceHistory = cloneSlice(s.StanceHistory)
	out.PrincipleHistory = cloneSlice(s.PrincipleHistory)
	out.ConversationHistory = cloneSlice(s.ConversationHistory)
	if s.Summary != nil {
		v := *s.Summary
		out.Summary = &v
	}
	if s.DiscussionSatisfied != nil {
		v := *s.DiscussionSatisfied
		out.DiscussionSatisfied = &v
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return out
}
