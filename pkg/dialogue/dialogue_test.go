package dialogue

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	s := NewState("Is lying ever justified?")

	assert.Equal(t, StageAwaitingStart, s.Stage)
	assert.Equal(t, SubStateMain, s.SubState)
	assert.Zero(t, s.LoopCount)
	assert.Nil(t, s.CurrentStance())
	assert.Nil(t, s.CurrentPrinciple())
	assert.False(t, s.Ended())
}

func TestStanceHistoryIsAppendOnly(t *testing.T) {
	s := NewState("t")
	var snapshots [][]StanceVersion

	for i := 0; i < 5; i++ {
		s = UpdateStance(s, fmt.Sprintf("position %d", i), "because")
		snapshots = append(snapshots, s.StanceHistory)
	}

	for i, v := range s.StanceHistory {
		assert.Equal(t, i+1, v.Version)
	}
	// Earlier snapshots never see later edits.
	for n, snap := range snapshots {
		require.Len(t, snap, n+1)
		for i := range snap {
			assert.Equal(t, s.StanceHistory[i], snap[i])
		}
	}
	assert.Equal(t, "position 4", s.CurrentStance().Position)
}

func TestPrincipleHistoryIsAppendOnly(t *testing.T) {
	s := UpdatePrinciple(NewState("t"), "never harm", "deontological")
	s2 := UpdatePrinciple(s, "maximize welfare", "consequentialist")

	require.Len(t, s.PrincipleHistory, 1)
	require.Len(t, s2.PrincipleHistory, 2)
	assert.Equal(t, 2, s2.CurrentPrinciple().Version)
	assert.Equal(t, "never harm", s2.PrincipleHistory[0].Statement)
}

func TestTransitionsDoNotShareSlices(t *testing.T) {
	base := AddToHistory(NewState("t"), RoleUser, "hello")
	a := AddToHistory(base, RoleModel, "a")
	b := AddToHistory(base, RoleModel, "b")

	assert.Len(t, base.ConversationHistory, 1)
	assert.Equal(t, "a", a.ConversationHistory[1].Text)
	assert.Equal(t, "b", b.ConversationHistory[1].Text)
}

func TestTransitionToDefaultsToMain(t *testing.T) {
	s := TransitionTo(NewState("t"), StageCaseChallenge, SubStateClarify)
	assert.Equal(t, SubStateClarify, s.SubState)

	s = TransitionTo(s, StageCaseChallenge)
	assert.Equal(t, SubStateMain, s.SubState)
	assert.Equal(t, StageCaseChallenge, s.Stage)
}

func TestStageTurnsResetOnStageChange(t *testing.T) {
	s := TransitionTo(NewState("t"), StagePrincipleReasoning)
	s = CountStageTurn(CountStageTurn(s))
	assert.Equal(t, 2, s.StageTurns)

	s = TransitionTo(s, StagePrincipleReasoning, SubStateScaffold)
	assert.Equal(t, 2, s.StageTurns)

	s = TransitionTo(s, StageClosure)
	assert.Zero(t, s.StageTurns)
}

func TestCloseEndsDialogue(t *testing.T) {
	s := Close(TransitionTo(NewState("t"), StagePrincipleReasoning), "you moved from A to B", true)

	assert.True(t, s.Ended())
	assert.Equal(t, StageClosure, s.Stage)
	assert.Equal(t, "you moved from A to B", *s.Summary)
	assert.True(t, *s.DiscussionSatisfied)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageAwaitingStart, StageAskingStance, true},
		{StageAskingStance, StageCaseChallenge, true},
		{StageCaseChallenge, StageCaseChallenge, true},
		{StageCaseChallenge, StagePrincipleReasoning, true},
		{StageCaseChallenge, StageAskingStance, false},
		{StagePrincipleReasoning, StageCaseChallenge, false},
		{StageClosure, StageClosure, true},
		{StageClosure, StagePrincipleReasoning, false},
		{Stage("BOGUS"), StageClosure, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestFormatEmptyHistoriesUseSentinel(t *testing.T) {
	assert.Equal(t, "(no prior record)", FormatStanceHistory(nil))
	assert.Equal(t, NoPriorRecord, FormatStanceHistory([]StanceVersion{}))
	assert.Equal(t, NoPriorRecord, FormatPrincipleHistory(nil))
	assert.Equal(t, NoPriorRecord, FormatTranscript(nil))
}

func TestFormatStanceHistory(t *testing.T) {
	h := []StanceVersion{
		{Version: 1, Position: "yes", Reason: "honesty"},
		{Version: 2, Position: "no"},
	}
	assert.Equal(t, "v1: yes (reason: honesty)\nv2: no", FormatStanceHistory(h))
}

func TestStanceReverted(t *testing.T) {
	s := UpdateStance(NewState("t"), "yes", "")
	s = UpdateStance(s, "no", "")
	assert.False(t, s.StanceReverted())

	s = UpdateStance(s, "yes", "")
	assert.True(t, s.StanceReverted())
}

func TestConversationStateFor(t *testing.T) {
	tests := []struct {
		stage Stage
		ended bool
		want  string
	}{
		{StageAwaitingStart, false, ConversationAwaitingIdea},
		{StageAskingStance, false, ConversationAwaitingIdea},
		{StageCaseChallenge, false, ConversationAddingCounterpoint},
		{StagePrincipleReasoning, false, ConversationAwaitingFollowup},
		{StageClosure, false, ConversationAwaitingFollowup},
		{StageClosure, true, ConversationClosed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConversationStateFor(tt.stage, tt.ended), "%s ended=%v", tt.stage, tt.ended)
	}
}

func TestTurnTypes(t *testing.T) {
	assert.Equal(t, TurnIdea, UserTurnType(0))
	assert.Equal(t, TurnFollowup, UserTurnType(2))
	assert.Equal(t, TurnCounterpoint, AITurnType(StageCaseChallenge, false))
	assert.Equal(t, TurnSummary, AITurnType(StageClosure, true))
	assert.Equal(t, TurnFollowup, AITurnType(StageAskingStance, false))
}

func TestStateRoundTripsThroughJSON(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	s := UpdateStance(NewState("t"), "yes", "r")
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var back State
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s, back)
}
