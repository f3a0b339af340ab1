package stage

import (
	"context"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/prompt"
)

type ChallengeHandler struct{}

func (h *ChallengeHandler) Stage() dialogue.Stage { return dialogue.StageCaseChallenge }

func (h *ChallengeHandler) Handle(ctx context.Context, hc *Context) (*Result, error) {
	d, err := analyze(ctx, hc, prompt.ChallengeAnalyzer)
	if err != nil {
		return nil, err
	}

	action := d.Action
	looping := action == prompt.ActionScaffold || action == prompt.ActionContinueChallenge
	state := hc.State
	if looping && d.StanceChanged {
		state = withStance(state, d, hc.StudentMessage)
	}
	if looping && hc.LoopBudgetExhausted {
		action = prompt.ActionAdvanceToPrinciple
	}

	switch action {
	case prompt.ActionClarify:
		state = dialogue.TransitionTo(state, dialogue.StageCaseChallenge, dialogue.SubStateClarify)
		return reply(ctx, hc, state, d, prompt.ChallengeClarify)

	case prompt.ActionScaffold:
		state = dialogue.TransitionTo(state, dialogue.StageCaseChallenge, dialogue.SubStateScaffold)
		return reply(ctx, hc, state, d, prompt.ChallengeScaffold)

	case prompt.ActionContinueChallenge:
		state = dialogue.IncrementLoop(state)
		state = dialogue.TransitionTo(state, dialogue.StageCaseChallenge)
		return reply(ctx, hc, state, d, prompt.ChallengeChallenge)

	case prompt.ActionAdvanceToPrinciple:
		state = dialogue.IncrementLoop(state)
		state = dialogue.TransitionTo(state, dialogue.StagePrincipleReasoning)
		return reply(ctx, hc, state, d, prompt.PrincipleOpening)

	default:
		return verbatim(ctx, hc, d, prompt.ChallengeClarify)
	}
}
