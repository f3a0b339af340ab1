package stage

import (
	"context"
	"strings"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/prompt"
)

type PrincipleHandler struct{}

func (h *PrincipleHandler) Stage() dialogue.Stage { return dialogue.StagePrincipleReasoning }

func (h *PrincipleHandler) Handle(ctx context.Context, hc *Context) (*Result, error) {
	d, err := analyze(ctx, hc, prompt.PrincipleAnalyzer)
	if err != nil {
		return nil, err
	}

	action := d.Action
	if hc.LoopBudgetExhausted && (action == prompt.ActionClarify || action == prompt.ActionScaffold || action == prompt.ActionProbe) {
		action = prompt.ActionAdvanceToClosure
	}

	switch action {
	case prompt.ActionClarify:
		state := dialogue.TransitionTo(hc.State, dialogue.StagePrincipleReasoning, dialogue.SubStateClarify)
		return reply(ctx, hc, state, d, prompt.PrincipleClarify)

	case prompt.ActionScaffold:
		state := dialogue.TransitionTo(hc.State, dialogue.StagePrincipleReasoning, dialogue.SubStateScaffold)
		return reply(ctx, hc, state, d, prompt.PrincipleScaffold)

	case prompt.ActionProbe:
		state := withPrinciple(hc.State, d)
		state = dialogue.TransitionTo(state, dialogue.StagePrincipleReasoning)
		return reply(ctx, hc, state, d, prompt.PrincipleProbe)

	case prompt.ActionAdvanceToClosure:
		state := withPrinciple(hc.State, d)
		state = dialogue.TransitionTo(state, dialogue.StageClosure)
		return reply(ctx, hc, state, d, prompt.ClosureOpening)

	default:
		return verbatim(ctx, hc, d, prompt.PrincipleClarify)
	}
}

// withPrinciple records a newly stated principle; repeating the current one
// adds no version.
func withPrinciple(state dialogue.State, d *Decision) dialogue.State {
	statement := strings.TrimSpace(d.Statement)
	if statement == "" {
		return state
	}
	if cur := state.CurrentPrinciple(); cur != nil && cur.Statement == statement {
		return state
	}
	return dialogue.UpdatePrinciple(state, statement, strings.TrimSpace(d.Classification))
}
