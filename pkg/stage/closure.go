package stage

import (
	"context"
	"fmt"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/prompt"
)

type ClosureHandler struct{}

func (h *ClosureHandler) Stage() dialogue.Stage { return dialogue.StageClosure }

type closingSummary struct {
	Message             string `json:"message"`
	Summary             string `json:"summary"`
	DiscussionSatisfied bool   `json:"discussionSatisfied"`
}

func (h *ClosureHandler) Handle(ctx context.Context, hc *Context) (*Result, error) {
	d, err := analyze(ctx, hc, prompt.ClosureAnalyzer)
	if err != nil {
		return nil, err
	}

	action := d.Action
	if hc.LoopBudgetExhausted && action == prompt.ActionClarify {
		action = prompt.ActionConclude
	}

	switch action {
	case prompt.ActionClarify:
		state := dialogue.TransitionTo(hc.State, dialogue.StageClosure, dialogue.SubStateClarify)
		return reply(ctx, hc, state, d, prompt.ClosureClarify)

	case prompt.ActionConclude:
		return h.conclude(ctx, hc, d)

	default:
		return verbatim(ctx, hc, d, prompt.ClosureClarify)
	}
}

func (h *ClosureHandler) conclude(ctx context.Context, hc *Context, d *Decision) (*Result, error) {
	vars := hc.Vars
	vars.Guidance = d.Message
	res, err := hc.Executor.Execute(ctx, prompt.ClosureSummary(hc.State.ConversationHistory, vars))
	if err != nil {
		return nil, err
	}
	var out closingSummary
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode closing summary: %w", err)
	}
	return &Result{
		Message:  out.Message,
		State:    dialogue.Close(hc.State, out.Summary, out.DiscussionSatisfied),
		Ended:    true,
		Decision: d,
	}, nil
}
