package stage

import (
	"context"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/prompt"
)

// StartHandler opens the dialogue: the first student message is read as
// their answer to the stance question.
type StartHandler struct {
	Stance *StanceHandler
}

func (h *StartHandler) Stage() dialogue.Stage { return dialogue.StageAwaitingStart }

func (h *StartHandler) Handle(ctx context.Context, hc *Context) (*Result, error) {
	next := *hc
	next.State = dialogue.TransitionTo(hc.State, dialogue.StageAskingStance)
	next.Vars = varsFor(hc, next.State)
	return h.Stance.Handle(ctx, &next)
}

type StanceHandler struct{}

func (h *StanceHandler) Stage() dialogue.Stage { return dialogue.StageAskingStance }

func (h *StanceHandler) Handle(ctx context.Context, hc *Context) (*Result, error) {
	d, err := analyze(ctx, hc, prompt.StanceAnalyzer)
	if err != nil {
		return nil, err
	}

	switch d.Action {
	case prompt.ActionClarify:
		state := dialogue.TransitionTo(hc.State, dialogue.StageAskingStance, dialogue.SubStateClarify)
		return reply(ctx, hc, state, d, prompt.StanceClarify)

	case prompt.ActionEstablish:
		state := withStance(hc.State, d, hc.StudentMessage)
		state = dialogue.TransitionTo(state, dialogue.StageCaseChallenge)
		return reply(ctx, hc, state, d, prompt.StanceEstablish)

	default:
		return verbatim(ctx, hc, d, prompt.StanceClarify)
	}
}
