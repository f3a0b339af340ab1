package stage

import (
	"context"
	"fmt"
	"strings"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/prompt"
	"socratic-tutor-be/pkg/usage"
)

const DefaultMaxLoops = 3

// Engine drives one dialogue turn through the registered stage handlers.
type Engine struct {
	registry *Registry
	maxLoops int
	log      logger.ILogger
}

func NewEngine(registry *Registry, maxLoops int, log logger.ILogger) *Engine {
	if maxLoops <= 0 {
		maxLoops = DefaultMaxLoops
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Engine{registry: registry, maxLoops: maxLoops, log: log}
}

type Input struct {
	ConversationID string
	UserID         string
	State          dialogue.State
	StudentMessage string
	Question       string
	Executor       LanguageExecutor
}

type Output struct {
	Message          string
	State            dialogue.State
	Ended            bool
	Stage            dialogue.Stage
	CurrentStance    *dialogue.StanceVersion
	CurrentPrinciple *dialogue.PrincipleVersion
	Decision         *Decision
	Usage            usage.Report
}

func (e *Engine) Process(ctx context.Context, in Input) (*Output, error) {
	if in.State.Ended() {
		return nil, fmt.Errorf("%w: dialogue already closed", apperror.ErrInvalidState)
	}
	if strings.TrimSpace(in.StudentMessage) == "" {
		return nil, fmt.Errorf("%w: empty student message", apperror.ErrInvalidState)
	}

	from := in.State.Stage
	h, ok := e.registry.Get(from)
	if !ok {
		return nil, fmt.Errorf("%w: no handler for stage %s", apperror.ErrInvalidState, from)
	}

	hc := &Context{
		Executor:            in.Executor,
		State:               in.State,
		StudentMessage:      in.StudentMessage,
		Vars:                prompt.VarsFor(in.State, in.Question, in.StudentMessage, e.maxLoops),
		LoopBudgetExhausted: e.budgetExhausted(in.State),
	}

	res, err := h.Handle(ctx, hc)
	if err != nil {
		e.log.Error("DIALOGUE", "Stage handler failed", map[string]interface{}{
			"conversation_id": in.ConversationID,
			"stage":           string(from),
			"error":           err.Error(),
		})
		return nil, fmt.Errorf("handle %s: %w", from, err)
	}

	to := res.State.Stage
	if !dialogue.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", apperror.ErrInvalidTransition, from, to)
	}
	message := strings.TrimSpace(res.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty tutor reply in %s", apperror.ErrModelCallExhausted, from)
	}

	next := res.State
	if to == from {
		next = dialogue.CountStageTurn(next)
	}
	next = dialogue.AddToHistory(next, dialogue.RoleUser, in.StudentMessage)
	next = dialogue.AddToHistory(next, dialogue.RoleModel, message)
	ended := res.Ended || next.Ended()

	details := map[string]interface{}{
		"conversation_id": in.ConversationID,
		"from":            string(from),
		"to":              string(to),
		"sub_state":       string(next.SubState),
		"loop_count":      next.LoopCount,
		"stage_turns":     next.StageTurns,
		"ended":           ended,
	}
	if res.Decision != nil {
		details["action"] = res.Decision.Action
	}
	e.log.Info("DIALOGUE", "Turn processed", details)

	out := &Output{
		Message:          message,
		State:            next,
		Ended:            ended,
		Stage:            next.Stage,
		CurrentStance:    next.CurrentStance(),
		CurrentPrinciple: next.CurrentPrinciple(),
		Decision:         res.Decision,
	}
	if t := in.Executor.Usage(); !t.IsZero() {
		out.Usage = usage.FromTotals(map[string]usage.Totals{usage.FeatureLanguageModel: t})
	}
	return out, nil
}

// budgetExhausted bounds CASE_CHALLENGE by completed challenge loops and the
// later stages by turns spent in them.
func (e *Engine) budgetExhausted(s dialogue.State) bool {
	if s.Stage == dialogue.StageCaseChallenge {
		return s.LoopCount >= e.maxLoops
	}
	return s.StageTurns >= e.maxLoops
}
