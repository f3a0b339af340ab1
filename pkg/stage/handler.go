package stage

import (
	"context"
	"fmt"
	"strings"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/executor"
	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/prompt"
	"socratic-tutor-be/pkg/usage"
)

// LanguageExecutor is the slice of executor.LanguageExecutor handlers use.
type LanguageExecutor interface {
	Execute(ctx context.Context, req llm.Request, opts ...llm.Option) (*executor.LanguageResult, error)
	Usage() usage.Totals
}

// Context is what a handler receives for one student message.
type Context struct {
	Executor       LanguageExecutor
	State          dialogue.State
	StudentMessage string
	Vars           prompt.Vars
	// LoopBudgetExhausted is set when the stage used up its loop budget;
	// handlers then move the dialogue forward instead of looping again.
	LoopBudgetExhausted bool
}

// Result is the handler's reply and the dialogue state after it.
type Result struct {
	Message  string
	State    dialogue.State
	Ended    bool
	Decision *Decision
}

// Decision is the analyzer's classification of the student's message.
type Decision struct {
	Action         string `json:"action"`
	Message        string `json:"message"`
	StanceChanged  bool   `json:"stanceChanged,omitempty"`
	Position       string `json:"position,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Statement      string `json:"statement,omitempty"`
	Classification string `json:"classification,omitempty"`
}

type Handler interface {
	Stage() dialogue.Stage
	Handle(ctx context.Context, hc *Context) (*Result, error)
}

type builderFunc func([]dialogue.Entry, prompt.Vars) llm.Request

// analyze runs an analyzer prompt and decodes its decision.
func analyze(ctx context.Context, hc *Context, build builderFunc) (*Decision, error) {
	res, err := hc.Executor.Execute(ctx, build(hc.State.ConversationHistory, hc.Vars))
	if err != nil {
		return nil, err
	}
	var d Decision
	if err := res.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	return &d, nil
}

// reply runs a generation prompt against the given state.
func reply(ctx context.Context, hc *Context, state dialogue.State, d *Decision, build builderFunc) (*Result, error) {
	vars := varsFor(hc, state)
	if d != nil {
		vars.Guidance = d.Message
	}
	res, err := hc.Executor.Execute(ctx, build(state.ConversationHistory, vars))
	if err != nil {
		return nil, err
	}
	return &Result{Message: res.Text, State: state, Decision: d}, nil
}

// verbatim is the fallback for actions the handler does not know. Without an
// analyzer message the stage's clarify prompt answers instead.
func verbatim(ctx context.Context, hc *Context, d *Decision, clarify builderFunc) (*Result, error) {
	if strings.TrimSpace(d.Message) == "" {
		return reply(ctx, hc, hc.State, d, clarify)
	}
	return &Result{Message: d.Message, State: hc.State, Decision: d}, nil
}

func varsFor(hc *Context, state dialogue.State) prompt.Vars {
	return prompt.VarsFor(state, hc.Vars.Question, hc.StudentMessage, hc.Vars.MaxLoops)
}

func withStance(state dialogue.State, d *Decision, fallback string) dialogue.State {
	position := strings.TrimSpace(d.Position)
	if position == "" {
		position = strings.TrimSpace(fallback)
	}
	return dialogue.UpdateStance(state, position, strings.TrimSpace(d.Reason))
}
