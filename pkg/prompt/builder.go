package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/llm"
)

// Vars are the named template variables every builder draws from.
type Vars struct {
	Topic                   string
	Question                string // the assignment prompt shown to the student
	CurrentStance           string
	CurrentReason           string
	CurrentPrinciple        string
	PrincipleClassification string
	LoopCount               int
	MaxLoops                int
	StanceHistory           string
	PrincipleHistory        string
	StudentMessage          string
	// Guidance carries the analyzer's note into the follow-up builder.
	Guidance string
}

// VarsFor fills Vars from the dialogue state.
func VarsFor(s dialogue.State, question, studentMessage string, maxLoops int) Vars {
	v := Vars{
		Topic:            s.Topic,
		Question:         question,
		LoopCount:        s.LoopCount,
		MaxLoops:         maxLoops,
		StanceHistory:    dialogue.FormatStanceHistory(s.StanceHistory),
		PrincipleHistory: dialogue.FormatPrincipleHistory(s.PrincipleHistory),
		StudentMessage:   studentMessage,
	}
	if cur := s.CurrentStance(); cur != nil {
		v.CurrentStance, v.CurrentReason = cur.Position, cur.Reason
	}
	if cur := s.CurrentPrinciple(); cur != nil {
		v.CurrentPrinciple, v.PrincipleClassification = cur.Statement, cur.Classification
	}
	return v
}

// Messages maps the transcript onto model messages, oldest first.
func Messages(history []dialogue.Entry) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, e := range history {
		role := llm.RoleUser
		if e.Role == dialogue.RoleModel {
			role = llm.RoleModel
		}
		out = append(out, llm.Message{Role: role, Content: e.Text})
	}
	return out
}

func orNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return dialogue.NoPriorRecord
	}
	return v
}

type builder struct {
	sb strings.Builder
}

func (b *builder) section(tag, body string) {
	b.sb.WriteString("<" + tag + ">\n")
	b.sb.WriteString(strings.TrimSpace(body))
	b.sb.WriteString("\n</" + tag + ">\n\n")
}

func (b *builder) role() {
	b.section("role", "You are a Socratic tutor. You never lecture and never give your own opinion on the topic. "+
		"You help the student examine their own thinking through questions and concrete cases. "+
		"Keep every reply short enough to be read aloud: at most three sentences, ending with one question.")
}

func (b *builder) context(v Vars) {
	var c strings.Builder
	fmt.Fprintf(&c, "Topic: %s\n", v.Topic)
	if v.Question != "" {
		fmt.Fprintf(&c, "Assignment prompt: %s\n", v.Question)
	}
	fmt.Fprintf(&c, "Current stance: %s\n", orNone(v.CurrentStance))
	fmt.Fprintf(&c, "Current reason: %s\n", orNone(v.CurrentReason))
	fmt.Fprintf(&c, "Current principle: %s\n", orNone(v.CurrentPrinciple))
	if v.PrincipleClassification != "" {
		fmt.Fprintf(&c, "Principle classification: %s\n", v.PrincipleClassification)
	}
	fmt.Fprintf(&c, "Challenge loops completed: %s of %s\n", strconv.Itoa(v.LoopCount), strconv.Itoa(v.MaxLoops))
	b.section("dialogue_context", c.String())
	b.section("stance_history", v.StanceHistory)
	b.section("principle_history", v.PrincipleHistory)
}

func (b *builder) guidance(v Vars) {
	if strings.TrimSpace(v.Guidance) != "" {
		b.section("analysis_notes", v.Guidance)
	}
}

func (b *builder) String() string { return strings.TrimSpace(b.sb.String()) }

// request assembles the final request. The student's new message, when set,
// is appended after the transcript.
func request(name, instruction string, history []dialogue.Entry, v Vars, schema map[string]any) llm.Request {
	contents := Messages(history)
	if strings.TrimSpace(v.StudentMessage) != "" {
		contents = append(contents, llm.Message{Role: llm.RoleUser, Content: v.StudentMessage})
	}
	return llm.Request{
		Name:        name,
		Instruction: instruction,
		Contents:    contents,
		Schema:      schema,
	}
}

func decisionSchema(actions []string, extra map[string]any, required ...string) map[string]any {
	props := map[string]any{
		"action": map[string]any{
			"type":        "string",
			"description": "One of: " + strings.Join(actions, ", "),
		},
		"message": map[string]any{
			"type":        "string",
			"minLength":   1,
			"description": "Short note on what the student said and what to do next",
		},
	}
	for k, p := range extra {
		props[k] = p
	}
	req := []any{"action", "message"}
	for _, r := range required {
		req = append(req, r)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   req,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func boolProp(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}
