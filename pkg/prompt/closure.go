package prompt

import (
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/llm"
)

func ClosureAnalyzer(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.section("task", "The student is reflecting on the discussion. Decide whether their latest message is a closing reflection.")
	b.section("actions", `- clarify: the student raised a question or the reflection is incomplete; ask one more question.
- conclude: the student has reflected; the discussion can end.`)
	b.section("output", "Reply with JSON only, matching the schema.")
	return request("closure.analyzer", b.String(), history, v, decisionSchema(ClosureActions, nil))
}

func ClosureClarify(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "Answer the student's point in one sentence without taking a side, then ask what they take away from the discussion.")
	return request("closure.clarify", b.String(), history, v, nil)
}

// ClosureOpening is the first message of the closure stage.
func ClosureOpening(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "The student has stated and examined their principle. "+
		"Ask them to reflect: how has their thinking changed since their first answer, and what remains unresolved for them?")
	return request("closure.opening", b.String(), history, v, nil)
}

// ClosureSummary produces the final message and the dialogue summary.
func ClosureSummary(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "End the discussion. Write a warm closing message that thanks the student, "+
		"and a neutral summary of how their stance and principle developed, using the histories above.")
	b.section("fields", `- message: the closing message to read to the student.
- summary: two to four sentences for the instructor.
- discussionSatisfied: true when the student articulated a stance and a principle and reflected on them.`)
	b.section("output", "Reply with JSON only, matching the schema.")

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message":             stringProp("Closing message for the student"),
			"summary":             stringProp("Summary of the discussion"),
			"discussionSatisfied": boolProp("Whether the discussion met its goals"),
		},
		"required": []any{"message", "summary", "discussionSatisfied"},
	}
	return request("closure.summary", b.String(), history, v, schema)
}
