package prompt

import (
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/llm"
)

func StanceAnalyzer(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.section("task", "The student has been asked for their position on the topic. "+
		"Decide whether their latest message states a clear position with a reason.")
	b.section("actions", `- clarify: the message is vague, off topic, or has no position. Say what is missing.
- establish: the message takes a clear position. Extract it as "position" and the supporting "reason" (empty if none given).`)
	b.section("output", "Reply with JSON only, matching the schema.")

	schema := decisionSchema(StanceActions, map[string]any{
		"position": stringProp("The student's position in one sentence"),
		"reason":   stringProp("The student's reason, if any"),
	})
	return request("stance.analyzer", b.String(), history, v, schema)
}

func StanceClarify(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "The student has not yet taken a clear position. "+
		"Restate the question simply and ask them to pick a side and say why.")
	return request("stance.clarify", b.String(), history, v, nil)
}

// StanceEstablish acknowledges the new stance and opens the first case.
func StanceEstablish(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "The student just stated their position. Briefly reflect it back in their own terms, "+
		"then present one concrete, realistic case that puts pressure on that position, and ask whether their view still holds.")
	return request("stance.establish", b.String(), history, v, nil)
}
