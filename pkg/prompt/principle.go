package prompt

import (
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/llm"
)

func PrincipleAnalyzer(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.section("task", "The student is trying to state the general principle behind their stance. Classify their latest message.")
	b.section("actions", `- clarify: the reply does not state a principle or is unclear.
- scaffold: the student needs help moving from their cases to a general rule.
- probe: the student stated a principle; fill "statement" and a one or two word "classification" (e.g. consequentialist, rights-based, virtue), then test its limits.
- advance_to_closure: the principle has been stated and examined; the discussion is ready to wrap up.`)
	b.section("output", "Reply with JSON only, matching the schema.")

	schema := decisionSchema(PrincipleActions, map[string]any{
		"statement":      stringProp("The principle in the student's words, when one was stated"),
		"classification": stringProp("Short label for the kind of principle"),
	})
	return request("principle.analyzer", b.String(), history, v, schema)
}

func PrincipleClarify(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "Ask the student to put the rule behind their answers into a single sentence.")
	return request("principle.clarify", b.String(), history, v, nil)
}

func PrincipleScaffold(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "Point to what the student's answers across the cases have in common and ask what rule would explain all of them.")
	return request("principle.scaffold", b.String(), history, v, nil)
}

func PrincipleProbe(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "Test the student's stated principle: offer one situation where applying it strictly leads somewhere surprising, and ask how they would refine or defend it.")
	return request("principle.probe", b.String(), history, v, nil)
}

// PrincipleOpening is the first message of the principle stage.
func PrincipleOpening(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "The case discussion is over. Briefly note how the student handled the cases, "+
		"then ask what general principle guides their judgement across all of them.")
	return request("principle.opening", b.String(), history, v, nil)
}
