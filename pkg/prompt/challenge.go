package prompt

import (
	"socratic-tutor-be/pkg/dialogue"
	"socratic-tutor-be/pkg/llm"
)

func ChallengeAnalyzer(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.section("task", "The student is responding to a case that challenges their stance. "+
		"Classify their latest message and note whether their stance changed.")
	b.section("actions", `- clarify: the reply is unclear or does not engage with the case.
- scaffold: the student is struggling; they need a simpler angle on the same case.
- continue_challenge: the student engaged; test the stance with a new, different case.
- advance_to_principle: the student has defended or revised their stance across cases and is ready to name the rule behind it.
If the student's position is now different from the current stance, set "stanceChanged" to true and fill "position" and "reason".`)
	if v.MaxLoops > 0 && v.LoopCount+1 >= v.MaxLoops {
		b.section("constraint", "This is the last challenge round. Prefer advance_to_principle unless the reply needs clarifying.")
	}
	b.section("output", "Reply with JSON only, matching the schema.")

	schema := decisionSchema(ChallengeActions, map[string]any{
		"stanceChanged": boolProp("True when the student's position differs from the current stance"),
		"position":      stringProp("The new position, when stanceChanged"),
		"reason":        stringProp("The new reason, when stanceChanged"),
	})
	return request("challenge.analyzer", b.String(), history, v, schema)
}

func ChallengeClarify(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "The student's reply to the case was unclear. Ask one pointed question that helps them say how the case bears on their stance.")
	return request("challenge.clarify", b.String(), history, v, nil)
}

func ChallengeScaffold(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "The student is struggling with the case. Break it into a smaller, easier question about the same situation. "+
		"If their stance just changed, acknowledge the change without judging it.")
	return request("challenge.scaffold", b.String(), history, v, nil)
}

func ChallengeChallenge(history []dialogue.Entry, v Vars) llm.Request {
	var b builder
	b.role()
	b.context(v)
	b.guidance(v)
	b.section("task", "Present a new concrete case, different from the earlier ones, that tests the student's current stance from another direction. "+
		"Ask whether their position still holds and why.")
	return request("challenge.challenge", b.String(), history, v, nil)
}
