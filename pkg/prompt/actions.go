package prompt

// Analyzer actions. The model may still answer with something else; callers
// fall back to the analyzer message in that case.
const (
	ActionClarify            = "clarify"
	ActionEstablish          = "establish"
	ActionScaffold           = "scaffold"
	ActionContinueChallenge  = "continue_challenge"
	ActionAdvanceToPrinciple = "advance_to_principle"
	ActionProbe              = "probe"
	ActionAdvanceToClosure   = "advance_to_closure"
	ActionConclude           = "conclude"
)

var (
	StanceActions    = []string{ActionClarify, ActionEstablish}
	ChallengeActions = []string{ActionClarify, ActionScaffold, ActionContinueChallenge, ActionAdvanceToPrinciple}
	PrincipleActions = []string{ActionClarify, ActionScaffold, ActionProbe, ActionAdvanceToClosure}
	ClosureActions   = []string{ActionClarify, ActionConclude}
)
