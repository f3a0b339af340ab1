package usage

// Feature names used to attribute cost.
const (
	FeatureSpeechRecognition = "speech-recognition"
	FeatureLanguageModel     = "language-model"
	FeatureSpeechSynthesis   = "speech-synthesis"
	FeatureContentGeneration = "content-generation"
)

// Raw holds the counters reported by a provider for one call.
// Counters the provider did not report stay zero.
type Raw struct {
	CachedContentTokenCount int32 `json:"cachedContentTokenCount,omitempty"`
	PromptTokenCount        int32 `json:"promptTokenCount,omitempty"`
	ToolUsePromptTokenCount int32 `json:"toolUsePromptTokenCount,omitempty"`
	ThoughtsTokenCount      int32 `json:"thoughtsTokenCount,omitempty"`
	CandidatesTokenCount    int32 `json:"candidatesTokenCount,omitempty"`
}

// Totals is the normalized form of Raw.
//
// Input = CachedContent + Prompt + ToolUsePrompt + Thoughts
// Output = Candidates
// Total = Input + Output
type Totals struct {
	CachedContentTokenCount int64 `json:"cachedContentTokenCount"`
	PromptTokenCount        int64 `json:"promptTokenCount"`
	ToolUsePromptTokenCount int64 `json:"toolUsePromptTokenCount"`
	ThoughtsTokenCount      int64 `json:"thoughtsTokenCount"`
	CandidatesTokenCount    int64 `json:"candidatesTokenCount"`
	InputTokenCount         int64 `json:"inputTokenCount"`
	OutputTokenCount        int64 `json:"outputTokenCount"`
	TotalTokenCount         int64 `json:"totalTokenCount"`
}

// Entry attributes one raw reading to a feature.
type Entry struct {
	Feature string
	Raw     Raw
}

// Report is a per-feature breakdown. Totals is always the field-wise sum of ByFeature.
type Report struct {
	ByFeature map[string]Totals `json:"byFeature"`
	Totals    Totals            `json:"totals"`
}

func nonNegative(v int32) int64 {
	if v < 0 {
		return 0
	}
	return int64(v)
}

// Normalize derives input/output/total counts from raw counters.
func Normalize(raw Raw) Totals {
	t := Totals{
		CachedContentTokenCount: nonNegative(raw.CachedContentTokenCount),
		PromptTokenCount:        nonNegative(raw.PromptTokenCount),
		ToolUsePromptTokenCount: nonNegative(raw.ToolUsePromptTokenCount),
		ThoughtsTokenCount:      nonNegative(raw.ThoughtsTokenCount),
		CandidatesTokenCount:    nonNegative(raw.CandidatesTokenCount),
	}
	return t.derive()
}

func (t Totals) derive() Totals {
	t.InputTokenCount = t.CachedContentTokenCount + t.PromptTokenCount + t.ToolUsePromptTokenCount + t.ThoughtsTokenCount
	t.OutputTokenCount = t.CandidatesTokenCount
	t.TotalTokenCount = t.InputTokenCount + t.OutputTokenCount
	return t
}

// Sum adds two totals field by field.
func Sum(a, b Totals) Totals {
	return Totals{
		CachedContentTokenCount: a.CachedContentTokenCount + b.CachedContentTokenCount,
		PromptTokenCount:        a.PromptTokenCount + b.PromptTokenCount,
		ToolUsePromptTokenCount: a.ToolUsePromptTokenCount + b.ToolUsePromptTokenCount,
		ThoughtsTokenCount:      a.ThoughtsTokenCount + b.ThoughtsTokenCount,
		CandidatesTokenCount:    a.CandidatesTokenCount + b.CandidatesTokenCount,
		InputTokenCount:         a.InputTokenCount + b.InputTokenCount,
		OutputTokenCount:        a.OutputTokenCount + b.OutputTokenCount,
		TotalTokenCount:         a.TotalTokenCount + b.TotalTokenCount,
	}
}

// IsZero reports whether no tokens were counted.
func (t Totals) IsZero() bool {
	return t == Totals{}
}

// NewReport groups entries by feature and computes grand totals.
func NewReport(entries []Entry) Report {
	byFeature := make(map[string]Totals, len(entries))
	for _, e := range entries {
		byFeature[e.Feature] = Sum(byFeature[e.Feature], Normalize(e.Raw))
	}
	return FromTotals(byFeature)
}

// FromTotals builds a report from already normalized per-feature totals.
func FromTotals(byFeature map[string]Totals) Report {
	r := Report{ByFeature: make(map[string]Totals, len(byFeature))}
	for feature, t := range byFeature {
		r.ByFeature[feature] = t
		r.Totals = Sum(r.Totals, t)
	}
	return r
}

// Merge unions two reports. Totals are recomputed from the merged features,
// never re-derived from raw inputs.
func Merge(a, b Report) Report {
	merged := make(map[string]Totals, len(a.ByFeature)+len(b.ByFeature))
	for feature, t := range a.ByFeature {
		merged[feature] = t
	}
	for feature, t := range b.ByFeature {
		merged[feature] = Sum(merged[feature], t)
	}
	return FromTotals(merged)
}

// Empty reports whether the report attributes no usage at all.
func (r Report) Empty() bool {
	return len(r.ByFeature) == 0
}
