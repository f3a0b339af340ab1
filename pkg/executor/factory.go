package executor

import (
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/usage"
)

// Factory holds the shared, stateless providers and hands out per-turn
// executor sets.
type Factory struct {
	Text        llm.TextGenerator
	Transcriber llm.Transcriber
	Synthesizer llm.Synthesizer
	Policy      RetryPolicy
	Log         logger.ILogger
	CallLog     logger.ILogger
}

// Set is the executors one turn uses. It must not be shared between turns.
type Set struct {
	Language     *LanguageExecutor
	SpeechToText *SpeechToTextExecutor
	TextToSpeech *TextToSpeechExecutor
}

func (f *Factory) NewSet() *Set {
	log := f.Log
	if log == nil {
		log = logger.NewNopLogger()
	}
	callLog := f.CallLog
	if callLog == nil {
		callLog = log
	}
	return &Set{
		Language:     NewLanguageExecutor(f.Text, f.Policy, log, callLog),
		SpeechToText: NewSpeechToTextExecutor(f.Transcriber, f.Policy, log),
		TextToSpeech: NewTextToSpeechExecutor(f.Synthesizer, f.Policy, log),
	}
}

// Report attributes the set's metered usage to features, skipping idle ones.
func (s *Set) Report() usage.Report {
	byFeature := map[string]usage.Totals{}
	if t := s.SpeechToText.Usage(); !t.IsZero() {
		byFeature[usage.FeatureSpeechRecognition] = t
	}
	if t := s.Language.Usage(); !t.IsZero() {
		byFeature[usage.FeatureLanguageModel] = t
	}
	if t := s.TextToSpeech.Usage(); !t.IsZero() {
		byFeature[usage.FeatureSpeechSynthesis] = t
	}
	return usage.FromTotals(byFeature)
}

func (s *Set) ResetUsage() {
	s.Language.ResetUsage()
	s.SpeechToText.ResetUsage()
	s.TextToSpeech.ResetUsage()
}
