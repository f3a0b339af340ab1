package executor

import (
	"context"
	"strings"

	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/usage"
)

type TranscriptResult struct {
	Text     string
	Model    string
	Attempts int
}

// SpeechToTextExecutor retries transcription until a non-blank transcript
// comes back. Single-turn lifetime, like LanguageExecutor.
type SpeechToTextExecutor struct {
	tr     llm.Transcriber
	policy RetryPolicy
	log    logger.ILogger
	usage  usage.Totals
}

func NewSpeechToTextExecutor(tr llm.Transcriber, policy RetryPolicy, log logger.ILogger) *SpeechToTextExecutor {
	return &SpeechToTextExecutor{tr: tr, policy: policy, log: log}
}

func (e *SpeechToTextExecutor) Execute(ctx context.Context, audio []byte, mimeType string) (*TranscriptResult, error) {
	res, attempts, err := retry(ctx, e.policy, "speech-to-text", e.log, func(ctx context.Context, _ int) (*TranscriptResult, error) {
		out, err := e.tr.Transcribe(ctx, audio, mimeType)
		if out != nil {
			e.usage = usage.Sum(e.usage, usage.Normalize(out.Usage))
		}
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(out.Text)
		if text == "" {
			return nil, ErrEmptyResponse
		}
		return &TranscriptResult{Text: text, Model: out.Model}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Attempts = attempts
	return res, nil
}

func (e *SpeechToTextExecutor) Usage() usage.Totals { return e.usage }

func (e *SpeechToTextExecutor) ResetUsage() { e.usage = usage.Totals{} }

type SpeechResult struct {
	Audio    []byte
	MimeType string
	Model    string
	Attempts int
}

// TextToSpeechExecutor retries synthesis until audio comes back.
type TextToSpeechExecutor struct {
	syn    llm.Synthesizer
	policy RetryPolicy
	log    logger.ILogger
	usage  usage.Totals
}

func NewTextToSpeechExecutor(syn llm.Synthesizer, policy RetryPolicy, log logger.ILogger) *TextToSpeechExecutor {
	return &TextToSpeechExecutor{syn: syn, policy: policy, log: log}
}

func (e *TextToSpeechExecutor) Execute(ctx context.Context, text string) (*SpeechResult, error) {
	res, attempts, err := retry(ctx, e.policy, "text-to-speech", e.log, func(ctx context.Context, _ int) (*SpeechResult, error) {
		out, err := e.syn.Synthesize(ctx, text)
		if out != nil {
			e.usage = usage.Sum(e.usage, usage.Normalize(out.Usage))
		}
		if err != nil {
			return nil, err
		}
		if len(out.Audio) == 0 {
			return nil, ErrEmptyAudio
		}
		return &SpeechResult{Audio: out.Audio, MimeType: out.MimeType, Model: out.Model}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Attempts = attempts
	return res, nil
}

func (e *TextToSpeechExecutor) Usage() usage.Totals { return e.usage }

func (e *TextToSpeechExecutor) ResetUsage() { e.usage = usage.Totals{} }
