package llm

import (
	"context"

	"socratic-tutor-be/pkg/usage"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user" or "model"
	Content string
}

// Request is everything a language model needs for one call.
type Request struct {
	Name        string // operation name used in logs and errors, e.g. "challenge.analyzer"
	Instruction string
	Contents    []Message
	// Schema is a JSON Schema document. When set the model is asked for JSON
	// and the executor validates the reply against it.
	Schema map[string]any
}

// Response is a language model reply together with its metering.
type Response struct {
	Text  string
	Model string
	Usage usage.Raw
}

// Transcript is the result of a speech-to-text call.
type Transcript struct {
	Text  string
	Model string
	Usage usage.Raw
}

// Speech is the result of a text-to-speech call.
type Speech struct {
	Audio    []byte
	MimeType string
	Model    string
	Usage    usage.Raw
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions resolves options on top of the given defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// TextGenerator defines the contract for any LLM backend.
// Implementations may return a non-nil Response together with an error when
// the provider metered a call that still failed.
type TextGenerator interface {
	Generate(ctx context.Context, req Request, options ...Option) (*Response, error)
}

// Transcriber turns encoded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error)
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Speech, error)
}
