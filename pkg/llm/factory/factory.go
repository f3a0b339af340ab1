package factory

import (
	"context"
	"fmt"

	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/llm/gemini"
	"socratic-tutor-be/pkg/llm/ollama"
	"socratic-tutor-be/pkg/llm/polly"
	"socratic-tutor-be/pkg/usage"
)

// Config selects a backend for each model role.
type Config struct {
	LLMProvider string // "gemini" or "ollama"
	LLMModel    string

	GeminiAPIKey       string
	TranscriptionModel string

	TTSProvider string // "gemini" or "polly"
	TTSModel    string
	TTSVoice    string

	OllamaBaseURL string

	PollyRegion string
	PollyEngine string
}

// Providers is the resolved backend for each model role.
type Providers struct {
	Text        llm.TextGenerator
	Transcriber llm.Transcriber
	Synthesizer llm.Synthesizer

	// Models labels the model behind each role, keyed by usage feature name.
	Models map[string]string
}

func NewProviders(ctx context.Context, cfg Config) (*Providers, error) {
	var (
		gem *gemini.Provider
		err error
	)
	geminiProvider := func() (*gemini.Provider, error) {
		if gem != nil {
			return gem, nil
		}
		gem, err = gemini.NewProvider(ctx, gemini.Config{
			APIKey:             cfg.GeminiAPIKey,
			TextModel:          cfg.LLMModel,
			TranscriptionModel: cfg.TranscriptionModel,
			SpeechModel:        cfg.TTSModel,
			Voice:              cfg.TTSVoice,
		})
		return gem, err
	}

	p := &Providers{Models: map[string]string{}}

	text, textModel, err := NewLLMProvider(cfg.LLMProvider, cfg.LLMModel, cfg.OllamaBaseURL, geminiProvider)
	if err != nil {
		return nil, err
	}
	p.Text = text
	p.Models[usage.FeatureLanguageModel] = textModel

	// Transcription is only offered through Gemini.
	g, err := geminiProvider()
	if err != nil {
		return nil, err
	}
	p.Transcriber = g
	p.Models[usage.FeatureSpeechRecognition] = orDefault(cfg.TranscriptionModel, gemini.DefaultTranscriptionModel)

	switch cfg.TTSProvider {
	case "", "gemini":
		p.Synthesizer = g
		p.Models[usage.FeatureSpeechSynthesis] = orDefault(cfg.TTSModel, gemini.DefaultSpeechModel)
	case "polly":
		p.Synthesizer = polly.NewSynthesizer(polly.Config{
			Region:  cfg.PollyRegion,
			VoiceID: cfg.TTSVoice,
			Engine:  cfg.PollyEngine,
		})
		p.Models[usage.FeatureSpeechSynthesis] = polly.ModelName
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", cfg.TTSProvider)
	}

	return p, nil
}

func NewLLMProvider(providerType, modelName, baseURL string, gem func() (*gemini.Provider, error)) (llm.TextGenerator, string, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), modelName, nil
	case "", "gemini":
		g, err := gem()
		if err != nil {
			return nil, "", err
		}
		return g, orDefault(modelName, gemini.DefaultTextModel), nil
	default:
		return nil, "", fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
