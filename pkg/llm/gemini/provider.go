package gemini

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/usage"

	"google.golang.org/genai"
)

const (
	DefaultTextModel          = "gemini-2.5-flash"
	DefaultTranscriptionModel = "gemini-2.5-flash"
	DefaultSpeechModel        = "gemini-2.5-flash-preview-tts"
	DefaultVoice              = "Kore"

	transcriptionInstruction = "Transcribe the spoken audio verbatim. Reply with the transcript only, no commentary."
)

type Config struct {
	APIKey             string
	TextModel          string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider talks to the Gemini API for text, transcription and speech.
type Provider struct {
	models contentGenerator
	cfg    Config
}

var (
	_ llm.TextGenerator = (*Provider)(nil)
	_ llm.Transcriber   = (*Provider)(nil)
	_ llm.Synthesizer   = (*Provider)(nil)
)

func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewProviderWithClient(cfg, client.Models), nil
}

func NewProviderWithClient(cfg Config, models contentGenerator) *Provider {
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return &Provider{models: models, cfg: cfg}
}

func (p *Provider) Generate(ctx context.Context, req llm.Request, opts ...llm.Option) (*llm.Response, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: p.cfg.TextModel}, opts...)

	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, msg := range req.Contents {
		role := genai.RoleUser
		if msg.Role == llm.RoleModel || msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(role)))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(options.Temperature)),
	}
	if req.Instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseJsonSchema = req.Schema
	}

	resp, err := p.models.GenerateContent(ctx, options.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	return &llm.Response{
		Text:  resp.Text(),
		Model: options.Model,
		Usage: usageFrom(resp.UsageMetadata),
	}, nil
}

func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (*llm.Transcript, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcriptionInstruction),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	resp, err := p.models.GenerateContent(ctx, p.cfg.TranscriptionModel, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini transcribe: %w", err)
	}

	return &llm.Transcript{
		Text:  strings.TrimSpace(resp.Text()),
		Model: p.cfg.TranscriptionModel,
		Usage: usageFrom(resp.UsageMetadata),
	}, nil
}

func (p *Provider) Synthesize(ctx context.Context, text string) (*llm.Speech, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := p.models.GenerateContent(ctx, p.cfg.SpeechModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: p.cfg.Voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini synthesize: %w", err)
	}

	speech := &llm.Speech{
		Model: p.cfg.SpeechModel,
		Usage: usageFrom(resp.UsageMetadata),
	}
	blob := firstInlineData(resp)
	if blob == nil {
		return speech, nil
	}
	speech.Audio, speech.MimeType = blob.Data, blob.MIMEType
	if strings.HasPrefix(blob.MIMEType, "audio/L16") || strings.Contains(blob.MIMEType, "codec=pcm") {
		speech.Audio = pcmToWAV(blob.Data, sampleRate(blob.MIMEType))
		speech.MimeType = "audio/wav"
	}
	return speech, nil
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

func usageFrom(md *genai.GenerateContentResponseUsageMetadata) usage.Raw {
	if md == nil {
		return usage.Raw{}
	}
	return usage.Raw{
		CachedContentTokenCount: md.CachedContentTokenCount,
		PromptTokenCount:        md.PromptTokenCount,
		ToolUsePromptTokenCount: md.ToolUsePromptTokenCount,
		ThoughtsTokenCount:      md.ThoughtsTokenCount,
		CandidatesTokenCount:    md.CandidatesTokenCount,
	}
}

// sampleRate reads "rate=24000" from a PCM mime type.
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && k == "rate" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return 24000
}

// pcmToWAV wraps 16-bit mono little-endian PCM in a RIFF header.
func pcmToWAV(pcm []byte, rate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := rate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
