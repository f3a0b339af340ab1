package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"socratic-tutor-be/pkg/llm"
	"socratic-tutor-be/pkg/usage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

const ModelName = "amazon-polly"

// ErrEmptyAudio is returned when Polly answers without an audio stream.
var ErrEmptyAudio = errors.New("polly returned no audio")

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type Config struct {
	Region  string
	VoiceID string
	Engine  string
	Timeout time.Duration
}

// Synthesizer renders tutor replies to mp3 through Amazon Polly.
type Synthesizer struct {
	mu     sync.Mutex
	client synthClient
	cfg    Config
}

var _ llm.Synthesizer = (*Synthesizer)(nil)

func NewSynthesizer(cfg Config) *Synthesizer {
	return NewSynthesizerWithClient(cfg, nil)
}

func NewSynthesizerWithClient(cfg Config, client synthClient) *Synthesizer {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = "Joanna"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "neural"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Synthesizer{client: client, cfg: cfg}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*llm.Speech, error) {
	client, err := s.resolveClient(ctx)
	if err != nil {
		return nil, err
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(s.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	output, err := client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         aws.String(text),
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(s.cfg.VoiceID),
	})
	if err != nil {
		return nil, normalizePollyError(err)
	}
	if output == nil || output.AudioStream == nil {
		return nil, ErrEmptyAudio
	}
	defer output.AudioStream.Close()

	audio, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read polly audio: %w", err)
	}

	mimeType := "audio/mpeg"
	if output.ContentType != nil && *output.ContentType != "" {
		mimeType = *output.ContentType
	}

	// Polly bills by character; the count is recorded as prompt input.
	return &llm.Speech{
		Audio:    audio,
		MimeType: mimeType,
		Model:    ModelName,
		Usage:    usage.Raw{PromptTokenCount: output.RequestCharacters},
	}, nil
}

func normalizePollyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("polly synthesize: %w", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException":
			return fmt.Errorf("polly overloaded: %w", err)
		case "InvalidSsmlException", "TextLengthExceededException", "LexiconNotFoundException", "MarksNotSupportedForFormatException", "InvalidSampleRateException":
			return fmt.Errorf("polly rejected request (%s): %w", apiErr.ErrorCode(), err)
		default:
			return fmt.Errorf("polly server error (%s): %w", apiErr.ErrorCode(), err)
		}
	}
	return fmt.Errorf("polly transport error: %w", err)
}

func (s *Synthesizer) resolveClient(ctx context.Context) (synthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	s.client = polly.NewFromConfig(awsCfg)
	return s.client, nil
}
