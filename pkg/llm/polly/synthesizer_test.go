package polly

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynthClient struct {
	out *polly.SynthesizeSpeechOutput
	err error

	got *polly.SynthesizeSpeechInput
}

func (f *fakeSynthClient) SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	f.got = params
	return f.out, f.err
}

func TestSynthesizeReadsAudioAndCharacters(t *testing.T) {
	fake := &fakeSynthClient{out: &polly.SynthesizeSpeechOutput{
		AudioStream:       io.NopCloser(bytes.NewReader([]byte("mp3"))),
		ContentType:       aws.String("audio/mpeg"),
		RequestCharacters: 11,
	}}
	s := NewSynthesizerWithClient(Config{VoiceID: "Matthew"}, fake)

	speech, err := s.Synthesize(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, []byte("mp3"), speech.Audio)
	assert.Equal(t, "audio/mpeg", speech.MimeType)
	assert.Equal(t, int32(11), speech.Usage.PromptTokenCount)
	assert.Equal(t, pollytypes.VoiceId("Matthew"), fake.got.VoiceId)
	assert.Equal(t, pollytypes.EngineNeural, fake.got.Engine)
	assert.Equal(t, "hello world", aws.ToString(fake.got.Text))
}

func TestSynthesizeEmptyStream(t *testing.T) {
	s := NewSynthesizerWithClient(Config{}, &fakeSynthClient{out: &polly.SynthesizeSpeechOutput{}})

	_, err := s.Synthesize(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestNormalizePollyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"throttled", &smithy.GenericAPIError{Code: "TooManyRequestsException"}, "overloaded"},
		{"client", &smithy.GenericAPIError{Code: "TextLengthExceededException"}, "rejected"},
		{"server", &smithy.GenericAPIError{Code: "ServiceFailureException"}, "server error"},
		{"transport", io.ErrUnexpectedEOF, "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := normalizePollyError(tt.err)
			assert.ErrorContains(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
