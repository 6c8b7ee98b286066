package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"lingoquest/internal/gemini"
)

// GeminiTTS synthesizes speech through a Gemini TTS model.
type GeminiTTS struct {
	client *gemini.Client
	model  string
}

func NewGeminiTTS(client *gemini.Client, model string) *GeminiTTS {
	return &GeminiTTS{client: client, model: model}
}

func (g *GeminiTTS) Provider() string { return "gemini" }

func (g *GeminiTTS) ContentType() string { return PCMContentType }

// Synthesize returns raw 24 kHz mono 16-bit PCM.
func (g *GeminiTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	req := &gemini.GenerateContentRequest{
		Contents: []gemini.Content{{Parts: []gemini.Part{{Text: text}}}},
		GenerationConfig: &gemini.GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &gemini.SpeechConfig{
				VoiceConfig: &gemini.VoiceConfig{
					PrebuiltVoiceConfig: &gemini.PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	}

	resp, err := g.client.GenerateContent(ctx, g.model, req)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}

	part, ok := resp.FirstPart()
	if !ok || part.InlineData == nil || part.InlineData.Data == "" {
		return nil, ErrEmptyAudio
	}
	if mt := part.InlineData.MimeType; mt != "" && !strings.HasPrefix(mt, "audio/") {
		return nil, fmt.Errorf("gemini tts: unexpected mime type %q", mt)
	}

	pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: decode audio: %w", err)
	}
	if err := SpeechFormat.Validate(pcm); err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}
	return pcm, nil
}
