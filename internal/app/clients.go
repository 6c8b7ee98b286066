package app

import (
	"errors"
	"fmt"
	"strings"

	"lingoquest/internal/audio"
	"lingoquest/internal/config"
	"lingoquest/internal/gemini"
	"lingoquest/internal/lesson"
	"lingoquest/internal/logger"
)

// Clients are the upstream collaborators. Generator is nil without a Gemini
// API key; Synthesizer falls back to Google Translate in that case.
type Clients struct {
	Gemini      *gemini.Client
	Generator   lesson.Generator
	Synthesizer audio.Synthesizer
}

// WireClients builds the upstream clients from config
func WireClients(cfg config.GeminiConfig, log *logger.Logger) (Clients, error) {
	var clients Clients

	client, err := gemini.NewClient(cfg, log)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		log.Warn("GEMINI_API_KEY not set: lessons use built-in templates")
	case err != nil:
		return Clients{}, fmt.Errorf("init gemini client: %w", err)
	default:
		clients.Gemini = client
		clients.Generator = lesson.NewGeminiClient(client, cfg.TextModel)
	}

	synth, err := newSynthesizer(cfg, clients.Gemini, log)
	if err != nil {
		return Clients{}, err
	}
	clients.Synthesizer = synth
	return clients, nil
}

func newSynthesizer(cfg config.GeminiConfig, client *gemini.Client, log *logger.Logger) (audio.Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.TTSProvider)) {
	case "", "gemini":
		if client == nil {
			log.Warn("Gemini TTS unavailable without an API key, using Google Translate TTS")
			return audio.NewGoogleTranslateTTS(), nil
		}
		return audio.NewGeminiTTS(client, cfg.TTSModel), nil
	case "google-translate", "google":
		return audio.NewGoogleTranslateTTS(), nil
	case "none", "off":
		log.Warn("Speech synthesis disabled, serving silence")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", cfg.TTSProvider)
	}
}
