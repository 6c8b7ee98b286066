package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"lingoquest/internal/audio"
	"lingoquest/internal/audiocache"
	"lingoquest/internal/logger"
)

// ErrEmptyText is returned when there is nothing to speak
var ErrEmptyText = errors.New("speech: empty text")

const fallbackSilence = 500 * time.Millisecond

// SpeechCache is the subset of the audio cache the speech service uses
type SpeechCache interface {
	Get(ctx context.Context, text, voice, provider string) ([]byte, error)
	Set(ctx context.Context, text, voice, provider string, data []byte) error
}

// Clip is playable audio plus where it came from
type Clip struct {
	Audio       []byte
	ContentType string
	// Source is "cache", "synthesized" or "fallback"
	Source string
}

// SpeechService serves spoken audio, cache first
type SpeechService struct {
	cache        SpeechCache
	synth        audio.Synthesizer
	defaultVoice string
	timeout      time.Duration
	log          *logger.Logger

	group singleflight.Group
}

// NewSpeechService creates a speech service. synth may be nil, in which case
// every cache miss is answered with silence.
func NewSpeechService(cache SpeechCache, synth audio.Synthesizer, defaultVoice string, timeout time.Duration, log *logger.Logger) *SpeechService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SpeechService{
		cache:        cache,
		synth:        synth,
		defaultVoice: defaultVoice,
		timeout:      timeout,
		log:          log.With("service", "SpeechService"),
	}
}

func (s *SpeechService) provider() string {
	if s.synth == nil {
		return "none"
	}
	return s.synth.Provider()
}

// Speak returns audio for text. A synthesis failure yields a short silent
// clip rather than an error so a lesson is never blocked on audio.
func (s *SpeechService) Speak(ctx context.Context, text, voice string) (Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Clip{}, ErrEmptyText
	}
	if voice == "" {
		voice = s.defaultVoice
	}
	if s.synth == nil {
		return silentClip(), nil
	}
	provider := s.provider()

	data, err := s.cache.Get(ctx, text, voice, provider)
	switch {
	case err == nil:
		return Clip{Audio: data, ContentType: s.synth.ContentType(), Source: "cache"}, nil
	case !errors.Is(err, audiocache.ErrMiss):
		s.log.Warn("Audio cache read failed, treating as miss", "error", err)
	}

	key := audiocache.DeriveKey(text, voice, provider)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.synthesize(ctx, text, voice, provider)
	})

	select {
	case <-ctx.Done():
		return Clip{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.log.Warn("Speech synthesis failed, using silence",
				"provider", provider,
				"voice", voice,
				"error", res.Err,
			)
			return silentClip(), nil
		}
		return Clip{Audio: res.Val.([]byte), ContentType: s.synth.ContentType(), Source: "synthesized"}, nil
	}
}

// synthesize calls the provider and caches the result. It runs detached from
// the caller so that shared waiters and the cache write survive a cancelled request.
func (s *SpeechService) synthesize(ctx context.Context, text, voice, provider string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	data, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, audio.ErrEmptyAudio
	}

	if err := s.cache.Set(ctx, text, voice, provider, data); err != nil {
		s.log.Warn("Failed to cache synthesized audio", "error", err)
	}
	return data, nil
}

func silentClip() Clip {
	return Clip{Audio: audio.Silence(fallbackSilence), ContentType: audio.PCMContentType, Source: "fallback"}
}
