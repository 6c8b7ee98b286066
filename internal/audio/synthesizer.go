// Package audio produces spoken audio for lesson text.
package audio

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a provider answers without any audio payload.
var ErrEmptyAudio = errors.New("audio: provider returned no audio")

// Synthesizer turns text into audio bytes in the provider's native format.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	// Provider names the backend; it is part of the cache key.
	Provider() string
	// ContentType is the MIME type of the bytes Synthesize returns.
	ContentType() string
}
