package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	googleTTSURL      = "https://translate.google.com/translate_tts"
	ttsRequestTimeout = 10 * time.Second
	maxTTSResponse    = 5 << 20
)

// GoogleTranslateTTS uses Google Translate's free text-to-speech endpoint.
// The voice is interpreted as a language code ("en", "es", ...).
type GoogleTranslateTTS struct {
	baseURL    string
	httpClient *http.Client
}

func NewGoogleTranslateTTS() *GoogleTranslateTTS {
	return &GoogleTranslateTTS{
		baseURL:    googleTTSURL,
		httpClient: &http.Client{Timeout: ttsRequestTimeout},
	}
}

func (s *GoogleTranslateTTS) Provider() string { return "google-translate" }

func (s *GoogleTranslateTTS) ContentType() string { return "audio/mpeg" }

// Synthesize returns MP3 bytes.
func (s *GoogleTranslateTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	lang := voice
	if lang == "" {
		lang = "en"
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", lang)
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(len(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Google rejects requests without a browser user agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTTSResponse))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	return data, nil
}
