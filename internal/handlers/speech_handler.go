package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"lingoquest/internal/audio"
	"lingoquest/internal/logger"
	"lingoquest/internal/service"
)

// Speaker returns spoken audio for text
type Speaker interface {
	Speak(ctx context.Context, text, voice string) (service.Clip, error)
}

// SpeechHandler serves synthesized speech
type SpeechHandler struct {
	speech Speaker
	log    *logger.Logger
}

// NewSpeechHandler creates a new speech handler
func NewSpeechHandler(speech Speaker, log *logger.Logger) *SpeechHandler {
	return &SpeechHandler{speech: speech, log: log.With("handler", "SpeechHandler")}
}

// Speak serves audio for the text query parameter. Raw PCM is wrapped as WAV.
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	voice := strings.TrimSpace(r.URL.Query().Get("voice"))
	if text == "" {
		respondWithError(w, h.log, http.StatusBadRequest, "Text is required", "", nil)
		return
	}
	if utf8.RuneCountInString(text) > maxSpeechTextRunes {
		respondWithError(w, h.log, http.StatusRequestEntityTooLarge, "Text is too long", "", nil)
		return
	}

	clip, err := h.speech.Speak(r.Context(), text, voice)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away
			return
		}
		respondWithServiceError(w, h.log, "Error producing speech", err)
		return
	}

	body, contentType := clip.Audio, clip.ContentType
	if contentType == audio.PCMContentType {
		body, contentType = audio.WrapPCMAsWAV(clip.Audio, audio.SpeechFormat), "audio/wav"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("X-Audio-Source", clip.Source)
	if clip.Source != "fallback" {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
