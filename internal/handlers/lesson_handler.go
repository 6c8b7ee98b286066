package handlers

import (
	"context"
	"net/http"

	"lingoquest/internal/lesson"
	"lingoquest/internal/logger"
	"lingoquest/internal/security"
)

// LessonGenerator produces lessons that are safe to show
type LessonGenerator interface {
	Generate(ctx context.Context, topic string, profile lesson.LearnerProfile) (*lesson.Lesson, error)
}

// LessonHandler handles lesson generation
type LessonHandler struct {
	lessons  LessonGenerator
	progress ProgressService
	log      *logger.Logger
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(lessons LessonGenerator, progress ProgressService, log *logger.Logger) *LessonHandler {
	return &LessonHandler{
		lessons:  lessons,
		progress: progress,
		log:      log.With("handler", "LessonHandler"),
	}
}

type generateLessonRequest struct {
	Topic     string `json:"topic"`
	LearnerID string `json:"learnerId"`
}

// GenerateLesson returns a lesson for the requested topic, personalized for
// the learner when one is given.
func (h *LessonHandler) GenerateLesson(w http.ResponseWriter, r *http.Request) {
	var req generateLessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	var profile lesson.LearnerProfile
	if req.LearnerID != "" {
		if claims := GetClaimsFromContext(r.Context()); claims != nil && claims.Role != security.RoleAdmin && claims.Subject != req.LearnerID {
			respondWithError(w, h.log, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}
		learner, err := h.progress.GetLearner(r.Context(), req.LearnerID)
		if err != nil {
			respondWithServiceError(w, h.log, "Error loading learner for lesson", err)
			return
		}
		profile = lesson.LearnerProfile{Name: learner.DisplayName, GradeLevel: learner.GradeLevel}
	}

	l, err := h.lessons.Generate(r.Context(), req.Topic, profile)
	if err != nil {
		respondWithServiceError(w, h.log, "Error generating lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}
