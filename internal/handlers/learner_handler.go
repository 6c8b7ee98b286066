package handlers

import (
	"context"
	"net/http"
	"time"

	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/progress"
	"lingoquest/internal/security"
	"lingoquest/internal/service"
)

// ProgressService is the lesson-flow facade the learner routes call
type ProgressService interface {
	CreateLearner(ctx context.Context, displayName string, gradeLevel int, parentEmail string) (*models.Learner, service.Snapshot, error)
	GetLearner(ctx context.Context, learnerID string) (*models.Learner, error)
	Progress(ctx context.Context, learnerID string) (service.Snapshot, error)
	ConsumeLife(ctx context.Context, learnerID string) (service.Snapshot, bool, error)
	CompleteLesson(ctx context.Context, learnerID string, outcome progress.LessonOutcome) (service.CompletionResult, error)
	Catalog() []progress.BadgeCondition
}

// LearnerHandler handles learner profile and progress routes
type LearnerHandler struct {
	progress ProgressService
	issuer   *security.TokenIssuer
	log      *logger.Logger
}

// NewLearnerHandler creates a new learner handler. issuer may be nil.
func NewLearnerHandler(progress ProgressService, issuer *security.TokenIssuer, log *logger.Logger) *LearnerHandler {
	return &LearnerHandler{
		progress: progress,
		issuer:   issuer,
		log:      log.With("handler", "LearnerHandler"),
	}
}

type createLearnerRequest struct {
	DisplayName string `json:"displayName"`
	GradeLevel  int    `json:"gradeLevel"`
	ParentEmail string `json:"parentEmail"`
}

type createLearnerResponse struct {
	Learner  *models.Learner  `json:"learner"`
	Progress service.Snapshot `json:"progress"`
	Token    string           `json:"token,omitempty"`
}

// CreateLearner registers a learner and returns an access token for it
func (h *LearnerHandler) CreateLearner(w http.ResponseWriter, r *http.Request) {
	var req createLearnerRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	learner, snap, err := h.progress.CreateLearner(r.Context(), req.DisplayName, req.GradeLevel, req.ParentEmail)
	if err != nil {
		respondWithServiceError(w, h.log, "Error creating learner", err)
		return
	}

	resp := createLearnerResponse{Learner: learner, Progress: snap}
	if h.issuer != nil {
		token, err := h.issuer.Issue(learner.ID, security.RoleLearner)
		if err != nil {
			respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "Error issuing learner token", err)
			return
		}
		resp.Token = token
	}
	respondJSON(w, http.StatusCreated, resp)
}

type progressResponse struct {
	Learner  *models.Learner  `json:"learner"`
	Progress service.Snapshot `json:"progress"`
}

// GetProgress returns the learner's ledger with lives regenerated
func (h *LearnerHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")

	learner, err := h.progress.GetLearner(r.Context(), learnerID)
	if err != nil {
		respondWithServiceError(w, h.log, "Error loading learner", err)
		return
	}
	snap, err := h.progress.Progress(r.Context(), learnerID)
	if err != nil {
		respondWithServiceError(w, h.log, "Error loading progress", err)
		return
	}
	respondJSON(w, http.StatusOK, progressResponse{Learner: learner, Progress: snap})
}

type consumeLifeResponse struct {
	Consumed bool             `json:"consumed"`
	Progress service.Snapshot `json:"progress"`
}

// ConsumeLife spends one life. With no lives left it answers 409.
func (h *LearnerHandler) ConsumeLife(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := h.progress.ConsumeLife(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Error consuming life", err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	respondJSON(w, status, consumeLifeResponse{Consumed: ok, Progress: snap})
}

type completeLessonRequest struct {
	LessonID               string         `json:"lessonId"`
	CorrectCount           int            `json:"correctCount"`
	TotalCount             int            `json:"totalCount"`
	TimeSpentSeconds       int            `json:"timeSpentSeconds"`
	MistakesByExerciseType map[string]int `json:"mistakesByExerciseType"`
	ExperienceEarned       int            `json:"experienceEarned"`
	CompletedAt            *time.Time     `json:"completedAt"`
}

// CompleteLesson applies a finished lesson and returns the rewards
func (h *LearnerHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	var req completeLessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	outcome := progress.LessonOutcome{
		LessonID:               req.LessonID,
		CorrectCount:           req.CorrectCount,
		TotalCount:             req.TotalCount,
		TimeSpentSeconds:       req.TimeSpentSeconds,
		MistakesByExerciseType: req.MistakesByExerciseType,
		ExperienceEarned:       req.ExperienceEarned,
	}
	if req.CompletedAt != nil {
		outcome.CompletedAt = *req.CompletedAt
	}

	result, err := h.progress.CompleteLesson(r.Context(), r.PathValue("id"), outcome)
	if err != nil {
		respondWithServiceError(w, h.log, "Error completing lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListBadges returns the badge catalog
func (h *LearnerHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"badges": h.progress.Catalog()})
}
