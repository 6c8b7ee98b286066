package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lingoquest/internal/credentials"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/progress"
)

// ErrLearnerNotFound is returned for an unknown learner ID
var ErrLearnerNotFound = errors.New("learner not found")

// LearnerStore persists learner profiles
type LearnerStore interface {
	Create(ctx context.Context, learner *models.Learner, ledger *progress.Ledger) error
	GetByID(ctx context.Context, id string) (*models.Learner, error)
}

// LedgerStore is the durable load/save contract for ledgers
type LedgerStore interface {
	Load(ctx context.Context, learnerID string) (*progress.Ledger, error)
	Save(ctx context.Context, l *progress.Ledger) error
}

// OutcomeStore keeps lesson history
type OutcomeStore interface {
	Record(ctx context.Context, learnerID string, o progress.LessonOutcome) (int64, error)
	History(ctx context.Context, learnerID string) ([]progress.LessonOutcome, error)
}

// BadgeNotifier is told about newly earned badges
type BadgeNotifier interface {
	NotifyBadges(ctx context.Context, learner *models.Learner, badges []progress.BadgeCondition) error
}

// Snapshot is a copy of a learner's ledger at a point in time
type Snapshot struct {
	Ledger     *progress.Ledger `json:"ledger"`
	NextLifeAt *time.Time       `json:"nextLifeAt,omitempty"`
	// Pending is true while the latest change has not reached storage
	Pending bool `json:"pending"`
}

// CompletionResult is returned after a lesson is applied
type CompletionResult struct {
	progress.Result
	Snapshot Snapshot `json:"snapshot"`
}

// learnerSession is the in-memory, authoritative copy of one learner's ledger.
// mu serializes every event for the learner.
type learnerSession struct {
	mu      sync.Mutex
	loaded  bool
	learner *models.Learner
	ledger  *progress.Ledger
	history []progress.LessonOutcome

	// unsaved outcomes and ledger changes waiting for the reconciler
	pending []progress.LessonOutcome
	dirty   bool
}

// ProgressService applies lesson-flow events to learner ledgers.
// Events for the same learner run in arrival order; the in-memory ledger
// is updated even when the durable save fails, and failed saves are retried.
type ProgressService struct {
	learners LearnerStore
	ledgers  LedgerStore
	outcomes OutcomeStore
	notifier BadgeNotifier
	catalog  []progress.BadgeCondition
	now      func() time.Time
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*learnerSession

	notifications sync.WaitGroup
}

// NewProgressService creates a progress service. notifier may be nil.
func NewProgressService(learners LearnerStore, ledgers LedgerStore, outcomes OutcomeStore, notifier BadgeNotifier, log *logger.Logger) *ProgressService {
	return &ProgressService{
		learners: learners,
		ledgers:  ledgers,
		outcomes: outcomes,
		notifier: notifier,
		catalog:  progress.DefaultCatalog(),
		now:      time.Now,
		log:      log.With("service", "ProgressService"),
		sessions: make(map[string]*learnerSession),
	}
}

// Catalog returns the badge catalog in use
func (s *ProgressService) Catalog() []progress.BadgeCondition {
	return s.catalog
}

// CreateLearner registers a learner with a fresh ledger. An empty display
// name is replaced by a generated one.
func (s *ProgressService) CreateLearner(ctx context.Context, displayName string, gradeLevel int, parentEmail string) (*models.Learner, Snapshot, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		generated, err := credentials.GenerateDisplayName()
		if err != nil {
			return nil, Snapshot{}, fmt.Errorf("failed to generate display name: %w", err)
		}
		displayName = generated
	}

	now := s.now()
	learner := &models.Learner{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		GradeLevel:  gradeLevel,
		ParentEmail: strings.TrimSpace(parentEmail),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := learner.Validate(); err != nil {
		return nil, Snapshot{}, err
	}

	ledger := progress.NewLedger(learner.ID)
	ledger.UpdatedAt = now
	if err := s.learners.Create(ctx, learner, ledger); err != nil {
		return nil, Snapshot{}, fmt.Errorf("failed to create learner: %w", err)
	}

	sess := &learnerSession{loaded: true, learner: learner, ledger: ledger}
	s.mu.Lock()
	s.sessions[learner.ID] = sess
	s.mu.Unlock()

	s.log.Info("Learner created", "learner_id", learner.ID, "grade", gradeLevel)
	return learner, snapshotOf(sess), nil
}

// GetLearner returns a learner profile
func (s *ProgressService) GetLearner(ctx context.Context, learnerID string) (*models.Learner, error) {
	var learner *models.Learner
	err := s.withSession(ctx, learnerID, func(sess *learnerSession) error {
		learner = sess.learner
		return nil
	})
	return learner, err
}

// Progress returns the learner's ledger after applying life regeneration
func (s *ProgressService) Progress(ctx context.Context, learnerID string) (Snapshot, error) {
	var snap Snapshot
	err := s.withSession(ctx, learnerID, func(sess *learnerSession) error {
		before := sess.ledger.Lives
		beforeRegen := sess.ledger.LivesLastRegenAt
		now := s.now()
		progress.RegenerateLives(sess.ledger, now)
		if sess.ledger.Lives != before || !sess.ledger.LivesLastRegenAt.Equal(beforeRegen) {
			sess.ledger.UpdatedAt = now
			s.persist(ctx, sess)
		}
		snap = snapshotOf(sess)
		return nil
	})
	return snap, err
}

// ConsumeLife spends one life. ok is false when none are left.
func (s *ProgressService) ConsumeLife(ctx context.Context, learnerID string) (snap Snapshot, ok bool, err error) {
	err = s.withSession(ctx, learnerID, func(sess *learnerSession) error {
		now := s.now()
		progress.RegenerateLives(sess.ledger, now)
		ok = progress.ConsumeLife(sess.ledger, now)
		sess.ledger.UpdatedAt = now
		s.persist(ctx, sess)
		snap = snapshotOf(sess)
		return nil
	})
	return snap, ok, err
}

// CompleteLesson applies a finished lesson to the learner's ledger
func (s *ProgressService) CompleteLesson(ctx context.Context, learnerID string, outcome progress.LessonOutcome) (CompletionResult, error) {
	var out CompletionResult
	err := s.withSession(ctx, learnerID, func(sess *learnerSession) error {
		now := s.now()
		if outcome.CompletedAt.IsZero() {
			outcome.CompletedAt = now
		}

		progress.RegenerateLives(sess.ledger, now)
		result, err := progress.CompleteLesson(sess.ledger, outcome, s.catalog, sess.history, now)
		if err != nil {
			return err
		}
		if result.ClockSkew {
			s.log.Warn("Last activity is in the future, streak reset",
				"learner_id", learnerID,
				"now", now,
			)
		}

		sess.history = append(sess.history, outcome)
		sess.pending = append(sess.pending, outcome)
		s.persist(ctx, sess)

		if len(result.BadgesEarned) > 0 {
			s.log.Info("Badges earned", "learner_id", learnerID, "count", len(result.BadgesEarned))
			s.notify(ctx, sess.learner, result.BadgesEarned)
		}

		out = CompletionResult{Result: result, Snapshot: snapshotOf(sess)}
		return nil
	})
	return out, err
}

// ReconcileDirty retries saving every ledger whose last save failed. It
// returns how many are still unsaved.
func (s *ProgressService) ReconcileDirty(ctx context.Context) int {
	s.mu.Lock()
	sessions := make([]*learnerSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	remaining := 0
	for _, sess := range sessions {
		sess.mu.Lock()
		if sess.dirty {
			if !s.persist(ctx, sess) {
				remaining++
			}
		}
		sess.mu.Unlock()
	}
	return remaining
}

// StartReconciler runs ReconcileDirty every interval until ctx is done
func (s *ProgressService) StartReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// One last attempt before shutdown
				if n := s.ReconcileDirty(context.WithoutCancel(ctx)); n > 0 {
					s.log.Error("Unsaved ledgers at shutdown", "count", n)
				}
				return
			case <-ticker.C:
				if n := s.ReconcileDirty(ctx); n > 0 {
					s.log.Warn("Ledgers still unsaved", "count", n)
				}
			}
		}
	}()
}

// Wait blocks until in-flight badge notifications finish
func (s *ProgressService) Wait() {
	s.notifications.Wait()
}

// Forget drops a learner's in-memory session so the next event reloads it
// from storage. Unsaved changes are lost. Events already waiting on the old
// session reload too.
func (s *ProgressService) Forget(learnerID string) {
	s.mu.Lock()
	sess, ok := s.sessions[learnerID]
	delete(s.sessions, learnerID)
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.loaded = false
	sess.pending = nil
	sess.dirty = false
	sess.mu.Unlock()
}

// withSession runs fn with the learner's session locked, loading it first if needed
func (s *ProgressService) withSession(ctx context.Context, learnerID string, fn func(sess *learnerSession) error) error {
	s.mu.Lock()
	sess, ok := s.sessions[learnerID]
	if !ok {
		sess = &learnerSession{}
		s.sessions[learnerID] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.loaded {
		if err := s.load(ctx, learnerID, sess); err != nil {
			if errors.Is(err, ErrLearnerNotFound) {
				s.mu.Lock()
				if s.sessions[learnerID] == sess {
					delete(s.sessions, learnerID)
				}
				s.mu.Unlock()
			}
			return err
		}
	}
	return fn(sess)
}

func (s *ProgressService) load(ctx context.Context, learnerID string, sess *learnerSession) error {
	learner, err := s.learners.GetByID(ctx, learnerID)
	if err != nil {
		return fmt.Errorf("failed to load learner: %w", err)
	}
	if learner == nil {
		return ErrLearnerNotFound
	}

	ledger, err := s.ledgers.Load(ctx, learnerID)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	if ledger == nil {
		s.log.Warn("Ledger missing, starting fresh", "learner_id", learnerID)
		ledger = progress.NewLedger(learnerID)
	}

	history, err := s.outcomes.History(ctx, learnerID)
	if err != nil {
		return fmt.Errorf("failed to load lesson history: %w", err)
	}

	sess.learner = learner
	sess.ledger = ledger
	sess.history = history
	sess.loaded = true
	return nil
}

// persist writes pending outcomes and the ledger. On failure the session is
// marked dirty for the reconciler. The write is detached from ctx so a
// client that disconnects does not abort it.
func (s *ProgressService) persist(ctx context.Context, sess *learnerSession) bool {
	ctx = context.WithoutCancel(ctx)
	learnerID := sess.ledger.LearnerID

	for len(sess.pending) > 0 {
		if _, err := s.outcomes.Record(ctx, learnerID, sess.pending[0]); err != nil {
			sess.dirty = true
			s.log.Warn("Failed to record lesson outcome, will retry", "learner_id", learnerID, "error", err)
			return false
		}
		sess.pending = sess.pending[1:]
	}

	if err := s.ledgers.Save(ctx, sess.ledger); err != nil {
		sess.dirty = true
		s.log.Warn("Failed to save ledger, will retry", "learner_id", learnerID, "error", err)
		return false
	}
	if sess.dirty {
		s.log.Info("Ledger reconciled", "learner_id", learnerID)
	}
	sess.dirty = false
	return true
}

func (s *ProgressService) notify(ctx context.Context, learner *models.Learner, badges []progress.BadgeCondition) {
	if s.notifier == nil || learner == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.notifier.NotifyBadges(ctx, learner, badges); err != nil {
			s.log.Warn("Failed to send badge notification", "learner_id", learner.ID, "error", err)
		}
	}()
}

func snapshotOf(sess *learnerSession) Snapshot {
	snap := Snapshot{Ledger: sess.ledger.Clone(), Pending: sess.dirty}
	if next, ok := progress.NextLifeAt(sess.ledger); ok {
		snap.NextLifeAt = &next
	}
	return snap
}
