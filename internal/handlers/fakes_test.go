package handlers

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"lingoquest/internal/audiocache"
	"lingoquest/internal/lesson"
	"lingoquest/internal/models"
	"lingoquest/internal/progress"
	"lingoquest/internal/service"
	"lingoquest/internal/validation"
)

type fakeProgress struct {
	mu       sync.Mutex
	learners map[string]*models.Learner
	ledgers  map[string]*progress.Ledger
	nextID   int
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{
		learners: make(map[string]*models.Learner),
		ledgers:  make(map[string]*progress.Ledger),
	}
}

func (f *fakeProgress) CreateLearner(ctx context.Context, displayName string, gradeLevel int, parentEmail string) (*models.Learner, service.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if displayName == "" {
		displayName = "Happy Fox"
	}
	learner := &models.Learner{DisplayName: displayName, GradeLevel: gradeLevel, ParentEmail: parentEmail}
	if err := learner.Validate(); err != nil {
		return nil, service.Snapshot{}, err
	}
	f.nextID++
	learner.ID = "learner-" + string(rune('0'+f.nextID))
	f.learners[learner.ID] = learner
	f.ledgers[learner.ID] = progress.NewLedger(learner.ID)
	return learner, service.Snapshot{Ledger: f.ledgers[learner.ID].Clone()}, nil
}

func (f *fakeProgress) GetLearner(ctx context.Context, learnerID string) (*models.Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.learners[learnerID]
	if !ok {
		return nil, service.ErrLearnerNotFound
	}
	return l, nil
}

func (f *fakeProgress) Progress(ctx context.Context, learnerID string) (service.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ledgers[learnerID]
	if !ok {
		return service.Snapshot{}, service.ErrLearnerNotFound
	}
	return service.Snapshot{Ledger: l.Clone()}, nil
}

func (f *fakeProgress) ConsumeLife(ctx context.Context, learnerID string) (service.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ledgers[learnerID]
	if !ok {
		return service.Snapshot{}, false, service.ErrLearnerNotFound
	}
	consumed := progress.ConsumeLife(l, l.UpdatedAt)
	return service.Snapshot{Ledger: l.Clone()}, consumed, nil
}

func (f *fakeProgress) CompleteLesson(ctx context.Context, learnerID string, outcome progress.LessonOutcome) (service.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ledgers[learnerID]
	if !ok {
		return service.CompletionResult{}, service.ErrLearnerNotFound
	}
	now := outcome.CompletedAt
	if now.IsZero() {
		now = time.Now()
	}
	result, err := progress.CompleteLesson(l, outcome, progress.DefaultCatalog(), nil, now)
	if err != nil {
		return service.CompletionResult{}, err
	}
	return service.CompletionResult{Result: result, Snapshot: service.Snapshot{Ledger: l.Clone()}}, nil
}

func (f *fakeProgress) Catalog() []progress.BadgeCondition {
	return progress.DefaultCatalog()
}

type fakeLessons struct {
	lastTopic   string
	lastProfile lesson.LearnerProfile
}

func (f *fakeLessons) Generate(ctx context.Context, topic string, profile lesson.LearnerProfile) (*lesson.Lesson, error) {
	if topic == "" {
		return nil, validation.ValidationError{Field: "topic", Message: "topic is required"}
	}
	f.lastTopic = topic
	f.lastProfile = profile
	return lesson.FallbackLesson(topic), nil
}

type fakeSpeaker struct {
	clip service.Clip
	err  error
}

func (f *fakeSpeaker) Speak(ctx context.Context, text, voice string) (service.Clip, error) {
	return f.clip, f.err
}

type fakeCacheAdmin struct {
	stats   audiocache.Stats
	cleared bool
	pruned  int
	err     error
}

func (f *fakeCacheAdmin) Stats(ctx context.Context) (audiocache.Stats, error) { return f.stats, f.err }
func (f *fakeCacheAdmin) Clear(ctx context.Context) error {
	f.cleared = true
	return f.err
}
func (f *fakeCacheAdmin) PruneExpired(ctx context.Context) (int, error) { return f.pruned, f.err }
func (f *fakeCacheAdmin) Budget() int64                                 { return 1024 * 1024 }

type fakeBackup struct {
	imported []byte
}

func (f *fakeBackup) ExportToWriter(ctx context.Context, w io.Writer) error {
	_, err := io.WriteString(w, `{"version":"1.0","learners":[]}`)
	return err
}

func (f *fakeBackup) ImportFromReader(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("empty backup")
	}
	f.imported = data
	return nil
}
