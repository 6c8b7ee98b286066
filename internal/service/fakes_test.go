package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"lingoquest/internal/models"
	"lingoquest/internal/progress"
)

var errStorageDown = errors.New("storage down")

// memStores implements LearnerStore, LedgerStore and OutcomeStore in memory.
type memStores struct {
	mu       sync.Mutex
	learners map[string]*models.Learner
	ledgers  map[string]*progress.Ledger
	outcomes map[string][]progress.LessonOutcome

	failSaves   bool
	failRecords bool
	saves       int
	loads       int
}

func newMemStores() *memStores {
	return &memStores{
		learners: make(map[string]*models.Learner),
		ledgers:  make(map[string]*progress.Ledger),
		outcomes: make(map[string][]progress.LessonOutcome),
	}
}

func (m *memStores) Create(ctx context.Context, learner *models.Learner, ledger *progress.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *learner
	m.learners[learner.ID] = &copied
	m.ledgers[learner.ID] = ledger.Clone()
	return nil
}

func (m *memStores) GetByID(ctx context.Context, id string) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.learners[id]
	if !ok {
		return nil, nil
	}
	copied := *l
	return &copied, nil
}

func (m *memStores) Load(ctx context.Context, learnerID string) (*progress.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	l, ok := m.ledgers[learnerID]
	if !ok {
		return nil, nil
	}
	return l.Clone(), nil
}

func (m *memStores) Save(ctx context.Context, l *progress.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves {
		return errStorageDown
	}
	m.saves++
	m.ledgers[l.LearnerID] = l.Clone()
	return nil
}

func (m *memStores) Record(ctx context.Context, learnerID string, o progress.LessonOutcome) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRecords {
		return 0, errStorageDown
	}
	m.outcomes[learnerID] = append(m.outcomes[learnerID], o)
	return int64(len(m.outcomes[learnerID])), nil
}

func (m *memStores) History(ctx context.Context, learnerID string) ([]progress.LessonOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]progress.LessonOutcome(nil), m.outcomes[learnerID]...), nil
}

func (m *memStores) setFailures(saves, records bool) {
	m.mu.Lock()
	m.failSaves = saves
	m.failRecords = records
	m.mu.Unlock()
}

func (m *memStores) stored(learnerID string) *progress.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[learnerID]; ok {
		return l.Clone()
	}
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (n *recordingNotifier) NotifyBadges(ctx context.Context, learner *models.Learner, badges []progress.BadgeCondition) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, len(badges))
	for i, b := range badges {
		ids[i] = b.ID
	}
	n.calls = append(n.calls, ids)
	return n.err
}
