package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openexam/examportal/internal/audit"
	"github.com/openexam/examportal/internal/exam"
)

var (
	ErrSessionNotFound = fmt.Errorf("no active session for attempt")
	ErrNotOwner        = fmt.Errorf("attempt belongs to another student")
)

// Manager keeps the single live Session object per attempt. Nothing stops a
// student from holding sessions against the same exam in parallel; each one
// is its own attempt row.
type Manager struct {
	store  exam.Store
	events *audit.EventRepo

	mu       sync.Mutex
	sessions map[string]*Session // attemptID -> session

	tickInterval time.Duration
}

type ManagerOption func(*Manager)

func WithManagerTick(d time.Duration) ManagerOption {
	return func(m *Manager) { m.tickInterval = d }
}

func NewManager(store exam.Store, events *audit.EventRepo, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:        store,
		events:       events,
		sessions:     map[string]*Session{},
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a session for a student against an active exam and begins the
// attempt. The session is registered only after Start succeeds, so a failed
// start leaves nothing behind.
func (m *Manager) Start(ctx context.Context, examID, studentID string) (*Session, exam.Attempt, error) {
	e, err := m.store.GetExam(ctx, examID)
	if err != nil {
		return nil, exam.Attempt{}, err
	}
	if !e.IsActive {
		return nil, exam.Attempt{}, exam.ErrExamInactive
	}

	s := New(m.store, m.events, e, studentID,
		WithTickOption(m.tickInterval),
		WithFinalizedHook(func(a exam.Attempt) { m.drop(a.ID) }),
	)
	a, err := s.Start(ctx)
	if err != nil {
		return nil, exam.Attempt{}, err
	}

	m.mu.Lock()
	m.sessions[a.ID] = s
	m.mu.Unlock()
	return s, a, nil
}

// Get returns the live session for an attempt, checking ownership.
func (m *Manager) Get(attemptID, studentID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[attemptID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.StudentID() != studentID {
		return nil, ErrNotOwner
	}
	return s, nil
}

func (m *Manager) drop(attemptID string) {
	m.mu.Lock()
	delete(m.sessions, attemptID)
	m.mu.Unlock()
}

// Active reports the number of live sessions, for readiness/debug output.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
