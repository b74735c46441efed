package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openexam/examportal/internal/audit"
	"github.com/openexam/examportal/internal/exam"
)

// Lifecycle states. Finalized is terminal; a failed finalize drops back to
// stateInProgress so the student can retry the submit.
const (
	stateNotStarted int32 = iota
	stateInProgress
	stateFinalizing
	stateFinalized
)

// Submit causes.
const (
	CauseManual = "manual"
	CauseTimer  = "timer"
)

var (
	ErrNotStarted       = fmt.Errorf("attempt not started")
	ErrAlreadyFinalized = fmt.Errorf("attempt already finalized")
	ErrNoQuestions      = fmt.Errorf("exam has no questions")
	ErrUnknownQuestion  = fmt.Errorf("question not part of this exam")
	ErrInvalidOption    = fmt.Errorf("selected option must be one of a, b, c, d")
)

// Session owns one student's timed run against one exam: the countdown, the
// question cursor, and the finalize sequence. All scoring of record happens
// against persisted answer rows; the in-memory selection map only feeds the
// answered-count display.
type Session struct {
	store  exam.Store
	events *audit.EventRepo
	log    *logrus.Entry

	exam      exam.Exam
	questions []exam.Question // fetched once at Start, with answer keys
	byID      map[string]exam.Question
	studentID string

	attempt   exam.Attempt
	countdown *Countdown

	state atomic.Int32

	mu       sync.Mutex
	index    int
	selected map[string]string // questionID -> label, display mirror only

	tickInterval time.Duration
	onFinalized  func(exam.Attempt)
}

type Option func(*Session)

// WithTickOption overrides the countdown tick period, for tests.
func WithTickOption(d time.Duration) Option {
	return func(s *Session) { s.tickInterval = d }
}

// WithFinalizedHook registers a callback invoked once after the attempt
// reaches its terminal state. The manager uses it to drop the session.
func WithFinalizedHook(fn func(exam.Attempt)) Option {
	return func(s *Session) { s.onFinalized = fn }
}

func New(store exam.Store, events *audit.EventRepo, e exam.Exam, studentID string, opts ...Option) *Session {
	s := &Session{
		store:  store,
		events: events,
		log: logrus.WithFields(logrus.Fields{
			"exam_id":    e.ID,
			"student_id": studentID,
		}),
		exam:         e,
		studentID:    studentID,
		selected:     map[string]string{},
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start fetches the exam's question set and creates the attempt row. Both
// must succeed before the clock starts; either failure aborts the whole
// start and the session stays usable for a retry.
func (s *Session) Start(ctx context.Context) (exam.Attempt, error) {
	if !s.state.CompareAndSwap(stateNotStarted, stateInProgress) {
		return s.Attempt(), ErrAlreadyFinalized
	}
	qs, err := s.store.GetQuestions(ctx, s.exam.ID, true)
	if err != nil {
		s.state.Store(stateNotStarted)
		return exam.Attempt{}, fmt.Errorf("fetch questions: %w", err)
	}
	if len(qs) == 0 {
		s.state.Store(stateNotStarted)
		return exam.Attempt{}, ErrNoQuestions
	}

	a := exam.Attempt{
		ID:         uuid.NewString(),
		ExamID:     s.exam.ID,
		StudentID:  s.studentID,
		StartedAt:  time.Now().UTC(),
		TotalMarks: s.exam.TotalMarks,
		Status:     exam.StatusInProgress,
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		s.state.Store(stateNotStarted)
		return exam.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}

	s.questions = qs
	s.byID = make(map[string]exam.Question, len(qs))
	for _, q := range qs {
		s.byID[q.ID] = q
	}
	s.setAttempt(a)
	s.log = s.log.WithField("attempt_id", a.ID)

	s.countdown = NewCountdown(s.exam.DurationMinutes, s.expire, WithTickInterval(s.tickInterval))
	s.countdown.Start()

	s.events.Record(ctx, audit.TypeAttemptStarted, a.ID, a)
	s.log.Info("attempt started")
	return a, nil
}

func (s *Session) expire() {
	if _, err := s.Submit(context.Background(), CauseTimer); err != nil {
		s.log.WithError(err).Error("auto-submit on expiry failed")
	}
}

// SelectAnswer scores the selection against the question set fetched at
// Start and upserts the answer row keyed by (attempt, question). A store
// failure is logged and swallowed: the student keeps working and the
// unsaved selection is simply absent from the final sum.
func (s *Session) SelectAnswer(ctx context.Context, questionID, label string) error {
	if s.state.Load() != stateInProgress {
		return ErrNotStarted
	}
	switch label {
	case exam.OptionA, exam.OptionB, exam.OptionC, exam.OptionD:
	default:
		return ErrInvalidOption
	}
	q, ok := s.byID[questionID]
	if !ok {
		return ErrUnknownQuestion
	}

	s.mu.Lock()
	s.selected[questionID] = label
	s.mu.Unlock()

	isCorrect, marks := exam.Score(q, label)
	ans := exam.Answer{
		ID:             uuid.NewString(),
		AttemptID:      s.Attempt().ID,
		QuestionID:     questionID,
		SelectedAnswer: label,
		IsCorrect:      isCorrect,
		MarksObtained:  marks,
		AnsweredAt:     time.Now().UTC(),
	}
	if err := s.store.UpsertAnswer(ctx, ans); err != nil {
		s.log.WithError(err).WithField("question_id", questionID).
			Warn("answer save failed, session continues")
	}
	return nil
}

// Submit finalizes the attempt. The compare-and-swap guard makes it
// idempotent under the timer racing a double click: the first caller runs
// the finalize sequence, every later caller gets the current attempt back
// untouched.
func (s *Session) Submit(ctx context.Context, cause string) (exam.Attempt, error) {
	if s.state.Load() == stateNotStarted {
		return exam.Attempt{}, ErrNotStarted
	}
	if !s.state.CompareAndSwap(stateInProgress, stateFinalizing) {
		return s.Attempt(), nil
	}
	s.countdown.Stop()

	answers, err := s.store.ListAnswers(ctx, s.Attempt().ID)
	if err != nil {
		s.state.Store(stateInProgress)
		return exam.Attempt{}, fmt.Errorf("read answers: %w", err)
	}
	score := exam.SumMarks(answers)
	status := exam.StatusSubmitted
	if cause == CauseTimer {
		status = exam.StatusExpired
	}
	fin := exam.Finalization{
		SubmittedAt: time.Now().UTC(),
		Score:       score,
		IsPassed:    exam.Passed(score, s.exam.PassingMarks),
		Status:      status,
	}
	a, err := s.store.FinalizeAttempt(ctx, s.Attempt().ID, fin)
	if err != nil {
		s.state.Store(stateInProgress)
		return exam.Attempt{}, fmt.Errorf("finalize attempt: %w", err)
	}
	s.setAttempt(a)
	s.state.Store(stateFinalized)

	s.events.Record(ctx, audit.TypeAttemptSubmitted, a.ID, a)
	s.log.WithFields(logrus.Fields{
		"score":  score,
		"passed": fin.IsPassed,
		"cause":  cause,
	}).Info("attempt finalized")
	if s.onFinalized != nil {
		s.onFinalized(a)
	}
	return a, nil
}

// Navigation is pure cursor movement over the fetched question set; it
// touches no store state.

func (s *Session) Next() int  { return s.move(+1) }
func (s *Session) Prev() int  { return s.move(-1) }
func (s *Session) Index() int { s.mu.Lock(); defer s.mu.Unlock(); return s.index }

func (s *Session) move(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Load() != stateInProgress {
		return s.index
	}
	s.index = clamp(s.index+delta, 0, len(s.questions)-1)
	return s.index
}

// Goto jumps to a question by index, clamped to the valid range.
func (s *Session) Goto(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Load() != stateInProgress {
		return s.index
	}
	s.index = clamp(i, 0, len(s.questions)-1)
	return s.index
}

// Current returns the question under the cursor, student-safe.
func (s *Session) Current() exam.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.questions[s.index]
	q.CorrectAnswer = ""
	return q
}

// AnsweredCount reads the display mirror, not the store.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

func (s *Session) Attempt() exam.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

func (s *Session) setAttempt(a exam.Attempt) {
	s.mu.Lock()
	s.attempt = a
	s.mu.Unlock()
}

func (s *Session) StudentID() string  { return s.studentID }
func (s *Session) QuestionCount() int { return len(s.questions) }

// Remaining reports the countdown's seconds left, zero once finalized.
func (s *Session) Remaining() int {
	if s.countdown == nil || s.state.Load() == stateFinalized {
		return 0
	}
	return s.countdown.Remaining()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
