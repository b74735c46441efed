package exam

import (
	"context"
	"errors"
	"time"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrExamInactive     = errors.New("exam is not active")
)

type ListExamsOpts struct {
	ActiveOnly bool
	CreatedBy  string // filter by authoring admin, empty for all
	Limit      int
	Offset     int
}

type ListAttemptsOpts struct {
	ExamID    string
	StudentID string
	Status    string // optional: in_progress|submitted|expired
	Limit     int
	Offset    int
}

// Finalization carries the terminal values written exactly once per attempt.
type Finalization struct {
	SubmittedAt time.Time
	Score       int
	IsPassed    bool
	Status      string // submitted or expired
}

type Store interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	ListExams(ctx context.Context, opts ListExamsOpts) ([]Exam, error)
	SetExamActive(ctx context.Context, id string, active bool) error
	DeleteExam(ctx context.Context, id string) error // cascades to questions, attempts, answers

	PutQuestion(ctx context.Context, q Question) error
	// GetQuestions returns an exam's questions in creation order. When
	// withKeys is false the correct answer labels are stripped, for serving
	// to students.
	GetQuestions(ctx context.Context, examID string, withKeys bool) ([]Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	CreateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// FinalizeAttempt writes the terminal state of an attempt. The write only
	// applies while the attempt is still in progress; a second call finds the
	// attempt already terminal and returns it unchanged, so submitted_at and
	// score survive races between the timer and a manual submit.
	FinalizeAttempt(ctx context.Context, id string, fin Finalization) (Attempt, error)
	ListAttempts(ctx context.Context, opts ListAttemptsOpts) ([]AttemptRecord, error)

	// UpsertAnswer creates or replaces the answer keyed by (attempt,
	// question). A re-selection overwrites the earlier scored record.
	UpsertAnswer(ctx context.Context, ans Answer) error
	ListAnswers(ctx context.Context, attemptID string) ([]Answer, error)
}
