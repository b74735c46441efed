package history

import (
	"context"
	"math"

	"github.com/openexam/examportal/internal/exam"
)

// Display states for an attempt row.
const (
	StateInProgress = "in_progress"
	StatePassed     = "passed"
	StateFailed     = "failed"
)

// View is one row of a student's result history: the finalized attempt
// joined with its exam's display fields, plus the derived figures.
type View struct {
	exam.AttemptRecord
	Percentage int    `json:"percentage"`
	State      string `json:"state"`
}

type Service struct {
	store exam.Store
}

func NewService(store exam.Store) *Service { return &Service{store: store} }

// ForStudent returns all of a student's attempts across all exams, most
// recent first.
func (s *Service) ForStudent(ctx context.Context, studentID string) ([]View, error) {
	recs, err := s.store.ListAttempts(ctx, exam.ListAttemptsOpts{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(recs))
	for _, r := range recs {
		out = append(out, Classify(r))
	}
	return out, nil
}

// Classify derives the display state and percentage for one attempt. An
// in-progress attempt shows no score; both terminal statuses render as a
// pass or fail badge.
func Classify(r exam.AttemptRecord) View {
	v := View{AttemptRecord: r, State: StateInProgress}
	if !r.Terminal() {
		return v
	}
	if r.Score != nil {
		v.Percentage = Percentage(*r.Score, r.TotalMarks)
	}
	if r.IsPassed != nil && *r.IsPassed {
		v.State = StatePassed
	} else {
		v.State = StateFailed
	}
	return v
}

// Percentage is round(score/total*100), zero for a zero-mark exam.
func Percentage(score, totalMarks int) int {
	if totalMarks <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(totalMarks) * 100))
}
