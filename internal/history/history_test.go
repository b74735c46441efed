package history

import (
	"context"
	"testing"
	"time"

	"github.com/openexam/examportal/internal/exam"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{score: 5, total: 10, want: 50},
		{score: 1, total: 3, want: 33},
		{score: 2, total: 3, want: 67},
		{score: 10, total: 10, want: 100},
		{score: 0, total: 10, want: 0},
		{score: 5, total: 0, want: 0}, // degenerate exam, no division
	}
	for _, tc := range tests {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}

func attemptRecord(status string, score int, passed bool) exam.AttemptRecord {
	rec := exam.AttemptRecord{
		Attempt: exam.Attempt{
			ID:         "att-1",
			TotalMarks: 10,
			Status:     status,
		},
		ExamTitle:        "Algorithms",
		ExamPassingMarks: 5,
	}
	if status != exam.StatusInProgress {
		now := time.Now().UTC()
		rec.SubmittedAt = &now
		rec.Score = &score
		rec.IsPassed = &passed
	}
	return rec
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		rec       exam.AttemptRecord
		wantState string
		wantPct   int
	}{
		{name: "in progress shows no score", rec: attemptRecord(exam.StatusInProgress, 0, false), wantState: StateInProgress, wantPct: 0},
		{name: "submitted pass", rec: attemptRecord(exam.StatusSubmitted, 7, true), wantState: StatePassed, wantPct: 70},
		{name: "submitted fail", rec: attemptRecord(exam.StatusSubmitted, 4, false), wantState: StateFailed, wantPct: 40},
		{name: "expired pass", rec: attemptRecord(exam.StatusExpired, 5, true), wantState: StatePassed, wantPct: 50},
		{name: "expired fail", rec: attemptRecord(exam.StatusExpired, 0, false), wantState: StateFailed, wantPct: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Classify(tc.rec)
			if v.State != tc.wantState {
				t.Fatalf("state = %s, want %s", v.State, tc.wantState)
			}
			if v.Percentage != tc.wantPct {
				t.Fatalf("percentage = %d, want %d", v.Percentage, tc.wantPct)
			}
		})
	}
}

func TestForStudentOrdersMostRecentFirst(t *testing.T) {
	store := exam.NewMemStore()
	ctx := context.Background()
	base := time.Now().UTC()

	e := exam.Exam{ID: "exam-1", Title: "Databases", Description: "SQL", TotalMarks: 10, PassingMarks: 5, DurationMinutes: 20, IsActive: true, CreatedAt: base, UpdatedAt: base}
	if err := store.PutExam(ctx, e); err != nil {
		t.Fatalf("put exam: %v", err)
	}
	for i, id := range []string{"att-1", "att-2", "att-3"} {
		a := exam.Attempt{
			ID: id, ExamID: e.ID, StudentID: "stu-1",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			TotalMarks: e.TotalMarks, Status: exam.StatusInProgress,
		}
		if err := store.CreateAttempt(ctx, a); err != nil {
			t.Fatalf("create attempt: %v", err)
		}
	}

	views, err := NewService(store).ForStudent(ctx, "stu-1")
	if err != nil {
		t.Fatalf("for student: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d views, want 3", len(views))
	}
	if views[0].ID != "att-3" || views[2].ID != "att-1" {
		t.Fatalf("wrong order: %s, %s, %s", views[0].ID, views[1].ID, views[2].ID)
	}
	if views[0].ExamTitle != "Databases" || views[0].ExamPassingMarks != 5 {
		t.Fatalf("exam join fields missing: %+v", views[0])
	}
	if views[0].State != StateInProgress {
		t.Fatalf("state = %s, want in_progress", views[0].State)
	}
}
