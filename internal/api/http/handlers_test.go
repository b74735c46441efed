package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openexam/examportal/internal/auth"
	"github.com/openexam/examportal/internal/exam"
	"github.com/openexam/examportal/internal/history"
	"github.com/openexam/examportal/internal/rbac"
	"github.com/openexam/examportal/internal/session"
)

// identity stamps a fixed subject and role onto every request, standing in
// for the JWT middleware.
func identity(sub, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithSubject(r.Context(), sub)
			ctx = rbac.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type testEnv struct {
	store *exam.MemStore
	mgr   *session.Manager
	hist  *history.Service
}

func newTestEnv() *testEnv {
	store := exam.NewMemStore()
	return &testEnv{
		store: store,
		mgr:   session.NewManager(store, nil, session.WithManagerTick(time.Hour)),
		hist:  history.NewService(store),
	}
}

// router wires the same routes as the gateway, with the caller's identity
// injected instead of parsed from a token.
func (e *testEnv) router(sub, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(identity(sub, role))
	r.Post("/exams", CreateExamHandler(e.store))
	r.Get("/exams", ListExamsHandler(e.store))
	r.Get("/exams/{examID}", GetExamHandler(e.store))
	r.Put("/exams/{examID}", UpdateExamHandler(e.store))
	r.Patch("/exams/{examID}/active", SetExamActiveHandler(e.store))
	r.Delete("/exams/{examID}", DeleteExamHandler(e.store))
	r.Get("/exams/{examID}/questions", ListQuestionsHandler(e.store))
	r.Post("/exams/{examID}/questions", CreateQuestionHandler(e.store))
	r.Post("/attempts", StartAttemptHandler(e.mgr))
	r.Get("/attempts/{attemptID}", GetAttemptHandler(e.mgr, e.store))
	r.Post("/attempts/{attemptID}/answers", AnswerHandler(e.mgr))
	r.Post("/attempts/{attemptID}/navigate", NavigateHandler(e.mgr))
	r.Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(e.mgr, e.store))
	r.Get("/history", HistoryHandler(e.hist))
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) seedExam(t *testing.T, active bool) exam.Exam {
	t.Helper()
	admin := e.router("admin-1", "admin")
	rec := do(t, admin, http.MethodPost, "/exams", map[string]any{
		"title":            "Go Fundamentals",
		"description":      "Basics quiz",
		"duration_minutes": 30,
		"total_marks":      10,
		"passing_marks":    5,
		"is_active":        active,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exam: status %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[exam.Exam](t, rec)
	// Both questions key on option b so flow tests can answer correctly
	// without caring which question the cursor starts on.
	for i, correct := range []string{exam.OptionB, exam.OptionB} {
		qrec := do(t, admin, http.MethodPost, "/exams/"+created.ID+"/questions", map[string]any{
			"question_text":  fmt.Sprintf("Question %d", i+1),
			"option_a":       "first",
			"option_b":       "second",
			"option_c":       "third",
			"option_d":       "fourth",
			"correct_answer": correct,
			"marks":          5,
		})
		if qrec.Code != http.StatusCreated {
			t.Fatalf("create question: status %d, body %s", qrec.Code, qrec.Body.String())
		}
	}
	return created
}

func TestExamVisibilityByRole(t *testing.T) {
	env := newTestEnv()
	e := env.seedExam(t, false)

	student := env.router("stu-1", "student")
	rec := do(t, student, http.MethodGet, "/exams", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list exams: status %d", rec.Code)
	}
	if got := decode[[]exam.Exam](t, rec); len(got) != 0 {
		t.Fatalf("student sees %d inactive exams, want 0", len(got))
	}
	if rec := do(t, student, http.MethodGet, "/exams/"+e.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get inactive exam as student: status %d, want 404", rec.Code)
	}

	admin := env.router("admin-1", "admin")
	if got := decode[[]exam.Exam](t, do(t, admin, http.MethodGet, "/exams", nil)); len(got) != 1 {
		t.Fatalf("admin sees %d exams, want 1", len(got))
	}

	if rec := do(t, admin, http.MethodPatch, "/exams/"+e.ID+"/active", map[string]any{"is_active": true}); rec.Code != http.StatusNoContent {
		t.Fatalf("activate exam: status %d", rec.Code)
	}
	if rec := do(t, student, http.MethodGet, "/exams/"+e.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("get active exam as student: status %d", rec.Code)
	}
}

func TestQuestionKeysStrippedForStudents(t *testing.T) {
	env := newTestEnv()
	e := env.seedExam(t, true)

	qs := decode[[]exam.Question](t, do(t, env.router("stu-1", "student"), http.MethodGet, "/exams/"+e.ID+"/questions", nil))
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}
	for _, q := range qs {
		if q.CorrectAnswer != "" {
			t.Fatalf("student response leaks answer key for question %s", q.ID)
		}
	}

	qs = decode[[]exam.Question](t, do(t, env.router("admin-1", "admin"), http.MethodGet, "/exams/"+e.ID+"/questions", nil))
	for _, q := range qs {
		if q.CorrectAnswer == "" {
			t.Fatalf("admin response missing answer key for question %s", q.ID)
		}
	}
}

func TestCreateExamRejectsBadMarks(t *testing.T) {
	env := newTestEnv()
	rec := do(t, env.router("admin-1", "admin"), http.MethodPost, "/exams", map[string]any{
		"title":            "Broken",
		"duration_minutes": 30,
		"total_marks":      10,
		"passing_marks":    11,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", rec.Code)
	}
}

func TestAttemptFlow(t *testing.T) {
	env := newTestEnv()
	e := env.seedExam(t, true)
	student := env.router("stu-1", "student")

	rec := do(t, student, http.MethodPost, "/attempts", map[string]any{"exam_id": e.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start attempt: status %d, body %s", rec.Code, rec.Body.String())
	}
	state := decode[attemptState](t, rec)
	if state.Attempt.Status != exam.StatusInProgress || state.QuestionCount != 2 {
		t.Fatalf("unexpected start state: %+v", state)
	}
	if state.RemainingSeconds != 30*60 {
		t.Fatalf("remaining = %d, want %d", state.RemainingSeconds, 30*60)
	}
	if state.CurrentQuestion == nil || state.CurrentQuestion.CorrectAnswer != "" {
		t.Fatalf("current question missing or leaks key: %+v", state.CurrentQuestion)
	}
	attemptID := state.Attempt.ID
	q1 := state.CurrentQuestion.ID

	// Correct answer on the first question.
	rec = do(t, student, http.MethodPost, "/attempts/"+attemptID+"/answers",
		map[string]any{"question_id": q1, "selected": exam.OptionB})
	if rec.Code != http.StatusOK {
		t.Fatalf("answer: status %d, body %s", rec.Code, rec.Body.String())
	}
	if state = decode[attemptState](t, rec); state.AnsweredCount != 1 {
		t.Fatalf("answered count = %d, want 1", state.AnsweredCount)
	}

	// Move to the second question and answer it wrong.
	state = decode[attemptState](t, do(t, student, http.MethodPost, "/attempts/"+attemptID+"/navigate", map[string]any{"op": "next"}))
	if state.QuestionIndex != 1 {
		t.Fatalf("index = %d after next, want 1", state.QuestionIndex)
	}
	rec = do(t, student, http.MethodPost, "/attempts/"+attemptID+"/answers",
		map[string]any{"question_id": state.CurrentQuestion.ID, "selected": exam.OptionA})
	if rec.Code != http.StatusOK {
		t.Fatalf("answer second: status %d", rec.Code)
	}

	rec = do(t, student, http.MethodPost, "/attempts/"+attemptID+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d, body %s", rec.Code, rec.Body.String())
	}
	a := decode[exam.Attempt](t, rec)
	if a.Status != exam.StatusSubmitted || a.Score == nil || *a.Score != 5 {
		t.Fatalf("unexpected submit result: %+v", a)
	}
	if a.IsPassed == nil || !*a.IsPassed {
		t.Fatalf("5 of 10 with passing mark 5 should pass: %+v", a)
	}

	// The session is gone; a repeat submit answers from the stored row.
	rec = do(t, student, http.MethodPost, "/attempts/"+attemptID+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-submit: status %d", rec.Code)
	}
	again := decode[exam.Attempt](t, rec)
	if again.SubmittedAt == nil || !again.SubmittedAt.Equal(*a.SubmittedAt) {
		t.Fatalf("re-submit changed the result: %+v vs %+v", again, a)
	}

	// And the terminal attempt is still readable.
	rec = do(t, student, http.MethodGet, "/attempts/"+attemptID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get finalized attempt: status %d", rec.Code)
	}

	views := decode[[]history.View](t, do(t, student, http.MethodGet, "/history", nil))
	if len(views) != 1 {
		t.Fatalf("history has %d rows, want 1", len(views))
	}
	if views[0].State != history.StatePassed || views[0].Percentage != 50 {
		t.Fatalf("history row: state=%s pct=%d, want passed 50", views[0].State, views[0].Percentage)
	}
	if views[0].ExamTitle != e.Title {
		t.Fatalf("history missing exam title: %+v", views[0])
	}
}

func TestAttemptOwnership(t *testing.T) {
	env := newTestEnv()
	e := env.seedExam(t, true)

	owner := env.router("stu-1", "student")
	state := decode[attemptState](t, do(t, owner, http.MethodPost, "/attempts", map[string]any{"exam_id": e.ID}))
	attemptID := state.Attempt.ID

	other := env.router("stu-2", "student")
	rec := do(t, other, http.MethodPost, "/attempts/"+attemptID+"/answers",
		map[string]any{"question_id": state.CurrentQuestion.ID, "selected": exam.OptionA})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign answer: status %d, want 403", rec.Code)
	}
	if rec := do(t, other, http.MethodPost, "/attempts/"+attemptID+"/submit", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign submit: status %d, want 403", rec.Code)
	}

	if rec := do(t, owner, http.MethodPost, "/attempts/"+attemptID+"/submit", nil); rec.Code != http.StatusOK {
		t.Fatalf("owner submit: status %d", rec.Code)
	}

	// Finalized rows are store reads: owner and admin may see them, others not.
	if rec := do(t, other, http.MethodGet, "/attempts/"+attemptID, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign read of finalized attempt: status %d, want 403", rec.Code)
	}
	if rec := do(t, env.router("admin-1", "admin"), http.MethodGet, "/attempts/"+attemptID, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin read of finalized attempt: status %d", rec.Code)
	}
}

func TestStartAttemptRejectsInactiveExam(t *testing.T) {
	env := newTestEnv()
	e := env.seedExam(t, false)
	rec := do(t, env.router("stu-1", "student"), http.MethodPost, "/attempts", map[string]any{"exam_id": e.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}
