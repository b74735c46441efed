package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openexam/examportal/internal/auth"
	"github.com/openexam/examportal/internal/exam"
	"github.com/openexam/examportal/internal/rbac"
	"github.com/openexam/examportal/internal/session"
)

type attemptState struct {
	Attempt          exam.Attempt    `json:"attempt"`
	RemainingSeconds int             `json:"remaining_seconds"`
	QuestionIndex    int             `json:"question_index"`
	QuestionCount    int             `json:"question_count"`
	AnsweredCount    int             `json:"answered_count"`
	CurrentQuestion  *exam.Question  `json:"current_question,omitempty"`
}

func stateOf(s *session.Session) attemptState {
	q := s.Current()
	return attemptState{
		Attempt:          s.Attempt(),
		RemainingSeconds: s.Remaining(),
		QuestionIndex:    s.Index(),
		QuestionCount:    s.QuestionCount(),
		AnsweredCount:    s.AnsweredCount(),
		CurrentQuestion:  &q,
	}
}

// POST /attempts  { "exam_id": "..." }
// Starts the timed session; the attempt row and question fetch must both
// succeed or the exam does not begin.
func StartAttemptHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamID string `json:"exam_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.ExamID == "" {
			http.Error(w, "exam_id required", http.StatusBadRequest)
			return
		}
		s, _, err := mgr.Start(r.Context(), req.ExamID, auth.SubjectFromContext(r.Context()))
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, stateOf(s))
	}
}

// POST /attempts/{attemptID}/answers  { "question_id": "...", "selected": "a" }
func AnswerHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := mgr.Get(chi.URLParam(r, "attemptID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			httpError(w, err)
			return
		}
		var req struct {
			QuestionID string `json:"question_id"`
			Selected   string `json:"selected"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := s.SelectAnswer(r.Context(), req.QuestionID, req.Selected); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stateOf(s))
	}
}

// POST /attempts/{attemptID}/navigate  { "op": "next|prev|goto", "index": 3 }
func NavigateHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := mgr.Get(chi.URLParam(r, "attemptID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			httpError(w, err)
			return
		}
		var req struct {
			Op    string `json:"op"`
			Index int    `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		switch req.Op {
		case "next":
			s.Next()
		case "prev":
			s.Prev()
		case "goto":
			s.Goto(req.Index)
		default:
			http.Error(w, "op must be next, prev or goto", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, stateOf(s))
	}
}

// POST /attempts/{attemptID}/submit
// Safe to call repeatedly: once the attempt is terminal the stored row comes
// back unchanged.
func SubmitAttemptHandler(mgr *session.Manager, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		sub := auth.SubjectFromContext(r.Context())
		s, err := mgr.Get(id, sub)
		if err != nil {
			// The session is dropped once finalized; a re-submit of a
			// finished attempt just returns the stored result.
			a, gerr := store.GetAttempt(r.Context(), id)
			if gerr == nil && a.StudentID == sub && a.Terminal() {
				writeJSON(w, http.StatusOK, a)
				return
			}
			httpError(w, err)
			return
		}
		a, err := s.Submit(r.Context(), session.CauseManual)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(mgr *session.Manager, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		sub := auth.SubjectFromContext(r.Context())
		if s, err := mgr.Get(id, sub); err == nil {
			writeJSON(w, http.StatusOK, stateOf(s))
			return
		}
		a, err := store.GetAttempt(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		if a.StudentID != sub && rbac.RoleFromContext(r.Context()) != "admin" {
			httpError(w, session.ErrNotOwner)
			return
		}
		writeJSON(w, http.StatusOK, attemptState{Attempt: a, QuestionIndex: -1})
	}
}
