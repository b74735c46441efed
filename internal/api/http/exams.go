package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openexam/examportal/internal/auth"
	"github.com/openexam/examportal/internal/exam"
	"github.com/openexam/examportal/internal/rbac"
)

// POST /exams
func CreateExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ExamInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := in.Validate(); err != nil {
			httpError(w, err)
			return
		}
		now := time.Now().UTC()
		e := exam.Exam{
			ID:              uuid.NewString(),
			Title:           in.Title,
			Description:     in.Description,
			DurationMinutes: in.DurationMinutes,
			TotalMarks:      in.TotalMarks,
			PassingMarks:    in.PassingMarks,
			IsActive:        in.IsActive,
			CreatedBy:       auth.SubjectFromContext(r.Context()),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := store.PutExam(r.Context(), e); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// PUT /exams/{examID}
func UpdateExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "examID")
		cur, err := store.GetExam(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		var in exam.ExamInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := in.Validate(); err != nil {
			httpError(w, err)
			return
		}
		cur.Title = in.Title
		cur.Description = in.Description
		cur.DurationMinutes = in.DurationMinutes
		cur.TotalMarks = in.TotalMarks
		cur.PassingMarks = in.PassingMarks
		cur.IsActive = in.IsActive
		cur.UpdatedAt = time.Now().UTC()
		if err := store.PutExam(r.Context(), cur); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cur)
	}
}

// PATCH /exams/{examID}/active  { "is_active": true }
func SetExamActiveHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IsActive bool `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := store.SetExamActive(r.Context(), chi.URLParam(r, "examID"), req.IsActive); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /exams/{examID} — questions, attempts and answers go with it.
func DeleteExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteExam(r.Context(), chi.URLParam(r, "examID")); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /exams?limit=50&offset=0
// Students only ever see active exams; admins see everything.
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		opts := exam.ListExamsOpts{
			ActiveOnly: role != "admin",
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		list, err := store.ListExams(r.Context(), opts)
		if err != nil {
			httpError(w, err)
			return
		}
		if list == nil {
			list = []exam.Exam{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /exams/{examID}
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := store.GetExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			httpError(w, err)
			return
		}
		if rbac.RoleFromContext(r.Context()) != "admin" && !e.IsActive {
			httpError(w, exam.ErrExamNotFound)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}
