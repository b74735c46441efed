package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openexam/examportal/internal/exam"
	"github.com/openexam/examportal/internal/rbac"
)

// GET /exams/{examID}/questions
// Answer keys are stripped unless the caller is an admin.
func ListQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		if _, err := store.GetExam(r.Context(), examID); err != nil {
			httpError(w, err)
			return
		}
		withKeys := rbac.RoleFromContext(r.Context()) == "admin"
		qs, err := store.GetQuestions(r.Context(), examID, withKeys)
		if err != nil {
			httpError(w, err)
			return
		}
		if qs == nil {
			qs = []exam.Question{}
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// POST /exams/{examID}/questions
func CreateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		if _, err := store.GetExam(r.Context(), examID); err != nil {
			httpError(w, err)
			return
		}
		var in exam.QuestionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := in.Validate(); err != nil {
			httpError(w, err)
			return
		}
		q := exam.Question{
			ID:            uuid.NewString(),
			ExamID:        examID,
			QuestionText:  in.QuestionText,
			OptionA:       in.OptionA,
			OptionB:       in.OptionB,
			OptionC:       in.OptionC,
			OptionD:       in.OptionD,
			CorrectAnswer: in.CorrectAnswer,
			Marks:         in.Marks,
			CreatedAt:     time.Now().UTC(),
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /exams/{examID}/questions/{questionID}
func UpdateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		questionID := chi.URLParam(r, "questionID")
		qs, err := store.GetQuestions(r.Context(), examID, true)
		if err != nil {
			httpError(w, err)
			return
		}
		var cur *exam.Question
		for i := range qs {
			if qs[i].ID == questionID {
				cur = &qs[i]
				break
			}
		}
		if cur == nil {
			httpError(w, exam.ErrQuestionNotFound)
			return
		}
		var in exam.QuestionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := in.Validate(); err != nil {
			httpError(w, err)
			return
		}
		cur.QuestionText = in.QuestionText
		cur.OptionA = in.OptionA
		cur.OptionB = in.OptionB
		cur.OptionC = in.OptionC
		cur.OptionD = in.OptionD
		cur.CorrectAnswer = in.CorrectAnswer
		cur.Marks = in.Marks
		if err := store.PutQuestion(r.Context(), *cur); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cur)
	}
}

// DELETE /exams/{examID}/questions/{questionID}
func DeleteQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID")); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
