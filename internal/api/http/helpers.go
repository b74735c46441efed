package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/openexam/examportal/internal/exam"
	"github.com/openexam/examportal/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// httpError maps domain errors onto statuses; anything unrecognized is a 500.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrExamNotFound),
		errors.Is(err, exam.ErrQuestionNotFound),
		errors.Is(err, exam.ErrAttemptNotFound),
		errors.Is(err, session.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, exam.ErrValidation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, exam.ErrExamInactive),
		errors.Is(err, session.ErrNoQuestions),
		errors.Is(err, session.ErrNotStarted),
		errors.Is(err, session.ErrUnknownQuestion),
		errors.Is(err, session.ErrInvalidOption):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
