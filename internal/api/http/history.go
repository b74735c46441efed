package http

import (
	"net/http"

	"github.com/openexam/examportal/internal/auth"
	"github.com/openexam/examportal/internal/history"
)

// GET /history — the caller's attempts across all exams, most recent first.
func HistoryHandler(svc *history.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.ForStudent(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			httpError(w, err)
			return
		}
		if views == nil {
			views = []history.View{}
		}
		writeJSON(w, http.StatusOK, views)
	}
}
