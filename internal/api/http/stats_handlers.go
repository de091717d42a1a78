package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// GET /api/tests/{testID}/statistics
func TestStatsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.TestStatistics(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// GET /api/tests/{testID}/attempts?skip=&limit=
func TestAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromQuery(r)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		list, err := svc.TestAttempts(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context()), page)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/statistics/user
func UserStatsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.UserStatistics(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
