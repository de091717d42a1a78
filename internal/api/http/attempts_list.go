package http

import (
	"net/http"
	"strconv"
	"strings"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// GET /api/attempts?test_id=...&finished=true&skip=0&limit=10
// Always scoped to the caller's own attempts.
func ListMyAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromQuery(r)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		q := r.URL.Query()
		finished := false
		if s := strings.TrimSpace(q.Get("finished")); s != "" {
			if finished, err = strconv.ParseBool(s); err != nil {
				writeErr(w, r, badRequest("finished must be true or false"))
				return
			}
		}
		list, err := svc.MyAttempts(r.Context(), auth.SubjectFromContext(r.Context()),
			strings.TrimSpace(q.Get("test_id")), finished, page)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if list == nil {
			list = []quiz.Attempt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
