package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type submitReq struct {
	QuestionID string          `json:"question_id" validate:"required"`
	Answer     json.RawMessage `json:"answer"`
}

// POST /api/tests/{testID}/attempts
func StartAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.StartAttempt(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// POST /api/attempts/{attemptID}/answers
func SubmitAnswerHandler(svc *quiz.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := validate(v, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if len(req.Answer) == 0 {
			writeErr(w, r, badRequest("answer is required"))
			return
		}
		var raw any
		if err := json.Unmarshal(req.Answer, &raw); err != nil {
			writeErr(w, r, badRequest("invalid answer: "+err.Error()))
			return
		}
		ans, err := svc.SubmitAnswer(r.Context(), chi.URLParam(r, "attemptID"), req.QuestionID, raw,
			auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ans)
	}
}

// POST /api/attempts/{attemptID}/finish
func FinishAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.FinishAttempt(r.Context(), chi.URLParam(r, "attemptID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /api/attempts/{attemptID}/results
func ResultsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetResults(r.Context(), chi.URLParam(r, "attemptID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
