package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type createTestReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type updateTestReq struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

// GET /api/tests?skip=&limit=
func ListTestsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromQuery(r)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		tests, err := svc.ListTests(r.Context(), auth.SubjectFromContext(r.Context()), page)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tests)
	}
}

// POST /api/tests
func CreateTestHandler(svc *quiz.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTestReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := validate(v, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		t, err := svc.CreateTest(r.Context(), auth.SubjectFromContext(r.Context()),
			quiz.TestInput{Title: req.Title, Description: req.Description})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

// GET /api/tests/{testID}
func GetTestHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTest(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// PUT /api/tests/{testID}
func UpdateTestHandler(svc *quiz.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateTestReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := validate(v, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		t, err := svc.UpdateTest(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context()),
			quiz.TestPatch{Title: req.Title, Description: req.Description})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// DELETE /api/tests/{testID}
func DeleteTestHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTest(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context())); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "test deleted"})
	}
}

// POST /api/tests/{testID}/publish
func PublishTestHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.PublishTest(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// GET /api/tests/link/{token} (public)
func TestByLinkHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTestByLink(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

/* ------------------------------- questions -------------------------------- */

type questionReq struct {
	Text          string          `json:"question_text" validate:"required,max=1000"`
	Type          string          `json:"question_type" validate:"required,qtype"`
	Options       []string        `json:"options" validate:"omitempty,dive,max=500"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	OrderIndex    int             `json:"order_index" validate:"gte=0"`
}

type questionPatchReq struct {
	Text          *string         `json:"question_text" validate:"omitempty,min=1,max=1000"`
	Type          *string         `json:"question_type" validate:"omitempty,qtype"`
	Options       *[]string       `json:"options" validate:"omitempty,dive,max=500"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	OrderIndex    *int            `json:"order_index" validate:"omitempty,gte=0"`
}

// POST /api/tests/{testID}/questions
func CreateQuestionHandler(svc *quiz.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := validate(v, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		q, err := svc.CreateQuestion(r.Context(), chi.URLParam(r, "testID"), auth.SubjectFromContext(r.Context()),
			quiz.QuestionInput{
				Text:          req.Text,
				Type:          grading.Type(req.Type),
				Options:       req.Options,
				CorrectAnswer: req.CorrectAnswer,
				OrderIndex:    req.OrderIndex,
			})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /api/tests/{testID}/questions/{questionID}
func UpdateQuestionHandler(svc *quiz.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionPatchReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := validate(v, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		p := quiz.QuestionPatch{
			Text:          req.Text,
			Options:       req.Options,
			CorrectAnswer: req.CorrectAnswer,
			OrderIndex:    req.OrderIndex,
		}
		if req.Type != nil {
			t := grading.Type(*req.Type)
			p.Type = &t
		}
		q, err := svc.UpdateQuestion(r.Context(), chi.URLParam(r, "testID"), chi.URLParam(r, "questionID"),
			auth.SubjectFromContext(r.Context()), p)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /api/tests/{testID}/questions/{questionID}
func DeleteQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteQuestion(r.Context(), chi.URLParam(r, "testID"), chi.URLParam(r, "questionID"),
			auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "question deleted"})
	}
}
