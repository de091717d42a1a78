package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every API response.
type envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &msg})
}

// writeErr maps domain errors to a status code. Unknown errors are logged
// and reported as 500 without their text.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[api] %s %s: %v", r.Method, r.URL.Path, err)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, quiz.ErrNotFound), errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, quiz.ErrDuplicateAnswer), errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrLastAdmin):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrAlreadyFinished),
		errors.Is(err, quiz.ErrInvalidAnswerFormat),
		errors.Is(err, quiz.ErrInvalid),
		errors.Is(err, quiz.ErrNoQuestions),
		errors.Is(err, quiz.ErrNotPublished),
		errors.Is(err, users.ErrInvalid),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

// decodeJSON reads a JSON body into dst. An empty body is an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("no data provided")
		}
		return badRequest("invalid json: " + err.Error())
	}
	return nil
}

type requestError struct{ msg string }

func (e requestError) Error() string { return e.msg }
func (e requestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error { return requestError{msg} }

// validate runs struct tags and reports failures as a 400.
func validate(v *validator.Validate, dst any) error {
	if err := v.Struct(dst); err != nil {
		return badRequest(users.Describe(err))
	}
	return nil
}

// pageFromQuery reads skip/limit with defaults 0 and 10.
func pageFromQuery(r *http.Request) (quiz.Page, error) {
	p := quiz.Page{Skip: 0, Limit: 10}
	q := r.URL.Query()
	if s := q.Get("skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, badRequest("skip must be an integer")
		}
		p.Skip = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, badRequest("limit must be an integer")
		}
		p.Limit = n
	}
	return p, p.Validate()
}
