package http

import (
	"net/http"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

// POST /api/auth/register
func RegisterHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in users.RegisterInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeErr(w, r, err)
			return
		}
		sess, err := svc.Register(r.Context(), in)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

// POST /api/auth/login
func LoginHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in users.LoginInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeErr(w, r, err)
			return
		}
		sess, err := svc.Login(r.Context(), in)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// POST /api/auth/guest
func GuestHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Guest(r.Context())
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

// GET /api/auth/profile
func ProfileHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Profile(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// PUT /api/auth/profile
func UpdateProfileHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in users.ProfileInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeErr(w, r, err)
			return
		}
		u, err := svc.UpdateProfile(r.Context(), auth.SubjectFromContext(r.Context()), in)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
