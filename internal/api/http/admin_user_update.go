package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type updateUserRoleReq struct {
	Role string `json:"role"`
}

// PUT /api/admin/users/{userID}/role
// The new role applies on the user's next request; no re-login needed.
func AdminUpdateUserRoleHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateUserRoleReq
		if err := decodeJSON(w, r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		if req.Role == "" {
			writeErr(w, r, badRequest("role is required"))
			return
		}
		u, err := svc.SetRole(r.Context(), chi.URLParam(r, "userID"), req.Role)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
