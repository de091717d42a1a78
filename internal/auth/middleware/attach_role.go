package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// AttachRoleFromDB replaces the role claimed in the token with the one
// stored for the subject, so role changes apply without re-login. A subject
// with no account row is rejected.
func AttachRoleFromDB(conn *sql.DB, deny func(w http.ResponseWriter, status int, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var role string
			err := conn.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, SubjectFromContext(ctx)).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, sql.ErrNoRows):
				deny(w, http.StatusUnauthorized, "account no longer exists")
			case err != nil:
				deny(w, http.StatusInternalServerError, "role lookup failed")
			default:
				deny(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}
