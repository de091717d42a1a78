package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(nil)
	tests := []struct {
		role, perm string
		want       bool
	}{
		{RoleUser, "test:create", true},
		{RoleUser, "stats:view", true},
		{RoleGuest, "test:view_link", true},
		{RoleGuest, "attempt:submit", true},
		{RoleGuest, "test:create", false},
		{RoleGuest, "stats:view", false},
		{RoleAdmin, "anything:at_all", true},
		{"", "test:create", false},
		{"stranger", "attempt:submit", false},
	}
	for _, tc := range tests {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	h := Require("test:create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for role, want := range map[string]int{RoleUser: 204, RoleGuest: 403, "": 403} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithRole(context.Background(), role))
		h.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("role %q: code %d want %d", role, rr.Code, want)
		}
	}
}
