package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

func plainDeny(w http.ResponseWriter, status int, msg string) { http.Error(w, msg, status) }

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("u1", "user")
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sub != "u1" || c.Role != "user" {
		t.Fatalf("claims = %+v", c)
	}

	if _, err := NewAuthService("other", time.Hour).Parse(tok); err == nil {
		t.Fatal("token verified with the wrong secret")
	}

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := a.Parse(tok); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestTokenFromHeader(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"":             "",
	}
	for in, want := range cases {
		if got := TokenFromHeader(in); got != want {
			t.Fatalf("TokenFromHeader(%q) = %q want %q", in, got, want)
		}
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, _ := a.IssueJWT("u1", "guest")

	var gotSub, gotRole string
	h := JWTMiddleware(a, plainDeny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	for _, header := range []string{"Bearer " + tok, tok} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK || gotSub != "u1" || gotRole != "guest" {
			t.Fatalf("header %q: code=%d sub=%q role=%q", header, rr.Code, gotSub, gotRole)
		}
	}

	for _, header := range []string{"", "Bearer nope"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: code=%d", header, rr.Code)
		}
	}
}
