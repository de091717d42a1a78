package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type fakeTokens struct{}

func (fakeTokens) IssueJWT(sub, role string) (string, error) { return "tok:" + sub + ":" + role, nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	s := NewService(NewSQLStore(conn), fakeTokens{}, nil)
	s.cost = bcrypt.MinCost
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	sess, err := s.Register(ctx, RegisterInput{Name: "  Ada  ", Email: " Ada@Example.com ", Password: "Secret123"})
	if err != nil {
		t.Fatal(err)
	}
	if sess.User.Email != "ada@example.com" || sess.User.Name != "Ada" || sess.User.Role != rbac.RoleUser {
		t.Fatalf("user = %+v", sess.User)
	}
	if sess.AccessToken != "tok:"+sess.User.ID+":user" {
		t.Fatalf("token = %q", sess.AccessToken)
	}

	if _, err := s.Register(ctx, RegisterInput{Name: "Ada", Email: "ADA@example.com", Password: "Secret123"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate: %v", err)
	}

	got, err := s.Login(ctx, LoginInput{Email: "ada@EXAMPLE.com", Password: "Secret123"})
	if err != nil {
		t.Fatal(err)
	}
	if got.User.ID != sess.User.ID {
		t.Fatalf("login user = %+v", got.User)
	}
	for _, in := range []LoginInput{
		{Email: "ada@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "Secret123"},
	} {
		if _, err := s.Login(ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %+v: %v", in, err)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	tests := []struct {
		name string
		in   RegisterInput
		want string
	}{
		{"short name", RegisterInput{Name: "A", Email: "a@example.com", Password: "Secret123"}, "name must be at least 2"},
		{"bad email", RegisterInput{Name: "Ada", Email: "nope", Password: "Secret123"}, "email must be a valid"},
		{"long email", RegisterInput{Name: "Ada", Email: strings.Repeat("a", 60) + "@" + strings.Repeat("b", 56) + ".com", Password: "Secret123"}, "email must be at most 120"},
		{"no digit", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "SecretSecret"}, "password must be"},
		{"no upper", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "secret123"}, "password must be"},
		{"too short", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "Se1"}, "password must be"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(ctx, tc.in)
			if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	a, _ := s.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Secret123"})
	_, _ = s.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "Secret123"})

	name, pw := "Ada L.", "NewSecret9"
	u, err := s.UpdateProfile(ctx, a.User.ID, ProfileInput{Name: &name, Password: &pw})
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Ada L." || u.Email != "ada@example.com" {
		t.Fatalf("updated = %+v", u)
	}
	if _, err := s.Login(ctx, LoginInput{Email: "ada@example.com", Password: pw}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	taken := "BOB@example.com"
	if _, err := s.UpdateProfile(ctx, a.User.ID, ProfileInput{Email: &taken}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("taken email: %v", err)
	}
	weak := "short"
	if _, err := s.UpdateProfile(ctx, a.User.ID, ProfileInput{Password: &weak}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("weak password: %v", err)
	}
	if _, err := s.UpdateProfile(ctx, "missing", ProfileInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: %v", err)
	}
}

func TestGuest(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	g1, err := s.Guest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	g2, _ := s.Guest(ctx)
	if g1.User.ID == g2.User.ID || g1.User.Role != rbac.RoleGuest {
		t.Fatalf("guests = %+v %+v", g1.User, g2.User)
	}
	if _, err := s.Login(ctx, LoginInput{Email: g1.User.Email, Password: "anything"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("guest login: %v", err)
	}
	p, err := s.Profile(ctx, g1.User.ID)
	if err != nil || p.Email != g1.User.Email {
		t.Fatalf("profile = %+v, %v", p, err)
	}
}
