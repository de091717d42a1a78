package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalid            = errors.New("invalid input")
	ErrLastAdmin          = errors.New("cannot demote the last admin")
)

// TokenIssuer signs access tokens for a subject and role.
type TokenIssuer interface {
	IssueJWT(sub, role string) (string, error)
}

type Store interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) error
	SetRole(ctx context.Context, id, role string, at time.Time) error
	CountRole(ctx context.Context, role string) (int, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput fields left nil are unchanged.
type ProfileInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=120"`
	Password *string `json:"password" validate:"omitempty,password"`
}

// Session is what register, login and guest return.
type Session struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Service struct {
	store    Store
	tokens   TokenIssuer
	validate *validator.Validate
	cost     int
	now      func() time.Time
}

func NewService(store Store, tokens TokenIssuer, v *validator.Validate) *Service {
	if v == nil {
		v = NewValidator()
	}
	return &Service{store: store, tokens: tokens, validate: v, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *Service) clock() time.Time { return s.now().UTC().Truncate(time.Millisecond) }

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, Describe(err))
	}
	return nil
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normEmail(in.Email)
	if err := s.check(in); err != nil {
		return Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock()
	u := User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		Role:         rbac.RoleUser,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return Session{}, err
	}
	log.Printf("[users] registered %s", u.ID)
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normEmail(in.Email)
	if err := s.check(in); err != nil {
		return Session{}, err
	}
	u, err := s.store.GetByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

// Guest creates a throwaway account that can take linked tests.
func (s *Service) Guest(ctx context.Context) (Session, error) {
	id := uuid.New()
	short := strings.ReplaceAll(id.String(), "-", "")[:8]
	now := s.clock()
	u := User{
		ID:        id.String(),
		Email:     "guest-" + short + "@guest.local",
		Name:      "Guest " + short,
		Role:      rbac.RoleGuest,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) Profile(ctx context.Context, userID string) (User, error) {
	return s.store.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (User, error) {
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	if in.Email != nil {
		e := normEmail(*in.Email)
		in.Email = &e
	}
	if err := s.check(in); err != nil {
		return User{}, err
	}
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	u.UpdatedAt = s.clock()
	if err := s.store.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) session(u User) (Session, error) {
	tok, err := s.tokens.IssueJWT(u.ID, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: u, AccessToken: tok, TokenType: "bearer"}, nil
}

// SetRole changes a user's role. The last admin cannot be demoted.
func (s *Service) SetRole(ctx context.Context, userID, role string) (User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if _, ok := rbac.RolePermissions[role]; !ok {
		return User{}, fmt.Errorf("%w: role must be one of: user, guest, admin", ErrInvalid)
	}
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if u.Role == rbac.RoleAdmin && role != rbac.RoleAdmin {
		n, err := s.store.CountRole(ctx, rbac.RoleAdmin)
		if err != nil {
			return User{}, err
		}
		if n <= 1 {
			return User{}, ErrLastAdmin
		}
	}
	u.Role = role
	u.UpdatedAt = s.clock()
	if err := s.store.SetRole(ctx, u.ID, role, u.UpdatedAt); err != nil {
		return User{}, err
	}
	log.Printf("[users] %s role set to %s", u.ID, role)
	return u, nil
}
