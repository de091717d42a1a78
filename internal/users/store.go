package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(conn *sql.DB) *SQLStore { return &SQLStore{db: conn} }

const userCols = `id, email, name, role, password_hash, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var (
		u        User
		cms, ums int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &cms, &ums); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = db.FromMillis(cms)
	u.UpdatedAt = db.FromMillis(ums)
	return u, nil
}

func (s *SQLStore) Create(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.Name, u.Role, u.PasswordHash, db.Millis(u.CreatedAt), db.Millis(u.UpdatedAt))
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
}

func (s *SQLStore) Update(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email=$1, name=$2, password_hash=$3, updated_at=$4 WHERE id=$5`,
		u.Email, u.Name, u.PasswordHash, db.Millis(u.UpdatedAt), u.ID)
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) SetRole(ctx context.Context, id, role string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role=$1, updated_at=$2 WHERE id=$3`, role, db.Millis(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CountRole(ctx context.Context, role string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role=$1`, role).Scan(&n)
	return n, err
}
