package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

func NewSQLStore(conn *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: conn, driver: driver}
}

// rowLock serializes writers on the attempt row under postgres; sqlite
// already runs one writer at a time.
func (s *SQLStore) rowLock() string {
	if s.driver == db.DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (s *SQLStore) pageClause(p Page) string {
	switch {
	case p.Limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, max(p.Skip, 0))
	case p.Skip > 0 && s.driver == db.DriverSQLite:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", p.Skip)
	case p.Skip > 0:
		return fmt.Sprintf(" OFFSET %d", p.Skip)
	}
	return ""
}

type scanner interface{ Scan(dest ...any) error }

/* --------------------------------- tests ---------------------------------- */

const testCols = `t.id, t.title, t.description, t.user_id, t.is_published, t.link_token,
	t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM test_attempts a WHERE a.test_id = t.id)`

func scanTest(r scanner) (Test, error) {
	var (
		t              Test
		link           sql.NullString
		created, updtd int64
	)
	if err := r.Scan(&t.ID, &t.Title, &t.Description, &t.AuthorID, &t.IsPublished, &link,
		&created, &updtd, &t.AttemptsCount); err != nil {
		return Test{}, err
	}
	t.LinkToken = link.String
	t.CreatedAt = db.FromMillis(created)
	t.UpdatedAt = db.FromMillis(updtd)
	return t, nil
}

func (s *SQLStore) CreateTest(ctx context.Context, t Test) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tests (id, title, description, user_id, is_published, link_token, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.Title, t.Description, t.AuthorID, t.IsPublished, nullString(t.LinkToken),
		db.Millis(t.CreatedAt), db.Millis(t.UpdatedAt))
	return err
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	t, err := scanTest(s.db.QueryRowContext(ctx, `SELECT `+testCols+` FROM tests t WHERE t.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, ErrNotFound
	}
	return t, err
}

func (s *SQLStore) GetTestByLink(ctx context.Context, token string) (Test, error) {
	if token == "" {
		return Test{}, ErrNotFound
	}
	t, err := scanTest(s.db.QueryRowContext(ctx, `SELECT `+testCols+` FROM tests t WHERE t.link_token=$1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, ErrNotFound
	}
	return t, err
}

func (s *SQLStore) ListTestsByAuthor(ctx context.Context, authorID string, page Page) ([]Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+testCols+` FROM tests t WHERE t.user_id=$1
		 ORDER BY t.created_at DESC, t.id DESC`+s.pageClause(page), authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountTestsByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests WHERE user_id=$1`, authorID).Scan(&n)
	return n, err
}

func (s *SQLStore) UpdateTest(ctx context.Context, t Test) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tests SET title=$1, description=$2, updated_at=$3 WHERE id=$4`,
		t.Title, t.Description, db.Millis(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *SQLStore) DeleteTest(ctx context.Context, id string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM answers WHERE attempt_id IN (SELECT id FROM test_attempts WHERE test_id=$1)`,
			`DELETE FROM test_attempts WHERE test_id=$1`,
			`DELETE FROM questions WHERE test_id=$1`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tests WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

func (s *SQLStore) PublishTest(ctx context.Context, id, token string, at time.Time) (Test, error) {
	var out Test
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id=$1`+s.rowLock(), id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE test_id=$1`, id).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return ErrNoQuestions
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tests SET is_published=$1, link_token=COALESCE(link_token, $2), updated_at=$3 WHERE id=$4`,
			true, token, db.Millis(at), id); err != nil {
			return err
		}
		t, err := scanTest(tx.QueryRowContext(ctx, `SELECT `+testCols+` FROM tests t WHERE t.id=$1`, id))
		out = t
		return err
	})
	return out, err
}

/* ------------------------------- questions -------------------------------- */

const questionCols = `id, test_id, question_text, question_type, options_json, correct_answer, order_index`

func scanQuestion(r scanner) (Question, error) {
	var (
		q    Question
		typ  string
		opts string
	)
	if err := r.Scan(&q.ID, &q.TestID, &q.Text, &typ, &opts, &q.CorrectAnswer, &q.OrderIndex); err != nil {
		return Question{}, err
	}
	q.Type = grading.Type(typ)
	q.Options = decodeOptions(opts)
	return q, nil
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (`+questionCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, q.TestID, q.Text, string(q.Type), encodeOptions(q.Options), q.CorrectAnswer, q.OrderIndex)
	if err != nil && isForeignKeyErr(err) {
		return ErrNotFound
	}
	return err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	return q, err
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET question_text=$1, question_type=$2, options_json=$3, correct_answer=$4, order_index=$5
		 WHERE id=$6`,
		q.Text, string(q.Type), encodeOptions(q.Options), q.CorrectAnswer, q.OrderIndex, q.ID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id=$1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

func (s *SQLStore) ListQuestions(ctx context.Context, testID string) ([]Question, error) {
	return listQuestions(ctx, s.db, testID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listQuestions(ctx context.Context, q querier, testID string) ([]Question, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE test_id=$1 ORDER BY order_index, id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

/* -------------------------------- attempts -------------------------------- */

const attemptCols = `id, test_id, user_id, started_at, finished_at, score`

func scanAttempt(r scanner) (Attempt, error) {
	var (
		a        Attempt
		started  int64
		finished sql.NullInt64
		score    sql.NullFloat64
	)
	if err := r.Scan(&a.ID, &a.TestID, &a.UserID, &started, &finished, &score); err != nil {
		return Attempt{}, err
	}
	a.StartedAt = db.FromMillis(started)
	a.FinishedAt = db.NullMillis(finished)
	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	return a, nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO test_attempts (id, test_id, user_id, started_at) VALUES ($1,$2,$3,$4)`,
		a.ID, a.TestID, a.UserID, db.Millis(a.StartedAt))
	if err != nil && isForeignKeyErr(err) {
		return ErrNotFound
	}
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM test_attempts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var (
		where []string
		args  []any
	)
	if opts.TestID != "" {
		args = append(args, opts.TestID)
		where = append(where, fmt.Sprintf("test_id=$%d", len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if opts.FinishedOnly {
		where = append(where, "finished_at IS NOT NULL")
	}
	q := `SELECT ` + attemptCols + ` FROM test_attempts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY started_at DESC, id DESC` + s.pageClause(opts.Page)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

/* -------------------------------- answers --------------------------------- */

const answerCols = `id, attempt_id, question_id, user_answer, is_correct, answered_at`

func scanAnswer(r scanner) (Answer, error) {
	var (
		a        Answer
		correct  sql.NullBool
		answered int64
	)
	if err := r.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.UserAnswer, &correct, &answered); err != nil {
		return Answer{}, err
	}
	if correct.Valid {
		v := correct.Bool
		a.IsCorrect = &v
	}
	a.AnsweredAt = db.FromMillis(answered)
	return a, nil
}

// lockOpenAttempt loads the attempt inside tx and fails unless it is still open.
func (s *SQLStore) lockOpenAttempt(ctx context.Context, tx *sql.Tx, attemptID string) (Attempt, error) {
	a, err := scanAttempt(tx.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM test_attempts WHERE id=$1`+s.rowLock(), attemptID))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	if a.Finished() {
		return Attempt{}, ErrAlreadyFinished
	}
	return a, nil
}

func (s *SQLStore) UpsertAnswer(ctx context.Context, a Answer) (Answer, error) {
	var out Answer
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.lockOpenAttempt(ctx, tx, a.AttemptID); err != nil {
			return err
		}
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id=$1`, a.QuestionID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (`+answerCols+`) VALUES ($1,$2,$3,$4,$5,$6)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
			   user_answer=EXCLUDED.user_answer,
			   is_correct=EXCLUDED.is_correct,
			   answered_at=EXCLUDED.answered_at`,
			a.ID, a.AttemptID, a.QuestionID, a.UserAnswer, nullBool(a.IsCorrect), db.Millis(a.AnsweredAt)); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateAnswer
			}
			return err
		}
		got, err := scanAnswer(tx.QueryRowContext(ctx,
			`SELECT `+answerCols+` FROM answers WHERE attempt_id=$1 AND question_id=$2`,
			a.AttemptID, a.QuestionID))
		out = got
		return err
	})
	return out, err
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]Answer, error) {
	return listAnswers(ctx, s.db, attemptID)
}

func listAnswers(ctx context.Context, q querier, attemptID string) ([]Answer, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+answerCols+` FROM answers WHERE attempt_id=$1 ORDER BY answered_at, id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) FinishAttempt(ctx context.Context, attemptID string, at time.Time, score ScoreFunc) (Attempt, error) {
	var out Attempt
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		a, err := s.lockOpenAttempt(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		var total int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE test_id=$1`, a.TestID).Scan(&total); err != nil {
			return err
		}
		answers, err := listAnswers(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		final := score(total, answers)

		res, err := tx.ExecContext(ctx,
			`UPDATE test_attempts SET score=$1, finished_at=$2 WHERE id=$3 AND finished_at IS NULL`,
			final, db.Millis(at), attemptID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrAlreadyFinished
		}
		a.Score = &final
		a.FinishedAt = &at
		out = a
		return nil
	})
	return out, err
}

/* -------------------------------- helpers --------------------------------- */

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func isForeignKeyErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") || strings.Contains(msg, "23503")
}
