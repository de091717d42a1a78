package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ensureSchema applies idempotent DDL. If the driver rejects a multi-statement
// script it falls back to running one statement at a time.
func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	default:
		return fmt.Errorf("db: no schema for driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		for _, stmt := range splitSQL(schema) {
			if _, e := db.ExecContext(ctx, stmt); e != nil {
				return fmt.Errorf("db: schema failed at:\n%s\nerr: %w", firstLine(stmt), e)
			}
		}
	}
	return nil
}

// Timestamps are unix milliseconds in BIGINT columns on both drivers.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE,
  name          TEXT NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  role          TEXT NOT NULL DEFAULT 'user',
  created_at    BIGINT NOT NULL,
  updated_at    BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tests (
  id           TEXT PRIMARY KEY,
  title        TEXT NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  user_id      TEXT NOT NULL,
  is_published BOOLEAN NOT NULL DEFAULT 0,
  link_token   TEXT UNIQUE,
  created_at   BIGINT NOT NULL,
  updated_at   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS tests_user_idx ON tests (user_id, created_at);

CREATE TABLE IF NOT EXISTS questions (
  id             TEXT PRIMARY KEY,
  test_id        TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_text  TEXT NOT NULL,
  question_type  TEXT NOT NULL,
  options_json   TEXT NOT NULL DEFAULT '',
  correct_answer TEXT NOT NULL DEFAULT '',
  order_index    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS questions_test_idx ON questions (test_id, order_index);

CREATE TABLE IF NOT EXISTS test_attempts (
  id          TEXT PRIMARY KEY,
  test_id     TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  user_id     TEXT NOT NULL,
  started_at  BIGINT NOT NULL,
  finished_at BIGINT,
  score       REAL
);
CREATE INDEX IF NOT EXISTS attempts_test_idx ON test_attempts (test_id, started_at);
CREATE INDEX IF NOT EXISTS attempts_user_idx ON test_attempts (user_id, started_at);

CREATE TABLE IF NOT EXISTS answers (
  id          TEXT PRIMARY KEY,
  attempt_id  TEXT NOT NULL REFERENCES test_attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  user_answer TEXT NOT NULL,
  is_correct  BOOLEAN,
  answered_at BIGINT NOT NULL,
  UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  typ        TEXT NOT NULL,
  key        TEXT NOT NULL,
  data       TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE,
  name          TEXT NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  role          TEXT NOT NULL DEFAULT 'user',
  created_at    BIGINT NOT NULL,
  updated_at    BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tests (
  id           TEXT PRIMARY KEY,
  title        TEXT NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  user_id      TEXT NOT NULL,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  link_token   TEXT UNIQUE,
  created_at   BIGINT NOT NULL,
  updated_at   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS tests_user_idx ON tests (user_id, created_at);

CREATE TABLE IF NOT EXISTS questions (
  id             TEXT PRIMARY KEY,
  test_id        TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_text  TEXT NOT NULL,
  question_type  TEXT NOT NULL,
  options_json   TEXT NOT NULL DEFAULT '',
  correct_answer TEXT NOT NULL DEFAULT '',
  order_index    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS questions_test_idx ON questions (test_id, order_index);

CREATE TABLE IF NOT EXISTS test_attempts (
  id          TEXT PRIMARY KEY,
  test_id     TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  user_id     TEXT NOT NULL,
  started_at  BIGINT NOT NULL,
  finished_at BIGINT,
  score       DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS attempts_test_idx ON test_attempts (test_id, started_at);
CREATE INDEX IF NOT EXISTS attempts_user_idx ON test_attempts (user_id, started_at);

CREATE TABLE IF NOT EXISTS answers (
  id          TEXT PRIMARY KEY,
  attempt_id  TEXT NOT NULL REFERENCES test_attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  user_answer TEXT NOT NULL,
  is_correct  BOOLEAN,
  answered_at BIGINT NOT NULL,
  UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq        BIGSERIAL PRIMARY KEY,
  typ        TEXT NOT NULL,
  key        TEXT NOT NULL,
  data       TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`

// splitSQL naively splits on ';'. Good enough for plain DDL.
func splitSQL(s string) []string {
	raw := strings.Split(s, ";")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part+";")
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
