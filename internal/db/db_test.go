package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := ensureSchema(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}
	for _, table := range []string{"users", "tests", "questions", "test_attempts", "answers", "event_log"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}
}

func TestParseDriver(t *testing.T) {
	cases := map[string]Driver{"": DriverSQLite, "sqlite3": DriverSQLite, "PG": DriverPostgres, "pgx": DriverPostgres}
	for in, want := range cases {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Fatalf("ParseDriver(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Fatal("expected error for mysql")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
			"X", "k", "{}", Millis(time.Now())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rolled back insert is visible: %d rows", n)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ins := `INSERT INTO users (id, email, name, created_at, updated_at) VALUES ($1,$2,$3,$4,$4)`
	if _, err := db.ExecContext(ctx, ins, "u1", "a@example.com", "A", 1); err != nil {
		t.Fatal(err)
	}
	_, err := db.ExecContext(ctx, ins, "u2", "a@example.com", "B", 2)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("other")) || IsUniqueViolation(nil) {
		t.Fatal("false positive")
	}
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 123_000_000, time.UTC)
	if got := FromMillis(Millis(now)); !got.Equal(now) {
		t.Fatalf("got %v want %v", got, now)
	}
	if NullMillis(sql.NullInt64{}) != nil {
		t.Fatal("null should map to nil")
	}
}
