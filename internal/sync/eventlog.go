package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

type Event struct {
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	DataJSON  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON inlines the stored payload as raw JSON under "data".
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	data := json.RawMessage(e.DataJSON)
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return json.Marshal(struct {
		plain
		Data json.RawMessage `json:"data"`
	}{plain(e), data})
}

// EventRepo is the append-only log of attempt lifecycle transitions.
type EventRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventRepo(conn *sql.DB) *EventRepo { return &EventRepo{db: conn, now: time.Now} }

// Append encodes payload as JSON and adds one row.
func (r *EventRepo) Append(ctx context.Context, typ, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("eventlog: encode %s: %w", typ, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(data), db.Millis(r.now()))
	return err
}

// Since returns events with seq > after in log order, at most limit rows.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, typ, key, data, created_at FROM event_log WHERE seq > $1 ORDER BY seq LIMIT $2`,
		after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			e  Event
			ms int64
		)
		if err := rows.Scan(&e.Seq, &e.Type, &e.Key, &e.DataJSON, &ms); err != nil {
			return nil, err
		}
		e.CreatedAt = db.FromMillis(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}
