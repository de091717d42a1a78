package syncx

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	repo := NewEventRepo(conn)

	if err := repo.Append(ctx, "AttemptStarted", "a1", map[string]string{"test_id": "t1"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, "AttemptFinished", "a1", map[string]any{"score": 50.0}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, "Bad", "a1", func() {}); err == nil {
		t.Fatal("unencodable payload must fail")
	}

	all, err := repo.Since(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Type != "AttemptStarted" || all[1].DataJSON != `{"score":50}` {
		t.Fatalf("events = %+v", all)
	}
	rest, _ := repo.Since(ctx, all[0].Seq, 10)
	if len(rest) != 1 || rest[0].Type != "AttemptFinished" {
		t.Fatalf("since first = %+v", rest)
	}
}

func TestEventJSONInlinesData(t *testing.T) {
	e := Event{Seq: 3, Type: "AttemptFinished", Key: "a1", DataJSON: `{"score":50}`}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	data, ok := got["data"].(map[string]any)
	if !ok || data["score"] != float64(50) || got["seq"] != float64(3) || got["type"] != "AttemptFinished" {
		t.Fatalf("json = %s", b)
	}
	if _, leaked := got["DataJSON"]; leaked {
		t.Fatalf("json = %s", b)
	}

	b, _ = json.Marshal(Event{Seq: 1})
	if !strings.Contains(string(b), `"data":null`) {
		t.Fatalf("empty payload = %s", b)
	}
}
