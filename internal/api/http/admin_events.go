package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// EventLog reads the attempt lifecycle log.
type EventLog interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

const maxEventPage = 500

// GET /api/admin/events?after=&limit=
// Returns events with seq > after in log order. Clients resume from the last seq seen.
func AdminEventsHandler(events EventLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var after int64
		if s := q.Get("after"); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 0 {
				writeErr(w, r, badRequest("after must be a non-negative integer"))
				return
			}
			after = n
		}
		limit := 100
		if s := q.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > maxEventPage {
				writeErr(w, r, badRequest("limit must be between 1 and 500"))
				return
			}
			limit = n
		}
		evs, err := events.Since(r.Context(), after, limit)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if evs == nil {
			evs = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, evs)
	}
}
