package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"ewscal/internal/ews"
	"ewscal/internal/metrics"
)

// fakeCalendarAPI serves the events of one calendar and keeps the raw bodies
// of the last write so tests can check what was sent.
type fakeCalendarAPI struct {
	mu        sync.Mutex
	events    map[string]map[string]any
	version   int
	lastBody  map[string]any
	ifMatch   string
	listQuery url.Values
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/calendars/work/events"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		f.listQuery = r.URL.Query()
		items := make([]map[string]any, 0, len(f.events))
		for _, ev := range f.events {
			items = append(items, ev)
		}
		writeJSON(w, map[string]any{"items": items})
	case r.Method == http.MethodGet && id != "":
		ev, ok := f.events[id]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, ev)
	case r.Method == http.MethodPost && id == "":
		body := f.readBody(r)
		f.version++
		body["id"] = fmt.Sprintf("new%d", f.version)
		body["etag"] = fmt.Sprintf(`"%d"`, f.version)
		f.events[body["id"].(string)] = body
		writeJSON(w, body)
	case r.Method == http.MethodPatch && id != "":
		ev, ok := f.events[id]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Not Found")
			return
		}
		f.ifMatch = r.Header.Get("If-Match")
		if f.ifMatch != "" && f.ifMatch != ev["etag"] {
			writeAPIError(w, http.StatusPreconditionFailed, "Precondition Failed")
			return
		}
		for k, v := range f.readBody(r) {
			ev[k] = v
		}
		f.version++
		ev["etag"] = fmt.Sprintf(`"%d"`, f.version)
		writeJSON(w, ev)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeCalendarAPI) readBody(r *http.Request) map[string]any {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.lastBody = body
	return body
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func newTestService(t *testing.T) (*EventService, *fakeCalendarAPI, *metrics.Metrics) {
	t.Helper()
	fake := &fakeCalendarAPI{
		version: 1,
		events: map[string]map[string]any{
			"ev1": {
				"id":       "ev1",
				"etag":     `"1"`,
				"summary":  "Planning",
				"location": "Room 4",
				"status":   "confirmed",
				"start":    map[string]any{"dateTime": "2026-01-05T10:00:00Z"},
				"end":      map[string]any{"dateTime": "2026-01-05T11:00:00Z"},
			},
		},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := newClient(context.Background(), logger,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	return c.WithMetrics(m).Events("work"), fake, m
}

func TestGetEvent(t *testing.T) {
	s, _, m := newTestService(t)
	ctx := context.Background()

	item, err := s.GetEvent(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "ev1", item.ID())
	assert.Equal(t, `"1"`, item.ChangeKey())
	assert.Equal(t, "Planning", item.String("subject"))
	assert.Empty(t, item.DirtyFields())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsLoaded.WithLabelValues("google")))

	_, err = s.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, ews.ErrNotFound)
}

func TestSavePatchesDirtyFields(t *testing.T) {
	s, fake, m := newTestService(t)
	ctx := context.Background()

	item, err := s.GetEvent(ctx, "ev1")
	require.NoError(t, err)

	t.Run("clean items are not sent", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, item))
		assert.Nil(t, fake.lastBody)
	})

	t.Run("patch carries only dirty fields", func(t *testing.T) {
		require.NoError(t, item.Set("subject", "Replanning"))
		require.NoError(t, item.Clear("location"))
		require.NoError(t, item.Set("importance", "High"))

		require.NoError(t, s.Save(ctx, item))
		assert.Equal(t, `"1"`, fake.ifMatch)
		assert.Equal(t, map[string]any{"summary": "Replanning", "location": nil}, fake.lastBody)

		assert.Empty(t, item.DirtyFields())
		assert.Equal(t, `"2"`, item.ChangeKey())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsSaved.WithLabelValues("google", "update")))
		assert.Equal(t, 3.0, testutil.ToFloat64(m.FieldsFlushed.WithLabelValues("google")))
	})

	t.Run("stale change key conflicts", func(t *testing.T) {
		stale := s.Event("ev1")
		stale.SetIdentity("ev1", `"1"`)
		require.NoError(t, stale.Set("subject", "Late"))

		err := s.Save(ctx, stale)
		assert.ErrorIs(t, err, ews.ErrConflict)
		assert.Equal(t, []string{"subject"}, stale.DirtyFields())
	})
}

func TestSaveInsertsNewEvent(t *testing.T) {
	s, fake, m := newTestService(t)
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	item, err := s.NewEvent(map[string]any{
		"subject": "Standup",
		"start":   start,
		"end":     start.Add(15 * time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, item.Set("location", "Hall"))

	require.NoError(t, s.Save(ctx, item))
	assert.Equal(t, "new2", item.ID())
	assert.Equal(t, `"2"`, item.ChangeKey())
	assert.Empty(t, item.DirtyFields())
	assert.Equal(t, "Standup", fake.lastBody["summary"])
	assert.Equal(t, "Hall", fake.lastBody["location"])
	assert.Equal(t, map[string]any{"dateTime": "2026-02-01T09:00:00Z"}, fake.lastBody["start"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsSaved.WithLabelValues("google", "create")))

	loaded, err := s.GetEvent(ctx, "new2")
	require.NoError(t, err)
	assert.Equal(t, "Standup", loaded.String("subject"))
}

func TestUpcomingEvents(t *testing.T) {
	s, fake, m := newTestService(t)

	items, err := s.UpcomingEvents(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ev1", items[0].ID())
	assert.Equal(t, "Planning", items[0].String("subject"))
	assert.Empty(t, items[0].DirtyFields())

	assert.Equal(t, "true", fake.listQuery.Get("singleEvents"))
	assert.Equal(t, "startTime", fake.listQuery.Get("orderBy"))
	assert.NotEmpty(t, fake.listQuery.Get("timeMin"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsLoaded.WithLabelValues("google")))

	t.Run("items are backed by the service", func(t *testing.T) {
		require.NoError(t, items[0].Load(context.Background()))
		assert.Equal(t, `"1"`, items[0].ChangeKey())
	})
}
