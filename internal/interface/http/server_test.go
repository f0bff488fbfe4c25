package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hampton/progress-tracker/internal/application/tracker"
	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/internal/infrastructure/messaging"
	"github.com/hampton/progress-tracker/internal/infrastructure/metrics"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/bolt"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/file"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/redis"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixture struct {
	server  *Server
	tracker *tracker.Service
	bus     *messaging.InMemoryEventBus
}

func newFixture(t *testing.T, repo progress.Repository, mutate func(*Dependencies)) *fixture {
	t.Helper()

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: quiet()})
	t.Cleanup(func() { _ = bus.Close() })

	if repo == nil {
		store, err := file.Open(filepath.Join(t.TempDir(), "progress.json"))
		require.NoError(t, err)
		repo = store
	}
	t.Cleanup(func() { _ = repo.Close() })

	svc, err := tracker.Open(context.Background(), tracker.Dependencies{
		Repository: repo,
		Publisher:  bus,
		Logger:     quiet(),
	}, tracker.Config{
		Location:       time.UTC,
		StrictChecksum: true,
		Clock:          func() time.Time { return testNow },
		NewUserID:      func() string { return "user_test" },
	})
	require.NoError(t, err)

	deps := Dependencies{Tracker: svc, Logger: quiet()}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := NewServer(DefaultConfig(), deps)
	require.NoError(t, err)
	return &fixture{server: srv, tracker: svc, bus: bus}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestNewServer_RequiresTracker(t *testing.T) {
	_, err := NewServer(DefaultConfig(), Dependencies{})
	assert.Error(t, err)
}

func TestHealthAndRoot(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy":true`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/progress")
}

func TestHealth_FailingCheck(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.server.deps.Health.AddCheck("store", func(context.Context) error { return errors.New("disk full") })

	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetProgress_ETag(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "0", w.Header().Get("X-Progress-Revision"))

	var st progress.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "user_test", st.UserID)
	assert.Equal(t, 1, st.Level)

	w = f.do(t, http.MethodGet, "/api/progress", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())

	f.do(t, http.MethodPost, "/api/xp", gin.H{"amount": 10})
	w = f.do(t, http.MethodGet, "/api/progress", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
}

func TestGetProgress_SnapshotCache(t *testing.T) {
	store, err := bolt.Open(bolt.DefaultConfig(filepath.Join(t.TempDir(), "progress.bolt")))
	require.NoError(t, err)
	kv := &memKV{data: map[string][]byte{}}

	f := newFixture(t, store, func(d *Dependencies) {
		d.Snapshots = redis.NewSnapshotCache(kv, time.Minute)
	})

	_, err = f.tracker.SelectProject(context.Background(), progress.ProjectTicTacToe)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.tracker.Revision())

	w := f.do(t, http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Progress-Revision"))
	assert.Contains(t, w.Body.String(), `"selectedProject":"tictactoe"`)
	assert.Len(t, kv.data, 1)

	w2 := f.do(t, http.MethodGet, "/api/progress", nil, "If-None-Match", w.Header().Get("ETag"))
	assert.Equal(t, http.StatusNotModified, w2.Code)
}

func TestCompleteModule(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodPost, "/api/project", gin.H{"project": "TicTacToe"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/modules", gin.H{"week": 1, "module": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out outcomeResponse
	decode(t, w, &out)
	assert.True(t, out.Completion.Applied)
	assert.True(t, out.Saved)
	assert.Greater(t, out.Completion.XPAfter, out.Completion.XPBefore)
	assert.Contains(t, out.Events, shared.EventModuleCompleted)
	assert.Contains(t, out.Progress.CompletedModules, "w1m1")

	w = f.do(t, http.MethodPost, "/api/modules", gin.H{"week": 1, "module": 1})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &out)
	assert.True(t, out.Completion.AlreadyCompleted)
}

func TestCommands_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing module", http.MethodPost, "/api/modules", gin.H{"week": 1}, http.StatusBadRequest},
		{"module out of range", http.MethodPost, "/api/modules", gin.H{"week": 99, "module": 1}, http.StatusBadRequest},
		{"unknown project", http.MethodPost, "/api/project", gin.H{"project": "chess"}, http.StatusBadRequest},
		{"unknown skill", http.MethodPost, "/api/skills", gin.H{"skill": "cobol", "delta": 5}, http.StatusBadRequest},
		{"negative xp", http.MethodPost, "/api/xp", gin.H{"amount": -5}, http.StatusBadRequest},
		{"xp overflow", http.MethodPost, "/api/xp", gin.H{"amount": math.MaxInt - 10}, http.StatusBadRequest},
		{"lesson without day", http.MethodPost, "/api/lessons", gin.H{"lesson": 0}, http.StatusBadRequest},
		{"bad day param", http.MethodGet, "/api/content/days/abc", nil, http.StatusBadRequest},
		{"bad history limit", http.MethodGet, "/api/progress/history?limit=0", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			env := decode(t, w, nil)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
		})
	}
}

func TestCode_ExportImport(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodPost, "/api/code", gin.H{"code": "hampton-tict-w3m2-kzcj-eyjw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out outcomeResponse
	decode(t, w, &out)
	assert.Equal(t, 1100, out.Progress.XP)
	assert.Equal(t, 5, out.Progress.Level)
	assert.Len(t, out.Progress.CompletedModules, 11)
	assert.Contains(t, out.Events, shared.EventProgressImported)

	w = f.do(t, http.MethodGet, "/api/code", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var code struct {
		Code string `json:"code"`
	}
	decode(t, w, &code)
	assert.True(t, strings.HasPrefix(code.Code, "HAMPTON-TICT-W3M2-"), code.Code)
}

func TestCode_ImportErrors(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodPost, "/api/code", gin.H{"code": "HAMPTON-TICT-W3M2-0000-EYJW"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "checksum_mismatch", decode(t, w, nil).Error.Code)

	w = f.do(t, http.MethodPost, "/api/code", gin.H{"code": "HAMPTON-TICT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 0, f.tracker.Snapshot().XP)
}

func TestCode_ReportAndAnalytics(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodGet, "/api/code/report?code=HAMPTON-SNOW-D1L2-KZBG-EYJW", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"project":"servicenow"`)

	w = f.do(t, http.MethodGet, "/api/code/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"code":"HAMPTON-NONE-`)

	w = f.do(t, http.MethodPost, "/api/code/analytics", gin.H{"codes": []string{"HAMPTON-TICT-W3M2-KZCJ-EYJW", "nope"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"valid_codes":1`)
	assert.Contains(t, w.Body.String(), `"invalid_codes":1`)

	w = f.do(t, http.MethodPost, "/api/code/analytics", gin.H{"codes": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReset_RequiresConfirmation(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.do(t, http.MethodPost, "/api/xp", gin.H{"amount": 200, "source": "test"})

	w := f.do(t, http.MethodPost, "/api/reset", gin.H{})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 200, f.tracker.Snapshot().XP)

	w = f.do(t, http.MethodPost, "/api/reset", gin.H{"confirm": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, f.tracker.Snapshot().XP)
}

func TestChallenges(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodGet, "/api/challenges", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var today []progress.DailyChallenge
	decode(t, w, &today)
	require.Len(t, today, 3)
	assert.Equal(t, "Fri Oct 16 2026", today[0].Date)

	w = f.do(t, http.MethodPost, "/api/challenges/"+today[0].ID+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, f.tracker.Snapshot().CompletedChallenges, "2026-10-16/"+today[0].ID)

	w = f.do(t, http.MethodPost, "/api/challenges/not_offered/complete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContent_Defaults(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(t, http.MethodGet, "/api/content/weeks/2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"week":2`)

	w = f.do(t, http.MethodGet, "/api/content/days/1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"day":1`)

	w = f.do(t, http.MethodGet, "/api/content/weeks/13", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory_UnsupportedByFileStore(t *testing.T) {
	f := newFixture(t, nil, nil)
	w := f.do(t, http.MethodGet, "/api/progress/history", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.New()
	f := newFixture(t, nil, func(d *Dependencies) { d.Metrics = collector })
	require.NoError(t, collector.Attach(f.bus))

	f.do(t, http.MethodPost, "/api/xp", gin.H{"amount": 120})

	w := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hampton_xp_awarded_total 120")
	assert.Contains(t, w.Body.String(), `hampton_http_requests_total{endpoint="/api/xp",method="POST",status="200"} 1`)
}

func TestEvents_Stream(t *testing.T) {
	broadcaster := messaging.NewBroadcaster(8, quiet())
	f := newFixture(t, nil, func(d *Dependencies) { d.Events = broadcaster })
	require.NoError(t, broadcaster.Attach(f.bus))

	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return broadcaster.Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, err = f.tracker.AddXP(context.Background(), 25, "test")
	require.NoError(t, err)

	scanner := bufio.NewScanner(resp.Body)
	var found bool
	for scanner.Scan() {
		if scanner.Text() == "event:"+string(shared.EventXPGained) {
			found = true
			break
		}
	}
	assert.True(t, found)

	cancel()
	require.Eventually(t, func() bool { return broadcaster.Listeners() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// memKV is an in-memory stand-in for the Redis client.
type memKV struct {
	data map[string][]byte
}

func (m *memKV) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memKV) GetBytes(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, redis.ErrCacheMiss
	}
	return v, nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
