package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/service/broadcast"
	"github.com/KNICEX/oi-radar/internal/service/monitor"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/KNICEX/oi-radar/internal/service/status"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRadar struct {
	phases map[string]monitor.Phase
}

func (f *fakeRadar) Run(ctx context.Context, symbols []string) error {
	<-ctx.Done()
	return nil
}

func (f *fakeRadar) Symbols() []string {
	return []string{"BTCUSDT", "ETHUSDT"}
}

func (f *fakeRadar) Phases() map[string]monitor.Phase {
	return f.phases
}

type fakeTuner struct {
	mu      sync.Mutex
	initial radar.Policy
	current radar.Policy
}

func newFakeTuner() *fakeTuner {
	p := radar.Policy{Scorer: radar.DefaultScorerConfig(), Classifier: radar.DefaultClassifierConfig()}
	return &fakeTuner{initial: p, current: p}
}

func (f *fakeTuner) Policy() radar.Policy {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeTuner) SetPolicy(p radar.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = p
	return nil
}

func (f *fakeTuner) ResetPolicy() radar.Policy {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.initial
	return f.current
}

type fixture struct {
	srv   *Server
	repo  repo.AlertRepo
	hub   *broadcast.Hub[radar.Alert]
	logs  *broadcast.Hub[json.RawMessage]
	tuner *fakeTuner
	agg   *status.Aggregator
	alert radar.Alert
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "radar.db") + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repo.InitTables(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	now := base.Add(time.Hour)
	alerts := repo.NewAlertRepo(db, repo.WithRepoClock(func() time.Time { return now }))
	reg := prometheus.NewRegistry()
	agg := status.NewAggregator(status.WithRecorder(status.NewRecorder(reg)))
	hub := broadcast.NewHub[radar.Alert](broadcast.Config{ReplaySize: 10, SubscriberDepth: 16})
	logs := broadcast.NewHub[json.RawMessage](broadcast.Config{ReplaySize: 10, SubscriberDepth: 16})
	tuner := newFakeTuner()
	agg.SetSubscriberSource(hub.Len)

	var last radar.Alert
	for i, v := range []radar.Verdict{radar.VerdictWatch, radar.VerdictAlert, radar.VerdictStrongAlert, radar.VerdictAlert} {
		symbol := "BTCUSDT"
		if i%2 == 1 {
			symbol = "ETHUSDT"
		}
		last = testAlert(i, symbol, v, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, alerts.Append(context.Background(), last))
	}

	srv := NewServer(Config{}, alerts, hub, agg,
		&fakeRadar{phases: map[string]monitor.Phase{"BTCUSDT": monitor.PhaseIdle, "ETHUSDT": monitor.PhaseFetching}},
		WithGatherer(reg),
		WithConfigView(gin.H{"monitor": gin.H{"scan_interval": "15s"}}),
		WithSymbolRepo(repo.NewSymbolRepo(db)),
		WithPolicyTuner(tuner),
		WithLogHub(logs),
	)
	return &fixture{srv: srv, repo: alerts, hub: hub, logs: logs, tuner: tuner, agg: agg, alert: last}
}

func testAlert(i int, symbol string, verdict radar.Verdict, at time.Time) radar.Alert {
	return radar.Alert{
		ID:          fmt.Sprintf("a-%03d", i),
		Symbol:      symbol,
		CreatedAt:   time.UnixMilli(at.UnixMilli()).UTC(),
		Verdict:     verdict,
		Severity:    radar.SeverityOf(verdict),
		Confidence:  0.5,
		Score:       0.5,
		Direction:   radar.Bullish,
		ScoreBundle: radar.NeutralBundle(20),
		SnapshotAtTrigger: radar.Snapshot{
			Symbol:       symbol,
			Timestamp:    time.UnixMilli(at.UnixMilli()).UTC(),
			Price:        100,
			High:         101,
			Low:          99,
			Volume:       10,
			OpenInterest: 1000,
		},
	}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServer_Status(t *testing.T) {
	f := newFixture(t)
	f.agg.SetRunning(true)
	f.agg.SetSymbols(2)
	f.agg.RecordRequestOK()

	rec := f.get(t, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got status.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Equal(t, 2, got.Symbols)
	assert.Equal(t, int64(1), got.RequestOK)
}

func TestServer_Symbols(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/symbols")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbols":[{"symbol":"BTCUSDT","phase":"IDLE"},{"symbol":"ETHUSDT","phase":"FETCHING"}]}`, rec.Body.String())
}

type configBody struct {
	Config json.RawMessage `json:"config"`
	Policy *radar.Policy   `json:"policy"`
}

func decodeConfig(t *testing.T, rec *httptest.ResponseRecorder) configBody {
	t.Helper()
	var body configBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_Config(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeConfig(t, rec)
	assert.JSONEq(t, `{"monitor":{"scan_interval":"15s"}}`, string(body.Config))
	require.NotNil(t, body.Policy)
	assert.Equal(t, f.tuner.initial, *body.Policy)
}

func TestServer_UpdatePolicy(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantCode   int
		wantPolicy func(p *radar.Policy)
	}{
		{
			name:     "partial merge keeps other fields",
			body:     `{"classifier":{"thresholds":{"alert":0.5}}}`,
			wantCode: http.StatusOK,
			wantPolicy: func(p *radar.Policy) {
				p.Classifier.Thresholds.Alert = 0.5
			},
		},
		{
			name:     "scorer and classifier together",
			body:     `{"scorer":{"sma_period":30},"classifier":{"flag_boost":0.2}}`,
			wantCode: http.StatusOK,
			wantPolicy: func(p *radar.Policy) {
				p.Scorer.SMAPeriod = 30
				p.Classifier.FlagBoost = 0.2
			},
		},
		{
			name:     "thresholds out of order",
			body:     `{"classifier":{"thresholds":{"alert":0.9}}}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "non positive period",
			body:     `{"scorer":{"atr_period":0}}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown field",
			body:     `{"scorer":{"sma":3}}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed body",
			body:     `{"scorer":`,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			want := f.tuner.initial

			rec := f.post(t, "/api/config", tc.body)
			require.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			if tc.wantPolicy != nil {
				tc.wantPolicy(&want)
				body := decodeConfig(t, rec)
				require.NotNil(t, body.Policy)
				assert.Equal(t, want, *body.Policy)
			}
			assert.Equal(t, want, f.tuner.Policy())
		})
	}
}

func TestServer_ResetPolicy(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/api/config", `{"classifier":{"thresholds":{"watch":0.3}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEqual(t, f.tuner.initial, f.tuner.Policy())

	rec = f.post(t, "/api/config/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeConfig(t, rec)
	require.NotNil(t, body.Policy)
	assert.Equal(t, f.tuner.initial, *body.Policy)
	assert.Equal(t, f.tuner.initial, f.tuner.Policy())
}

func TestServer_ListAlerts(t *testing.T) {
	testCases := []struct {
		name      string
		query     string
		wantCode  int
		wantIDs   []string
		wantTotal int64
	}{
		{
			name:      "all newest first",
			query:     "",
			wantCode:  http.StatusOK,
			wantIDs:   []string{"a-003", "a-002", "a-001", "a-000"},
			wantTotal: 4,
		},
		{
			name:      "by symbol",
			query:     "?symbol=ETHUSDT",
			wantCode:  http.StatusOK,
			wantIDs:   []string{"a-003", "a-001"},
			wantTotal: 2,
		},
		{
			name:      "exact verdict",
			query:     "?verdict=ALERT",
			wantCode:  http.StatusOK,
			wantIDs:   []string{"a-003", "a-001"},
			wantTotal: 2,
		},
		{
			name:      "min verdict",
			query:     "?min_verdict=STRONG_ALERT",
			wantCode:  http.StatusOK,
			wantIDs:   []string{"a-002"},
			wantTotal: 1,
		},
		{
			name:      "page",
			query:     "?limit=2&offset=1",
			wantCode:  http.StatusOK,
			wantIDs:   []string{"a-002", "a-001"},
			wantTotal: 4,
		},
		{
			name:      "time range",
			query:     fmt.Sprintf("?since=%d&until=%d", base.Add(time.Minute).UnixMilli(), base.Add(2*time.Minute).UnixMilli()),
			wantCode:  http.StatusOK,
			wantIDs:   []string{"a-002", "a-001"},
			wantTotal: 2,
		},
		{
			name:     "unknown verdict",
			query:    "?verdict=PANIC",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "negative limit",
			query:    "?limit=-1",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad number",
			query:    "?since=yesterday",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "inverted range",
			query:    fmt.Sprintf("?since=%d&until=%d", base.Add(time.Hour).UnixMilli(), base.UnixMilli()),
			wantCode: http.StatusBadRequest,
		},
	}

	f := newFixture(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.get(t, "/api/alerts"+tc.query)
			require.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			if tc.wantCode != http.StatusOK {
				return
			}
			var resp listAlertsResp
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantTotal, resp.Total)
			ids := make([]string, 0, len(resp.Alerts))
			for _, a := range resp.Alerts {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestServer_GetAlert(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/alert/"+f.alert.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var got radar.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, f.alert, got)

	rec = f.get(t, "/api/alert/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MetricsAndHealth(t *testing.T) {
	f := newFixture(t)
	f.agg.RecordRequestFail()

	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "oiradar_")

	rec = f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_WebSocketReplayAndLive(t *testing.T) {
	f := newFixture(t)
	f.hub.Seed([]radar.Alert{testAlert(0, "BTCUSDT", radar.VerdictWatch, base)})
	conn := f.dial(t, "/ws/alerts")

	readAlert := func() radar.Alert {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var a radar.Alert
		require.NoError(t, conn.ReadJSON(&a))
		return a
	}

	assert.Equal(t, "a-000", readAlert().ID)

	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	f.hub.Publish(f.alert)
	assert.Equal(t, f.alert, readAlert())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return f.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_WebSocketLogs(t *testing.T) {
	f := newFixture(t)
	logger := zerolog.New(broadcast.NewLogWriter(f.logs))
	logger.Info().Str("symbol", "BTCUSDT").Msg("scan")

	conn := f.dial(t, "/ws/logs")
	readLine := func() string {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		return string(msg)
	}

	assert.JSONEq(t, `{"level":"info","symbol":"BTCUSDT","message":"scan"}`, readLine())

	require.Eventually(t, func() bool { return f.logs.Len() == 1 }, time.Second, 10*time.Millisecond)
	logger.Warn().Msg("fetch snapshot failed")
	assert.JSONEq(t, `{"level":"warn","message":"fetch snapshot failed"}`, readLine())
}

func TestServer_Marks(t *testing.T) {
	f := newFixture(t)

	put := func(symbol, body string) int {
		req := httptest.NewRequest(http.MethodPut, "/api/mark/"+symbol, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		f.srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, put("LUNAUSDT", `{"mark":"ignore"}`))
	assert.Equal(t, http.StatusOK, put("BTCUSDT", `{"mark":"favorite"}`))
	assert.Equal(t, http.StatusBadRequest, put("BTCUSDT", `{"mark":"moon"}`))
	assert.Equal(t, http.StatusBadRequest, put("BTCUSDT", `not json`))

	rec := f.get(t, "/api/marks")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Symbols []markResp `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Symbols, 1)
	assert.Equal(t, "LUNAUSDT", resp.Symbols[0].Symbol)

	rec = f.get(t, "/api/marks?mark=favorite")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Symbols, 1)
	assert.Equal(t, "BTCUSDT", resp.Symbols[0].Symbol)
}

func TestServer_RunShutdown(t *testing.T) {
	f := newFixture(t)
	f.srv.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
