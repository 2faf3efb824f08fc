package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"volume-core/internal/engine"
	"volume-core/internal/events"
	"volume-core/internal/monitor"
	"volume-core/internal/settings"
	"volume-core/internal/trader"
	"volume-core/pkg/db"
	"volume-core/pkg/exchanges/common"
)

type noopRunner struct{}

func (noopRunner) RunCycle(context.Context, settings.Settings) (trader.CycleResult, error) {
	return trader.CycleResult{}, nil
}
func (noopRunner) CheckBalances(context.Context, settings.Settings) error { return nil }

type noopGateway struct{}

func (noopGateway) CancelAllOrders(context.Context, string) error { return nil }
func (noopGateway) AccountBalances(context.Context) ([]common.Balance, error) {
	return []common.Balance{{Asset: "USDT", Free: 1000}}, nil
}

func newTestAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	queries := database.Queries()

	bus := events.NewBus()
	metrics := monitor.NewSystemMetrics()
	store := settings.NewStore(queries)
	ctrl := engine.New(noopRunner{}, noopGateway{}, store, queries, bus, nil, metrics, "ABCUSDT")

	srv := NewServer(bus, queries, ctrl, metrics, "test-secret")
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

func authToken(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	creds := `{"email":"ops@example.com","password":"hunter22"}`

	resp, err := http.Post(ts.URL+"/api/auth/register", "application/json", bytes.NewBufferString(creds))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewBufferString(creds))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if body.Token == "" {
		t.Fatal("empty token")
	}
	return body.Token
}

func doAuthed(t *testing.T, ts *httptest.Server, token, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestAuthRequired(t *testing.T) {
	ts := newTestAPIServer(t)

	resp, err := http.Get(ts.URL + "/api/engine/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestEngineLifecycleOverHTTP(t *testing.T) {
	ts := newTestAPIServer(t)
	token := authToken(t, ts)

	resp := doAuthed(t, ts, token, http.MethodPost, "/api/engine/start", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	// Second start reports a no-op, not an error.
	resp = doAuthed(t, ts, token, http.MethodPost, "/api/engine/start", nil)
	var noop struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&noop); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if noop.Status != "noop" {
		t.Errorf("second start status = %q, want noop", noop.Status)
	}

	resp = doAuthed(t, ts, token, http.MethodGet, "/api/engine/status", nil)
	var status engine.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	resp.Body.Close()
	if !status.Running {
		t.Error("engine should report running")
	}

	resp = doAuthed(t, ts, token, http.MethodPost, "/api/engine/stop", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
}

func TestUpdateSettingOverHTTP(t *testing.T) {
	ts := newTestAPIServer(t)
	token := authToken(t, ts)

	resp := doAuthed(t, ts, token, http.MethodPut, "/api/engine/settings/trade_amount", []byte(`{"value":"333"}`))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	var body struct {
		Settings settings.Settings `json:"settings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Settings.TradeAmount != 333 {
		t.Errorf("TradeAmount = %v", body.Settings.TradeAmount)
	}

	bad := doAuthed(t, ts, token, http.MethodPut, "/api/engine/settings/leverage", []byte(`{"value":"5"}`))
	bad.Body.Close()
	if bad.StatusCode != http.StatusNotFound {
		t.Errorf("unknown setting status = %d, want 404", bad.StatusCode)
	}
}

func TestTradesEndpoint(t *testing.T) {
	ts := newTestAPIServer(t)
	token := authToken(t, ts)

	resp := doAuthed(t, ts, token, http.MethodGet, "/api/trades?limit=10", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trades status = %d", resp.StatusCode)
	}

	stats := doAuthed(t, ts, token, http.MethodGet, "/api/trades/stats", nil)
	defer stats.Body.Close()
	var s db.TradeStats
	if err := json.NewDecoder(stats.Body).Decode(&s); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if s.Count != 0 {
		t.Errorf("count = %d, want 0", s.Count)
	}
}
