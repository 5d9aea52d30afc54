package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"stockfolio-backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFinnhub struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (f *fakeFinnhub) set(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

func (f *fakeFinnhub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Path {
	case "/quote":
		p := f.prices[r.URL.Query().Get("symbol")]
		json.NewEncoder(w).Encode(map[string]interface{}{"c": p, "t": time.Now().Unix()})
	case "/stock/market-status":
		w.Write([]byte(`{"exchange":"US","isOpen":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func testConfig(t *testing.T, finnhubURL string) *config.Config {
	mr := miniredis.RunT(t)
	return &config.Config{
		Env:            "test",
		DatabaseURL:    "sqlite::memory:",
		RedisURL:       "redis://" + mr.Addr(),
		JWTSecret:      "router-test-secret",
		TokenTTL:       time.Hour,
		FinnhubAPIKey:  "k",
		FinnhubBaseURL: finnhubURL,
		QuoteRateLimit: 100,
		QuoteTimeout:   2 * time.Second,
		MarketCacheTTL: time.Minute,
		HealthAdminKey: "hk",
		AdminUsername:  "root",
		AdminPassword:  "rootpass1!",
	}
}

func setupRouter(t *testing.T) (*fiber.App, *fakeFinnhub) {
	fh := &fakeFinnhub{prices: map[string]float64{}}
	srv := httptest.NewServer(fh)
	t.Cleanup(srv.Close)

	app, db, rdb, err := CreateApp(testConfig(t, srv.URL))
	require.NoError(t, err)
	require.NotNil(t, db)
	require.NotNil(t, rdb)
	t.Cleanup(func() { rdb.Close() })
	return app, fh
}

func request(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func tokenOf(out map[string]interface{}) string {
	data, _ := out["data"].(map[string]interface{})
	tok, _ := data["token"].(map[string]interface{})
	s, _ := tok["accessToken"].(string)
	return s
}

func TestTradingFlow(t *testing.T) {
	app, fh := setupRouter(t)

	code, out := request(t, app, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "name": "Alice", "password": "secret12!",
	})
	require.Equal(t, 201, code)
	tok := tokenOf(out)
	require.NotEmpty(t, tok)

	code, _ = request(t, app, "GET", "/api/v1/portfolio", "", nil)
	assert.Equal(t, 401, code)

	fh.set("AAPL", 100)
	code, _ = request(t, app, "POST", "/api/v1/portfolio/buy", tok, map[string]interface{}{"symbol": "AAPL", "quantity": 10})
	require.Equal(t, 200, code)

	fh.set("AAPL", 120)
	code, out = request(t, app, "GET", "/api/v1/portfolio", tok, nil)
	require.Equal(t, 200, code)
	totals := out["data"].(map[string]interface{})["totals"].(map[string]interface{})
	assert.Equal(t, 1200.0, totals["totalCurrent"])
	assert.Equal(t, 200.0, totals["pnl"])

	code, out = request(t, app, "POST", "/api/v1/portfolio/sell", tok, map[string]interface{}{"symbol": "AAPL", "quantity": 4})
	require.Equal(t, 200, code)
	assert.Equal(t, 80.0, out["data"].(map[string]interface{})["realizedPnl"])

	code, out = request(t, app, "GET", "/api/v1/portfolio/trades", tok, nil)
	require.Equal(t, 200, code)
	assert.Len(t, out["data"], 2)

	code, _ = request(t, app, "GET", "/api/v1/admin/users", tok, nil)
	assert.Equal(t, 403, code)

	code, _ = request(t, app, "DELETE", "/api/v1/auth/logout", tok, nil)
	require.Equal(t, 200, code)
	code, _ = request(t, app, "GET", "/api/v1/portfolio", tok, nil)
	assert.Equal(t, 401, code)
}

func TestSeededAdmin(t *testing.T) {
	app, _ := setupRouter(t)

	code, out := request(t, app, "POST", "/api/v1/auth/login", "", map[string]string{"username": "root", "password": "rootpass1!"})
	require.Equal(t, 200, code)
	tok := tokenOf(out)

	code, out = request(t, app, "GET", "/api/v1/admin/users", tok, nil)
	require.Equal(t, 200, code)
	assert.Len(t, out["data"], 1)

	// admins hold the user tag too, so they can trade
	code, _ = request(t, app, "GET", "/api/v1/portfolio", tok, nil)
	assert.Equal(t, 200, code)
}

func TestLoginRateLimited(t *testing.T) {
	app, _ := setupRouter(t)
	var last int
	for i := 0; i <= loginMaxAttempts; i++ {
		last, _ = request(t, app, "POST", "/api/v1/auth/login", "", map[string]string{"username": "root", "password": "wrong"})
	}
	assert.Equal(t, 429, last)
}

func TestHealthThroughNetHTTP(t *testing.T) {
	app, _ := setupRouter(t)
	srv := httptest.NewServer(Handler(app))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health/json")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "connected", deps["finnhub"].(map[string]interface{})["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
}

func TestCreateApp_ProductionNeedsSecret(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Env = "production"
	cfg.JWTSecret = ""
	_, _, _, err := CreateApp(cfg)
	assert.Error(t, err)
}
