package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockfolio-backend/internal/application/market"
	"stockfolio-backend/internal/application/quotes"
	"stockfolio-backend/internal/pkg/cache"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	candleFrom, candleTo time.Time
	newsCalls            int
}

func (s *stubProvider) GetQuote(_ context.Context, symbol string) (*quotes.Quote, error) {
	if symbol == "ZZZZ" {
		return nil, quotes.ErrNoQuote
	}
	if symbol == "DOWN" {
		return nil, &quotes.APIError{StatusCode: 500, Message: "boom", Endpoint: "/quote"}
	}
	return &quotes.Quote{Symbol: symbol, Current: 187.5}, nil
}

func (s *stubProvider) MarketNews(_ context.Context, category string) ([]quotes.NewsItem, error) {
	s.newsCalls++
	return []quotes.NewsItem{{ID: 7, Category: category, Headline: "Stocks rally"}}, nil
}

func (s *stubProvider) Candles(_ context.Context, symbol, resolution string, from, to time.Time) ([]quotes.Candle, error) {
	s.candleFrom, s.candleTo = from, to
	return []quotes.Candle{{Time: from, Close: 10}, {Time: to, Close: 11}}, nil
}

func (s *stubProvider) ForexRates(_ context.Context, base string) (*quotes.ForexRates, error) {
	return &quotes.ForexRates{Base: base, Rates: map[string]float64{"EUR": 0.92}}, nil
}

func (s *stubProvider) SymbolSearch(_ context.Context, q string) ([]quotes.SymbolMatch, error) {
	if q == "fail" {
		return nil, errors.New("timeout")
	}
	return []quotes.SymbolMatch{{Symbol: "AAPL", Description: "APPLE INC"}}, nil
}

func setupMarketApp() (*fiber.App, *stubProvider) {
	p := &stubProvider{}
	h := &Handlers{Service: &market.Service{Provider: p, Cache: cache.NewMemory(time.Minute, nil)}}
	app := fiber.New()
	app.Get("/quote/:symbol", h.Quote)
	app.Get("/news", h.News)
	app.Get("/candles", h.Candles)
	app.Get("/fx", h.FX)
	app.Get("/search", h.Search)
	return app, p
}

func get(t *testing.T, app *fiber.App, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestQuote(t *testing.T) {
	app, _ := setupMarketApp()

	resp, out := get(t, app, "/quote/aapl")
	require.Equal(t, 200, resp.StatusCode)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "AAPL", data["symbol"])
	assert.Equal(t, 187.5, data["current"])

	resp, _ = get(t, app, "/quote/ZZZZ")
	assert.Equal(t, 404, resp.StatusCode)
	resp, _ = get(t, app, "/quote/DOWN")
	assert.Equal(t, 502, resp.StatusCode)
	resp, _ = get(t, app, "/quote/bad;symbol")
	assert.Equal(t, 400, resp.StatusCode)
}

func TestNews_CachedAndValidated(t *testing.T) {
	app, p := setupMarketApp()

	resp, out := get(t, app, "/news")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1.0, out["metadata"].(map[string]interface{})["count"])
	get(t, app, "/news?category=general")
	assert.Equal(t, 1, p.newsCalls)

	resp, _ = get(t, app, "/news?category=sports")
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCandles(t *testing.T) {
	app, p := setupMarketApp()

	resp, _ := get(t, app, "/candles?symbol=AAPL&resolution=D&from=1700000000&to=1700864000")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int64(1700000000), p.candleFrom.Unix())
	assert.Equal(t, int64(1700864000), p.candleTo.Unix())

	resp, _ = get(t, app, "/candles?symbol=AAPL&resolution=D&from=1700864000&to=1700000000")
	assert.Equal(t, 400, resp.StatusCode)
	resp, _ = get(t, app, "/candles?symbol=AAPL&resolution=2&from=1700000000&to=1700864000")
	assert.Equal(t, 400, resp.StatusCode)
	resp, _ = get(t, app, "/candles?symbol=AAPL&from=abc&to=1700864000")
	assert.Equal(t, 400, resp.StatusCode)
}

func TestFXAndSearch(t *testing.T) {
	app, _ := setupMarketApp()

	resp, out := get(t, app, "/fx")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "USD", out["data"].(map[string]interface{})["base"])

	resp, _ = get(t, app, "/fx?base=NOPE")
	assert.Equal(t, 400, resp.StatusCode)

	resp, _ = get(t, app, "/search?q=apple")
	assert.Equal(t, 200, resp.StatusCode)
	resp, _ = get(t, app, "/search")
	assert.Equal(t, 400, resp.StatusCode)
	resp, _ = get(t, app, "/search?q=fail")
	assert.Equal(t, 502, resp.StatusCode)
}
