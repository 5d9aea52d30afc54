package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(100), WithTimeout(2*time.Second))
}

func TestQuote_ParsesResponseAndSendsToken(t *testing.T) {
	var gotPath, gotSymbol, gotToken string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSymbol = r.URL.Query().Get("symbol")
		gotToken = r.Header.Get("X-Finnhub-Token")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"c": 187.5, "d": 1.5, "dp": 0.8, "h": 188, "l": 185, "o": 186, "pc": 186, "t": 1711670340,
		})
	})

	price, err := c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 187.5, price)
	assert.Equal(t, "/quote", gotPath)
	assert.Equal(t, "AAPL", gotSymbol)
	assert.Equal(t, "test-key", gotToken)
}

func TestQuote_UnknownSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	})

	_, err := c.Quote(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoQuote))
}

func TestQuote_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"API limit reached"}`))
	})

	_, err := c.Quote(context.Background(), "AAPL")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "/quote", apiErr.Endpoint)
}

func TestMarketNews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "general", r.URL.Query().Get("category"))
		w.Write([]byte(`[{"category":"top news","datetime":1711670340,"headline":"Markets rally","id":7,"source":"Reuters","url":"https://x"}]`))
	})

	items, err := c.MarketNews(context.Background(), "general")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Markets rally", items[0].Headline)
	assert.Equal(t, int64(7), items[0].ID)
	assert.Equal(t, time.Unix(1711670340, 0).UTC(), items[0].Datetime)
}

func TestCandles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "D", q.Get("resolution"))
		assert.Equal(t, "1700000000", q.Get("from"))
		w.Write([]byte(`{"c":[10,11],"h":[12,13],"l":[9,10],"o":[9.5,10.5],"t":[1700000000,1700086400],"v":[100,200],"s":"ok"}`))
	})

	bars, err := c.Candles(context.Background(), "AAPL", "D", time.Unix(1700000000, 0), time.Unix(1700100000, 0))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 11.0, bars[1].Close)
	assert.Equal(t, 200.0, bars[1].Volume)
}

func TestCandles_NoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"s":"no_data"}`))
	})

	bars, err := c.Candles(context.Background(), "AAPL", "D", time.Unix(0, 0), time.Unix(1, 0))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestForexRatesAndSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forex/rates":
			w.Write([]byte(`{"base":"USD","quote":{"EUR":0.92,"GBP":0.79}}`))
		case "/search":
			w.Write([]byte(`{"count":1,"result":[{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	fx, err := c.ForexRates(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", fx.Base)
	assert.Equal(t, 0.92, fx.Rates["EUR"])

	hits, err := c.SymbolSearch(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "APPLE INC", hits[0].Description)
}

func TestQuote_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":1,"t":1}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Quote(ctx, "AAPL")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	var gotPath, gotExchange string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotExchange = r.URL.Query().Get("exchange")
		if r.Header.Get("X-Finnhub-Token") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"exchange":"US","isOpen":false,"session":"closed","timezone":"America/New_York"}`))
	})
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/stock/market-status", gotPath)
	assert.Equal(t, "US", gotExchange)

	bad := NewClient("other-key", WithBaseURL(c.baseURL))
	var apiErr *APIError
	require.True(t, errors.As(bad.Ping(context.Background()), &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
