package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 25 // requests per second; free tier allows 30
)

// Client talks to the Finnhub REST API. It implements Source.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents a non-200 answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Finnhub-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("endpoint", path).Msg("finnhub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type quoteResponse struct {
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	DP float64 `json:"dp"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"`
	T  int64   `json:"t"`
}

// GetQuote returns the full quote snapshot for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var r quoteResponse
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &r); err != nil {
		return nil, err
	}
	// Finnhub answers unknown symbols with 200 and an all-zero body.
	if r.C == 0 && r.T == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}
	return &Quote{
		Symbol:        symbol,
		Current:       r.C,
		Change:        r.D,
		ChangePercent: r.DP,
		High:          r.H,
		Low:           r.L,
		Open:          r.O,
		PreviousClose: r.PC,
		Timestamp:     time.Unix(r.T, 0).UTC(),
	}, nil
}

// Quote returns the current price for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (float64, error) {
	q, err := c.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Current, nil
}

type newsResponse struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// MarketNews returns the latest headlines for a category (general, forex, crypto, merger).
func (c *Client) MarketNews(ctx context.Context, category string) ([]NewsItem, error) {
	var raw []newsResponse
	if err := c.get(ctx, "/news", url.Values{"category": {category}}, &raw); err != nil {
		return nil, err
	}
	out := make([]NewsItem, 0, len(raw))
	for _, n := range raw {
		out = append(out, NewsItem{
			ID:       n.ID,
			Category: n.Category,
			Datetime: time.Unix(n.Datetime, 0).UTC(),
			Headline: n.Headline,
			Image:    n.Image,
			Related:  n.Related,
			Source:   n.Source,
			Summary:  n.Summary,
			URL:      n.URL,
		})
	}
	return out, nil
}

type candleResponse struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	T []int64   `json:"t"`
	V []float64 `json:"v"`
	S string    `json:"s"`
}

// Candles returns OHLCV bars for symbol between from and to. "no_data" yields an empty slice.
func (c *Client) Candles(ctx context.Context, symbol, resolution string, from, to time.Time) ([]Candle, error) {
	params := url.Values{
		"symbol":     {symbol},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}
	var r candleResponse
	if err := c.get(ctx, "/stock/candle", params, &r); err != nil {
		return nil, err
	}
	if r.S != "ok" {
		return []Candle{}, nil
	}
	n := len(r.T)
	for _, s := range [][]float64{r.C, r.H, r.L, r.O, r.V} {
		if len(s) < n {
			n = len(s)
		}
	}
	out := make([]Candle, n)
	for i := 0; i < n; i++ {
		out[i] = Candle{
			Time:   time.Unix(r.T[i], 0).UTC(),
			Open:   r.O[i],
			High:   r.H[i],
			Low:    r.L[i],
			Close:  r.C[i],
			Volume: r.V[i],
		}
	}
	return out, nil
}

type forexResponse struct {
	Base  string             `json:"base"`
	Quote map[string]float64 `json:"quote"`
}

// ForexRates returns conversion rates from base into every other currency.
func (c *Client) ForexRates(ctx context.Context, base string) (*ForexRates, error) {
	var r forexResponse
	if err := c.get(ctx, "/forex/rates", url.Values{"base": {base}}, &r); err != nil {
		return nil, err
	}
	if r.Base == "" {
		r.Base = base
	}
	return &ForexRates{Base: r.Base, Rates: r.Quote}, nil
}

type searchResponse struct {
	Count  int           `json:"count"`
	Result []SymbolMatch `json:"result"`
}

// SymbolSearch looks up symbols by free text.
func (c *Client) SymbolSearch(ctx context.Context, query string) ([]SymbolMatch, error) {
	var r searchResponse
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &r); err != nil {
		return nil, err
	}
	if r.Result == nil {
		return []SymbolMatch{}, nil
	}
	return r.Result, nil
}

// Ping checks that the provider answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	var status map[string]interface{}
	return c.get(ctx, "/stock/market-status", url.Values{"exchange": {"US"}}, &status)
}
