// Package market proxies news, candles, FX rates and symbol search from the quote provider.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockfolio-backend/internal/application/quotes"
	"stockfolio-backend/internal/pkg/cache"
	"stockfolio-backend/internal/pkg/validation"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSymbol     = errors.New("Invalid symbol")
	ErrInvalidCategory   = errors.New("Invalid news category")
	ErrInvalidResolution = errors.New("Invalid candle resolution")
	ErrInvalidRange      = errors.New("Invalid time range")
	ErrInvalidCurrency   = errors.New("Unknown currency code")
	ErrMissingQuery      = errors.New("Search query is required")
	ErrRateUnavailable   = errors.New("Exchange rate unavailable")
)

var newsCategories = map[string]bool{"general": true, "forex": true, "crypto": true, "merger": true}

var resolutions = map[string]bool{"1": true, "5": true, "15": true, "30": true, "60": true, "D": true, "W": true, "M": true}

// Provider is the subset of the Finnhub client the market module calls.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*quotes.Quote, error)
	MarketNews(ctx context.Context, category string) ([]quotes.NewsItem, error)
	Candles(ctx context.Context, symbol, resolution string, from, to time.Time) ([]quotes.Candle, error)
	ForexRates(ctx context.Context, base string) (*quotes.ForexRates, error)
	SymbolSearch(ctx context.Context, query string) ([]quotes.SymbolMatch, error)
}

// Service serves market data. Everything but single quotes goes through Cache.
type Service struct {
	Provider Provider
	Cache    cache.Cache
}

// cached returns the value stored under key or fills it from fetch.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, c cache.Cache, key string, fetch func() (T, error)) (T, error) {
	if c != nil {
		if b, ok, err := c.Get(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("market cache read failed")
		} else if ok {
			var v T
			if err := json.Unmarshal(b, &v); err == nil {
				return v, nil
			}
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	if c != nil {
		if b, err := json.Marshal(v); err == nil {
			if err := c.Set(ctx, key, b); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("market cache write failed")
			}
		}
	}
	return v, nil
}

// Quote returns the live snapshot for symbol. Quotes are never cached.
func (s *Service) Quote(ctx context.Context, symbol string) (*quotes.Quote, error) {
	symbol = validation.NormalizeSymbol(symbol)
	if !validation.IsValidSymbol(symbol) {
		return nil, ErrInvalidSymbol
	}
	return s.Provider.GetQuote(ctx, symbol)
}

// News returns headlines for category; empty means "general".
func (s *Service) News(ctx context.Context, category string) ([]quotes.NewsItem, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "general"
	}
	if !newsCategories[category] {
		return nil, ErrInvalidCategory
	}
	return cached(ctx, s.Cache, "news:"+category, func() ([]quotes.NewsItem, error) {
		return s.Provider.MarketNews(ctx, category)
	})
}

// CandlesInput selects a bar series.
type CandlesInput struct {
	Symbol     string
	Resolution string
	From       time.Time
	To         time.Time
}

func (s *Service) Candles(ctx context.Context, in CandlesInput) ([]quotes.Candle, error) {
	symbol := validation.NormalizeSymbol(in.Symbol)
	if !validation.IsValidSymbol(symbol) {
		return nil, ErrInvalidSymbol
	}
	res := strings.ToUpper(strings.TrimSpace(in.Resolution))
	if res == "" {
		res = "D"
	}
	if !resolutions[res] {
		return nil, ErrInvalidResolution
	}
	if in.From.IsZero() || in.To.IsZero() || !in.From.Before(in.To) {
		return nil, ErrInvalidRange
	}
	key := fmt.Sprintf("candles:%s:%s:%d:%d", symbol, res, in.From.Unix(), in.To.Unix())
	return cached(ctx, s.Cache, key, func() ([]quotes.Candle, error) {
		return s.Provider.Candles(ctx, symbol, res, in.From, in.To)
	})
}

// FX returns rates from base into every other currency.
func (s *Service) FX(ctx context.Context, base string) (*quotes.ForexRates, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = money.USD
	}
	if money.GetCurrency(base) == nil {
		return nil, ErrInvalidCurrency
	}
	return cached(ctx, s.Cache, "fx:"+base, func() (*quotes.ForexRates, error) {
		return s.Provider.ForexRates(ctx, base)
	})
}

func (s *Service) Search(ctx context.Context, query string) ([]quotes.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMissingQuery
	}
	return cached(ctx, s.Cache, "search:"+strings.ToLower(query), func() ([]quotes.SymbolMatch, error) {
		return s.Provider.SymbolSearch(ctx, query)
	})
}

// Converted is an amount expressed in another currency.
type Converted struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
	Display  string  `json:"display"`
}

// Convert turns amounts in from into to using the cached FX table. The returned
// slice has one entry per input amount.
func (s *Service) Convert(ctx context.Context, from, to string, amounts ...float64) ([]Converted, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	cur := money.GetCurrency(to)
	if cur == nil {
		return nil, ErrInvalidCurrency
	}
	rate := decimal.NewFromInt(1)
	if from != to {
		fx, err := s.FX(ctx, from)
		if err != nil {
			return nil, err
		}
		r, ok := fx.Rates[to]
		if !ok || !validation.IsPositiveFinite(r) {
			return nil, ErrRateUnavailable
		}
		rate = decimal.NewFromFloat(r)
	}

	out := make([]Converted, 0, len(amounts))
	for _, a := range amounts {
		v := decimal.NewFromFloat(a).Mul(rate).Round(int32(cur.Fraction))
		minor := v.Shift(int32(cur.Fraction)).IntPart()
		out = append(out, Converted{
			Currency: to,
			Rate:     rate.InexactFloat64(),
			Amount:   v.InexactFloat64(),
			Display:  money.New(minor, to).Display(),
		})
	}
	return out, nil
}
