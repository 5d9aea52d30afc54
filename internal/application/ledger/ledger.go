// Package ledger applies buy and sell instructions to a user's holdings and values them.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"stockfolio-backend/internal/application/quotes"
	"stockfolio-backend/internal/domain"
	"stockfolio-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultRevalueConcurrency = 8

// Ledger owns the trade and valuation rules. Trades on one username are serialized
// in-process; Store.Save guards against writers in other processes.
type Ledger struct {
	Quotes quotes.Source
	Store  Store
	// Now defaults to time.Now.
	Now func() time.Time
	// RevalueConcurrency bounds parallel quote fetches; 0 means 8.
	RevalueConcurrency int

	locksMu sync.Mutex
	locks   map[string]*userLock
}

// userLock is dropped from Ledger.locks once nobody holds or waits on it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// TradeResult is returned by Buy and Sell. Holding is nil after a full liquidation.
type TradeResult struct {
	Side        string            `json:"side"`
	Symbol      string            `json:"symbol"`
	Quantity    float64           `json:"quantity"`
	Price       float64           `json:"price"`
	RealizedPnl *float64          `json:"realizedPnl,omitempty"`
	Holding     *domain.Holding   `json:"holding"`
	Portfolio   *domain.Portfolio `json:"portfolio"`
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Ledger) lock(username string) func() {
	l.locksMu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[username]
	if !ok {
		ul = &userLock{}
		l.locks[username] = ul
	}
	ul.refs++
	l.locksMu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.locksMu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, username)
		}
		l.locksMu.Unlock()
	}
}

func checkTrade(symbol string, quantity float64) (string, error) {
	if !validation.IsPositiveFinite(quantity) {
		return "", ErrInvalidQuantity
	}
	symbol = validation.NormalizeSymbol(symbol)
	if !validation.IsValidSymbol(symbol) {
		return "", ErrInvalidSymbol
	}
	return symbol, nil
}

// tradePrice never substitutes a placeholder: a failed or unusable quote aborts the trade.
func (l *Ledger) tradePrice(ctx context.Context, symbol string) (float64, error) {
	price, err := l.Quotes.Quote(ctx, symbol)
	if err != nil {
		return 0, &quoteError{symbol: symbol, cause: err}
	}
	if !validation.IsPositiveFinite(price) {
		return 0, &quoteError{symbol: symbol, cause: errors.New("non-positive price")}
	}
	return price, nil
}

// Buy adds quantity of symbol at the current quote, folding it into the average cost.
func (l *Ledger) Buy(ctx context.Context, username, symbol string, quantity float64) (*TradeResult, error) {
	symbol, err := checkTrade(symbol, quantity)
	if err != nil {
		return nil, err
	}
	unlock := l.lock(username)
	defer unlock()

	p, err := l.Store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	price, err := l.tradePrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	now := l.now()
	idx := p.Find(symbol)
	if idx < 0 {
		p.Holdings = append(p.Holdings, domain.Holding{
			Symbol:       symbol,
			Quantity:     quantity,
			BuyPrice:     price,
			CurrentPrice: price,
			AddedAt:      now,
		})
		idx = len(p.Holdings) - 1
	} else {
		h := &p.Holdings[idx]
		h.BuyPrice = weightedAverage(h.Quantity, h.BuyPrice, quantity, price)
		h.Quantity = dec(h.Quantity).Add(dec(quantity)).InexactFloat64()
		h.CurrentPrice = price
	}

	trade := &domain.Trade{
		Username:  username,
		Side:      domain.TradeSideBuy,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		CreatedAt: now,
	}
	if err := l.Store.Save(ctx, p, trade); err != nil {
		return nil, err
	}
	holding := p.Holdings[idx]
	log.Info().Str("username", username).Str("symbol", symbol).
		Float64("quantity", quantity).Float64("price", price).
		Float64("avg_price", holding.BuyPrice).Msg("buy executed")

	return &TradeResult{
		Side:      domain.TradeSideBuy,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		Holding:   &holding,
		Portfolio: p,
	}, nil
}

// Sell removes quantity of symbol at the current quote and reports the realized P&L
// against the average cost. The average cost itself is never changed by a sell.
func (l *Ledger) Sell(ctx context.Context, username, symbol string, quantity float64) (*TradeResult, error) {
	symbol, err := checkTrade(symbol, quantity)
	if err != nil {
		return nil, err
	}
	unlock := l.lock(username)
	defer unlock()

	p, err := l.Store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	idx := p.Find(symbol)
	if idx < 0 {
		return nil, ErrNotFound
	}
	held := p.Holdings[idx]
	remaining := dec(held.Quantity).Sub(dec(quantity))
	if remaining.IsNegative() {
		return nil, &ExceedsHoldingError{Symbol: symbol, Requested: quantity, Available: held.Quantity}
	}

	price, err := l.tradePrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	pnl := realizedPnl(held.BuyPrice, price, quantity)

	var holding *domain.Holding
	if remaining.IsZero() {
		p.Holdings = append(p.Holdings[:idx:idx], p.Holdings[idx+1:]...)
	} else {
		h := &p.Holdings[idx]
		h.Quantity = remaining.InexactFloat64()
		h.CurrentPrice = price
		cp := *h
		holding = &cp
	}

	now := l.now()
	trade := &domain.Trade{
		Username:    username,
		Side:        domain.TradeSideSell,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		RealizedPnl: &pnl,
		CreatedAt:   now,
	}
	if err := l.Store.Save(ctx, p, trade); err != nil {
		return nil, err
	}
	log.Info().Str("username", username).Str("symbol", symbol).
		Float64("quantity", quantity).Float64("price", price).
		Float64("realized_pnl", pnl).Bool("closed", holding == nil).Msg("sell executed")

	return &TradeResult{
		Side:        domain.TradeSideSell,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		RealizedPnl: &pnl,
		Holding:     holding,
		Portfolio:   p,
	}, nil
}

// Revalue refreshes currentPrice from one quote per distinct symbol. A symbol whose
// quote fails keeps its previous price. Quantities and average costs are untouched.
// Quotes are fetched before the trade lock is taken; the prices are then applied to a
// fresh read of the portfolio.
func (l *Ledger) Revalue(ctx context.Context, username string) (*Valuation, error) {
	p, err := l.Store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	prices := l.fetchPrices(ctx, distinctSymbols(p.Holdings))

	unlock := l.lock(username)
	defer unlock()

	if p, err = l.Store.FindByUsername(ctx, username); err != nil {
		return nil, err
	}
	if applyPrices(p, prices) {
		err = l.Store.Save(ctx, p, nil)
		if errors.Is(err, ErrConcurrentUpdate) {
			// Another process traded in between; apply the same prices to its document.
			if p, err = l.Store.FindByUsername(ctx, username); err != nil {
				return nil, err
			}
			if applyPrices(p, prices) {
				err = l.Store.Save(ctx, p, nil)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return Valuate(p.Holdings), nil
}

// Trades returns the user's trade journal, newest first.
func (l *Ledger) Trades(ctx context.Context, username string, limit int) ([]domain.Trade, error) {
	return l.Store.Trades(ctx, username, limit)
}

func distinctSymbols(holdings []domain.Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.Symbol]; ok {
			continue
		}
		seen[h.Symbol] = struct{}{}
		out = append(out, h.Symbol)
	}
	return out
}

func (l *Ledger) fetchPrices(ctx context.Context, symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))
	var mu sync.Mutex
	var g errgroup.Group
	limit := l.RevalueConcurrency
	if limit <= 0 {
		limit = defaultRevalueConcurrency
	}
	g.SetLimit(limit)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			price, err := l.Quotes.Quote(ctx, sym)
			if err != nil || !validation.IsPositiveFinite(price) {
				log.Warn().Err(err).Str("symbol", sym).Float64("price", price).Msg("keeping stale price")
				return nil
			}
			mu.Lock()
			prices[sym] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return prices
}

// applyPrices reports whether any currentPrice changed.
func applyPrices(p *domain.Portfolio, prices map[string]float64) bool {
	changed := false
	for i := range p.Holdings {
		price, ok := prices[p.Holdings[i].Symbol]
		if !ok || p.Holdings[i].CurrentPrice == price {
			continue
		}
		p.Holdings[i].CurrentPrice = price
		changed = true
	}
	return changed
}
