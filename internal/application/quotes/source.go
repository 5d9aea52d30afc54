package quotes

import (
	"context"
	"errors"
)

// ErrNoQuote is returned when the provider has no price for the symbol.
var ErrNoQuote = errors.New("no quote for symbol")

// Source resolves a ticker to its current price.
type Source interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, symbol string) (float64, error)

func (f SourceFunc) Quote(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}
