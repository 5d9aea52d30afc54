package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("Portfolio or holding not found")
	ErrInvalidQuantity  = errors.New("Quantity must be a positive number")
	ErrInvalidSymbol    = errors.New("Invalid symbol")
	ErrQuoteUnavailable = errors.New("Price unavailable")
	ErrConcurrentUpdate = errors.New("Portfolio was modified concurrently, retry the trade")
)

// ExceedsHoldingError rejects a sell larger than the held quantity.
type ExceedsHoldingError struct {
	Symbol    string
	Requested float64
	Available float64
}

func (e *ExceedsHoldingError) Error() string {
	return fmt.Sprintf("Cannot sell %g %s, only %g held", e.Requested, e.Symbol, e.Available)
}

// Is lets errors.Is(err, ErrInvalidQuantity) match oversized sells.
func (e *ExceedsHoldingError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

type quoteError struct {
	symbol string
	cause  error
}

func (e *quoteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrQuoteUnavailable.Error(), e.symbol, e.cause)
}

func (e *quoteError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrQuoteUnavailable}
	}
	return []error{ErrQuoteUnavailable, e.cause}
}
