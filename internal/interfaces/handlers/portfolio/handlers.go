package portfolio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"stockfolio-backend/internal/application/ledger"
	"stockfolio-backend/internal/application/market"
	"stockfolio-backend/internal/middleware"
	"stockfolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Prices from the provider are quoted in US dollars.
const baseCurrency = "USD"

// Handlers serves the caller's own portfolio. Market is only needed for ?currency=.
type Handlers struct {
	Ledger *ledger.Ledger
	Market *market.Service
}

type TradeRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

type convertedTotals struct {
	Currency      string  `json:"currency"`
	Rate          float64 `json:"rate"`
	TotalInvested string  `json:"totalInvested"`
	TotalCurrent  string  `json:"totalCurrent"`
	Pnl           string  `json:"pnl"`
}

type valuationBody struct {
	*ledger.Valuation
	Converted *convertedTotals `json:"converted,omitempty"`
}

// fail maps ledger errors onto the error envelope.
func fail(c *fiber.Ctx, err error, op string) error {
	var exceeds *ledger.ExceedsHoldingError
	switch {
	case errors.As(err, &exceeds):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, fiber.Map{
			"symbol":    exceeds.Symbol,
			"requested": exceeds.Requested,
			"available": exceeds.Available,
		})
	case errors.Is(err, ledger.ErrInvalidQuantity), errors.Is(err, ledger.ErrInvalidSymbol):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, ledger.ErrConcurrentUpdate):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, ledger.ErrQuoteUnavailable):
		log.Warn().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg(op)
		return response.Error(c, ledger.ErrQuoteUnavailable.Error(), fiber.StatusBadGateway, nil)
	}
	log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg(op)
	return response.Internal(c)
}

// Valuation GET /api/v1/portfolio refreshes prices and returns holdings with totals.
func (h *Handlers) Valuation(c *fiber.Ctx) error {
	id := middleware.GetIdentity(c)
	v, err := h.Ledger.Revalue(c.UserContext(), id.Username)
	if err != nil {
		return fail(c, err, "revalue")
	}
	body := valuationBody{Valuation: v}

	if cur := strings.ToUpper(strings.TrimSpace(c.Query("currency"))); cur != "" && h.Market != nil {
		conv, err := h.Market.Convert(c.UserContext(), baseCurrency, cur, v.Totals.TotalInvested, v.Totals.TotalCurrent, v.Totals.Pnl)
		switch {
		case errors.Is(err, market.ErrInvalidCurrency):
			return response.BadRequest(c, err.Error())
		case err != nil:
			log.Warn().Err(err).Str("currency", cur).Msg("convert totals")
			return response.Error(c, market.ErrRateUnavailable.Error(), fiber.StatusBadGateway, nil)
		}
		body.Converted = &convertedTotals{
			Currency:      cur,
			Rate:          conv[0].Rate,
			TotalInvested: conv[0].Display,
			TotalCurrent:  conv[1].Display,
			Pnl:           conv[2].Display,
		}
	}
	return response.Success(c, "Portfolio fetched", body, nil)
}

// Buy POST /api/v1/portfolio/buy
func (h *Handlers) Buy(c *fiber.Ctx) error {
	var req TradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	res, err := h.Ledger.Buy(c.UserContext(), middleware.GetIdentity(c).Username, req.Symbol, req.Quantity)
	if err != nil {
		return fail(c, err, "buy")
	}
	return response.Success(c, "Stock bought", res, nil)
}

// Sell POST /api/v1/portfolio/sell. Oversized sells get 400 with details.available.
func (h *Handlers) Sell(c *fiber.Ctx) error {
	var req TradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	res, err := h.Ledger.Sell(c.UserContext(), middleware.GetIdentity(c).Username, req.Symbol, req.Quantity)
	if err != nil {
		return fail(c, err, "sell")
	}
	return response.Success(c, "Stock sold", res, nil)
}

// Trades GET /api/v1/portfolio/trades?limit=
func (h *Handlers) Trades(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return response.BadRequest(c, "limit must not be negative")
	}
	trades, err := h.Ledger.Trades(c.UserContext(), middleware.GetIdentity(c).Username, limit)
	if err != nil {
		return fail(c, err, "trades")
	}
	return response.Success(c, "Trades fetched", trades, fiber.Map{"count": len(trades)})
}

// Export GET /api/v1/portfolio/export streams the valuation as CSV.
func (h *Handlers) Export(c *fiber.Ctx) error {
	id := middleware.GetIdentity(c)
	v, err := h.Ledger.Revalue(c.UserContext(), id.Username)
	if err != nil {
		return fail(c, err, "export")
	}
	var buf bytes.Buffer
	if err := ledger.ExportCSV(&buf, v); err != nil {
		return fail(c, err, "export")
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="portfolio-%s.csv"`, id.Username))
	return c.Send(buf.Bytes())
}
