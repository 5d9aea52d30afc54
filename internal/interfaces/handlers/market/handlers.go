package market

import (
	"errors"
	"strconv"
	"time"

	"stockfolio-backend/internal/application/market"
	"stockfolio-backend/internal/application/quotes"
	"stockfolio-backend/internal/middleware"
	"stockfolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *market.Service
}

func fail(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, market.ErrInvalidSymbol), errors.Is(err, market.ErrInvalidCategory),
		errors.Is(err, market.ErrInvalidResolution), errors.Is(err, market.ErrInvalidRange),
		errors.Is(err, market.ErrInvalidCurrency), errors.Is(err, market.ErrMissingQuery):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, quotes.ErrNoQuote):
		return response.Error(c, "No quote for symbol", fiber.StatusNotFound, nil)
	}
	log.Warn().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg(op)
	return response.Error(c, "Market data provider unavailable", fiber.StatusBadGateway, nil)
}

// Quote GET /api/v1/market/quote/:symbol
func (h *Handlers) Quote(c *fiber.Ctx) error {
	q, err := h.Service.Quote(c.UserContext(), c.Params("symbol"))
	if err != nil {
		return fail(c, err, "quote")
	}
	return response.Success(c, "Quote fetched", q, nil)
}

// News GET /api/v1/market/news?category=general
func (h *Handlers) News(c *fiber.Ctx) error {
	items, err := h.Service.News(c.UserContext(), c.Query("category"))
	if err != nil {
		return fail(c, err, "news")
	}
	return response.Success(c, "News fetched", items, fiber.Map{"count": len(items)})
}

// unixQuery reads a unix-seconds query parameter; missing or malformed yields the zero time.
func unixQuery(c *fiber.Ctx, key string) time.Time {
	n, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}

// Candles GET /api/v1/market/candles?symbol=&resolution=&from=&to= (from/to in unix seconds)
func (h *Handlers) Candles(c *fiber.Ctx) error {
	bars, err := h.Service.Candles(c.UserContext(), market.CandlesInput{
		Symbol:     c.Query("symbol"),
		Resolution: c.Query("resolution"),
		From:       unixQuery(c, "from"),
		To:         unixQuery(c, "to"),
	})
	if err != nil {
		return fail(c, err, "candles")
	}
	return response.Success(c, "Candles fetched", bars, fiber.Map{"count": len(bars)})
}

// FX GET /api/v1/market/fx?base=USD
func (h *Handlers) FX(c *fiber.Ctx) error {
	rates, err := h.Service.FX(c.UserContext(), c.Query("base"))
	if err != nil {
		return fail(c, err, "fx")
	}
	return response.Success(c, "Rates fetched", rates, nil)
}

// Search GET /api/v1/market/search?q=
func (h *Handlers) Search(c *fiber.Ctx) error {
	matches, err := h.Service.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return fail(c, err, "search")
	}
	return response.Success(c, "Search results", matches, fiber.Map{"count": len(matches)})
}
