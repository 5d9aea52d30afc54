package ledger

import (
	"time"

	"stockfolio-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// HoldingValuation is a holding plus its per-unit gain.
type HoldingValuation struct {
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	BuyPrice     float64   `json:"buyPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	Gain         float64   `json:"gain"`
	GainPercent  *float64  `json:"gainPercent"`
	AddedAt      time.Time `json:"addedAt"`
}

// Totals aggregates a whole portfolio. PnlPercent is nil when nothing is invested.
type Totals struct {
	TotalInvested float64  `json:"totalInvested"`
	TotalCurrent  float64  `json:"totalCurrent"`
	Pnl           float64  `json:"pnl"`
	PnlPercent    *float64 `json:"pnlPercent"`
}

// Valuation is the Revalue result.
type Valuation struct {
	Totals   Totals             `json:"totals"`
	Holdings []HoldingValuation `json:"holdings"`
}

var hundred = decimal.NewFromInt(100)

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Valuate computes gains and totals from holdings. It has no side effects.
func Valuate(holdings []domain.Holding) *Valuation {
	v := &Valuation{Holdings: make([]HoldingValuation, 0, len(holdings))}
	invested := decimal.Zero
	current := decimal.Zero
	for _, h := range holdings {
		buy := dec(h.BuyPrice)
		cur := dec(h.CurrentPrice)
		qty := dec(h.Quantity)

		gain := cur.Sub(buy).Round(2)
		hv := HoldingValuation{
			Symbol:       h.Symbol,
			Quantity:     h.Quantity,
			BuyPrice:     h.BuyPrice,
			CurrentPrice: h.CurrentPrice,
			Gain:         gain.InexactFloat64(),
			AddedAt:      h.AddedAt,
		}
		if buy.IsPositive() {
			hv.GainPercent = percent(gain, buy)
		}
		v.Holdings = append(v.Holdings, hv)

		invested = invested.Add(buy.Mul(qty))
		current = current.Add(cur.Mul(qty))
	}

	pnl := current.Sub(invested).Round(2)
	v.Totals = Totals{
		TotalInvested: invested.InexactFloat64(),
		TotalCurrent:  current.InexactFloat64(),
		Pnl:           pnl.InexactFloat64(),
	}
	if invested.IsPositive() {
		v.Totals.PnlPercent = percent(pnl, invested)
	}
	return v
}

func percent(part, whole decimal.Decimal) *float64 {
	f := part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
	return &f
}

// weightedAverage folds a new lot into an average cost, rounded to 4 places.
func weightedAverage(oldQty, oldAvg, qty, price float64) float64 {
	newQty := dec(oldQty).Add(dec(qty))
	total := dec(oldAvg).Mul(dec(oldQty)).Add(dec(price).Mul(dec(qty)))
	return total.Div(newQty).Round(4).InexactFloat64()
}

// realizedPnl is (price - buyPrice) * qty rounded to cents.
func realizedPnl(buyPrice, price, qty float64) float64 {
	q := dec(qty)
	return dec(price).Mul(q).Sub(dec(buyPrice).Mul(q)).Round(2).InexactFloat64()
}
