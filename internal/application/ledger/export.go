package ledger

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"symbol", "quantity", "buyPrice", "currentPrice", "gain", "gainPercent", "addedAt"}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// ExportCSV writes one row per holding followed by a TOTAL row whose
// buyPrice/currentPrice/gain/gainPercent columns carry totalInvested/totalCurrent/pnl/pnlPercent.
func ExportCSV(w io.Writer, v *Valuation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, h := range v.Holdings {
		row := []string{
			h.Symbol,
			formatFloat(h.Quantity),
			formatFloat(h.BuyPrice),
			formatFloat(h.CurrentPrice),
			formatFloat(h.Gain),
			formatOptional(h.GainPercent),
			h.AddedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	total := []string{
		"TOTAL",
		"",
		formatFloat(v.Totals.TotalInvested),
		formatFloat(v.Totals.TotalCurrent),
		formatFloat(v.Totals.Pnl),
		formatOptional(v.Totals.PnlPercent),
		"",
	}
	if err := cw.Write(total); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
