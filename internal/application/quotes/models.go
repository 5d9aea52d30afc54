package quotes

import "time"

// Quote is the provider's snapshot for one symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Current       float64   `json:"current"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previousClose"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewsItem is one market news headline.
type NewsItem struct {
	ID       int64     `json:"id"`
	Category string    `json:"category"`
	Datetime time.Time `json:"datetime"`
	Headline string    `json:"headline"`
	Image    string    `json:"image"`
	Related  string    `json:"related"`
	Source   string    `json:"source"`
	Summary  string    `json:"summary"`
	URL      string    `json:"url"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ForexRates maps quote currency to the rate against Base.
type ForexRates struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// SymbolMatch is one symbol search hit.
type SymbolMatch struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
}
