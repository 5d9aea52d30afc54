package domain

import "time"

// Holding is one symbol's position inside a Portfolio. It is stored inside the
// portfolio's holdings document, not in its own table. JSON names are the client contract.
type Holding struct {
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	BuyPrice     float64   `json:"buyPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	AddedAt      time.Time `json:"addedAt"`
}
