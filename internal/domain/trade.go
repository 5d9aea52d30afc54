package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade is one journal entry, written in the same transaction as the portfolio update.
type Trade struct {
	TradeID     uuid.UUID `gorm:"column:trade_id;type:uuid;primaryKey" json:"trade_id"`
	Username    string    `gorm:"column:username;type:varchar(32);not null;index" json:"username"`
	Side        string    `gorm:"column:side;type:varchar(4);not null" json:"side"`
	Symbol      string    `gorm:"column:symbol;type:varchar(16);not null" json:"symbol"`
	Quantity    float64   `gorm:"column:quantity;not null" json:"quantity"`
	Price       float64   `gorm:"column:price;type:decimal(18,4);not null" json:"price"`
	RealizedPnl *float64  `gorm:"column:realized_pnl;type:decimal(18,2)" json:"realizedPnl"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (Trade) TableName() string {
	return "Trades"
}

func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.TradeID == uuid.Nil {
		t.TradeID = uuid.New()
	}
	return nil
}
