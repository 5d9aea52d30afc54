package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Portfolio is owned 1:1 by a username. Holdings are persisted as a single JSON document;
// Version is bumped on every write and used as a compare-and-swap guard.
type Portfolio struct {
	PortfolioID uuid.UUID                    `gorm:"column:portfolio_id;type:uuid;primaryKey" json:"portfolio_id"`
	Username    string                       `gorm:"column:username;type:varchar(32);not null;uniqueIndex" json:"username"`
	Holdings    datatypes.JSONSlice[Holding] `gorm:"column:holdings;not null" json:"holdings"`
	Version     int64                        `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt   time.Time                    `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time                    `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Portfolio) TableName() string {
	return "Portfolios"
}

func (p *Portfolio) BeforeCreate(tx *gorm.DB) error {
	if p.PortfolioID == uuid.Nil {
		p.PortfolioID = uuid.New()
	}
	if p.Holdings == nil {
		p.Holdings = datatypes.JSONSlice[Holding]{}
	}
	return nil
}

// Find returns the index of the holding for symbol, or -1.
func (p *Portfolio) Find(symbol string) int {
	for i := range p.Holdings {
		if p.Holdings[i].Symbol == symbol {
			return i
		}
	}
	return -1
}
