package ledger

import (
	"context"
	"errors"

	"stockfolio-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 500
)

// Store loads and persists portfolios as whole documents.
type Store interface {
	// FindByUsername returns ErrNotFound when the user has no portfolio.
	FindByUsername(ctx context.Context, username string) (*domain.Portfolio, error)
	// Save overwrites the holdings document if p.Version still matches the stored one,
	// appends trade (when non-nil) in the same transaction and bumps p.Version.
	// A version mismatch returns ErrConcurrentUpdate.
	Save(ctx context.Context, p *domain.Portfolio, trade *domain.Trade) error
	// Trades returns the journal for username, newest first.
	Trades(ctx context.Context, username string, limit int) ([]domain.Trade, error)
}

// GormStore is the Store backed by the Portfolios and Trades tables.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) FindByUsername(ctx context.Context, username string) (*domain.Portfolio, error) {
	var p domain.Portfolio
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) Save(ctx context.Context, p *domain.Portfolio, trade *domain.Trade) error {
	if p.Holdings == nil {
		p.Holdings = []domain.Holding{}
	}
	next := p.Version + 1
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Portfolio{}).
			Where("portfolio_id = ? AND version = ?", p.PortfolioID, p.Version).
			Updates(map[string]interface{}{
				"holdings": p.Holdings,
				"version":  next,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		if trade != nil {
			if err := tx.Create(trade).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.Version = next
	return nil
}

func (s *GormStore) Trades(ctx context.Context, username string, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = defaultTradesLimit
	}
	if limit > maxTradesLimit {
		limit = maxTradesLimit
	}
	var list []domain.Trade
	err := s.DB.WithContext(ctx).
		Where("username = ?", username).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "createdAt"}, Desc: true}).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
