package repository

import (
	"context"
	"errors"
	"time"

	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) exchangeratedomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rate *exchangeratedomain.ExchangeRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) Latest(ctx context.Context, base, quote string, at time.Time) (*exchangeratedomain.ExchangeRate, error) {
	var rate exchangeratedomain.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("base_currency = ? AND quote_currency = ? AND effective_at <= ?", base, quote, at).
		Order("effective_at desc, id desc").
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) List(ctx context.Context, base, quote string, limit int) ([]exchangeratedomain.ExchangeRate, error) {
	var items []exchangeratedomain.ExchangeRate
	stmt := r.db.WithContext(ctx).
		Where("base_currency = ? AND quote_currency = ?", base, quote).
		Order("effective_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Find(&items).Error
	return items, err
}
