package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Category groups resold goods under a single markup percentage.
type Category struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	Name          string          `gorm:"type:text;not null"`
	Slug          string          `gorm:"type:text;not null;uniqueIndex"`
	MarkupPercent decimal.Decimal `gorm:"type:decimal(7,2);not null"`
	IsActive      bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

var maxMarkup = decimal.NewFromInt(500)

func ValidateMarkup(markup decimal.Decimal) error {
	if markup.IsNegative() || markup.GreaterThan(maxMarkup) {
		return ErrInvalidMarkup
	}
	return nil
}
