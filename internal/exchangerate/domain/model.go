package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseCurrency  = "USD"
	DefaultQuoteCurrency = "JMD"
)

// ExchangeRate is one entry in the rate history. The current rate is the
// latest entry whose EffectiveAt is not in the future.
type ExchangeRate struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	BaseCurrency  string          `gorm:"type:text;not null"`
	QuoteCurrency string          `gorm:"type:text;not null"`
	Rate          decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	EffectiveAt   time.Time       `gorm:"not null;index"`
	Source        string          `gorm:"type:text;not null"`
	CreatedBy     *string         `gorm:"type:text"`
	CreatedAt     time.Time       `gorm:"not null"`
}

func (ExchangeRate) TableName() string { return "exchange_rates" }
