package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Mode string

const (
	ModeInvoice Mode = "invoice"
	ModeAmazon  Mode = "amazon"
)

func (m Mode) Valid() bool {
	return m == ModeInvoice || m == ModeAmazon
}

// LineItem is one supplier invoice line. LocalCost, SellingPrice and
// FinalPrice are derived; a nil FinalPrice marks the item as not yet priced.
type LineItem struct {
	Description   string           `json:"description"`
	Quantity      int              `json:"quantity"`
	CategoryID    *string          `json:"category_id,omitempty"`
	CategoryName  string           `json:"category_name,omitempty"`
	Cost          decimal.Decimal  `json:"cost"`
	MarkupPercent decimal.Decimal  `json:"markup_percent"`
	LocalCost     *decimal.Decimal `json:"local_cost,omitempty"`
	SellingPrice  *decimal.Decimal `json:"selling_price,omitempty"`
	FinalPrice    *decimal.Decimal `json:"final_price,omitempty"`
}

// Priced reports whether the derived fields have been filled in.
func (i LineItem) Priced() bool {
	return i.FinalPrice != nil
}

// AmazonItem is a marketplace product priced in USD. A nil MarkupPercent
// selects the tier default.
type AmazonItem struct {
	Title           string           `json:"title"`
	URL             string           `json:"url,omitempty"`
	Quantity        int              `json:"quantity"`
	CostUSD         decimal.Decimal  `json:"cost_usd"`
	MarkupPercent   *decimal.Decimal `json:"markup_percent,omitempty"`
	AmazonPrice     *decimal.Decimal `json:"amazon_price,omitempty"`
	SellingPriceUSD *decimal.Decimal `json:"selling_price_usd,omitempty"`
	SellingPriceJMD *decimal.Decimal `json:"selling_price_jmd,omitempty"`
}

// Session is a saved, immutable set of reviewed pricing results.
type Session struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	Reference       string          `gorm:"type:text;not null;uniqueIndex"`
	Mode            Mode            `gorm:"type:text;not null;index"`
	Title           string          `gorm:"type:text;not null"`
	Supplier        string          `gorm:"type:text"`
	ExchangeRate    decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	RoundingUnit    int64           `gorm:"not null;default:0"`
	Items           datatypes.JSON  `gorm:"not null"`
	ItemCount       int             `gorm:"not null;default:0"`
	TotalFinalPrice decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	CreatedBy       *string         `gorm:"type:text"`
	CreatedAt       time.Time       `gorm:"not null"`
}

func (Session) TableName() string { return "pricing_sessions" }

func (s *Session) InvoiceItems() ([]LineItem, error) {
	var items []LineItem
	if len(s.Items) == 0 {
		return items, nil
	}
	err := json.Unmarshal(s.Items, &items)
	return items, err
}

func (s *Session) AmazonItems() ([]AmazonItem, error) {
	var items []AmazonItem
	if len(s.Items) == 0 {
		return items, nil
	}
	err := json.Unmarshal(s.Items, &items)
	return items, err
}
