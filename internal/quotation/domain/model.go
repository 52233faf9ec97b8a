package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/opsdesk/internal/workflow"
)

const (
	StatusPending  = "pending"
	StatusQuoted   = "quoted"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

var Statuses = workflow.NewStatusSet(StatusPending,
	[]string{StatusPending, StatusQuoted, StatusAccepted, StatusRejected, StatusExpired},
	StatusAccepted, StatusRejected, StatusExpired,
)

const DefaultCurrency = "JMD"

// Quotation is a customer's request for a price on an item we would
// source for them.
type Quotation struct {
	ID               snowflake.ID     `gorm:"primaryKey"`
	CustomerName     string           `gorm:"type:text;not null"`
	CustomerEmail    string           `gorm:"type:text"`
	CustomerPhone    string           `gorm:"type:text"`
	ItemDescription  string           `gorm:"type:text;not null"`
	ItemURL          string           `gorm:"type:text"`
	Quantity         int              `gorm:"not null;default:1"`
	QuotedAmount     *decimal.Decimal `gorm:"type:decimal(18,2)"`
	Currency         string           `gorm:"type:text;not null"`
	PricingSessionID *snowflake.ID    `gorm:"index"`
	ValidUntil       *time.Time
	Status           string        `gorm:"type:text;not null;index"`
	AssigneeID       *snowflake.ID `gorm:"index"`
	Notes            string        `gorm:"type:text"`
	StatusHistory    workflow.History
	CreatedBy        string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (Quotation) TableName() string { return "quotation_requests" }

// Number is the customer-facing quotation number.
func (q *Quotation) Number() string {
	return "QR-" + q.ID.String()
}
