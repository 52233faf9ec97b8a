package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/opsdesk/internal/workflow"
)

const (
	StatusCollected  = "collected"
	StatusDeposited  = "deposited"
	StatusReconciled = "reconciled"
)

var Statuses = workflow.NewStatusSet(StatusCollected,
	[]string{StatusCollected, StatusDeposited, StatusReconciled},
	StatusReconciled,
)

const (
	MethodCash     = "cash"
	MethodCheque   = "cheque"
	MethodTransfer = "transfer"
	MethodCard     = "card"
)

var Methods = []string{MethodCash, MethodCheque, MethodTransfer, MethodCard}

const DefaultCurrency = "JMD"

// Collection is money received from a customer outside the till.
type Collection struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	CustomerName  string          `gorm:"type:text;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency      string          `gorm:"type:text;not null"`
	Method        string          `gorm:"type:text;not null;index"`
	Reference     string          `gorm:"type:text"`
	Status        string          `gorm:"type:text;not null;index"`
	Notes         string          `gorm:"type:text"`
	CollectedBy   string          `gorm:"type:text;index"`
	CollectedAt   time.Time       `gorm:"not null;index"`
	StatusHistory workflow.History
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Collection) TableName() string { return "cash_collections" }
