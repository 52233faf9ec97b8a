package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/workflow"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusWaiting    = "waiting"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

var Statuses = workflow.NewStatusSet(StatusOpen,
	[]string{StatusOpen, StatusInProgress, StatusWaiting, StatusResolved, StatusClosed},
	StatusResolved, StatusClosed,
)

// Ticket is a customer support case.
type Ticket struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	Subject       string        `gorm:"type:text;not null"`
	Description   string        `gorm:"type:text"`
	CustomerName  string        `gorm:"type:text"`
	CustomerEmail string        `gorm:"type:text"`
	Priority      string        `gorm:"type:text;not null;index"`
	Status        string        `gorm:"type:text;not null;index"`
	AssigneeID    *snowflake.ID `gorm:"index"`
	ResolvedAt    *time.Time
	StatusHistory workflow.History
	CreatedBy     string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Ticket) TableName() string { return "support_tickets" }
