package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/workflow"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusOnHold     = "on_hold"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var Statuses = workflow.NewStatusSet(StatusOpen,
	[]string{StatusOpen, StatusInProgress, StatusOnHold, StatusCompleted, StatusCancelled},
	StatusCompleted, StatusCancelled,
)

const NumberPrefix = "WO-"

type WorkOrder struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	Number        string        `gorm:"type:text;not null;uniqueIndex"`
	CustomerName  string        `gorm:"type:text;not null"`
	CustomerPhone string        `gorm:"type:text"`
	Description   string        `gorm:"type:text;not null"`
	Priority      string        `gorm:"type:text;not null"`
	DueDate       *time.Time    `gorm:"index"`
	Status        string        `gorm:"type:text;not null;index"`
	AssigneeID    *snowflake.ID `gorm:"index"`
	CompletedAt   *time.Time
	StatusHistory workflow.History
	CreatedBy     string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (WorkOrder) TableName() string { return "work_orders" }
