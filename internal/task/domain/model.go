package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/workflow"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

var Statuses = workflow.NewStatusSet(StatusTodo,
	[]string{StatusTodo, StatusInProgress, StatusDone, StatusCancelled},
	StatusDone, StatusCancelled,
)

type Task struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	Title         string        `gorm:"type:text;not null"`
	Description   string        `gorm:"type:text"`
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

func (Task) TableName() string { return "tasks" }
