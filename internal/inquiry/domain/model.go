package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/workflow"
)

const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusConverted = "converted"
	StatusClosed    = "closed"
)

var Statuses = workflow.NewStatusSet(StatusNew,
	[]string{StatusNew, StatusContacted, StatusConverted, StatusClosed},
	StatusConverted, StatusClosed,
)

var Sources = []string{"web", "email", "phone", "walk_in", "social", "other"}

// Inquiry is an inbound customer request awaiting follow-up.
type Inquiry struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	CustomerName  string        `gorm:"type:text;not null"`
	CustomerEmail string        `gorm:"type:text"`
	CustomerPhone string        `gorm:"type:text"`
	Subject       string        `gorm:"type:text;not null"`
	Message       string        `gorm:"type:text"`
	Source        string        `gorm:"type:text;not null"`
	Status        string        `gorm:"type:text;not null;index"`
	AssigneeID    *snowflake.ID `gorm:"index"`
	Notes         string        `gorm:"type:text"`
	StatusHistory workflow.History
	CreatedBy     string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Inquiry) TableName() string { return "inquiries" }
