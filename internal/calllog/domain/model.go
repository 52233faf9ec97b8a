package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// CallLog records one phone call. Call logs carry no workflow status.
type CallLog struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	CallerName      string       `gorm:"type:text;not null"`
	CallerPhone     string       `gorm:"type:text"`
	Direction       string       `gorm:"type:text;not null"`
	DurationSeconds int          `gorm:"not null;default:0"`
	Summary         string       `gorm:"type:text"`
	FollowUp        bool         `gorm:"not null;default:false;index"`
	CalledAt        time.Time    `gorm:"not null;index"`
	LoggedBy        string       `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null"`
	UpdatedAt       time.Time    `gorm:"not null"`
}

func (CallLog) TableName() string { return "call_logs" }
