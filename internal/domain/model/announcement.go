package model

import (
	"time"

	"github.com/google/uuid"
)

// Announcement kinds written by this service
const (
	AnnouncementKindTransferSent     = "transfer_sent"
	AnnouncementKindTransferReceived = "transfer_received"
)

// Announcement is a notification addressed to one user
type Announcement struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TargetUserID *uuid.UUID `gorm:"type:uuid;index" json:"target_user_id,omitempty"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Message      string     `gorm:"not null" json:"message"`
	Kind         string     `gorm:"size:40" json:"kind"`
	CreatedAt    time.Time  `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Announcement) TableName() string {
	return "announcements"
}
