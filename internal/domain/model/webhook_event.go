package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Error messages recorded on unresolved webhook events
const (
	WebhookErrorRegistrationNotFound = "Registration not found"
	WebhookErrorTransferNotFound     = "Transfer request not found"
)

// WebhookEvent is the durable receipt of an inbound gateway notification.
// Processed=false with ErrorMessage set needs manual follow-up; it is never
// retried automatically.
type WebhookEvent struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	GatewayEventID    *string        `gorm:"column:gateway_event_id;size:100;index" json:"gateway_event_id,omitempty"`
	EventType         string         `gorm:"size:60;not null;index" json:"event_type"`
	GatewayPaymentID  string         `gorm:"column:gateway_payment_id;size:100;not null;index" json:"gateway_payment_id"`
	RegistrationID    *uuid.UUID     `gorm:"type:uuid" json:"registration_id,omitempty"`
	TransferRequestID *uuid.UUID     `gorm:"type:uuid" json:"transfer_request_id,omitempty"`
	RawPayload        datatypes.JSON `gorm:"type:jsonb;not null" json:"raw_payload"`
	Processed         bool           `gorm:"not null;default:false" json:"processed"`
	ErrorMessage      *string        `json:"error_message,omitempty"`
	ProcessedAt       *time.Time     `json:"processed_at,omitempty"`
	CreatedAt         time.Time      `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "asaas_webhook_events"
}
