package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegistrationStatus is the lifecycle status of a registration
type RegistrationStatus string

const (
	RegistrationStatusPending         RegistrationStatus = "pending"
	RegistrationStatusConfirmed       RegistrationStatus = "confirmed"
	RegistrationStatusCancelled       RegistrationStatus = "cancelled"
	RegistrationStatusRefundRequested RegistrationStatus = "refund_requested"
	RegistrationStatusRefunded        RegistrationStatus = "refunded"
	// RegistrationStatusTransferred is never stored; it is how a registration
	// looks to a previous owner after a completed transfer.
	RegistrationStatusTransferred RegistrationStatus = "transferred"
)

// Scan implements sql.Scanner interface
func (s *RegistrationStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = RegistrationStatus(v)
	case []byte:
		*s = RegistrationStatus(v)
	default:
		*s = RegistrationStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s RegistrationStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentStatus is the local payment status of a registration
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		*s = PaymentStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Registration is one athlete's claim on an event category (and optional kit)
type Registration struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	EventID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"event_id"`
	CategoryID       uuid.UUID          `gorm:"type:uuid;not null" json:"category_id"`
	KitID            *uuid.UUID         `gorm:"type:uuid" json:"kit_id,omitempty"`
	RunnerID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"runner_id"`
	RegisteredBy     uuid.UUID          `gorm:"type:uuid;not null;index" json:"registered_by"`
	TotalAmount      decimal.Decimal    `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	Status           RegistrationStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	PaymentStatus    PaymentStatus      `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	PaymentMethod    *string            `gorm:"size:20" json:"payment_method,omitempty"`
	ConfirmationCode string             `gorm:"size:20;not null;uniqueIndex" json:"confirmation_code"`
	GatewayPaymentID *string            `gorm:"column:gateway_payment_id;size:100;index" json:"gateway_payment_id,omitempty"`
	CreatedAt        time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Registration) TableName() string {
	return "registrations"
}

// OwnedBy reports whether userID may act as the owner of the registration.
func (r *Registration) OwnedBy(userID uuid.UUID) bool {
	return r.RunnerID == userID || r.RegisteredBy == userID
}
