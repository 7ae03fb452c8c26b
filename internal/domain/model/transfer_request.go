package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the workflow status of a transfer request
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusApproved  TransferStatus = "approved"
	TransferStatusRejected  TransferStatus = "rejected"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusRejected || s == TransferStatusCancelled
}

// Scan implements sql.Scanner interface
func (s *TransferStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = TransferStatus(v)
	case []byte:
		*s = TransferStatus(v)
	default:
		*s = TransferStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s TransferStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// FeeStatus is the payment status of a transfer fee
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPaid    FeeStatus = "paid"
)

// TransferRequest moves a registration from its current owner to another user
type TransferRequest struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RegistrationID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"registration_id"`
	RequestedBy      uuid.UUID       `gorm:"type:uuid;not null" json:"requested_by"`
	FromRunnerID     *uuid.UUID      `gorm:"type:uuid" json:"from_runner_id,omitempty"`
	NewRunnerID      *uuid.UUID      `gorm:"type:uuid" json:"new_runner_id,omitempty"`
	NewRunnerCPF     *string         `gorm:"column:new_runner_cpf;size:14" json:"new_runner_cpf,omitempty"`
	NewRunnerEmail   *string         `gorm:"size:255" json:"new_runner_email,omitempty"`
	TransferFee      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"transfer_fee"`
	PaymentStatus    FeeStatus       `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	GatewayPaymentID *string         `gorm:"column:gateway_payment_id;size:100;index" json:"gateway_payment_id,omitempty"`
	Status           TransferStatus  `gorm:"size:20;not null;default:'pending'" json:"status"`
	Reason           *string         `json:"reason,omitempty"`
	AdminNotes       *string         `json:"admin_notes,omitempty"`
	ProcessedBy      *uuid.UUID      `gorm:"type:uuid" json:"processed_by,omitempty"`
	CreatedAt        time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:now()" json:"updated_at"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (TransferRequest) TableName() string {
	return "transfer_requests"
}

// RequiresFee reports whether the fee stage applies.
func (t *TransferRequest) RequiresFee() bool {
	return t.TransferFee.GreaterThan(decimal.Zero)
}

// FeeSettled reports whether the request may be executed as far as the fee is concerned.
func (t *TransferRequest) FeeSettled() bool {
	return !t.RequiresFee() || t.PaymentStatus == FeeStatusPaid
}
