package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
)

// PaymentStatusUpdate mirrors gateway fields onto a ledger row. Nil fields are left untouched.
type PaymentStatusUpdate struct {
	Status        string
	PaymentDate   *time.Time
	TransactionID *string
	QRCodePayload *string
	QRCodeImage   *string
	QRCodeID      *string
}

// PaymentRecordRepository is the payment ledger
type PaymentRecordRepository interface {
	Create(ctx context.Context, record *model.PaymentRecord) error
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*model.PaymentRecord, error)
	GetActiveByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.PaymentRecord, error)
	// UpdateStatus returns false when no ledger row has the gateway payment id.
	UpdateStatus(ctx context.Context, gatewayPaymentID string, update PaymentStatusUpdate) (bool, error)
}

// CustomerRepository maps users to gateway customers
type CustomerRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error)
	// Create is a no-op when the user already has a mapping.
	Create(ctx context.Context, customer *model.Customer) error
}
