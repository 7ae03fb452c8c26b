package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
)

// RegistrationRepository persists registrations. Getters return nil, nil when
// the row does not exist.
type RegistrationRepository interface {
	Create(ctx context.Context, registration *model.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	GetByConfirmationCode(ctx context.Context, code string) (*model.Registration, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	UpdatePaymentState(ctx context.Context, id uuid.UUID, status model.RegistrationStatus, paymentStatus model.PaymentStatus) error
	UpdateRunner(ctx context.Context, id uuid.UUID, runnerID uuid.UUID) error
	SetGatewayPayment(ctx context.Context, id uuid.UUID, gatewayPaymentID string, billingType string) error
}
