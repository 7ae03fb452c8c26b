package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
)

// TransferUpdate holds the columns written together with a status change.
// Nil fields are left untouched.
type TransferUpdate struct {
	Status       model.TransferStatus
	FromRunnerID *uuid.UUID
	NewRunnerID  *uuid.UUID
	AdminNotes   *string
	ProcessedBy  *uuid.UUID
	ProcessedAt  *time.Time
}

// TransferRequestRepository persists transfer requests
type TransferRequestRepository interface {
	// Create fails with ErrTransferAlreadyOpen when another pending/approved request exists.
	Create(ctx context.Context, request *model.TransferRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error)
	GetOpenByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.TransferRequest, error)
	// HasCompletedTransferFrom reports whether userID gave the registration away.
	HasCompletedTransferFrom(ctx context.Context, registrationID, userID uuid.UUID) (bool, error)
	// AttachPayment stores the fee payment id only if none is attached yet.
	AttachPayment(ctx context.Context, id uuid.UUID, gatewayPaymentID string) (bool, error)
	MarkFeePaid(ctx context.Context, id uuid.UUID) error
	SetNewRunner(ctx context.Context, id uuid.UUID, runnerID uuid.UUID) error
	// TransitionStatus applies update only while the current status is one of
	// from. It reports whether a row changed; false means another caller won.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []model.TransferStatus, update TransferUpdate) (bool, error)
}
