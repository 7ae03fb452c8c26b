package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/event"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	confirmationCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	confirmationCodeLength   = 10

	paymentWarningGeneric = "Inscrição criada, mas não foi possível gerar o pagamento. Tente novamente em instantes."
)

// CreateRegistrationInput is what a caller sends to register for an event.
// RunnerID defaults to the caller; TotalAmount is priced by the catalog.
type CreateRegistrationInput struct {
	EventID     uuid.UUID
	CategoryID  uuid.UUID
	KitID       *uuid.UUID
	RunnerID    *uuid.UUID
	TotalAmount decimal.Decimal
	BillingType string
}

// RegistrationService owns the payment side of registrations
type RegistrationService struct {
	tx               repository.Transactor
	registrationRepo repository.RegistrationRepository
	transferRepo     repository.TransferRequestRepository
	profileRepo      repository.ProfileRepository
	payments         *PaymentService
	notifier         *NotificationService
	logger           *zap.Logger
}

func NewRegistrationService(
	tx repository.Transactor,
	registrationRepo repository.RegistrationRepository,
	transferRepo repository.TransferRequestRepository,
	profileRepo repository.ProfileRepository,
	payments *PaymentService,
	notifier *NotificationService,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		tx:               tx,
		registrationRepo: registrationRepo,
		transferRepo:     transferRepo,
		profileRepo:      profileRepo,
		payments:         payments,
		notifier:         notifier,
		logger:           logger,
	}
}

// Create stores the registration and issues its payment. Free registrations
// are confirmed immediately. A gateway failure does not fail the call: the
// registration comes back with payment.warning set.
func (s *RegistrationService) Create(ctx context.Context, actor entity.Actor, input CreateRegistrationInput) (*entity.RegistrationView, error) {
	if input.EventID == uuid.Nil || input.CategoryID == uuid.Nil {
		return nil, domainErrors.ErrInvalidInput.WithMessage("Evento e categoria são obrigatórios")
	}
	if input.TotalAmount.IsNegative() {
		return nil, domainErrors.ErrInvalidInput.WithMessage("Valor da inscrição não pode ser negativo")
	}

	runnerID := actor.UserID
	if input.RunnerID != nil && *input.RunnerID != uuid.Nil {
		runnerID = *input.RunnerID
	}

	code, err := gonanoid.Generate(confirmationCodeAlphabet, confirmationCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	registration := &model.Registration{
		ID:               uuid.New(),
		EventID:          input.EventID,
		CategoryID:       input.CategoryID,
		KitID:            input.KitID,
		RunnerID:         runnerID,
		RegisteredBy:     actor.UserID,
		TotalAmount:      input.TotalAmount,
		Status:           model.RegistrationStatusPending,
		PaymentStatus:    model.PaymentStatusPending,
		ConfirmationCode: code,
	}
	free := input.TotalAmount.IsZero()
	if free {
		registration.Status = model.RegistrationStatusConfirmed
		registration.PaymentStatus = model.PaymentStatusPaid
	}

	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		return nil, err
	}

	s.logger.Info("Registration created",
		zap.String("registration_id", registration.ID.String()),
		zap.String("event_id", registration.EventID.String()),
		zap.String("runner_id", registration.RunnerID.String()),
		zap.String("total_amount", registration.TotalAmount.StringFixed(2)),
		zap.Bool("free", free))

	view := &entity.RegistrationView{Registration: registration}
	if free {
		return view, nil
	}

	record, err := s.issuePayment(ctx, registration, input.BillingType)
	if err != nil {
		s.logger.Warn("Registration saved without payment",
			zap.String("registration_id", registration.ID.String()),
			zap.Error(err))
		view.Payment = &entity.PaymentInfo{
			Value:   registration.TotalAmount,
			Warning: paymentWarning(err),
		}
		return view, nil
	}
	view.Payment = paymentInfo(record)
	return view, nil
}

// Get returns the registration as viewerID sees it. A previous owner sees
// "transferred"; a pending payment is refreshed from the gateway first.
func (s *RegistrationService) Get(ctx context.Context, viewer entity.Actor, id uuid.UUID) (*entity.RegistrationView, error) {
	registration, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if registration == nil {
		return nil, domainErrors.ErrRegistrationNotFound
	}

	transferredAway := false
	if registration.RunnerID != viewer.UserID {
		transferredAway, err = s.transferRepo.HasCompletedTransferFrom(ctx, registration.ID, viewer.UserID)
		if err != nil {
			return nil, err
		}
	}
	if !viewer.IsAdmin && !registration.OwnedBy(viewer.UserID) && !transferredAway {
		return nil, domainErrors.ErrForbidden
	}

	if registration.PaymentStatus == model.PaymentStatusPending && registration.GatewayPaymentID != nil {
		registration = s.refresh(ctx, registration)
	}

	projected := *registration
	view := &entity.RegistrationView{Registration: &projected}
	if transferredAway {
		projected.Status = model.RegistrationStatusTransferred
		return view, nil
	}

	record, err := s.payments.ActivePayment(ctx, registration.ID)
	if err != nil {
		s.logger.Warn("Failed to load active payment", zap.String("registration_id", id.String()), zap.Error(err))
	}
	view.Payment = paymentInfo(record)
	return view, nil
}

// EnsurePayment (re)issues the payment of a registration that still awaits one
func (s *RegistrationService) EnsurePayment(ctx context.Context, actor entity.Actor, id uuid.UUID, billingType string) (*entity.RegistrationView, error) {
	registration, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if registration == nil {
		return nil, domainErrors.ErrRegistrationNotFound
	}
	if !actor.IsAdmin && !registration.OwnedBy(actor.UserID) {
		return nil, domainErrors.ErrForbidden
	}
	payable := registration.Status == model.RegistrationStatusPending &&
		(registration.PaymentStatus == model.PaymentStatusPending || registration.PaymentStatus == model.PaymentStatusFailed)
	if !payable || !registration.TotalAmount.IsPositive() {
		return nil, domainErrors.ErrRegistrationNotPayable
	}

	record, err := s.issuePayment(ctx, registration, billingType)
	if err != nil {
		return nil, err
	}
	return &entity.RegistrationView{Registration: registration, Payment: paymentInfo(record)}, nil
}

// ApplyPaymentEvent merges ev into the registration under a row lock and
// re-reads the row. changed is false when the merge left the state as it was.
func (s *RegistrationService) ApplyPaymentEvent(ctx context.Context, id uuid.UUID, ev event.PaymentEvent) (registration *model.Registration, changed bool, err error) {
	transition, ok := event.Decide(ev)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.registrationRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domainErrors.ErrRegistrationNotFound
		}
		registration = current
		if !ok {
			return nil
		}

		status, paymentStatus := transition.Apply(current.Status, current.PaymentStatus)
		if status == current.Status && paymentStatus == current.PaymentStatus {
			return nil
		}
		if err := s.registrationRepo.UpdatePaymentState(ctx, id, status, paymentStatus); err != nil {
			return err
		}

		reread, err := s.registrationRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if reread == nil || reread.Status != status || reread.PaymentStatus != paymentStatus {
			return fmt.Errorf("registration %s did not persist %s/%s", id, status, paymentStatus)
		}

		s.logger.Info("Registration payment state updated",
			zap.String("registration_id", id.String()),
			zap.String("event", ev.Type()),
			zap.String("from_status", string(current.Status)),
			zap.String("to_status", string(status)),
			zap.String("from_payment_status", string(current.PaymentStatus)),
			zap.String("to_payment_status", string(paymentStatus)))

		registration = reread
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return registration, changed, nil
}

// refresh polls the gateway and applies the polled status. Failures leave the
// registration as read.
func (s *RegistrationService) refresh(ctx context.Context, registration *model.Registration) *model.Registration {
	status, err := s.payments.GetPaymentStatus(ctx, *registration.GatewayPaymentID)
	if err != nil {
		s.logger.Warn("Payment status poll failed",
			zap.String("registration_id", registration.ID.String()),
			zap.String("gateway_payment_id", *registration.GatewayPaymentID),
			zap.Error(err))
		return registration
	}

	updated, changed, err := s.ApplyPaymentEvent(ctx, registration.ID, event.FromPolledStatus(status.Status))
	if err != nil {
		s.logger.Warn("Failed to apply polled payment status",
			zap.String("registration_id", registration.ID.String()),
			zap.String("status", status.Status),
			zap.Error(err))
		return registration
	}
	if changed {
		s.notifier.RegistrationPaymentUpdated(ctx, updated, *registration.GatewayPaymentID, event.TypePaymentUpdated)
	}
	return updated
}

func (s *RegistrationService) issuePayment(ctx context.Context, registration *model.Registration, billingType string) (*model.PaymentRecord, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, registration.RegisteredBy)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domainErrors.ErrProfileNotFound
	}

	customer, err := s.payments.CreateCustomer(ctx, registration.RegisteredBy, profile)
	if err != nil {
		return nil, err
	}

	record, err := s.payments.CreatePayment(ctx, registration.ID, customer.GatewayCustomerID, entity.PaymentRequest{
		Value:       registration.TotalAmount,
		Description: "Inscrição " + registration.ConfirmationCode,
		BillingType: billingType,
	})
	if err != nil {
		return nil, err
	}

	if err := s.registrationRepo.SetGatewayPayment(ctx, registration.ID, record.GatewayPaymentID, record.BillingType); err != nil {
		s.logger.Warn("Failed to link payment to registration",
			zap.String("registration_id", registration.ID.String()),
			zap.String("gateway_payment_id", record.GatewayPaymentID),
			zap.Error(err))
	} else {
		registration.GatewayPaymentID = &record.GatewayPaymentID
		registration.PaymentMethod = &record.BillingType
	}
	return record, nil
}

func paymentWarning(err error) string {
	if errors.Is(err, domainErrors.ErrInvalidTaxID) {
		return domainErrors.ErrInvalidTaxID.Message
	}
	return paymentWarningGeneric
}
