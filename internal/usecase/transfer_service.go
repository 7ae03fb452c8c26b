package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/event"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// Paths that can execute a transfer
const (
	ExecutionPathAdmin   = "admin"
	ExecutionPathWebhook = "webhook"
	ExecutionPathDirect  = "direct"
)

var openStatuses = []model.TransferStatus{model.TransferStatusPending, model.TransferStatusApproved}

// CreateTransferInput is a request to hand a registration to someone else.
// The new runner is identified by CPF or e-mail.
type CreateTransferInput struct {
	RegistrationID uuid.UUID
	NewRunnerCPF   *string
	NewRunnerEmail *string
	Reason         *string
}

// DecisionInput is an admin verdict on a transfer request
type DecisionInput struct {
	Status      model.TransferStatus
	AdminNotes  *string
	NewRunnerID *uuid.UUID
}

// DirectTransferInput moves a registration without a prior request
type DirectTransferInput struct {
	NewRunnerID    *uuid.UUID
	NewRunnerCPF   *string
	NewRunnerEmail *string
	Reason         *string
	AdminNotes     *string
}

// TransferService runs the registration transfer workflow:
// request, optional fee payment, admin decision, execution.
type TransferService struct {
	tx               repository.Transactor
	transferRepo     repository.TransferRequestRepository
	registrationRepo repository.RegistrationRepository
	profileRepo      repository.ProfileRepository
	payments         *PaymentService
	notifier         *NotificationService
	logger           *zap.Logger
}

func NewTransferService(
	tx repository.Transactor,
	transferRepo repository.TransferRequestRepository,
	registrationRepo repository.RegistrationRepository,
	profileRepo repository.ProfileRepository,
	payments *PaymentService,
	notifier *NotificationService,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		tx:               tx,
		transferRepo:     transferRepo,
		registrationRepo: registrationRepo,
		profileRepo:      profileRepo,
		payments:         payments,
		notifier:         notifier,
		logger:           logger,
	}
}

// Create opens a transfer request. The fee is taken from settings, the
// snapshot the caller read for this invocation.
func (s *TransferService) Create(ctx context.Context, settings entity.SystemSettings, actor entity.Actor, input CreateTransferInput) (*model.TransferRequest, error) {
	if !settings.TransfersEnabled {
		return nil, domainErrors.ErrModuleDisabled
	}

	registration, err := s.registrationRepo.GetByID(ctx, input.RegistrationID)
	if err != nil {
		return nil, err
	}
	if registration == nil {
		return nil, domainErrors.ErrRegistrationNotFound
	}
	if !actor.IsAdmin && !registration.OwnedBy(actor.UserID) {
		return nil, domainErrors.ErrForbidden
	}
	if !transferable(registration) {
		return nil, domainErrors.ErrInvalidTransfer.WithMessage("Esta inscrição não pode ser transferida")
	}

	open, err := s.transferRepo.GetOpenByRegistrationID(ctx, registration.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, domainErrors.ErrTransferAlreadyOpen
	}

	cpf := normalizeCPF(input.NewRunnerCPF)
	email := normalizeEmail(input.NewRunnerEmail)

	var newRunnerID *uuid.UUID
	if cpf != nil || email != nil {
		profile, err := s.profileRepo.FindByCPFOrEmail(ctx, deref(cpf), deref(email))
		if err != nil {
			return nil, err
		}
		if profile != nil {
			if profile.UserID == registration.RunnerID {
				return nil, domainErrors.ErrInvalidTransfer
			}
			newRunnerID = &profile.UserID
		}
	}

	fee := settings.TransferFee
	if fee.IsNegative() {
		fee = decimal.Zero
	}

	request := &model.TransferRequest{
		ID:             uuid.New(),
		RegistrationID: registration.ID,
		RequestedBy:    actor.UserID,
		NewRunnerID:    newRunnerID,
		NewRunnerCPF:   cpf,
		NewRunnerEmail: email,
		TransferFee:    fee,
		PaymentStatus:  model.FeeStatusPending,
		Status:         model.TransferStatusPending,
		Reason:         input.Reason,
	}
	if err := s.transferRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info("Transfer request created",
		zap.String("transfer_request_id", request.ID.String()),
		zap.String("registration_id", registration.ID.String()),
		zap.String("requested_by", actor.UserID.String()),
		zap.String("transfer_fee", fee.StringFixed(2)),
		zap.Bool("new_runner_resolved", newRunnerID != nil))
	return request, nil
}

// GenerateFeePayment issues the gateway payment of the transfer fee. The fee
// stays pending until the webhook or a poll confirms it.
func (s *TransferService) GenerateFeePayment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.TransferView, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && request.RequestedBy != actor.UserID {
		return nil, domainErrors.ErrForbidden
	}
	if request.Status.IsTerminal() {
		return nil, domainErrors.ErrTransferNotOpen
	}
	if request.GatewayPaymentID != nil {
		return nil, domainErrors.ErrPaymentAlreadyExists
	}
	if !request.RequiresFee() {
		return nil, domainErrors.ErrNoFeeRequired
	}

	profile, err := s.profileRepo.GetByUserID(ctx, request.RequestedBy)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domainErrors.ErrProfileNotFound
	}

	customer, err := s.payments.CreateCustomer(ctx, request.RequestedBy, profile)
	if err != nil {
		return nil, err
	}

	record, err := s.payments.CreateTransferPayment(ctx, request.ID, customer.GatewayCustomerID, entity.PaymentRequest{
		Value:       request.TransferFee,
		Description: "Taxa de transferência de inscrição",
	})
	if err != nil {
		return nil, err
	}

	attached, err := s.transferRepo.AttachPayment(ctx, request.ID, record.GatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if !attached {
		s.logger.Warn("Fee payment created by a concurrent call, leaving it unattached",
			zap.String("transfer_request_id", request.ID.String()),
			zap.String("gateway_payment_id", record.GatewayPaymentID))
		return nil, domainErrors.ErrPaymentAlreadyExists
	}
	request.GatewayPaymentID = &record.GatewayPaymentID

	s.logger.Info("Transfer fee payment generated",
		zap.String("transfer_request_id", request.ID.String()),
		zap.String("gateway_payment_id", record.GatewayPaymentID))
	return &entity.TransferView{TransferRequest: request, Payment: paymentInfo(record)}, nil
}

// Get returns a transfer request. A pending fee with an issued payment is
// checked against the gateway first so a late webhook does not hold it back.
func (s *TransferService) Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.TransferView, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	isNewRunner := request.NewRunnerID != nil && *request.NewRunnerID == actor.UserID
	if !actor.IsAdmin && request.RequestedBy != actor.UserID && !isNewRunner {
		return nil, domainErrors.ErrForbidden
	}

	if request.RequiresFee() && request.PaymentStatus == model.FeeStatusPending && request.GatewayPaymentID != nil {
		s.pollFee(ctx, request)
	}

	view := &entity.TransferView{TransferRequest: request}
	if request.GatewayPaymentID != nil {
		record, err := s.payments.PaymentByGatewayID(ctx, *request.GatewayPaymentID)
		if err != nil {
			s.logger.Warn("Failed to load fee payment",
				zap.String("transfer_request_id", id.String()),
				zap.Error(err))
		}
		view.Payment = paymentInfo(record)
	}
	return view, nil
}

func (s *TransferService) pollFee(ctx context.Context, request *model.TransferRequest) {
	status, err := s.payments.GetPaymentStatus(ctx, *request.GatewayPaymentID)
	if err != nil {
		s.logger.Warn("Transfer fee poll failed",
			zap.String("transfer_request_id", request.ID.String()),
			zap.Error(err))
		return
	}
	if !event.IsSettled(status.Status) {
		return
	}
	if err := s.transferRepo.MarkFeePaid(ctx, request.ID); err != nil {
		s.logger.Warn("Failed to mark polled transfer fee paid",
			zap.String("transfer_request_id", request.ID.String()),
			zap.Error(err))
		return
	}
	request.PaymentStatus = model.FeeStatusPaid
	s.logger.Info("Transfer fee confirmed by poll",
		zap.String("transfer_request_id", request.ID.String()),
		zap.String("status", status.Status))
	s.notifier.TransferFeeConfirmed(ctx, request)
}

// Decide applies an admin verdict. Approval executes the transfer right away;
// if execution fails the request goes back to pending.
func (s *TransferService) Decide(ctx context.Context, actor entity.Actor, id uuid.UUID, input DecisionInput) (*model.TransferRequest, error) {
	if !actor.IsAdmin {
		return nil, domainErrors.ErrForbidden
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch input.Status {
	case model.TransferStatusApproved:
		return s.approve(ctx, actor, request, input)
	case model.TransferStatusRejected:
		return s.reject(ctx, actor, request, input)
	default:
		return nil, domainErrors.ErrInvalidDecision
	}
}

func (s *TransferService) approve(ctx context.Context, actor entity.Actor, request *model.TransferRequest, input DecisionInput) (*model.TransferRequest, error) {
	if request.Status == model.TransferStatusCompleted {
		s.logger.Info("Transfer already completed, approval is a no-op",
			zap.String("transfer_request_id", request.ID.String()))
		return request, nil
	}
	if request.Status.IsTerminal() {
		return nil, domainErrors.ErrTransferNotOpen
	}

	registration, err := s.registrationRepo.GetByID(ctx, request.RegistrationID)
	if err != nil {
		return nil, err
	}
	if registration == nil {
		return nil, domainErrors.ErrRegistrationNotFound
	}

	explicit := input.NewRunnerID
	if explicit == nil {
		explicit = request.NewRunnerID
	}
	newRunnerID, err := s.resolveRunner(ctx, explicit, request.NewRunnerCPF, request.NewRunnerEmail)
	if err != nil {
		return nil, err
	}
	if newRunnerID == registration.RunnerID {
		return nil, domainErrors.ErrInvalidTransfer
	}
	if !request.FeeSettled() {
		return nil, domainErrors.ErrFeeNotPaid
	}

	now := time.Now()
	moved, err := s.transferRepo.TransitionStatus(ctx, request.ID, openStatuses, repository.TransferUpdate{
		Status:      model.TransferStatusApproved,
		NewRunnerID: &newRunnerID,
		AdminNotes:  input.AdminNotes,
		ProcessedBy: &actor.UserID,
		ProcessedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		return s.settledElsewhere(ctx, request.ID)
	}

	execution, err := s.ExecuteIfNotCompleted(ctx, request.ID, newRunnerID, ExecutionPathAdmin)
	if err != nil {
		s.logger.Error("Transfer execution failed, reverting approval",
			zap.String("transfer_request_id", request.ID.String()),
			zap.Error(err))
		if _, revertErr := s.transferRepo.TransitionStatus(ctx, request.ID, []model.TransferStatus{model.TransferStatusApproved}, repository.TransferUpdate{
			Status: model.TransferStatusPending,
		}); revertErr != nil {
			s.logger.Error("Failed to revert transfer approval",
				zap.String("transfer_request_id", request.ID.String()),
				zap.Error(revertErr))
		}
		if errors.Is(err, domainErrors.ErrTransferNotOpen) || errors.Is(err, domainErrors.ErrInvalidTransfer) {
			return nil, err
		}
		return nil, domainErrors.ErrTransferFailed.WithCause(err)
	}
	return execution.Request, nil
}

func (s *TransferService) reject(ctx context.Context, actor entity.Actor, request *model.TransferRequest, input DecisionInput) (*model.TransferRequest, error) {
	now := time.Now()
	moved, err := s.transferRepo.TransitionStatus(ctx, request.ID, openStatuses, repository.TransferUpdate{
		Status:      model.TransferStatusRejected,
		AdminNotes:  input.AdminNotes,
		ProcessedBy: &actor.UserID,
		ProcessedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domainErrors.ErrTransferNotOpen
	}

	s.logger.Info("Transfer request rejected",
		zap.String("transfer_request_id", request.ID.String()),
		zap.String("processed_by", actor.UserID.String()))
	return s.load(ctx, request.ID)
}

// settledElsewhere explains a lost compare-and-set: a completed request makes
// the approval a no-op, anything else is a conflict.
func (s *TransferService) settledElsewhere(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.TransferStatusCompleted {
		return current, nil
	}
	return nil, domainErrors.ErrTransferNotOpen
}

// ExecuteIfNotCompleted is the only place ownership changes. In one
// transaction it moves the request from pending/approved to completed and
// points the registration at newRunnerID. When another caller already
// completed the request it returns Executed=false and no error.
func (s *TransferService) ExecuteIfNotCompleted(ctx context.Context, id uuid.UUID, newRunnerID uuid.UUID, path string) (*entity.TransferExecution, error) {
	var (
		executed     bool
		fromRunnerID uuid.UUID
		registration *model.Registration
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		request, err := s.transferRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if request == nil {
			return domainErrors.ErrTransferNotFound
		}
		switch request.Status {
		case model.TransferStatusCompleted:
			return nil
		case model.TransferStatusRejected, model.TransferStatusCancelled:
			return domainErrors.ErrTransferNotOpen
		}

		current, err := s.registrationRepo.GetByID(ctx, request.RegistrationID)
		if err != nil {
			return err
		}
		if current == nil {
			return domainErrors.ErrRegistrationNotFound
		}
		if current.RunnerID == newRunnerID {
			return domainErrors.ErrInvalidTransfer
		}
		fromRunnerID = current.RunnerID

		now := time.Now()
		won, err := s.transferRepo.TransitionStatus(ctx, id, openStatuses, repository.TransferUpdate{
			Status:       model.TransferStatusCompleted,
			FromRunnerID: &fromRunnerID,
			NewRunnerID:  &newRunnerID,
			ProcessedAt:  &now,
		})
		if err != nil {
			return err
		}
		if !won {
			latest, err := s.transferRepo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if latest != nil && latest.Status == model.TransferStatusCompleted {
				return nil
			}
			return domainErrors.ErrTransferNotOpen
		}

		// the request row is ours now; lock the registration and make sure
		// nobody moved it since it was read
		locked, err := s.registrationRepo.GetByIDForUpdate(ctx, request.RegistrationID)
		if err != nil {
			return err
		}
		if locked == nil || locked.RunnerID != fromRunnerID {
			return fmt.Errorf("registration %s changed owner during transfer", request.RegistrationID)
		}
		if err := s.registrationRepo.UpdateRunner(ctx, locked.ID, newRunnerID); err != nil {
			return err
		}

		registration = locked
		executed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !executed {
		s.logger.Info("Transfer already completed, execution skipped",
			zap.String("transfer_request_id", id.String()),
			zap.String("path", path))
		return &entity.TransferExecution{Request: request}, nil
	}

	metrics.TransfersCompleted.WithLabelValues(path).Inc()
	s.logger.Info("Registration transferred",
		zap.String("transfer_request_id", id.String()),
		zap.String("registration_id", registration.ID.String()),
		zap.String("from_runner_id", fromRunnerID.String()),
		zap.String("new_runner_id", newRunnerID.String()),
		zap.String("path", path))

	s.notifier.TransferCompleted(ctx, request, registration, fromRunnerID, newRunnerID, path)
	return &entity.TransferExecution{Request: request, Executed: true}, nil
}

// CompleteAfterFeePayment is the automatic transfer run once the fee webhook
// confirms payment. Errors leave the request pending for manual completion.
func (s *TransferService) CompleteAfterFeePayment(ctx context.Context, id uuid.UUID) (*entity.TransferExecution, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch request.Status {
	case model.TransferStatusCompleted:
		return &entity.TransferExecution{Request: request}, nil
	case model.TransferStatusRejected, model.TransferStatusCancelled:
		return nil, domainErrors.ErrTransferNotOpen.WithMessage("Solicitação %s está %s; a taxa paga exige tratamento manual", request.ID, request.Status)
	}

	newRunnerID, err := s.resolveRunner(ctx, request.NewRunnerID, request.NewRunnerCPF, request.NewRunnerEmail)
	if err != nil {
		return nil, err
	}
	if request.NewRunnerID == nil {
		if err := s.transferRepo.SetNewRunner(ctx, request.ID, newRunnerID); err != nil {
			s.logger.Warn("Failed to store resolved runner",
				zap.String("transfer_request_id", request.ID.String()),
				zap.Error(err))
		}
	}

	return s.ExecuteIfNotCompleted(ctx, request.ID, newRunnerID, ExecutionPathWebhook)
}

// DirectTransfer moves a registration on an admin's word. It works with the
// transfer module disabled and never charges a fee.
func (s *TransferService) DirectTransfer(ctx context.Context, actor entity.Actor, registrationID uuid.UUID, input DirectTransferInput) (*entity.TransferExecution, error) {
	if !actor.IsAdmin {
		return nil, domainErrors.ErrForbidden
	}

	registration, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if registration == nil {
		return nil, domainErrors.ErrRegistrationNotFound
	}

	cpf := normalizeCPF(input.NewRunnerCPF)
	email := normalizeEmail(input.NewRunnerEmail)
	newRunnerID, err := s.resolveRunner(ctx, input.NewRunnerID, cpf, email)
	if err != nil {
		return nil, err
	}
	if newRunnerID == registration.RunnerID {
		return nil, domainErrors.ErrInvalidTransfer
	}

	request := &model.TransferRequest{
		ID:             uuid.New(),
		RegistrationID: registration.ID,
		RequestedBy:    actor.UserID,
		NewRunnerID:    &newRunnerID,
		NewRunnerCPF:   cpf,
		NewRunnerEmail: email,
		TransferFee:    decimal.Zero,
		PaymentStatus:  model.FeeStatusPending,
		Status:         model.TransferStatusPending,
		Reason:         input.Reason,
		AdminNotes:     input.AdminNotes,
		ProcessedBy:    &actor.UserID,
	}
	if err := s.transferRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	execution, err := s.ExecuteIfNotCompleted(ctx, request.ID, newRunnerID, ExecutionPathDirect)
	if err != nil {
		if _, cancelErr := s.transferRepo.TransitionStatus(ctx, request.ID, openStatuses, repository.TransferUpdate{
			Status: model.TransferStatusCancelled,
		}); cancelErr != nil {
			s.logger.Error("Failed to cancel direct transfer request",
				zap.String("transfer_request_id", request.ID.String()),
				zap.Error(cancelErr))
		}
		return nil, domainErrors.ErrTransferFailed.WithCause(err)
	}
	return execution, nil
}

// resolveRunner picks the new owner: an explicit id wins, then the CPF/e-mail hints
func (s *TransferService) resolveRunner(ctx context.Context, explicit *uuid.UUID, cpf, email *string) (uuid.UUID, error) {
	if explicit != nil && *explicit != uuid.Nil {
		profile, err := s.profileRepo.GetByUserID(ctx, *explicit)
		if err != nil {
			return uuid.Nil, err
		}
		if profile == nil {
			return uuid.Nil, domainErrors.ErrNewRunnerNotFound
		}
		return profile.UserID, nil
	}

	if deref(cpf) == "" && deref(email) == "" {
		return uuid.Nil, domainErrors.ErrNewRunnerRequired
	}
	profile, err := s.profileRepo.FindByCPFOrEmail(ctx, deref(cpf), deref(email))
	if err != nil {
		return uuid.Nil, err
	}
	if profile == nil {
		return uuid.Nil, domainErrors.ErrNewRunnerNotFound
	}
	return profile.UserID, nil
}

func (s *TransferService) load(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	request, err := s.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domainErrors.ErrTransferNotFound
	}
	return request, nil
}

func transferable(registration *model.Registration) bool {
	switch registration.Status {
	case model.RegistrationStatusCancelled, model.RegistrationStatusRefunded, model.RegistrationStatusRefundRequested:
		return false
	}
	return true
}

func normalizeCPF(cpf *string) *string {
	if cpf == nil {
		return nil
	}
	digits := onlyDigits(*cpf)
	if digits == "" {
		return nil
	}
	return &digits
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
