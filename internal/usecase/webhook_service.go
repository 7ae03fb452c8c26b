package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/event"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/infrastructure/metrics"
	pkgerrors "github.com/thekiqdev/raceflow-hub-sub001/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const webhookDateLayout = "2006-01-02"

// Outcome labels of metrics.WebhookEvents
const (
	webhookOutcomeProcessed  = "processed"
	webhookOutcomeIgnored    = "ignored"
	webhookOutcomeUnresolved = "unresolved"
	webhookOutcomeFailed     = "failed"
)

// WebhookService ingests gateway notifications. Every notification is stored
// before it is interpreted; whatever happens afterwards the gateway is told
// the delivery was received.
type WebhookService struct {
	tx               repository.Transactor
	webhookRepo      repository.WebhookEventRepository
	paymentRepo      repository.PaymentRecordRepository
	registrationRepo repository.RegistrationRepository
	transferRepo     repository.TransferRequestRepository
	registrations    *RegistrationService
	transfers        *TransferService
	notifier         *NotificationService
	validate         *validator.Validate
	logger           *zap.Logger
}

func NewWebhookService(
	tx repository.Transactor,
	webhookRepo repository.WebhookEventRepository,
	paymentRepo repository.PaymentRecordRepository,
	registrationRepo repository.RegistrationRepository,
	transferRepo repository.TransferRequestRepository,
	registrations *RegistrationService,
	transfers *TransferService,
	notifier *NotificationService,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		tx:               tx,
		webhookRepo:      webhookRepo,
		paymentRepo:      paymentRepo,
		registrationRepo: registrationRepo,
		transferRepo:     transferRepo,
		registrations:    registrations,
		transfers:        transfers,
		notifier:         notifier,
		validate:         validator.New(),
		logger:           logger,
	}
}

// Handle stores and processes one notification. Only a malformed body or a
// failure to store it is returned as an error; processing problems are
// recorded on the stored event and reported in the outcome.
func (s *WebhookService) Handle(ctx context.Context, raw []byte) (*entity.WebhookOutcome, error) {
	payload, err := s.parse(raw)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", webhookOutcomeFailed).Inc()
		return nil, err
	}

	stored := &model.WebhookEvent{
		ID:               uuid.New(),
		EventType:        payload.Event,
		GatewayPaymentID: payload.Payment.ID,
		RawPayload:       datatypes.JSON(raw),
	}
	if payload.ID != "" {
		stored.GatewayEventID = &payload.ID
	}
	if err := s.webhookRepo.Create(ctx, stored); err != nil {
		s.logger.Error("Failed to store webhook event",
			zap.String("event", payload.Event),
			zap.String("gateway_payment_id", payload.Payment.ID),
			zap.Error(err))
		metrics.WebhookEvents.WithLabelValues(payload.Event, webhookOutcomeFailed).Inc()
		return nil, pkgerrors.NewAppError(pkgerrors.ErrUnavailable, "failed to store webhook event", err)
	}

	s.logger.Info("Webhook received",
		zap.String("webhook_event_id", stored.ID.String()),
		zap.String("event", payload.Event),
		zap.String("gateway_payment_id", payload.Payment.ID),
		zap.String("status", payload.Payment.Status),
		zap.String("external_reference", payload.Payment.ExternalReference))

	return s.dispatch(ctx, stored.ID, payload), nil
}

// Reprocess runs a stored event that was left unprocessed through the same
// path again.
func (s *WebhookService) Reprocess(ctx context.Context, id uuid.UUID) (*entity.WebhookOutcome, error) {
	stored, err := s.webhookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, pkgerrors.NewAppError(pkgerrors.ErrNotFound, "webhook event not found", nil)
	}
	if stored.Processed {
		return &entity.WebhookOutcome{EventID: stored.ID, Processed: true, Message: "Already processed"}, nil
	}

	payload, err := s.parse(stored.RawPayload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Reprocessing webhook event",
		zap.String("webhook_event_id", stored.ID.String()),
		zap.String("event", stored.EventType))
	return s.dispatch(ctx, stored.ID, payload), nil
}

// ListUnprocessed returns events awaiting follow-up, oldest first
func (s *WebhookService) ListUnprocessed(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.webhookRepo.ListUnprocessed(ctx, limit)
}

func (s *WebhookService) parse(raw []byte) (*entity.AsaasWebhook, error) {
	var payload entity.AsaasWebhook
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domainErrors.ErrInvalidInput.WithCause(err)
	}
	if err := s.validate.Struct(&payload); err != nil {
		return nil, domainErrors.ErrInvalidInput.WithCause(err)
	}
	return &payload, nil
}

func (s *WebhookService) dispatch(ctx context.Context, eventID uuid.UUID, payload *entity.AsaasWebhook) *entity.WebhookOutcome {
	var (
		outcome *entity.WebhookOutcome
		label   string
	)
	if transferID, isTransfer, ok := payload.Payment.TransferRequestID(); isTransfer {
		outcome, label = s.handleTransfer(ctx, eventID, payload, transferID, ok)
	} else {
		outcome, label = s.handleRegistration(ctx, eventID, payload)
	}
	metrics.WebhookEvents.WithLabelValues(payload.Event, label).Inc()
	return outcome
}

func (s *WebhookService) handleRegistration(ctx context.Context, eventID uuid.UUID, payload *entity.AsaasWebhook) (*entity.WebhookOutcome, string) {
	ev := event.Parse(payload.Event, payload.Payment.Status)

	var (
		resolution   repository.WebhookResolution
		registration *model.Registration
		resolved     bool
		changed      bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		s.mirrorLedger(ctx, payload.Payment)

		found, err := s.resolveRegistration(ctx, payload.Payment)
		if err != nil {
			return err
		}
		if found == nil {
			return s.webhookRepo.MarkFailed(ctx, eventID, resolution, model.WebhookErrorRegistrationNotFound)
		}
		resolved = true
		resolution.RegistrationID = &found.ID

		registration, changed, err = s.registrations.ApplyPaymentEvent(ctx, found.ID, ev)
		if err != nil {
			return err
		}
		return s.webhookRepo.MarkProcessed(ctx, eventID, resolution)
	})
	if err != nil {
		s.logger.Error("Webhook processing failed",
			zap.String("webhook_event_id", eventID.String()),
			zap.String("event", payload.Event),
			zap.Error(err))
		s.markFailed(ctx, eventID, resolution, err.Error())
		return &entity.WebhookOutcome{EventID: eventID, Message: err.Error()}, webhookOutcomeFailed
	}

	if !resolved {
		s.logger.Warn("Webhook did not match any registration",
			zap.String("webhook_event_id", eventID.String()),
			zap.String("gateway_payment_id", payload.Payment.ID),
			zap.String("external_reference", payload.Payment.ExternalReference))
		return &entity.WebhookOutcome{EventID: eventID, Message: model.WebhookErrorRegistrationNotFound}, webhookOutcomeUnresolved
	}

	if changed {
		s.notifier.RegistrationPaymentUpdated(ctx, registration, payload.Payment.ID, ev.Type())
	}
	label := webhookOutcomeProcessed
	if _, unhandled := ev.(event.Unhandled); unhandled {
		label = webhookOutcomeIgnored
	}
	return &entity.WebhookOutcome{EventID: eventID, Processed: true, Message: "Webhook processed"}, label
}

func (s *WebhookService) handleTransfer(ctx context.Context, eventID uuid.UUID, payload *entity.AsaasWebhook, transferID uuid.UUID, validID bool) (*entity.WebhookOutcome, string) {
	var resolution repository.WebhookResolution
	if !validID {
		s.markFailed(ctx, eventID, resolution, model.WebhookErrorTransferNotFound)
		return &entity.WebhookOutcome{EventID: eventID, Message: model.WebhookErrorTransferNotFound}, webhookOutcomeUnresolved
	}

	settled := settlesFee(event.Parse(payload.Event, payload.Payment.Status))

	var (
		request   *model.TransferRequest
		newlyPaid bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		s.mirrorLedger(ctx, payload.Payment)

		found, err := s.transferRepo.GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		if found == nil {
			return nil
		}
		request = found
		if settled && found.PaymentStatus != model.FeeStatusPaid {
			if err := s.transferRepo.MarkFeePaid(ctx, found.ID); err != nil {
				return err
			}
			found.PaymentStatus = model.FeeStatusPaid
			newlyPaid = true
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Transfer webhook processing failed",
			zap.String("webhook_event_id", eventID.String()),
			zap.String("transfer_request_id", transferID.String()),
			zap.Error(err))
		s.markFailed(ctx, eventID, resolution, err.Error())
		return &entity.WebhookOutcome{EventID: eventID, Message: err.Error()}, webhookOutcomeFailed
	}
	if request == nil {
		s.logger.Warn("Webhook did not match any transfer request",
			zap.String("webhook_event_id", eventID.String()),
			zap.String("transfer_request_id", transferID.String()))
		s.markFailed(ctx, eventID, resolution, model.WebhookErrorTransferNotFound)
		return &entity.WebhookOutcome{EventID: eventID, Message: model.WebhookErrorTransferNotFound}, webhookOutcomeUnresolved
	}
	resolution.TransferRequestID = &request.ID

	if !settled {
		s.markProcessed(ctx, eventID, resolution)
		return &entity.WebhookOutcome{EventID: eventID, Processed: true, Message: "Webhook processed"}, webhookOutcomeIgnored
	}
	if newlyPaid {
		s.logger.Info("Transfer fee paid",
			zap.String("transfer_request_id", request.ID.String()),
			zap.String("gateway_payment_id", payload.Payment.ID))
		s.notifier.TransferFeeConfirmed(ctx, request)
	}

	execution, err := s.transfers.CompleteAfterFeePayment(ctx, request.ID)
	if err != nil {
		s.logger.Warn("Automatic transfer failed, manual completion required",
			zap.String("webhook_event_id", eventID.String()),
			zap.String("transfer_request_id", request.ID.String()),
			zap.Error(err))
		s.markFailed(ctx, eventID, resolution, err.Error())
		return &entity.WebhookOutcome{EventID: eventID, Message: err.Error()}, webhookOutcomeFailed
	}

	s.markProcessed(ctx, eventID, resolution)
	message := "Transfer completed"
	if !execution.Executed {
		message = "Transfer already completed"
	}
	return &entity.WebhookOutcome{EventID: eventID, Processed: true, Message: message}, webhookOutcomeProcessed
}

// resolveRegistration finds the registration a payment belongs to: through
// the ledger first, then through the external reference as an id or a
// confirmation code.
func (s *WebhookService) resolveRegistration(ctx context.Context, payment *entity.AsaasWebhookPayment) (*model.Registration, error) {
	record, err := s.paymentRepo.GetByGatewayPaymentID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if record != nil && record.RegistrationID != nil {
		registration, err := s.registrationRepo.GetByID(ctx, *record.RegistrationID)
		if err != nil || registration != nil {
			return registration, err
		}
	}

	ref := strings.TrimSpace(payment.ExternalReference)
	if ref == "" {
		return nil, nil
	}
	candidate := strings.TrimPrefix(ref, model.RegistrationReferencePrefix)
	if id, err := uuid.Parse(candidate); err == nil {
		registration, err := s.registrationRepo.GetByID(ctx, id)
		if err != nil || registration != nil {
			return registration, err
		}
	}
	return s.registrationRepo.GetByConfirmationCode(ctx, candidate)
}

// mirrorLedger copies the gateway status onto the ledger row. It runs in its
// own savepoint so a failure does not abort the surrounding transaction.
func (s *WebhookService) mirrorLedger(ctx context.Context, payment *entity.AsaasWebhookPayment) {
	if payment.Status == "" {
		return
	}
	update := repository.PaymentStatusUpdate{Status: payment.Status}
	if date := firstNonEmpty(payment.ClientPaymentDate, payment.PaymentDate); date != "" {
		if parsed, err := time.Parse(webhookDateLayout, date); err == nil {
			update.PaymentDate = &parsed
		}
	}
	if txID := firstNonEmpty(payment.PixTransactionID, payment.PixTransaction); txID != "" {
		update.TransactionID = &txID
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, update)
		if err == nil && !found {
			s.logger.Debug("Webhook payment not in ledger",
				zap.String("gateway_payment_id", payment.ID))
		}
		return err
	})
	if err != nil {
		s.logger.Warn("Failed to mirror webhook into payment ledger",
			zap.String("gateway_payment_id", payment.ID),
			zap.Error(err))
	}
}

func (s *WebhookService) markProcessed(ctx context.Context, id uuid.UUID, resolution repository.WebhookResolution) {
	if err := s.webhookRepo.MarkProcessed(ctx, id, resolution); err != nil {
		s.logger.Error("Failed to mark webhook event processed",
			zap.String("webhook_event_id", id.String()),
			zap.Error(err))
	}
}

func (s *WebhookService) markFailed(ctx context.Context, id uuid.UUID, resolution repository.WebhookResolution, message string) {
	if err := s.webhookRepo.MarkFailed(ctx, id, resolution, message); err != nil {
		s.logger.Error("Failed to record webhook event failure",
			zap.String("webhook_event_id", id.String()),
			zap.Error(err))
	}
}

// settlesFee reports whether a notification means the fee money arrived
func settlesFee(ev event.PaymentEvent) bool {
	switch e := ev.(type) {
	case event.PaymentConfirmed, event.PaymentReceived:
		return true
	case event.PaymentUpdated:
		return event.IsSettled(e.Status)
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
