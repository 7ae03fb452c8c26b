package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"github.com/thekiqdev/raceflow-hub-sub001/pkg/messaging"
	"go.uber.org/zap"
)

// Topics published by the payment service
const (
	TopicTransferCompleted    = "transfer.completed"
	TopicRegistrationPayment  = "registration.payment_updated"
	TopicTransferFeeConfirmed = "transfer.fee_confirmed"
)

// TransferCompletedEvent is the payload of TopicTransferCompleted
type TransferCompletedEvent struct {
	TransferRequestID uuid.UUID `json:"transfer_request_id"`
	RegistrationID    uuid.UUID `json:"registration_id"`
	FromRunnerID      uuid.UUID `json:"from_runner_id"`
	NewRunnerID       uuid.UUID `json:"new_runner_id"`
	Path              string    `json:"path"`
	CompletedAt       time.Time `json:"completed_at"`
}

// RegistrationPaymentEvent is the payload of TopicRegistrationPayment
type RegistrationPaymentEvent struct {
	RegistrationID   uuid.UUID                `json:"registration_id"`
	GatewayPaymentID string                   `json:"gateway_payment_id"`
	EventType        string                   `json:"event_type"`
	Status           model.RegistrationStatus `json:"status"`
	PaymentStatus    model.PaymentStatus      `json:"payment_status"`
}

// NotificationService writes the side effects other services react to.
// Every method is best-effort: failures are logged and never returned.
type NotificationService struct {
	announcementRepo repository.AnnouncementRepository
	profileRepo      repository.ProfileRepository
	publisher        messaging.Publisher
	logger           *zap.Logger
}

func NewNotificationService(
	announcementRepo repository.AnnouncementRepository,
	profileRepo repository.ProfileRepository,
	publisher messaging.Publisher,
	logger *zap.Logger,
) *NotificationService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &NotificationService{
		announcementRepo: announcementRepo,
		profileRepo:      profileRepo,
		publisher:        publisher,
		logger:           logger,
	}
}

// TransferCompleted tells both owners about the change and publishes the event
func (s *NotificationService) TransferCompleted(ctx context.Context, request *model.TransferRequest, registration *model.Registration, fromRunnerID, newRunnerID uuid.UUID, path string) {
	code := registration.ConfirmationCode
	newOwner := s.displayName(ctx, newRunnerID)
	prevOwner := s.displayName(ctx, fromRunnerID)

	s.announce(ctx, &model.Announcement{
		TargetUserID: &fromRunnerID,
		Title:        "Inscrição transferida",
		Message:      fmt.Sprintf("Sua inscrição %s foi transferida para %s.", code, newOwner),
		Kind:         model.AnnouncementKindTransferSent,
	})
	s.announce(ctx, &model.Announcement{
		TargetUserID: &newRunnerID,
		Title:        "Você recebeu uma inscrição",
		Message:      fmt.Sprintf("A inscrição %s de %s agora é sua.", code, prevOwner),
		Kind:         model.AnnouncementKindTransferReceived,
	})

	s.publish(ctx, TopicTransferCompleted, TransferCompletedEvent{
		TransferRequestID: request.ID,
		RegistrationID:    registration.ID,
		FromRunnerID:      fromRunnerID,
		NewRunnerID:       newRunnerID,
		Path:              path,
		CompletedAt:       time.Now().UTC(),
	})
}

// TransferFeeConfirmed publishes that a transfer fee was paid
func (s *NotificationService) TransferFeeConfirmed(ctx context.Context, request *model.TransferRequest) {
	s.publish(ctx, TopicTransferFeeConfirmed, map[string]interface{}{
		"transfer_request_id": request.ID,
		"registration_id":     request.RegistrationID,
	})
}

// RegistrationPaymentUpdated publishes the state a webhook or poll left behind
func (s *NotificationService) RegistrationPaymentUpdated(ctx context.Context, registration *model.Registration, gatewayPaymentID, eventType string) {
	s.publish(ctx, TopicRegistrationPayment, RegistrationPaymentEvent{
		RegistrationID:   registration.ID,
		GatewayPaymentID: gatewayPaymentID,
		EventType:        eventType,
		Status:           registration.Status,
		PaymentStatus:    registration.PaymentStatus,
	})
}

func (s *NotificationService) announce(ctx context.Context, announcement *model.Announcement) {
	if err := s.announcementRepo.Create(ctx, announcement); err != nil {
		s.logger.Warn("Failed to create announcement",
			zap.String("kind", announcement.Kind),
			zap.Error(err))
	}
}

func (s *NotificationService) publish(ctx context.Context, topic string, payload interface{}) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.Warn("Failed to publish domain event",
			zap.String("topic", topic),
			zap.Error(err))
	}
}

func (s *NotificationService) displayName(ctx context.Context, userID uuid.UUID) string {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil || profile == nil || profile.FullName == "" {
		return "outro atleta"
	}
	return profile.FullName
}
