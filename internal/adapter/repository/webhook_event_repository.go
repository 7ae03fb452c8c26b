package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	domainRepo "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{db: db, logger: logger}
}

func (r *webhookEventRepository) Create(ctx context.Context, event *model.WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(event).Error; err != nil {
		r.logger.Error("Failed to store webhook event",
			zap.String("event_type", event.EventType),
			zap.String("gateway_payment_id", event.GatewayPaymentID),
			zap.Error(err))
		return fmt.Errorf("failed to store webhook event: %w", err)
	}
	return nil
}

func (r *webhookEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	if err := conn(ctx, r.db).Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return &event, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, resolution domainRepo.WebhookResolution) error {
	now := time.Now()
	values := resolutionValues(resolution)
	values["processed"] = true
	values["processed_at"] = now
	values["error_message"] = nil
	return r.update(ctx, id, values)
}

func (r *webhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, resolution domainRepo.WebhookResolution, message string) error {
	values := resolutionValues(resolution)
	values["processed"] = false
	values["error_message"] = message
	return r.update(ctx, id, values)
}

func (r *webhookEventRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	query := conn(ctx, r.db).Where("processed = ?", false).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		r.logger.Error("Failed to list unprocessed webhook events", zap.Error(err))
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	return events, nil
}

func (r *webhookEventRepository) update(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	result := conn(ctx, r.db).
		Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		r.logger.Error("Failed to update webhook event",
			zap.String("webhook_event_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update webhook event: %w", result.Error)
	}
	return nil
}

func resolutionValues(resolution domainRepo.WebhookResolution) map[string]interface{} {
	values := map[string]interface{}{}
	if resolution.RegistrationID != nil {
		values["registration_id"] = *resolution.RegistrationID
	}
	if resolution.TransferRequestID != nil {
		values["transfer_request_id"] = *resolution.TransferRequestID
	}
	return values
}
