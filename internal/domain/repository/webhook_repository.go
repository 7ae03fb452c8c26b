package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
)

// WebhookResolution is what processing learned about an event
type WebhookResolution struct {
	RegistrationID    *uuid.UUID
	TransferRequestID *uuid.UUID
}

// WebhookEventRepository stores inbound gateway notifications
type WebhookEventRepository interface {
	Create(ctx context.Context, event *model.WebhookEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, resolution WebhookResolution) error
	// MarkFailed leaves processed=false and records why.
	MarkFailed(ctx context.Context, id uuid.UUID, resolution WebhookResolution, message string) error
	ListUnprocessed(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
}
