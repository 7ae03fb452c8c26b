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
	"gorm.io/gorm/clause"
)

type registrationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRegistrationRepository(db *gorm.DB, logger *zap.Logger) domainRepo.RegistrationRepository {
	return &registrationRepository{db: db, logger: logger}
}

func (r *registrationRepository) Create(ctx context.Context, registration *model.Registration) error {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(registration).Error; err != nil {
		r.logger.Error("Failed to create registration",
			zap.String("event_id", registration.EventID.String()),
			zap.String("runner_id", registration.RunnerID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return r.first(ctx, conn(ctx, r.db).Where("id = ?", id), "id", id.String())
}

func (r *registrationRepository) GetByConfirmationCode(ctx context.Context, code string) (*model.Registration, error) {
	return r.first(ctx, conn(ctx, r.db).Where("confirmation_code = ?", code), "confirmation_code", code)
}

func (r *registrationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	query := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	return r.first(ctx, query, "id", id.String())
}

func (r *registrationRepository) first(ctx context.Context, query *gorm.DB, field, value string) (*model.Registration, error) {
	var registration model.Registration
	if err := query.First(&registration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get registration",
			zap.String(field, value),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &registration, nil
}

func (r *registrationRepository) UpdatePaymentState(ctx context.Context, id uuid.UUID, status model.RegistrationStatus, paymentStatus model.PaymentStatus) error {
	return r.update(ctx, id, "payment state", map[string]interface{}{
		"status":         status,
		"payment_status": paymentStatus,
	})
}

func (r *registrationRepository) UpdateRunner(ctx context.Context, id uuid.UUID, runnerID uuid.UUID) error {
	return r.update(ctx, id, "runner", map[string]interface{}{
		"runner_id": runnerID,
	})
}

func (r *registrationRepository) SetGatewayPayment(ctx context.Context, id uuid.UUID, gatewayPaymentID string, billingType string) error {
	return r.update(ctx, id, "gateway payment", map[string]interface{}{
		"gateway_payment_id": gatewayPaymentID,
		"payment_method":     billingType,
	})
}

func (r *registrationRepository) update(ctx context.Context, id uuid.UUID, what string, values map[string]interface{}) error {
	values["updated_at"] = time.Now()
	result := conn(ctx, r.db).
		Model(&model.Registration{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		r.logger.Error("Failed to update registration "+what,
			zap.String("registration_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update registration %s: %w", what, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("registration not found: %s", id)
	}
	return nil
}
