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

// inactiveStatuses no longer block a new payment for the same registration
var inactiveStatuses = []string{
	model.GatewayStatusRefunded,
	model.GatewayStatusOverdue,
	model.GatewayStatusDeleted,
}

type paymentRecordRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPaymentRecordRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentRecordRepository {
	return &paymentRecordRepository{db: db, logger: logger}
}

func (r *paymentRecordRepository) Create(ctx context.Context, record *model.PaymentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(record).Error; err != nil {
		r.logger.Error("Failed to create payment record",
			zap.String("gateway_payment_id", record.GatewayPaymentID),
			zap.String("external_reference", record.ExternalReference),
			zap.Error(err))
		return fmt.Errorf("failed to create payment record: %w", err)
	}
	return nil
}

func (r *paymentRecordRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*model.PaymentRecord, error) {
	var record model.PaymentRecord
	err := conn(ctx, r.db).Where("gateway_payment_id = ?", gatewayPaymentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment record by gateway id",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment record: %w", err)
	}
	return &record, nil
}

func (r *paymentRecordRepository) GetActiveByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.PaymentRecord, error) {
	var record model.PaymentRecord
	err := conn(ctx, r.db).
		Where("registration_id = ? AND status NOT IN ?", registrationID, inactiveStatuses).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active payment record",
			zap.String("registration_id", registrationID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment record: %w", err)
	}
	return &record, nil
}

func (r *paymentRecordRepository) UpdateStatus(ctx context.Context, gatewayPaymentID string, update domainRepo.PaymentStatusUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.PaymentDate != nil {
		values["payment_date"] = *update.PaymentDate
	}
	if update.TransactionID != nil {
		values["transaction_id"] = *update.TransactionID
	}
	if update.QRCodePayload != nil {
		values["qr_code_payload"] = *update.QRCodePayload
	}
	if update.QRCodeImage != nil {
		values["qr_code_image"] = *update.QRCodeImage
	}
	if update.QRCodeID != nil {
		values["qr_code_id"] = *update.QRCodeID
	}

	result := conn(ctx, r.db).
		Model(&model.PaymentRecord{}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		Updates(values)
	if result.Error != nil {
		r.logger.Error("Failed to update payment record status",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.String("status", update.Status),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to update payment record: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
