package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	domainRepo "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Postgres unique_violation
const uniqueViolation = "23505"

var openTransferStatuses = []model.TransferStatus{
	model.TransferStatusPending,
	model.TransferStatusApproved,
}

type transferRequestRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTransferRequestRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TransferRequestRepository {
	return &transferRequestRepository{db: db, logger: logger}
}

func (r *transferRequestRepository) Create(ctx context.Context, request *model.TransferRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(request).Error; err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrTransferAlreadyOpen
		}
		r.logger.Error("Failed to create transfer request",
			zap.String("registration_id", request.RegistrationID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create transfer request: %w", err)
	}
	return nil
}

func (r *transferRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	var request model.TransferRequest
	if err := conn(ctx, r.db).Where("id = ?", id).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get transfer request",
			zap.String("transfer_request_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transfer request: %w", err)
	}
	return &request, nil
}

func (r *transferRequestRepository) GetOpenByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.TransferRequest, error) {
	var request model.TransferRequest
	err := conn(ctx, r.db).
		Where("registration_id = ? AND status IN ?", registrationID, openTransferStatuses).
		Order("created_at DESC").
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get open transfer request",
			zap.String("registration_id", registrationID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transfer request: %w", err)
	}
	return &request, nil
}

func (r *transferRequestRepository) HasCompletedTransferFrom(ctx context.Context, registrationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&model.TransferRequest{}).
		Where("registration_id = ? AND from_runner_id = ? AND status = ?", registrationID, userID, model.TransferStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check completed transfers: %w", err)
	}
	return count > 0, nil
}

func (r *transferRequestRepository) AttachPayment(ctx context.Context, id uuid.UUID, gatewayPaymentID string) (bool, error) {
	result := conn(ctx, r.db).
		Model(&model.TransferRequest{}).
		Where("id = ? AND gateway_payment_id IS NULL", id).
		Updates(map[string]interface{}{
			"gateway_payment_id": gatewayPaymentID,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		r.logger.Error("Failed to attach fee payment",
			zap.String("transfer_request_id", id.String()),
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to attach fee payment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *transferRequestRepository) MarkFeePaid(ctx context.Context, id uuid.UUID) error {
	err := conn(ctx, r.db).
		Model(&model.TransferRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_status": model.FeeStatusPaid,
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark transfer fee paid: %w", err)
	}
	return nil
}

func (r *transferRequestRepository) SetNewRunner(ctx context.Context, id uuid.UUID, runnerID uuid.UUID) error {
	err := conn(ctx, r.db).
		Model(&model.TransferRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"new_runner_id": runnerID,
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to set new runner: %w", err)
	}
	return nil
}

// TransitionStatus is a compare-and-set on status
func (r *transferRequestRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []model.TransferStatus, update domainRepo.TransferUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.FromRunnerID != nil {
		values["from_runner_id"] = *update.FromRunnerID
	}
	if update.NewRunnerID != nil {
		values["new_runner_id"] = *update.NewRunnerID
	}
	if update.AdminNotes != nil {
		values["admin_notes"] = *update.AdminNotes
	}
	if update.ProcessedBy != nil {
		values["processed_by"] = *update.ProcessedBy
	}
	if update.ProcessedAt != nil {
		values["processed_at"] = *update.ProcessedAt
	}

	result := conn(ctx, r.db).
		Model(&model.TransferRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		r.logger.Error("Failed to transition transfer request",
			zap.String("transfer_request_id", id.String()),
			zap.String("to_status", string(update.Status)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to transition transfer request: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
