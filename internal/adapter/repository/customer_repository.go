package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	domainRepo "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type customerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCustomerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CustomerRepository {
	return &customerRepository{db: db, logger: logger}
}

func (r *customerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	err := conn(ctx, r.db).Where("user_id = ?", userID).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get customer mapping",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get customer mapping: %w", err)
	}
	return &customer, nil
}

// Create ignores the insert when the user is already mapped
func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	err := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(customer).Error
	if err != nil {
		r.logger.Error("Failed to create customer mapping",
			zap.String("user_id", customer.UserID.String()),
			zap.String("gateway_customer_id", customer.GatewayCustomerID),
			zap.Error(err))
		return fmt.Errorf("failed to create customer mapping: %w", err)
	}
	return nil
}
