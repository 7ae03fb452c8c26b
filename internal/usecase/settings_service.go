package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
)

// SettingsService turns the settings row into the snapshot a workflow runs with
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	logger       *zap.Logger
}

func NewSettingsService(settingsRepo repository.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo, logger: logger}
}

// Snapshot reads the settings once. A missing row means transfers are disabled
// and free.
func (s *SettingsService) Snapshot(ctx context.Context) (entity.SystemSettings, error) {
	row, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return entity.SystemSettings{}, err
	}
	if row == nil {
		s.logger.Warn("System settings row missing, using defaults")
		return entity.SystemSettings{TransferFee: decimal.Zero}, nil
	}

	fee := row.TransferFee
	if fee.IsNegative() {
		fee = decimal.Zero
	}
	return entity.SystemSettings{
		TransfersEnabled: row.ModuleEnabled(model.ModuleTransfers),
		TransferFee:      fee,
	}, nil
}
