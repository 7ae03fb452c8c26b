package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	domainRepo "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type profileRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewProfileRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ProfileRepository {
	return &profileRepository{db: db, logger: logger}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get profile",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (r *profileRepository) FindByCPFOrEmail(ctx context.Context, cpf, email string) (*model.Profile, error) {
	if digits := onlyDigits(cpf); digits != "" {
		var profile model.Profile
		err := conn(ctx, r.db).
			Where("regexp_replace(cpf, '[^0-9]', '', 'g') = ?", digits).
			First(&profile).Error
		if err == nil {
			return &profile, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find profile by cpf: %w", err)
		}
	}

	if email = strings.TrimSpace(email); email != "" {
		var profile model.Profile
		err := conn(ctx, r.db).Where("LOWER(email) = ?", strings.ToLower(email)).First(&profile).Error
		if err == nil {
			return &profile, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find profile by email: %w", err)
		}
	}
	return nil, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type settingsRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSettingsRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SettingsRepository {
	return &settingsRepository{db: db, logger: logger}
}

// Get returns nil, nil when the settings row was never written
func (r *settingsRepository) Get(ctx context.Context) (*model.SystemSettings, error) {
	var settings model.SystemSettings
	if err := conn(ctx, r.db).Order("id ASC").First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get system settings", zap.Error(err))
		return nil, fmt.Errorf("failed to get system settings: %w", err)
	}
	return &settings, nil
}

type announcementRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAnnouncementRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AnnouncementRepository {
	return &announcementRepository{db: db, logger: logger}
}

func (r *announcementRepository) Create(ctx context.Context, announcement *model.Announcement) error {
	if announcement.ID == uuid.Nil {
		announcement.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(announcement).Error; err != nil {
		r.logger.Error("Failed to create announcement",
			zap.String("kind", announcement.Kind),
			zap.Error(err))
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}
