package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
)

// ProfileRepository reads user profiles
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// FindByCPFOrEmail matches CPF digits first, then email case-insensitively.
	FindByCPFOrEmail(ctx context.Context, cpf, email string) (*model.Profile, error)
}

// SettingsRepository reads the singleton settings row
type SettingsRepository interface {
	Get(ctx context.Context) (*model.SystemSettings, error)
}

// AnnouncementRepository writes user notifications
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *model.Announcement) error
}
