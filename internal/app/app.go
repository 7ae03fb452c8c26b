package app

import (
	"context"
	"fmt"

	"github.com/thekiqdev/raceflow-hub-sub001/internal/config"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/infrastructure/database"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/infrastructure/provider"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
	"github.com/thekiqdev/raceflow-hub-sub001/pkg/messaging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the wired service graph shared by the server and the operator CLI
type App struct {
	DB            *gorm.DB
	Repos         *database.Repositories
	Publisher     messaging.Publisher
	Payments      *usecase.PaymentService
	Registrations *usecase.RegistrationService
	Transfers     *usecase.TransferService
	Settings      *usecase.SettingsService
	Webhooks      *usecase.WebhookService

	logger *zap.Logger
}

// Build connects to the database, runs migrations when migrate is set and
// wires the use cases.
func Build(cfg *config.Config, logger *zap.Logger, migrate bool) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if migrate {
		if err := database.Migrate(db, logger); err != nil {
			_ = database.Close(db, logger)
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	gateway, err := provider.NewPaymentGateway(cfg.Asaas, logger)
	if err != nil {
		_ = database.Close(db, logger)
		return nil, err
	}

	publisher, err := messaging.NewPublisher(cfg.Messaging)
	if err != nil {
		_ = database.Close(db, logger)
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	repos := database.NewRepositories(db, logger)

	qrPolicy := usecase.QRCodePolicy{
		Attempts: cfg.Asaas.QRCodeAttempts,
		Step:     cfg.Asaas.QRCodeBackoffStep,
		Max:      cfg.Asaas.QRCodeBackoffMax,
	}

	notifier := usecase.NewNotificationService(repos.Announcement, repos.Profile, publisher, logger.Named("notification"))
	payments := usecase.NewPaymentService(gateway, repos.PaymentRecord, repos.Customer, qrPolicy, cfg.Asaas.DueDays, logger.Named("payment"))
	registrations := usecase.NewRegistrationService(repos.Transactor, repos.Registration, repos.TransferRequest, repos.Profile, payments, notifier, logger.Named("registration"))
	transfers := usecase.NewTransferService(repos.Transactor, repos.TransferRequest, repos.Registration, repos.Profile, payments, notifier, logger.Named("transfer"))
	settings := usecase.NewSettingsService(repos.Settings, logger)
	webhooks := usecase.NewWebhookService(repos.Transactor, repos.WebhookEvent, repos.PaymentRecord, repos.Registration, repos.TransferRequest,
		registrations, transfers, notifier, logger.Named("webhook"))

	return &App{
		DB:            db,
		Repos:         repos,
		Publisher:     publisher,
		Payments:      payments,
		Registrations: registrations,
		Transfers:     transfers,
		Settings:      settings,
		Webhooks:      webhooks,
		logger:        logger,
	}, nil
}

// Ping checks the database connection
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the publisher and the database connection
func (a *App) Close() {
	if err := a.Publisher.Close(); err != nil {
		a.logger.Error("Failed to close event publisher", zap.Error(err))
	}
	if err := database.Close(a.DB, a.logger); err != nil {
		a.logger.Error("Failed to close database connection", zap.Error(err))
	}
}
