package database

import (
	"github.com/thekiqdev/raceflow-hub-sub001/internal/adapter/repository"
	domainRepo "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Transactor      domainRepo.Transactor
	Registration    domainRepo.RegistrationRepository
	PaymentRecord   domainRepo.PaymentRecordRepository
	Customer        domainRepo.CustomerRepository
	WebhookEvent    domainRepo.WebhookEventRepository
	TransferRequest domainRepo.TransferRequestRepository
	Profile         domainRepo.ProfileRepository
	Settings        domainRepo.SettingsRepository
	Announcement    domainRepo.AnnouncementRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Transactor:      repository.NewTransactor(db, logger),
		Registration:    repository.NewRegistrationRepository(db, logger),
		PaymentRecord:   repository.NewPaymentRecordRepository(db, logger),
		Customer:        repository.NewCustomerRepository(db, logger),
		WebhookEvent:    repository.NewWebhookEventRepository(db, logger),
		TransferRequest: repository.NewTransferRequestRepository(db, logger),
		Profile:         repository.NewProfileRepository(db, logger),
		Settings:        repository.NewSettingsRepository(db, logger),
		Announcement:    repository.NewAnnouncementRepository(db, logger),
	}
}
