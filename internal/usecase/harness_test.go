package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
	"go.uber.org/zap"
)

type publishedMessage struct {
	Topic   string
	Payload interface{}
}

// recordingPublisher captures published domain events
type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{Topic: topic, Payload: message})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.messages {
		if m.Topic == topic {
			n++
		}
	}
	return n
}

type harness struct {
	store         *memStore
	gateway       *MockPaymentGateway
	publisher     *recordingPublisher
	payments      *usecase.PaymentService
	notifier      *usecase.NotificationService
	settings      *usecase.SettingsService
	registrations *usecase.RegistrationService
	transfers     *usecase.TransferService
	webhooks      *usecase.WebhookService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	store := newMemStore()
	gateway := new(MockPaymentGateway)
	publisher := &recordingPublisher{}

	payments := usecase.NewPaymentService(gateway, memPayments{store}, memCustomers{store},
		usecase.QRCodePolicy{Attempts: 5, Step: time.Millisecond, Max: 4 * time.Millisecond}, 3, logger)
	notifier := usecase.NewNotificationService(memAnnouncements{store}, memProfiles{store}, publisher, logger)
	registrations := usecase.NewRegistrationService(store, memRegistrations{store}, memTransfers{store},
		memProfiles{store}, payments, notifier, logger)
	transfers := usecase.NewTransferService(store, memTransfers{store}, memRegistrations{store},
		memProfiles{store}, payments, notifier, logger)
	webhooks := usecase.NewWebhookService(store, memWebhooks{store}, memPayments{store}, memRegistrations{store},
		memTransfers{store}, registrations, transfers, notifier, logger)

	return &harness{
		store:         store,
		gateway:       gateway,
		publisher:     publisher,
		payments:      payments,
		notifier:      notifier,
		settings:      usecase.NewSettingsService(memSettings{store}, logger),
		registrations: registrations,
		transfers:     transfers,
		webhooks:      webhooks,
	}
}

func (h *harness) runner(name, cpf, email string) uuid.UUID {
	id := uuid.New()
	h.store.addProfile(model.Profile{UserID: id, FullName: name, CPF: cpf, Email: email})
	return id
}

func (h *harness) pendingRegistration(runnerID uuid.UUID, amount string) model.Registration {
	reg := model.Registration{
		ID:               uuid.New(),
		EventID:          uuid.New(),
		CategoryID:       uuid.New(),
		RunnerID:         runnerID,
		RegisteredBy:     runnerID,
		TotalAmount:      decimal.RequireFromString(amount),
		Status:           model.RegistrationStatusPending,
		PaymentStatus:    model.PaymentStatusPending,
		ConfirmationCode: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10],
	}
	h.store.putRegistration(reg)
	return reg
}

func (h *harness) confirmedRegistration(runnerID uuid.UUID) model.Registration {
	reg := h.pendingRegistration(runnerID, "120.00")
	reg.Status = model.RegistrationStatusConfirmed
	reg.PaymentStatus = model.PaymentStatusPaid
	h.store.putRegistration(reg)
	return reg
}

func (h *harness) ledgerRow(registrationID uuid.UUID, gatewayPaymentID string) model.PaymentRecord {
	record := model.PaymentRecord{
		ID:                uuid.New(),
		RegistrationID:    &registrationID,
		GatewayPaymentID:  gatewayPaymentID,
		GatewayCustomerID: "cus_1",
		Value:             decimal.RequireFromString("120.00"),
		BillingType:       model.BillingTypePix,
		Status:            model.GatewayStatusPending,
		DueDate:           time.Now().AddDate(0, 0, 3),
		ExternalReference: model.RegistrationReferencePrefix + registrationID.String(),
		CreatedAt:         time.Now(),
	}
	h.store.putPayment(record)
	return record
}

func (h *harness) enableTransfers(fee string) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.settings = &model.SystemSettings{
		ID:             1,
		EnabledModules: map[string]interface{}{model.ModuleTransfers: true},
		TransferFee:    decimal.RequireFromString(fee),
	}
}

func adminActor() entity.Actor {
	return entity.Actor{UserID: uuid.New(), IsAdmin: true}
}

func strPtr(s string) *string { return &s }
