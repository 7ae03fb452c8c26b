package usecase_test

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
)

// MockPaymentGateway is a mock implementation of provider.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) FindCustomerByTaxID(ctx context.Context, taxID string) (*provider.Customer, error) {
	args := m.Called(ctx, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Customer), args.Error(1)
}

func (m *MockPaymentGateway) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*provider.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Customer), args.Error(1)
}

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Payment), args.Error(1)
}

func (m *MockPaymentGateway) GetPayment(ctx context.Context, paymentID string) (*provider.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Payment), args.Error(1)
}

func (m *MockPaymentGateway) GetPixQRCode(ctx context.Context, paymentID string) (*provider.PixQRCode, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PixQRCode), args.Error(1)
}

func (m *MockPaymentGateway) GetProviderName() string {
	return "mock"
}

type txKey struct{}

var errRowNotFound = errors.New("row not found")

// memStore keeps every table in memory. Transactions are serialized and
// roll back to a snapshot on error, which is enough to observe the
// at-most-once guarantees the services build on top of compare-and-set.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	registrations map[uuid.UUID]model.Registration
	transfers     map[uuid.UUID]model.TransferRequest
	payments      map[string]model.PaymentRecord
	customers     map[uuid.UUID]model.Customer
	webhooks      map[uuid.UUID]model.WebhookEvent
	profiles      map[uuid.UUID]model.Profile
	announcements []model.Announcement
	settings      *model.SystemSettings

	// failMarkProcessed makes MarkProcessed fail, for rollback tests
	failMarkProcessed bool
	// failUpdateRunner makes UpdateRunner fail, for approval revert tests
	failUpdateRunner bool
}

type memSnapshot struct {
	registrations map[uuid.UUID]model.Registration
	transfers     map[uuid.UUID]model.TransferRequest
	payments      map[string]model.PaymentRecord
	customers     map[uuid.UUID]model.Customer
	webhooks      map[uuid.UUID]model.WebhookEvent
	announcements []model.Announcement
}

func newMemStore() *memStore {
	return &memStore{
		registrations: map[uuid.UUID]model.Registration{},
		transfers:     map[uuid.UUID]model.TransferRequest{},
		payments:      map[string]model.PaymentRecord{},
		customers:     map[uuid.UUID]model.Customer{},
		webhooks:      map[uuid.UUID]model.WebhookEvent{},
		profiles:      map[uuid.UUID]model.Profile{},
	}
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		registrations: maps.Clone(s.registrations),
		transfers:     maps.Clone(s.transfers),
		payments:      maps.Clone(s.payments),
		customers:     maps.Clone(s.customers),
		webhooks:      maps.Clone(s.webhooks),
		announcements: append([]model.Announcement(nil), s.announcements...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations = snap.registrations
	s.transfers = snap.transfers
	s.payments = snap.payments
	s.customers = snap.customers
	s.webhooks = snap.webhooks
	s.announcements = snap.announcements
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		ctx = context.WithValue(ctx, txKey{}, true)
	}
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) addProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *memStore) putRegistration(r model.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[r.ID] = r
}

func (s *memStore) putTransfer(t model.TransferRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[t.ID] = t
}

func (s *memStore) putPayment(p model.PaymentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.GatewayPaymentID] = p
}

func (s *memStore) registration(id uuid.UUID) model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registrations[id]
}

func (s *memStore) transfer(id uuid.UUID) model.TransferRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfers[id]
}

func (s *memStore) payment(gatewayPaymentID string) model.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[gatewayPaymentID]
}

func (s *memStore) webhookEvents() []model.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]model.WebhookEvent, 0, len(s.webhooks))
	for _, e := range s.webhooks {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events
}

func (s *memStore) announcementsFor(userID uuid.UUID) []model.Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Announcement
	for _, a := range s.announcements {
		if a.TargetUserID != nil && *a.TargetUserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// registrations

type memRegistrations struct{ *memStore }

func (r memRegistrations) Create(_ context.Context, registration *model.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	registration.CreatedAt = time.Now()
	registration.UpdatedAt = registration.CreatedAt
	r.registrations[registration.ID] = *registration
	return nil
}

func (r memRegistrations) GetByID(_ context.Context, id uuid.UUID) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.registrations[id]; ok {
		return &reg, nil
	}
	return nil, nil
}

func (r memRegistrations) GetByConfirmationCode(_ context.Context, code string) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.registrations {
		if reg.ConfirmationCode == code {
			return &reg, nil
		}
	}
	return nil, nil
}

func (r memRegistrations) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return r.GetByID(ctx, id)
}

func (r memRegistrations) modify(id uuid.UUID, fn func(*model.Registration)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[id]
	if !ok {
		return errRowNotFound
	}
	fn(&reg)
	reg.UpdatedAt = time.Now()
	r.registrations[id] = reg
	return nil
}

func (r memRegistrations) UpdatePaymentState(_ context.Context, id uuid.UUID, status model.RegistrationStatus, paymentStatus model.PaymentStatus) error {
	return r.modify(id, func(reg *model.Registration) {
		reg.Status = status
		reg.PaymentStatus = paymentStatus
	})
}

func (r memRegistrations) UpdateRunner(_ context.Context, id uuid.UUID, runnerID uuid.UUID) error {
	if r.failUpdateRunner {
		return errors.New("connection reset")
	}
	return r.modify(id, func(reg *model.Registration) { reg.RunnerID = runnerID })
}

func (r memRegistrations) SetGatewayPayment(_ context.Context, id uuid.UUID, gatewayPaymentID string, billingType string) error {
	return r.modify(id, func(reg *model.Registration) {
		reg.GatewayPaymentID = &gatewayPaymentID
		reg.PaymentMethod = &billingType
	})
}

// payment ledger

type memPayments struct{ *memStore }

func (r memPayments) Create(_ context.Context, record *model.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	r.payments[record.GatewayPaymentID] = *record
	return nil
}

func (r memPayments) GetByGatewayPaymentID(_ context.Context, gatewayPaymentID string) (*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.payments[gatewayPaymentID]; ok {
		return &record, nil
	}
	return nil, nil
}

func (r memPayments) GetActiveByRegistrationID(_ context.Context, registrationID uuid.UUID) (*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.PaymentRecord
	for _, record := range r.payments {
		if record.RegistrationID == nil || *record.RegistrationID != registrationID || !record.IsActive() {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			rec := record
			latest = &rec
		}
	}
	return latest, nil
}

func (r memPayments) UpdateStatus(_ context.Context, gatewayPaymentID string, update repository.PaymentStatusUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.payments[gatewayPaymentID]
	if !ok {
		return false, nil
	}
	record.Status = update.Status
	if update.PaymentDate != nil {
		record.PaymentDate = update.PaymentDate
	}
	if update.TransactionID != nil {
		record.TransactionID = update.TransactionID
	}
	if update.QRCodePayload != nil {
		record.QRCodePayload = update.QRCodePayload
	}
	if update.QRCodeImage != nil {
		record.QRCodeImage = update.QRCodeImage
	}
	if update.QRCodeID != nil {
		record.QRCodeID = update.QRCodeID
	}
	r.payments[gatewayPaymentID] = record
	return true, nil
}

// customers

type memCustomers struct{ *memStore }

func (r memCustomers) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[userID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r memCustomers) Create(_ context.Context, customer *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[customer.UserID]; ok {
		return nil
	}
	r.customers[customer.UserID] = *customer
	return nil
}

// webhook events

type memWebhooks struct{ *memStore }

func (r memWebhooks) Create(_ context.Context, event *model.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.CreatedAt = time.Now()
	r.webhooks[event.ID] = *event
	return nil
}

func (r memWebhooks) GetByID(_ context.Context, id uuid.UUID) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.webhooks[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (r memWebhooks) resolve(id uuid.UUID, resolution repository.WebhookResolution, processed bool, message *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.webhooks[id]
	if !ok {
		return errRowNotFound
	}
	if resolution.RegistrationID != nil {
		e.RegistrationID = resolution.RegistrationID
	}
	if resolution.TransferRequestID != nil {
		e.TransferRequestID = resolution.TransferRequestID
	}
	e.Processed = processed
	e.ErrorMessage = message
	if processed {
		now := time.Now()
		e.ProcessedAt = &now
	}
	r.webhooks[id] = e
	return nil
}

func (r memWebhooks) MarkProcessed(_ context.Context, id uuid.UUID, resolution repository.WebhookResolution) error {
	if r.failMarkProcessed {
		return errors.New("connection reset")
	}
	return r.resolve(id, resolution, true, nil)
}

func (r memWebhooks) MarkFailed(_ context.Context, id uuid.UUID, resolution repository.WebhookResolution, message string) error {
	return r.resolve(id, resolution, false, &message)
}

func (r memWebhooks) ListUnprocessed(_ context.Context, limit int) ([]*model.WebhookEvent, error) {
	var out []*model.WebhookEvent
	for _, e := range r.webhookEvents() {
		if e.Processed {
			continue
		}
		ev := e
		out = append(out, &ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// transfer requests

type memTransfers struct{ *memStore }

func (r memTransfers) Create(_ context.Context, request *model.TransferRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transfers {
		if existing.RegistrationID == request.RegistrationID &&
			(existing.Status == model.TransferStatusPending || existing.Status == model.TransferStatusApproved) {
			return domainErrors.ErrTransferAlreadyOpen
		}
	}
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	request.CreatedAt = time.Now()
	r.transfers[request.ID] = *request
	return nil
}

func (r memTransfers) GetByID(_ context.Context, id uuid.UUID) (*model.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.transfers[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r memTransfers) GetOpenByRegistrationID(_ context.Context, registrationID uuid.UUID) (*model.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transfers {
		if t.RegistrationID == registrationID &&
			(t.Status == model.TransferStatusPending || t.Status == model.TransferStatusApproved) {
			return &t, nil
		}
	}
	return nil, nil
}

func (r memTransfers) HasCompletedTransferFrom(_ context.Context, registrationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transfers {
		if t.RegistrationID == registrationID && t.Status == model.TransferStatusCompleted &&
			t.FromRunnerID != nil && *t.FromRunnerID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r memTransfers) AttachPayment(_ context.Context, id uuid.UUID, gatewayPaymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok || t.GatewayPaymentID != nil {
		return false, nil
	}
	t.GatewayPaymentID = &gatewayPaymentID
	r.transfers[id] = t
	return true, nil
}

func (r memTransfers) MarkFeePaid(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return errRowNotFound
	}
	t.PaymentStatus = model.FeeStatusPaid
	r.transfers[id] = t
	return nil
}

func (r memTransfers) SetNewRunner(_ context.Context, id uuid.UUID, runnerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return errRowNotFound
	}
	t.NewRunnerID = &runnerID
	r.transfers[id] = t
	return nil
}

func (r memTransfers) TransitionStatus(_ context.Context, id uuid.UUID, from []model.TransferStatus, update repository.TransferUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, status := range from {
		if t.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	t.Status = update.Status
	if update.FromRunnerID != nil {
		t.FromRunnerID = update.FromRunnerID
	}
	if update.NewRunnerID != nil {
		t.NewRunnerID = update.NewRunnerID
	}
	if update.AdminNotes != nil {
		t.AdminNotes = update.AdminNotes
	}
	if update.ProcessedBy != nil {
		t.ProcessedBy = update.ProcessedBy
	}
	if update.ProcessedAt != nil {
		t.ProcessedAt = update.ProcessedAt
	}
	r.transfers[id] = t
	return true, nil
}

// profiles, settings and announcements

type memProfiles struct{ *memStore }

func (r memProfiles) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r memProfiles) FindByCPFOrEmail(_ context.Context, cpf, email string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if want := digits(cpf); want != "" {
		for _, p := range r.profiles {
			if digits(p.CPF) == want {
				return &p, nil
			}
		}
	}
	if email != "" {
		for _, p := range r.profiles {
			if strings.EqualFold(p.Email, email) {
				return &p, nil
			}
		}
	}
	return nil, nil
}

type memSettings struct{ *memStore }

func (r memSettings) Get(_ context.Context) (*model.SystemSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return nil, nil
	}
	settings := *r.settings
	return &settings, nil
}

type memAnnouncements struct{ *memStore }

func (r memAnnouncements) Create(_ context.Context, announcement *model.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	announcement.ID = uuid.New()
	r.announcements = append(r.announcements, *announcement)
	return nil
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
