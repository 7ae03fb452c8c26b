package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

var errQRCodeUnavailable = errors.New("pix qr code not available yet")

// QRCodePolicy bounds the QR code fetch after a PIX payment is created.
// Attempt n waits Step*(n-1), capped at Max; the first attempt is immediate.
type QRCodePolicy struct {
	Attempts int
	Step     time.Duration
	Max      time.Duration
}

// DefaultQRCodePolicy waits 2s, 4s, 6s, 8s between five attempts
var DefaultQRCodePolicy = QRCodePolicy{Attempts: 5, Step: 2 * time.Second, Max: 8 * time.Second}

// PaymentService is the only caller of the payment gateway. It keeps the
// payment ledger and the customer mapping in sync with what the gateway returns.
type PaymentService struct {
	gateway      provider.PaymentGateway
	paymentRepo  repository.PaymentRecordRepository
	customerRepo repository.CustomerRepository
	qrPolicy     QRCodePolicy
	dueDays      int
	logger       *zap.Logger
}

func NewPaymentService(
	gateway provider.PaymentGateway,
	paymentRepo repository.PaymentRecordRepository,
	customerRepo repository.CustomerRepository,
	qrPolicy QRCodePolicy,
	dueDays int,
	logger *zap.Logger,
) *PaymentService {
	if qrPolicy.Attempts <= 0 {
		qrPolicy.Attempts = DefaultQRCodePolicy.Attempts
	}
	if dueDays <= 0 {
		dueDays = 3
	}
	return &PaymentService{
		gateway:      gateway,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		qrPolicy:     qrPolicy,
		dueDays:      dueDays,
		logger:       logger,
	}
}

// CreateCustomer returns the gateway customer of userID, creating it when the
// gateway does not know the CPF yet. The local mapping is consulted first.
func (s *PaymentService) CreateCustomer(ctx context.Context, userID uuid.UUID, profile *model.Profile) (*entity.CustomerResult, error) {
	cached, err := s.customerRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return &entity.CustomerResult{GatewayCustomerID: cached.GatewayCustomerID}, nil
	}

	if profile == nil {
		return nil, domainErrors.ErrProfileNotFound
	}
	taxID := onlyDigits(profile.CPF)
	if taxID == "" {
		return nil, domainErrors.ErrInvalidTaxID
	}

	existing, err := s.gateway.FindCustomerByTaxID(ctx, taxID)
	if err != nil {
		return nil, s.mapGatewayError(err)
	}
	if existing != nil {
		s.saveCustomer(ctx, userID, existing.ID, taxID, profile.Email)
		s.logger.Info("Gateway customer found by CPF",
			zap.String("user_id", userID.String()),
			zap.String("gateway_customer_id", existing.ID))
		return &entity.CustomerResult{GatewayCustomerID: existing.ID}, nil
	}

	req := &provider.CreateCustomerRequest{
		Name:              profile.FullName,
		Email:             profile.Email,
		CpfCnpj:           taxID,
		ExternalReference: userID.String(),
	}
	if profile.Phone != nil {
		req.MobilePhone = onlyDigits(*profile.Phone)
	}

	created, err := s.gateway.CreateCustomer(ctx, req)
	if err != nil {
		s.logger.Error("Failed to create gateway customer",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, s.mapGatewayError(err)
	}
	s.saveCustomer(ctx, userID, created.ID, taxID, profile.Email)

	s.logger.Info("Gateway customer created",
		zap.String("user_id", userID.String()),
		zap.String("gateway_customer_id", created.ID))
	return &entity.CustomerResult{GatewayCustomerID: created.ID, Created: true}, nil
}

// the mapping is a cache; losing it only costs a gateway lookup next time
func (s *PaymentService) saveCustomer(ctx context.Context, userID uuid.UUID, gatewayCustomerID, cpf, email string) {
	err := s.customerRepo.Create(ctx, &model.Customer{
		UserID:            userID,
		GatewayCustomerID: gatewayCustomerID,
		CPF:               cpf,
		Email:             email,
	})
	if err != nil {
		s.logger.Warn("Failed to store customer mapping",
			zap.String("user_id", userID.String()),
			zap.String("gateway_customer_id", gatewayCustomerID),
			zap.Error(err))
	}
}

// CreatePayment issues the gateway payment of a registration. An active ledger
// row for the registration is returned as is instead of creating a second one.
func (s *PaymentService) CreatePayment(ctx context.Context, registrationID uuid.UUID, customerID string, req entity.PaymentRequest) (*model.PaymentRecord, error) {
	active, err := s.paymentRepo.GetActiveByRegistrationID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		s.logger.Info("Reusing active payment",
			zap.String("registration_id", registrationID.String()),
			zap.String("gateway_payment_id", active.GatewayPaymentID))
		return active, nil
	}

	req.ExternalReference = model.RegistrationReferencePrefix + registrationID.String()
	record := &model.PaymentRecord{RegistrationID: &registrationID}
	return s.issue(ctx, record, customerID, req)
}

// CreateTransferPayment issues the fee payment of a transfer request. It never
// touches registrations.
func (s *PaymentService) CreateTransferPayment(ctx context.Context, transferRequestID uuid.UUID, customerID string, req entity.PaymentRequest) (*model.PaymentRecord, error) {
	req.ExternalReference = model.TransferReferencePrefix + transferRequestID.String()
	record := &model.PaymentRecord{TransferRequestID: &transferRequestID}
	return s.issue(ctx, record, customerID, req)
}

func (s *PaymentService) issue(ctx context.Context, record *model.PaymentRecord, customerID string, req entity.PaymentRequest) (*model.PaymentRecord, error) {
	if req.BillingType == "" {
		req.BillingType = model.BillingTypePix
	}
	if req.DueDate.IsZero() {
		req.DueDate = time.Now().AddDate(0, 0, s.dueDays)
	}

	payment, err := s.gateway.CreatePayment(ctx, &provider.CreatePaymentRequest{
		CustomerID:        customerID,
		BillingType:       req.BillingType,
		Value:             req.Value,
		DueDate:           req.DueDate,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
	})
	if err != nil {
		s.logger.Error("Failed to create gateway payment",
			zap.String("external_reference", req.ExternalReference),
			zap.Error(err))
		return nil, s.mapGatewayError(err)
	}

	qr := payment.PixQRCode
	if qr == nil && req.BillingType == model.BillingTypePix {
		qr = s.fetchQRCode(ctx, payment.ID)
	}

	record.GatewayPaymentID = payment.ID
	record.GatewayCustomerID = customerID
	record.Value = payment.Value
	record.NetValue = payment.NetValue
	record.BillingType = payment.BillingType
	record.Status = payment.Status
	record.DueDate = payment.DueDate
	record.ExternalReference = req.ExternalReference
	if record.Status == "" {
		record.Status = model.GatewayStatusPending
	}
	if record.BillingType == "" {
		record.BillingType = req.BillingType
	}
	if record.DueDate.IsZero() {
		record.DueDate = req.DueDate
	}
	if payment.InvoiceURL != "" {
		record.InvoiceURL = &payment.InvoiceURL
	}
	if qr != nil {
		record.QRCodePayload = &qr.Payload
		if qr.EncodedImage != "" {
			record.QRCodeImage = &qr.EncodedImage
		}
		if qr.ID != "" {
			record.QRCodeID = &qr.ID
		}
	}

	if err := s.paymentRepo.Create(ctx, record); err != nil {
		s.logger.Error("Gateway payment created but ledger write failed",
			zap.String("gateway_payment_id", payment.ID),
			zap.String("external_reference", req.ExternalReference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record payment %s: %w", payment.ID, err)
	}

	s.logger.Info("Payment issued",
		zap.String("gateway_payment_id", payment.ID),
		zap.String("external_reference", req.ExternalReference),
		zap.String("value", payment.Value.StringFixed(2)),
		zap.Bool("has_qr_code", record.HasQRCode()))
	return record, nil
}

// fetchQRCode polls for the QR code of a fresh PIX payment. A nil result is
// not an error: the read path stores the QR code once it shows up.
func (s *PaymentService) fetchQRCode(ctx context.Context, gatewayPaymentID string) *provider.PixQRCode {
	var (
		qr       *provider.PixQRCode
		attempts int
		waited   int
	)

	var backoff retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		waited++
		next := s.qrPolicy.Step * time.Duration(waited)
		if s.qrPolicy.Max > 0 && next > s.qrPolicy.Max {
			next = s.qrPolicy.Max
		}
		return next, false
	})
	backoff = retry.WithMaxRetries(uint64(s.qrPolicy.Attempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		qr = s.tryQRCode(ctx, gatewayPaymentID)
		if qr == nil {
			return retry.RetryableError(errQRCodeUnavailable)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("PIX QR code not available after retries",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return nil
	}

	metrics.QRCodeAttempts.Observe(float64(attempts))
	s.logger.Debug("PIX QR code obtained",
		zap.String("gateway_payment_id", gatewayPaymentID),
		zap.Int("attempts", attempts))
	return qr
}

// tryQRCode asks the dedicated endpoint first and falls back to the payment object
func (s *PaymentService) tryQRCode(ctx context.Context, gatewayPaymentID string) *provider.PixQRCode {
	qr, err := s.gateway.GetPixQRCode(ctx, gatewayPaymentID)
	if err == nil && qr != nil && qr.Payload != "" {
		return qr
	}
	if err != nil {
		s.logger.Debug("QR code endpoint failed",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.Error(err))
	}

	payment, err := s.gateway.GetPayment(ctx, gatewayPaymentID)
	if err != nil {
		s.logger.Debug("Payment lookup for QR code failed",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.Error(err))
		return nil
	}
	if payment.PixQRCode != nil && payment.PixQRCode.Payload != "" {
		return payment.PixQRCode
	}
	return nil
}

// GetPaymentStatus reads the gateway status of a payment and mirrors it into
// the ledger, including a QR code that was missing at creation time.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, gatewayPaymentID string) (*entity.PaymentStatusResult, error) {
	payment, err := s.gateway.GetPayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, s.mapGatewayError(err)
	}

	result := &entity.PaymentStatusResult{
		Status:      payment.Status,
		PaymentDate: payment.PaymentDate,
	}
	if payment.TransactionID != "" {
		result.TransactionID = &payment.TransactionID
	}

	update := repository.PaymentStatusUpdate{
		Status:        payment.Status,
		PaymentDate:   payment.PaymentDate,
		TransactionID: result.TransactionID,
	}

	record, err := s.paymentRepo.GetByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		s.logger.Warn("Failed to read ledger row", zap.String("gateway_payment_id", gatewayPaymentID), zap.Error(err))
	}
	if record != nil && !record.HasQRCode() && payment.BillingType == model.BillingTypePix {
		qr := payment.PixQRCode
		if qr == nil && payment.Status == model.GatewayStatusPending {
			qr = s.tryQRCode(ctx, gatewayPaymentID)
		}
		if qr != nil {
			update.QRCodePayload = &qr.Payload
			if qr.EncodedImage != "" {
				update.QRCodeImage = &qr.EncodedImage
			}
			if qr.ID != "" {
				update.QRCodeID = &qr.ID
			}
		}
	}

	if _, err := s.paymentRepo.UpdateStatus(ctx, gatewayPaymentID, update); err != nil {
		s.logger.Warn("Failed to mirror polled status into ledger",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.String("status", payment.Status),
			zap.Error(err))
	}
	return result, nil
}

// ActivePayment returns the live ledger row of a registration, or nil
func (s *PaymentService) ActivePayment(ctx context.Context, registrationID uuid.UUID) (*model.PaymentRecord, error) {
	return s.paymentRepo.GetActiveByRegistrationID(ctx, registrationID)
}

// PaymentByGatewayID returns the ledger row of a gateway payment, or nil
func (s *PaymentService) PaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*model.PaymentRecord, error) {
	return s.paymentRepo.GetByGatewayPaymentID(ctx, gatewayPaymentID)
}

func (s *PaymentService) mapGatewayError(err error) error {
	var gwErr *provider.GatewayError
	if errors.As(err, &gwErr) && gwErr.IsInvalidTaxID() {
		return domainErrors.ErrInvalidTaxID.WithCause(err)
	}
	return err
}

// paymentInfo is the payer-facing projection of a ledger row
func paymentInfo(record *model.PaymentRecord) *entity.PaymentInfo {
	if record == nil {
		return nil
	}
	due := record.DueDate
	return &entity.PaymentInfo{
		GatewayPaymentID: record.GatewayPaymentID,
		Status:           record.Status,
		Value:            record.Value,
		BillingType:      record.BillingType,
		DueDate:          &due,
		QRCodePayload:    record.QRCodePayload,
		QRCodeImage:      record.QRCodeImage,
		InvoiceURL:       record.InvoiceURL,
	}
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
