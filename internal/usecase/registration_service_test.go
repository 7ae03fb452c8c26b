package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/event"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
)

func TestRegistrationService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("free registration is confirmed without a payment", func(t *testing.T) {
		h := newHarness(t)
		userID := h.runner("Ana", "12345678909", "ana@example.com")

		view, err := h.registrations.Create(ctx, entity.Actor{UserID: userID}, usecase.CreateRegistrationInput{
			EventID:     uuid.New(),
			CategoryID:  uuid.New(),
			TotalAmount: decimal.Zero,
		})

		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusConfirmed, view.Status)
		assert.Equal(t, model.PaymentStatusPaid, view.PaymentStatus)
		assert.Nil(t, view.Payment)
		assert.Len(t, view.ConfirmationCode, 10)
		h.gateway.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})

	t.Run("paid registration issues a pix payment", func(t *testing.T) {
		h := newHarness(t)
		userID := h.runner("Ana", "12345678909", "ana@example.com")
		payment := pixPayment("pay_reg")
		payment.PixQRCode = &provider.PixQRCode{Payload: "000201reg"}
		h.gateway.On("FindCustomerByTaxID", mock.Anything, "12345678909").Return(&provider.Customer{ID: "cus_1"}, nil).Once()
		h.gateway.On("CreatePayment", mock.Anything, mock.Anything).Return(payment, nil).Once()

		view, err := h.registrations.Create(ctx, entity.Actor{UserID: userID}, usecase.CreateRegistrationInput{
			EventID:     uuid.New(),
			CategoryID:  uuid.New(),
			TotalAmount: decimal.RequireFromString("120.00"),
		})

		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusPending, view.Status)
		require.NotNil(t, view.Payment)
		assert.Equal(t, "pay_reg", view.Payment.GatewayPaymentID)
		assert.Equal(t, "000201reg", *view.Payment.QRCodePayload)
		assert.Empty(t, view.Payment.Warning)

		stored := h.store.registration(view.ID)
		require.NotNil(t, stored.GatewayPaymentID)
		assert.Equal(t, "pay_reg", *stored.GatewayPaymentID)
	})

	t.Run("invalid tax id keeps the registration and warns", func(t *testing.T) {
		h := newHarness(t)
		userID := h.runner("Ana", "11111111111", "ana@example.com")
		h.gateway.On("FindCustomerByTaxID", mock.Anything, "11111111111").Return(nil, nil).Once()
		h.gateway.On("CreateCustomer", mock.Anything, mock.Anything).Return(nil, &provider.GatewayError{
			StatusCode: 400,
			Details:    []provider.ErrorDetail{{Code: "invalid_cpfCnpj", Description: "O CPF/CNPJ informado é inválido."}},
		}).Once()

		view, err := h.registrations.Create(ctx, entity.Actor{UserID: userID}, usecase.CreateRegistrationInput{
			EventID:     uuid.New(),
			CategoryID:  uuid.New(),
			TotalAmount: decimal.RequireFromString("120.00"),
		})

		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusPending, view.Status)
		require.NotNil(t, view.Payment)
		assert.Equal(t, domainErrors.ErrInvalidTaxID.Message, view.Payment.Warning)
		assert.Equal(t, view.ID, h.store.registration(view.ID).ID)
	})

	t.Run("gateway outage keeps the registration with a generic warning", func(t *testing.T) {
		h := newHarness(t)
		userID := h.runner("Ana", "12345678909", "ana@example.com")
		h.gateway.On("FindCustomerByTaxID", mock.Anything, mock.Anything).
			Return(nil, &provider.TransientError{Op: "GET /customers", Err: context.DeadlineExceeded}).Once()

		view, err := h.registrations.Create(ctx, entity.Actor{UserID: userID}, usecase.CreateRegistrationInput{
			EventID:     uuid.New(),
			CategoryID:  uuid.New(),
			TotalAmount: decimal.RequireFromString("80.00"),
		})

		require.NoError(t, err)
		require.NotNil(t, view.Payment)
		assert.NotEmpty(t, view.Payment.Warning)
		assert.NotEqual(t, domainErrors.ErrInvalidTaxID.Message, view.Payment.Warning)
	})

	t.Run("missing event", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.registrations.Create(ctx, entity.Actor{UserID: uuid.New()}, usecase.CreateRegistrationInput{
			CategoryID: uuid.New(),
		})

		assert.True(t, errors.Is(err, domainErrors.ErrInvalidInput))
	})
}

func TestRegistrationService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("pending payment is refreshed from the gateway", func(t *testing.T) {
		h := newHarness(t)
		userID := h.runner("Ana", "12345678909", "ana@example.com")
		reg := h.pendingRegistration(userID, "120.00")
		h.ledgerRow(reg.ID, "pay_poll")
		require.NoError(t, memRegistrations{h.store}.SetGatewayPayment(ctx, reg.ID, "pay_poll", model.BillingTypePix))

		received := pixPayment("pay_poll")
		received.Status = model.GatewayStatusReceived
		received.PixQRCode = &provider.PixQRCode{Payload: "000201poll"}
		h.gateway.On("GetPayment", mock.Anything, "pay_poll").Return(received, nil).Once()

		view, err := h.registrations.Get(ctx, entity.Actor{UserID: userID}, reg.ID)

		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusConfirmed, view.Status)
		assert.Equal(t, model.PaymentStatusPaid, view.PaymentStatus)
		assert.Equal(t, 1, h.publisher.count(usecase.TopicRegistrationPayment))
		assert.Equal(t, model.GatewayStatusReceived, h.store.payment("pay_poll").Status)
	})

	t.Run("poll failure returns the stored state", func(t *testing.T) {
		h := newHarness(t)
		userID := h.runner("Ana", "12345678909", "ana@example.com")
		reg := h.pendingRegistration(userID, "120.00")
		require.NoError(t, memRegistrations{h.store}.SetGatewayPayment(ctx, reg.ID, "pay_down", model.BillingTypePix))
		h.gateway.On("GetPayment", mock.Anything, "pay_down").
			Return(nil, &provider.TransientError{Op: "GET /payments/pay_down", Err: context.DeadlineExceeded}).Once()

		view, err := h.registrations.Get(ctx, entity.Actor{UserID: userID}, reg.ID)

		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusPending, view.Status)
	})

	t.Run("previous owner sees transferred", func(t *testing.T) {
		h := newHarness(t)
		previous := h.runner("Ana", "12345678909", "ana@example.com")
		current := h.runner("Bia", "98765432100", "bia@example.com")
		reg := h.confirmedRegistration(current)
		now := time.Now()
		h.store.putTransfer(model.TransferRequest{
			ID:             uuid.New(),
			RegistrationID: reg.ID,
			RequestedBy:    previous,
			FromRunnerID:   &previous,
			NewRunnerID:    &current,
			Status:         model.TransferStatusCompleted,
			ProcessedAt:    &now,
		})

		view, err := h.registrations.Get(ctx, entity.Actor{UserID: previous}, reg.ID)

		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusTransferred, view.Status)
		assert.Nil(t, view.Payment)
		assert.Equal(t, model.RegistrationStatusConfirmed, h.store.registration(reg.ID).Status)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		h := newHarness(t)
		owner := h.runner("Ana", "12345678909", "ana@example.com")
		reg := h.confirmedRegistration(owner)

		_, err := h.registrations.Get(ctx, entity.Actor{UserID: uuid.New()}, reg.ID)

		assert.True(t, errors.Is(err, domainErrors.ErrForbidden))
	})

	t.Run("admin may read any registration", func(t *testing.T) {
		h := newHarness(t)
		owner := h.runner("Ana", "12345678909", "ana@example.com")
		reg := h.confirmedRegistration(owner)

		view, err := h.registrations.Get(ctx, entity.Actor{UserID: uuid.New(), IsAdmin: true}, reg.ID)

		require.NoError(t, err)
		assert.Equal(t, reg.ID, view.ID)
	})
}

func TestRegistrationService_ApplyPaymentEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		events        []event.PaymentEvent
		wantStatus    model.RegistrationStatus
		wantPayment   model.PaymentStatus
		wantLastMoved bool
	}{
		{
			name:        "confirmed then received",
			events:      []event.PaymentEvent{event.PaymentConfirmed{}, event.PaymentReceived{}},
			wantStatus:  model.RegistrationStatusConfirmed,
			wantPayment: model.PaymentStatusPaid,
		},
		{
			name:        "duplicate delivery",
			events:      []event.PaymentEvent{event.PaymentReceived{}, event.PaymentReceived{}, event.PaymentReceived{}},
			wantStatus:  model.RegistrationStatusConfirmed,
			wantPayment: model.PaymentStatusPaid,
		},
		{
			name:        "late overdue after payment is ignored",
			events:      []event.PaymentEvent{event.PaymentReceived{}, event.PaymentOverdue{}},
			wantStatus:  model.RegistrationStatusConfirmed,
			wantPayment: model.PaymentStatusPaid,
		},
		{
			name:        "refund wins over a late confirmation",
			events:      []event.PaymentEvent{event.PaymentRefunded{}, event.PaymentConfirmed{}},
			wantStatus:  model.RegistrationStatusCancelled,
			wantPayment: model.PaymentStatusRefunded,
		},
		{
			name:          "overdue then paid",
			events:        []event.PaymentEvent{event.PaymentOverdue{}, event.PaymentReceived{}},
			wantStatus:    model.RegistrationStatusConfirmed,
			wantPayment:   model.PaymentStatusPaid,
			wantLastMoved: true,
		},
		{
			name:        "unhandled event",
			events:      []event.PaymentEvent{event.Unhandled{EventType: "PAYMENT_CREATED"}},
			wantStatus:  model.RegistrationStatusPending,
			wantPayment: model.PaymentStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			reg := h.pendingRegistration(uuid.New(), "120.00")

			var (
				last  *model.Registration
				moved bool
				err   error
			)
			for _, ev := range tt.events {
				last, moved, err = h.registrations.ApplyPaymentEvent(ctx, reg.ID, ev)
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantStatus, last.Status)
			assert.Equal(t, tt.wantPayment, last.PaymentStatus)
			assert.Equal(t, tt.wantLastMoved, moved)
			stored := h.store.registration(reg.ID)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, tt.wantPayment, stored.PaymentStatus)
		})
	}

	t.Run("missing registration", func(t *testing.T) {
		h := newHarness(t)

		_, _, err := h.registrations.ApplyPaymentEvent(ctx, uuid.New(), event.PaymentReceived{})

		assert.True(t, errors.Is(err, domainErrors.ErrRegistrationNotFound))
	})
}

func TestRegistrationService_EnsurePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed registration is not payable", func(t *testing.T) {
		h := newHarness(t)
		owner := h.runner("Ana", "12345678909", "ana@example.com")
		reg := h.confirmedRegistration(owner)

		_, err := h.registrations.EnsurePayment(ctx, entity.Actor{UserID: owner}, reg.ID, "")

		assert.True(t, errors.Is(err, domainErrors.ErrRegistrationNotPayable))
	})

	t.Run("failed payment is reissued", func(t *testing.T) {
		h := newHarness(t)
		owner := h.runner("Ana", "12345678909", "ana@example.com")
		reg := h.pendingRegistration(owner, "120.00")
		require.NoError(t, memRegistrations{h.store}.UpdatePaymentState(ctx, reg.ID, model.RegistrationStatusPending, model.PaymentStatusFailed))
		boleto := pixPayment("pay_retry")
		boleto.BillingType = model.BillingTypeBoleto
		h.gateway.On("FindCustomerByTaxID", mock.Anything, "12345678909").Return(&provider.Customer{ID: "cus_1"}, nil).Once()
		h.gateway.On("CreatePayment", mock.Anything, mock.MatchedBy(func(req *provider.CreatePaymentRequest) bool {
			return req.BillingType == model.BillingTypeBoleto
		})).Return(boleto, nil).Once()

		view, err := h.registrations.EnsurePayment(ctx, entity.Actor{UserID: owner}, reg.ID, model.BillingTypeBoleto)

		require.NoError(t, err)
		assert.Equal(t, "pay_retry", view.Payment.GatewayPaymentID)
		assert.Equal(t, model.BillingTypeBoleto, view.Payment.BillingType)
	})
}
