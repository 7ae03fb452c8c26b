package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	handlers "github.com/thekiqdev/raceflow-hub-sub001/internal/adapter/handler/http"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	pkgerrors "github.com/thekiqdev/raceflow-hub-sub001/pkg/errors"
	"go.uber.org/zap"
)

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) Handle(ctx context.Context, raw []byte) (*entity.WebhookOutcome, error) {
	args := m.Called(ctx, raw)
	if v := args.Get(0); v != nil {
		return v.(*entity.WebhookOutcome), args.Error(1)
	}
	return nil, args.Error(1)
}

const webhookPayload = `{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_1","status":"RECEIVED","externalReference":"REG-x"}}`

func TestAsaasWebhookHandler_Handle(t *testing.T) {
	eventID := uuid.New()

	tests := []struct {
		name       string
		token      string
		header     string
		outcome    *entity.WebhookOutcome
		err        error
		skipCall   bool
		wantStatus int
		wantCode   string
	}{
		{
			name:       "processed without token configured",
			outcome:    &entity.WebhookOutcome{EventID: eventID, Processed: true, Message: "Webhook processed"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unresolved is still acknowledged",
			token:      "s3cret",
			header:     "s3cret",
			outcome:    &entity.WebhookOutcome{EventID: eventID, Processed: false, Message: "Registration not found"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "token mismatch",
			token:      "s3cret",
			header:     "wrong",
			skipCall:   true,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_WEBHOOK_TOKEN",
		},
		{
			name:       "malformed payload",
			err:        domainErrors.ErrInvalidInput.WithCause(errors.New("payment.id required")),
			wantStatus: http.StatusBadRequest,
			wantCode:   domainErrors.ErrTypeInvalidInput,
		},
		{
			name:       "storage unavailable asks for redelivery",
			err:        pkgerrors.NewAppError(pkgerrors.ErrUnavailable, "failed to store webhook event", errors.New("connection refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   pkgerrors.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := new(MockWebhookProcessor)
			if !tt.skipCall {
				processor.On("Handle", mock.Anything, []byte(webhookPayload)).Return(tt.outcome, tt.err).Once()
			}
			h := handlers.NewAsaasWebhookHandler(processor, tt.token, zap.NewNop())

			e, _, _ := newTestEcho()
			e.POST("/api/webhooks/asaas", h.Handle)

			rec := doRequestWithHeader(e, "/api/webhooks/asaas", handlers.AsaasTokenHeader, tt.header, webhookPayload)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, true, body["success"])
				assert.Equal(t, tt.outcome.Message, body["message"])
				assert.Equal(t, tt.outcome.Processed, body["processed"])
			} else {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.wantCode, body["error"])
			}
			processor.AssertExpectations(t)
		})
	}
}
