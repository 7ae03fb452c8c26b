package http_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	handlers "github.com/thekiqdev/raceflow-hub-sub001/internal/adapter/handler/http"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
	"go.uber.org/zap"
)

type MockRegistrationUsecase struct {
	mock.Mock
}

func (m *MockRegistrationUsecase) Create(ctx context.Context, actor entity.Actor, input usecase.CreateRegistrationInput) (*entity.RegistrationView, error) {
	args := m.Called(ctx, actor, input)
	return viewOrNil(args.Get(0)), args.Error(1)
}

func (m *MockRegistrationUsecase) Get(ctx context.Context, viewer entity.Actor, id uuid.UUID) (*entity.RegistrationView, error) {
	args := m.Called(ctx, viewer, id)
	return viewOrNil(args.Get(0)), args.Error(1)
}

func (m *MockRegistrationUsecase) EnsurePayment(ctx context.Context, actor entity.Actor, id uuid.UUID, billingType string) (*entity.RegistrationView, error) {
	args := m.Called(ctx, actor, id, billingType)
	return viewOrNil(args.Get(0)), args.Error(1)
}

func viewOrNil(v interface{}) *entity.RegistrationView {
	if v == nil {
		return nil
	}
	return v.(*entity.RegistrationView)
}

func setupRegistrationRoutes(registrations handlers.RegistrationUsecase) *echo.Echo {
	e, api, _ := newTestEcho()
	h := handlers.NewRegistrationHandler(registrations, zap.NewNop())
	api.POST("/registrations", h.Create)
	api.GET("/registrations/:id", h.Get)
	api.POST("/registrations/:id/payment", h.EnsurePayment)
	return e
}

func TestRegistrationHandler_Create(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	categoryID := uuid.New()

	t.Run("creates and returns payment info", func(t *testing.T) {
		registrations := new(MockRegistrationUsecase)
		registrations.On("Create", mock.Anything, entity.Actor{UserID: userID},
			mock.MatchedBy(func(in usecase.CreateRegistrationInput) bool {
				return in.EventID == eventID && in.CategoryID == categoryID &&
					in.TotalAmount.Equal(decimal.RequireFromString("120.50")) && in.BillingType == model.BillingTypePix
			})).
			Return(&entity.RegistrationView{
				Registration: &model.Registration{ID: uuid.New(), Status: model.RegistrationStatusPending},
				Payment:      &entity.PaymentInfo{GatewayPaymentID: "pay_1", Value: decimal.RequireFromString("120.50")},
			}, nil).Once()

		body := fmt.Sprintf(`{"event_id":%q,"category_id":%q,"total_amount":"120.50","billing_type":"PIX"}`, eventID, categoryID)
		rec := doRequest(setupRegistrationRoutes(registrations), http.MethodPost, "/api/registrations", bearer(t, userID, "runner"), body)

		assert.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeBody(t, rec)
		assert.Equal(t, true, resp["success"])
		data := resp["data"].(map[string]interface{})
		assert.Equal(t, "pay_1", data["payment"].(map[string]interface{})["gateway_payment_id"])
		registrations.AssertExpectations(t)
	})

	t.Run("rejects unknown billing type", func(t *testing.T) {
		registrations := new(MockRegistrationUsecase)
		body := fmt.Sprintf(`{"event_id":%q,"category_id":%q,"total_amount":10,"billing_type":"CASH"}`, eventID, categoryID)

		rec := doRequest(setupRegistrationRoutes(registrations), http.MethodPost, "/api/registrations", bearer(t, userID, "runner"), body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domainErrors.ErrTypeInvalidInput, decodeBody(t, rec)["error"])
		registrations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires a token", func(t *testing.T) {
		registrations := new(MockRegistrationUsecase)

		rec := doRequest(setupRegistrationRoutes(registrations), http.MethodPost, "/api/registrations", "", `{}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRegistrationHandler_ErrorMapping(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domainErrors.ErrRegistrationNotFound, http.StatusNotFound, domainErrors.ErrTypeRegistrationNotFound},
		{"forbidden", domainErrors.ErrForbidden, http.StatusForbidden, domainErrors.ErrTypeForbidden},
		{"not payable", domainErrors.ErrRegistrationNotPayable, http.StatusConflict, domainErrors.ErrTypeRegistrationNotPayable},
		{"invalid tax id", domainErrors.ErrInvalidTaxID, http.StatusBadRequest, domainErrors.ErrTypeInvalidTaxID},
		{"gateway rejected", &provider.GatewayError{StatusCode: 400, GatewayCode: "invalid_value", Message: "Valor inválido"}, http.StatusBadGateway, "GATEWAY_ERROR"},
		{"gateway unreachable", &provider.TransientError{Op: "create_payment", Err: errors.New("timeout")}, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registrations := new(MockRegistrationUsecase)
			registrations.On("EnsurePayment", mock.Anything, entity.Actor{UserID: userID}, id, "").Return(nil, tt.err).Once()

			rec := doRequest(setupRegistrationRoutes(registrations), http.MethodPost, "/api/registrations/"+id.String()+"/payment", bearer(t, userID, "runner"), "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeBody(t, rec)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.wantCode, resp["error"])
			assert.NotEmpty(t, resp["message"])
			registrations.AssertExpectations(t)
		})
	}
}

func TestRegistrationHandler_Get(t *testing.T) {
	userID := uuid.New()
	adminID := uuid.New()
	id := uuid.New()

	t.Run("admin flag reaches the use case", func(t *testing.T) {
		registrations := new(MockRegistrationUsecase)
		registrations.On("Get", mock.Anything, entity.Actor{UserID: adminID, IsAdmin: true}, id).
			Return(&entity.RegistrationView{Registration: &model.Registration{ID: id, Status: model.RegistrationStatusTransferred}}, nil).Once()

		rec := doRequest(setupRegistrationRoutes(registrations), http.MethodGet, "/api/registrations/"+id.String(), bearer(t, adminID, "admin"), "")

		assert.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, string(model.RegistrationStatusTransferred), data["status"])
		registrations.AssertExpectations(t)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		registrations := new(MockRegistrationUsecase)

		rec := doRequest(setupRegistrationRoutes(registrations), http.MethodGet, "/api/registrations/not-a-uuid", bearer(t, userID, "runner"), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, domainErrors.ErrTypeRegistrationNotFound, decodeBody(t, rec)["error"])
	})
}
