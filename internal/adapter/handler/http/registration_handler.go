package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/middleware/auth"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
	"go.uber.org/zap"
)

// RegistrationUsecase is what the registration endpoints call
type RegistrationUsecase interface {
	Create(ctx context.Context, actor entity.Actor, input usecase.CreateRegistrationInput) (*entity.RegistrationView, error)
	Get(ctx context.Context, viewer entity.Actor, id uuid.UUID) (*entity.RegistrationView, error)
	EnsurePayment(ctx context.Context, actor entity.Actor, id uuid.UUID, billingType string) (*entity.RegistrationView, error)
}

type RegistrationHandler struct {
	registrations RegistrationUsecase
	logger        *zap.Logger
}

func NewRegistrationHandler(registrations RegistrationUsecase, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		registrations: registrations,
		logger:        logger,
	}
}

type CreateRegistrationRequest struct {
	EventID     uuid.UUID       `json:"event_id" validate:"required"`
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	KitID       *uuid.UUID      `json:"kit_id"`
	RunnerID    *uuid.UUID      `json:"runner_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	BillingType string          `json:"billing_type" validate:"omitempty,oneof=PIX BOLETO CREDIT_CARD"`
}

type PaymentRequestBody struct {
	BillingType string `json:"billing_type" validate:"omitempty,oneof=PIX BOLETO CREDIT_CARD"`
}

// Create handles POST /api/registrations
func (h *RegistrationHandler) Create(c echo.Context) error {
	// Get authenticated user from JWT
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err // RequireAuth already returns the JSON error response
	}

	var req CreateRegistrationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	view, err := h.registrations.Create(c.Request().Context(), user.Actor(), usecase.CreateRegistrationInput{
		EventID:     req.EventID,
		CategoryID:  req.CategoryID,
		KitID:       req.KitID,
		RunnerID:    req.RunnerID,
		TotalAmount: req.TotalAmount,
		BillingType: req.BillingType,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data":    view,
	})
}

// Get handles GET /api/registrations/:id
func (h *RegistrationHandler) Get(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id", domainErrors.ErrRegistrationNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	view, err := h.registrations.Get(c.Request().Context(), user.Actor(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    view,
	})
}

// EnsurePayment handles POST /api/registrations/:id/payment
func (h *RegistrationHandler) EnsurePayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id", domainErrors.ErrRegistrationNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	// The body is optional; billing type defaults to PIX
	var req PaymentRequestBody
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, h.logger, err)
		}
	}

	view, err := h.registrations.EnsurePayment(c.Request().Context(), user.Actor(), id, req.BillingType)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.Info("Registration payment issued",
		zap.String("registration_id", id.String()),
		zap.String("user_id", user.UserID.String()))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    view,
	})
}
