package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/middleware/auth"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
	"go.uber.org/zap"
)

// TransferUsecase is what the transfer endpoints call
type TransferUsecase interface {
	Create(ctx context.Context, settings entity.SystemSettings, actor entity.Actor, input usecase.CreateTransferInput) (*model.TransferRequest, error)
	Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.TransferView, error)
	GenerateFeePayment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.TransferView, error)
	Decide(ctx context.Context, actor entity.Actor, id uuid.UUID, input usecase.DecisionInput) (*model.TransferRequest, error)
	DirectTransfer(ctx context.Context, actor entity.Actor, registrationID uuid.UUID, input usecase.DirectTransferInput) (*entity.TransferExecution, error)
}

// SettingsProvider yields the settings snapshot a request runs with
type SettingsProvider interface {
	Snapshot(ctx context.Context) (entity.SystemSettings, error)
}

type TransferHandler struct {
	transfers TransferUsecase
	settings  SettingsProvider
	logger    *zap.Logger
}

func NewTransferHandler(transfers TransferUsecase, settings SettingsProvider, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		settings:  settings,
		logger:    logger,
	}
}

type CreateTransferRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" validate:"required"`
	NewRunnerCPF   *string   `json:"new_runner_cpf" validate:"required_without=NewRunnerEmail"`
	NewRunnerEmail *string   `json:"new_runner_email" validate:"omitempty,email"`
	Reason         *string   `json:"reason" validate:"omitempty,max=500"`
}

// Create handles POST /api/transfers
func (h *TransferHandler) Create(c echo.Context) error {
	// Get authenticated user from JWT
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err // RequireAuth already returns the JSON error response
	}

	var req CreateTransferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	// Fee and module flag are read once and passed down
	ctx := c.Request().Context()
	settings, err := h.settings.Snapshot(ctx)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	request, err := h.transfers.Create(ctx, settings, user.Actor(), usecase.CreateTransferInput{
		RegistrationID: req.RegistrationID,
		NewRunnerCPF:   req.NewRunnerCPF,
		NewRunnerEmail: req.NewRunnerEmail,
		Reason:         req.Reason,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data":    request,
	})
}

// Get handles GET /api/transfers/:id
func (h *TransferHandler) Get(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id", domainErrors.ErrTransferNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	view, err := h.transfers.Get(c.Request().Context(), user.Actor(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    view,
	})
}

// GenerateFeePayment handles POST /api/transfers/:id/payment
func (h *TransferHandler) GenerateFeePayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id", domainErrors.ErrTransferNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	view, err := h.transfers.GenerateFeePayment(c.Request().Context(), user.Actor(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    view,
	})
}
