package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/middleware/auth"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/usecase"
	"go.uber.org/zap"
)

// AdminHandler serves /api/admin. Routes are mounted behind auth.RequireAdmin;
// the use cases check the role again.
type AdminHandler struct {
	transfers TransferUsecase
	logger    *zap.Logger
}

func NewAdminHandler(transfers TransferUsecase, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		transfers: transfers,
		logger:    logger,
	}
}

type DecideTransferRequest struct {
	Status      string     `json:"status" validate:"required"`
	AdminNotes  *string    `json:"admin_notes"`
	NewRunnerID *uuid.UUID `json:"new_runner_id"`
}

type DirectTransferRequest struct {
	NewRunnerID    *uuid.UUID `json:"new_runner_id"`
	NewRunnerCPF   *string    `json:"new_runner_cpf"`
	NewRunnerEmail *string    `json:"new_runner_email" validate:"omitempty,email"`
	Reason         *string    `json:"reason" validate:"omitempty,max=500"`
	AdminNotes     *string    `json:"admin_notes"`
}

// DecideTransfer handles PUT /api/admin/transfers/:id
func (h *AdminHandler) DecideTransfer(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id", domainErrors.ErrTransferNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req DecideTransferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	// Approval executes the transfer; a failed execution comes back as TRANSFER_FAILED
	request, err := h.transfers.Decide(c.Request().Context(), user.Actor(), id, usecase.DecisionInput{
		Status:      model.TransferStatus(req.Status),
		AdminNotes:  req.AdminNotes,
		NewRunnerID: req.NewRunnerID,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.Info("Transfer request decided",
		zap.String("transfer_request_id", id.String()),
		zap.String("decision", req.Status),
		zap.String("status", string(request.Status)),
		zap.String("admin_id", user.UserID.String()))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    request,
	})
}

// DirectTransfer handles POST /api/admin/registrations/:id/transfer
func (h *AdminHandler) DirectTransfer(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	registrationID, err := pathID(c, "id", domainErrors.ErrRegistrationNotFound)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req DirectTransferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	execution, err := h.transfers.DirectTransfer(c.Request().Context(), user.Actor(), registrationID, usecase.DirectTransferInput{
		NewRunnerID:    req.NewRunnerID,
		NewRunnerCPF:   req.NewRunnerCPF,
		NewRunnerEmail: req.NewRunnerEmail,
		Reason:         req.Reason,
		AdminNotes:     req.AdminNotes,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"executed": execution.Executed,
		"data":     execution.Request,
	})
}
