package http

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	"go.uber.org/zap"
)

// AsaasTokenHeader carries the shared secret configured on the Asaas webhook
const AsaasTokenHeader = "asaas-access-token"

// WebhookProcessor is the part of the webhook use case the endpoint needs
type WebhookProcessor interface {
	Handle(ctx context.Context, raw []byte) (*entity.WebhookOutcome, error)
}

// AsaasWebhookHandler receives Asaas payment notifications
type AsaasWebhookHandler struct {
	processor WebhookProcessor
	token     string
	logger    *zap.Logger
}

// NewAsaasWebhookHandler creates the handler. An empty token disables the
// shared-secret check.
func NewAsaasWebhookHandler(processor WebhookProcessor, token string, logger *zap.Logger) *AsaasWebhookHandler {
	return &AsaasWebhookHandler{
		processor: processor,
		token:     token,
		logger:    logger,
	}
}

// Handle answers 200 for every well-formed notification, including ones that
// could not be matched, so the gateway does not keep redelivering them.
func (h *AsaasWebhookHandler) Handle(c echo.Context) error {
	// Verify the shared secret when one is configured
	if h.token != "" {
		got := c.Request().Header.Get(AsaasTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			h.logger.Warn("Webhook rejected: invalid access token",
				zap.String("remote_ip", c.RealIP()))
			return c.JSON(http.StatusUnauthorized, errorBody("INVALID_WEBHOOK_TOKEN", "Token de webhook inválido"))
		}
	}

	// Keep the raw body; it is stored verbatim before parsing
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Falha ao ler o corpo da requisição"))
	}

	outcome, err := h.processor.Handle(c.Request().Context(), body)
	if err != nil {
		// malformed payload or the event could not be stored
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"message":   outcome.Message,
		"event_id":  outcome.EventID,
		"processed": outcome.Processed,
	})
}
