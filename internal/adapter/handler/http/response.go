package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	domainErrors "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/errors"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	pkgerrors "github.com/thekiqdev/raceflow-hub-sub001/pkg/errors"
	"go.uber.org/zap"
)

const (
	codeGatewayError       = "GATEWAY_ERROR"
	codeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	codeInternalError      = "INTERNAL_ERROR"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func errorBody(code, message string) echo.Map {
	return echo.Map{
		"success": false,
		"error":   code,
		"message": message,
	}
}

// respondError renders err as {success:false, error, message}. Business
// errors keep their own status; anything unclassified is a 500 and logged.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		status := pkgerrors.ToHTTPStatus(domainErr.Kind)
		if status >= http.StatusInternalServerError {
			pkgerrors.LogError(logger, err, "Request failed",
				zap.String("path", c.Path()),
				zap.String("error_type", domainErr.Type))
		}
		return c.JSON(status, errorBody(domainErr.Type, domainErr.Message))
	}

	var gatewayErr *provider.GatewayError
	if errors.As(err, &gatewayErr) {
		logger.Warn("Payment gateway rejected request",
			zap.String("path", c.Path()),
			zap.Int("gateway_status", gatewayErr.StatusCode),
			zap.String("gateway_code", gatewayErr.GatewayCode),
			zap.String("gateway_message", gatewayErr.Message))
		return c.JSON(http.StatusBadGateway, errorBody(codeGatewayError, gatewayErr.Message))
	}

	var transientErr *provider.TransientError
	if errors.As(err, &transientErr) {
		logger.Warn("Payment gateway unavailable",
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorBody(codeGatewayUnavailable,
			"Serviço de pagamento indisponível. Tente novamente em instantes."))
	}

	code := pkgerrors.CodeOf(err)
	status := pkgerrors.ToHTTPStatus(code)
	pkgerrors.LogError(logger, err, "Request failed", zap.String("path", c.Path()))
	if status == http.StatusInternalServerError {
		return c.JSON(status, errorBody(codeInternalError, "Erro interno. Tente novamente mais tarde."))
	}
	message := err.Error()
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message()
	}
	return c.JSON(status, errorBody(code, message))
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domainErrors.ErrInvalidInput.WithMessage("Corpo da requisição inválido")
	}
	if err := c.Validate(req); err != nil {
		return domainErrors.ErrInvalidInput.WithCause(err)
	}
	return nil
}

func pathID(c echo.Context, name string, notFound *domainErrors.DomainError) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}
