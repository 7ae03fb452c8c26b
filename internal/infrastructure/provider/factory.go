package provider

import (
	"fmt"

	"github.com/thekiqdev/raceflow-hub-sub001/internal/config"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/infrastructure/provider/asaas"
	"go.uber.org/zap"
)

// NewPaymentGateway builds the gateway client for the configured Asaas environment.
func NewPaymentGateway(cfg config.AsaasConfig, logger *zap.Logger) (provider.PaymentGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Asaas API key not configured")
	}

	baseURL := cfg.ResolvedBaseURL()
	logger.Info("Payment gateway configured",
		zap.String("provider", "asaas"),
		zap.String("environment", cfg.Environment),
		zap.String("base_url", baseURL))

	return asaas.NewClient(baseURL, cfg.APIKey, cfg.Timeout, logger.Named("asaas")), nil
}
