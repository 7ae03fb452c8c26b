package config

import "time"

const (
	AsaasSandbox    = "sandbox"
	AsaasProduction = "production"
)

type ServiceConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	Version     string `mapstructure:"version" yaml:"version"`
}

type AsaasConfig struct {
	APIKey      string `mapstructure:"api_key" yaml:"api_key"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	// BaseURL overrides the URL derived from Environment.
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// WebhookToken is compared against the asaas-access-token header when set.
	WebhookToken string `mapstructure:"webhook_token" yaml:"webhook_token"`

	QRCodeAttempts    int           `mapstructure:"qr_code_attempts" yaml:"qr_code_attempts"`
	QRCodeBackoffStep time.Duration `mapstructure:"qr_code_backoff_step" yaml:"qr_code_backoff_step"`
	QRCodeBackoffMax  time.Duration `mapstructure:"qr_code_backoff_max" yaml:"qr_code_backoff_max"`

	// DueDays is how many days after creation a registration payment is due.
	DueDays int `mapstructure:"due_days" yaml:"due_days"`
}

// ResolvedBaseURL returns the gateway base URL for the configured environment.
func (c AsaasConfig) ResolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == AsaasProduction {
		return "https://api.asaas.com/v3"
	}
	return "https://sandbox.asaas.com/api/v3"
}
