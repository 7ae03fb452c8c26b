package config

import (
	"fmt"

	pkgconfig "github.com/thekiqdev/raceflow-hub-sub001/pkg/config"
	"github.com/thekiqdev/raceflow-hub-sub001/pkg/logger"
	"github.com/thekiqdev/raceflow-hub-sub001/pkg/messaging"
)

const serviceName = "payment"

type Config struct {
	Service   ServiceConfig    `mapstructure:"service" yaml:"service"`
	Database  DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Server    ServerConfig     `mapstructure:"server" yaml:"server"`
	Log       logger.Config    `mapstructure:"log" yaml:"log"`
	JWT       JWTConfig        `mapstructure:"jwt" yaml:"jwt"`
	Asaas     AsaasConfig      `mapstructure:"asaas" yaml:"asaas"`
	Messaging messaging.Config `mapstructure:"messaging" yaml:"messaging"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" yaml:"secret"`
	// AdminRole is the value of the "role" claim that grants admin access.
	AdminRole string `mapstructure:"admin_role" yaml:"admin_role"`
}

// LoadConfig reads configs/<APP_ENV>/payment.yaml (or CONFIG_PATH) with
// PAYMENT_* environment overrides.
func LoadConfig() (*Config, error) {
	raw, err := pkgconfig.Load(serviceName, pkgconfig.Options{Defaults: defaults()})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := raw.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Asaas.Environment != AsaasSandbox && c.Asaas.Environment != AsaasProduction {
		return fmt.Errorf("asaas.environment must be %q or %q, got %q", AsaasSandbox, AsaasProduction, c.Asaas.Environment)
	}
	return nil
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":                serviceName,
		"service.environment":         "development",
		"server.http.host":            "0.0.0.0",
		"server.http.port":            8080,
		"server.grpc.host":            "0.0.0.0",
		"server.grpc.port":            9090,
		"database.host":               "localhost",
		"database.port":               5432,
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "30m",
		"database.conn_max_idle_time": "5m",
		"log.level":                   "info",
		"log.format":                  "json",
		"log.output":                  "stdout",
		"jwt.admin_role":              "admin",
		"asaas.environment":           AsaasSandbox,
		"asaas.timeout":               "30s",
		"asaas.qr_code_attempts":      5,
		"asaas.qr_code_backoff_step":  "2s",
		"asaas.qr_code_backoff_max":   "8s",
		"asaas.due_days":              3,
		"messaging.driver":            "none",
		"messaging.channel_prefix":    "raceflow.",
		"messaging.kafka_topic":       "raceflow.registrations",
	}
}
