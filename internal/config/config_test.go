package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: db
  name: raceflow
jwt:
  secret: test-secret
asaas:
  api_key: $aact_test
  webhook_token: hook
messaging:
  driver: redis
  redis_addr: redis:6379
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PAYMENT_ASAAS_ENVIRONMENT", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "production", cfg.Asaas.Environment)
	assert.Equal(t, "https://api.asaas.com/v3", cfg.Asaas.ResolvedBaseURL())
	assert.Equal(t, 30*time.Second, cfg.Asaas.Timeout)
	assert.Equal(t, 5, cfg.Asaas.QRCodeAttempts)
	assert.Equal(t, 2*time.Second, cfg.Asaas.QRCodeBackoffStep)
	assert.Equal(t, "redis", cfg.Messaging.Driver)
	assert.Equal(t, "admin", cfg.JWT.AdminRole)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{JWT: JWTConfig{Secret: "s"}, Asaas: AsaasConfig{Environment: "staging"}}
	assert.Error(t, cfg.Validate())

	cfg.Asaas.Environment = AsaasSandbox
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "https://sandbox.asaas.com/api/v3", cfg.Asaas.ResolvedBaseURL())

	cfg.JWT.Secret = ""
	assert.Error(t, cfg.Validate())
}
