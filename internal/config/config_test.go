package config

import (
	"os"
	"path/filepath"
	"testing"

	"bookline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: bookline-test
  environment: test
database:
  path: /tmp/bookline-test.db
payfast:
  merchant_id: "10000100"
  merchant_key: "46f0cd694581a"
  sandbox: true
billing:
  tier_limits:
    BASIC: 25
    PROFESSIONAL: 100
  grace_period_days: 10
booking:
  max_advance_days: 90
api:
  enabled: true
  http:
    port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bookline-test", cfg.App.Name)
	assert.Equal(t, "/tmp/bookline-test.db", cfg.Database.Path)
	assert.True(t, cfg.Payfast.Sandbox)
	assert.Equal(t, 25, cfg.Billing.TierLimits[models.TierBasic])
	assert.Equal(t, 10, cfg.Billing.GracePeriodDays)
	assert.Equal(t, 90, cfg.Booking.MaxAdvanceDays)
	assert.Equal(t, 9000, cfg.API.HTTP.Port)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/bookline-test.db
payfast:
  merchant_id: "10000100"
  merchant_key: "46f0cd694581a"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bookline", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 50, cfg.Billing.TierLimits[models.TierBasic])
	assert.Equal(t, 200, cfg.Billing.TierLimits[models.TierProfessional])
	assert.NotContains(t, cfg.Billing.TierLimits, models.TierEnterprise)
	assert.Equal(t, 7, cfg.Billing.GracePeriodDays)
	assert.Equal(t, 365, cfg.Booking.MaxAdvanceDays)
	assert.Equal(t, models.DefaultLockTimeoutSeconds, cfg.Booking.LockTimeoutSeconds)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_PAYFAST_KEY", "key-from-env")

	path := writeConfig(t, `
database:
  path: /tmp/bookline-test.db
payfast:
  merchant_id: "10000100"
  merchant_key: "${TEST_PAYFAST_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Payfast.MerchantKey)
}

func TestLoad_ValidationErrors(t *testing.T) {
	_, err := Load(writeConfig(t, `
payfast:
  merchant_id: "10000100"
  merchant_key: "46f0cd694581a"
`))
	assert.ErrorContains(t, err, "database path")

	_, err = Load(writeConfig(t, `
database:
  path: /tmp/bookline-test.db
`))
	assert.ErrorContains(t, err, "payfast merchant")

	_, err = Load(writeConfig(t, `
database:
  path: /tmp/bookline-test.db
payfast:
  merchant_id: "10000100"
  merchant_key: "46f0cd694581a"
billing:
  tier_limits:
    PLATINUM: 10
`))
	assert.ErrorContains(t, err, "unknown subscription tier")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
