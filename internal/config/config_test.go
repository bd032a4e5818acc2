//go:build !integration

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
app:
  base_url: https://billing.example.com/
database:
  url: postgres://u:p@localhost:5432/billing
redis:
  url: localhost:6379
auth:
  jwt_secret: secret
payment:
  zarinpal:
    merchant_id: 00000000-0000-0000-0000-000000000000
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML), false)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, int64(10_000), cfg.Wallet.MinCharge)
	assert.Equal(t, int64(500_000_000), cfg.Wallet.MaxCharge)
	assert.Equal(t, 20*time.Second, cfg.Payment.ZarinPal.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.StaleAfter)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.ReconcileInterval)
	assert.Equal(t, "https://billing.example.com", cfg.App.BaseURL)
	assert.Equal(t, cfg.App.BaseURL, cfg.App.FrontendURL)
	assert.Equal(t, "wallet.ledger", cfg.Kafka.Topic)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_BILLING_JWT_SECRET", "from-env")
	t.Setenv("STORE_BILLING_HTTP_PORT", "9090")
	t.Setenv("STORE_BILLING_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Parse([]byte(minimalYAML), false)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestParse_Validation(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		_, err := Parse([]byte("redis:\n  url: x\nauth:\n  jwt_secret: s\n"), true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.url")
	})

	t.Run("merchant id optional in dev", func(t *testing.T) {
		y := "app:\n  base_url: http://localhost:8080\ndatabase:\n  url: x\nredis:\n  url: y\nauth:\n  jwt_secret: s\n"
		cfg, err := Parse([]byte(y), true)
		require.NoError(t, err)
		assert.True(t, cfg.Runtime.Dev)

		_, err = Parse([]byte(y), false)
		require.Error(t, err)
	})

	t.Run("relative base url rejected", func(t *testing.T) {
		y := "app:\n  base_url: /api\ndatabase:\n  url: x\nredis:\n  url: y\nauth:\n  jwt_secret: s\n"
		_, err := Parse([]byte(y), true)
		require.Error(t, err)
	})
}

func TestParse_ReconcileIntervalCanBeDisabled(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML+"scheduler:\n  reconcile_interval: -1s\n"), false)
	require.NoError(t, err)
	assert.Equal(t, -time.Second, cfg.Scheduler.ReconcileInterval)

	cfg, err = Parse([]byte(minimalYAML+"scheduler:\n  reconcile_interval: 2m\n"), false)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.ReconcileInterval)
}

func TestCallbackURL(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML), false)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.com/wallet/verify?paymentId=abc-123", cfg.CallbackURL("abc-123"))
}
