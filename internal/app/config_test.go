package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("HOLD_TTL", "5m")
	t.Setenv("SEAT_STORE", SeatStoreMemory)

	cfg, displayVersion, err := parseConfig([]string{"-port", "4000", "-sweep-interval", "10s"})

	require.NoError(t, err)
	assert.False(t, displayVersion)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, SeatStoreMemory, cfg.SeatStore)
	assert.Equal(t, 5*time.Minute, cfg.Hold.TTL)
	assert.Equal(t, 10*time.Second, cfg.Hold.SweepInterval)
	assert.Equal(t, 35*time.Minute, cfg.Hold.PaymentWindow)
	assert.Equal(t, 8, cfg.Hold.MaxSeats)
}

func TestParseConfig_Version(t *testing.T) {
	_, displayVersion, err := parseConfig([]string{"-version"})

	require.NoError(t, err)
	assert.True(t, displayVersion)
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown seat store",
			args:    []string{"-seat-store", "etcd"},
			wantErr: `unknown seat store "etcd"`,
		},
		{
			name:    "postgres without dsn",
			args:    []string{"-seat-store", SeatStorePostgres},
			wantErr: "-db-dsn is required for the postgres seat store",
		},
		{
			name:    "redis without url",
			args:    []string{"-seat-store", SeatStoreRedis, "-db-dsn", "postgres://localhost/cinex"},
			wantErr: "-redis-url is required for the redis seat store",
		},
		{
			name:    "non-positive ttl",
			args:    []string{"-seat-store", SeatStoreMemory, "-hold-ttl", "0s"},
			wantErr: "-hold-ttl must be positive",
		},
		{
			name:    "non-positive payment window",
			args:    []string{"-seat-store", SeatStoreMemory, "-payment-window", "0s"},
			wantErr: "-payment-window must be positive",
		},
		{
			name:    "payment window shorter than stripe allows",
			args:    []string{"-seat-store", SeatStoreMemory, "-stripe-key", "sk_test_123", "-stripe-webhook-secret", "whsec_123", "-payment-window", "10m"},
			wantErr: "-payment-window must be at least 30m when -stripe-key is set",
		},
		{
			name:    "stripe without webhook secret",
			args:    []string{"-seat-store", SeatStoreMemory, "-stripe-key", "sk_test_123"},
			wantErr: "-stripe-webhook-secret is required when -stripe-key is set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseConfig(tt.args)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
