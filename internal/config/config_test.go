package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("BATCH_LOCK_TTL_MINUTES", "")
	t.Setenv("SEED_DEMO_DATA", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.BusinessTimezone)
	assert.Equal(t, 30*time.Minute, cfg.BatchLockTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.SchedulerEnabled)
	assert.False(t, cfg.SeedDemoData)
	assert.False(t, cfg.EmailReportsEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("ORDER_LEAD_DAYS", "1")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("BREVO_API_KEY", "key")
	t.Setenv("BREVO_FROM_EMAIL", "ops@example.com")
	t.Setenv("REPORT_EMAIL", "admin@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 1, cfg.OrderLeadDays)
	assert.False(t, cfg.SchedulerEnabled)
	assert.True(t, cfg.EmailReportsEnabled())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad lead days": {"ORDER_LEAD_DAYS", "-1"},
		"bad lock ttl":  {"BATCH_LOCK_TTL_MINUTES", "0"},
		"bad timezone":  {"BUSINESS_TIMEZONE", "Nowhere/Land"},
		"bad node":      {"SNOWFLAKE_NODE", "5000"},
		"bad bool":      {"SCHEDULER_ENABLED", "maybe"},
		"bad seed flag": {"SEED_DEMO_DATA", "sometimes"},
		"non-int ttl":   {"BATCH_LOCK_TTL_MINUTES", "ten"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}
