package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCore() CoreConfig {
	return CoreConfig{
		AggregationWindowSeconds: 60,
		ReminderDefaultHours:     24,
		TicketRetentionDays:      30,
		DayBucketRetentionDays:   32,
		WeekBucketRetentionDays:  60,
		MonthBucketRetentionDays: 400,
		StatsRefreshSeconds:      300,
	}
}

func TestCoreConfigValidate(t *testing.T) {
	require.NoError(t, validCore().Validate())

	broken := validCore()
	broken.AggregationWindowSeconds = 0
	assert.Error(t, broken.Validate())

	broken = validCore()
	broken.WeekBucketRetentionDays = -1
	assert.Error(t, broken.Validate())
}

func TestCoreConfigDurations(t *testing.T) {
	core := validCore()
	assert.Equal(t, time.Minute, core.AggregationWindow())
	assert.Equal(t, 24*time.Hour, core.ReminderDefault())
	assert.Equal(t, 30*24*time.Hour, core.TicketRetention())

	day, week, month := core.BucketRetention()
	assert.Equal(t, 32*24*time.Hour, day)
	assert.Equal(t, 60*24*time.Hour, week)
	assert.Equal(t, 400*24*time.Hour, month)
	assert.Equal(t, 5*time.Minute, core.StatsRefresh())
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("AGGREGATION_WINDOW_SECONDS", "90")
	t.Setenv("APP_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Core.AggregationWindowSeconds)
	assert.Equal(t, "0.0.0.0:9100", cfg.App.Addr())
	assert.Equal(t, 32, cfg.Core.DayBucketRetentionDays)
}

func TestLoadRejectsInvalidCoreValues(t *testing.T) {
	t.Setenv("STATS_REFRESH_SECONDS", "-5")

	_, err := Load()
	assert.Error(t, err)
}
