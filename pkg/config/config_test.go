package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, value := range values {
		v.Set(key, value)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 1, cfg.Scheduler.LookaheadMonths)
	assert.Equal(t, "09:00", cfg.Scheduler.DefaultStartTime)
	assert.Equal(t, "0 2 * * *", cfg.Scheduler.Cron)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestFromViperSQLiteDriverAliases(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]any{"DB_DRIVER": " SQLite "}))
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)

	cfg = fromViper(newTestViper(map[string]any{"DB_DRIVER": "mysql"}))
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestFromViperClampsLookahead(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]any{"SCHEDULER_LOOKAHEAD_MONTHS": -3}))
	assert.Equal(t, 0, cfg.Scheduler.LookaheadMonths)

	cfg = fromViper(newTestViper(map[string]any{"SCHEDULER_LOOKAHEAD_MONTHS": 40}))
	assert.Equal(t, MaxLookaheadMonths, cfg.Scheduler.LookaheadMonths)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , ,http://b "))
}
