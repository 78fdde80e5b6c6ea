package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_DSN", "")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PLATFORM_ADMIN_EMAILS", "Boss@Example.com")
	t.Setenv("FRONTEND_URL", "https://planex.app/")
	t.Setenv("REQ_TIMEOUT_SEC", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "planex.db", cfg.DBDSN)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, zapcore.WarnLevel, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, []string{"boss@example.com"}, cfg.PlatformAdminEmails)
	assert.Equal(t, "https://planex.app", cfg.FrontendURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "@every 1h", cfg.HousekeepingSpec)
	assert.Same(t, cfg, Get())
}

func TestLoad_Rejects(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "oracle")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)
}

func TestGet_DevelopmentDefault(t *testing.T) {
	Set(nil)
	cfg := Get()
	assert.True(t, cfg.IsDevelopment())
	assert.NotNil(t, cfg.Location)
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.StorageEnabled())
	assert.Equal(t, 50, cfg.NotificationLimit)
}
