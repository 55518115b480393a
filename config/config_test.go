package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_VARIANT", "")
	t.Setenv("SCHOOL_NAME", "")
	t.Setenv("REQUIRE_CHILDREN", "")

	cfg := Load()

	assert.Equal(t, StorageRemote, cfg.StorageVariant)
	assert.Equal(t, "Maple Walk Prep", cfg.SchoolName)
	assert.True(t, cfg.RequireChildren)
	assert.Equal(t, 720*time.Hour, cfg.CacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_VARIANT", StorageLocal)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ADMIN_CHAT_ID", "-100123")
	t.Setenv("REQUIRE_POSTCODE", "true")
	t.Setenv("CACHE_TTL", "1h")

	cfg := Load()

	assert.Equal(t, StorageLocal, cfg.StorageVariant)
	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, int64(-100123), cfg.AdminChatID)
	assert.True(t, cfg.RequirePostcode)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}
