package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CATALOG_TABLES", "GATEWAY_TIMEOUT", "VIEW_TTL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "rest", cfg.Tables)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 30*time.Minute, cfg.ViewTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SUPABASE_URL", "https://demo.supabase.co/")
	t.Setenv("CATALOG_TABLES", "Postgres")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("VIEW_TTL", "garbage")
	t.Setenv("MAX_VIEWS", "16")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://demo.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "postgres", cfg.Tables)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 30*time.Minute, cfg.ViewTTL)
	assert.Equal(t, 16, cfg.MaxViews)
}
