package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CARD_CACHE_TTL", "")
	t.Setenv("RESET_DB", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 2*time.Minute, cfg.CardCacheTTL)
	assert.Equal(t, time.Hour, cfg.BanlistCacheTTL)
	assert.Equal(t, "tcg", cfg.CatalogBanlistFormat)
	assert.False(t, cfg.ResetDB)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CATALOG_TIMEOUT", "3s")
	t.Setenv("RESET_DB", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	assert.True(t, cfg.ResetDB)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "three")
	t.Setenv("CATALOG_TIMEOUT", "-5s")
	t.Setenv("CATALOG_MAX_RETRIES", "x")

	cfg := Load()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, 1, cfg.CatalogMaxRetries)
}
