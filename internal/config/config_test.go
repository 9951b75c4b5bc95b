package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, 250, cfg.SyncPageSize)
	assert.Equal(t, 3*time.Minute, cfg.SyncTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "inclusive", cfg.TaxConvention)
	assert.Equal(t, "21", cfg.DefaultVATRate.String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SYNC_PAGE_SIZE", "50")
	t.Setenv("SYNC_TIMEOUT", "90s")
	t.Setenv("DEFAULT_VAT_RATE", "19.5")
	t.Setenv("TAX_CONVENTION", "exclusive")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 50, cfg.SyncPageSize)
	assert.Equal(t, 90*time.Second, cfg.SyncTimeout)
	assert.Equal(t, "19.5", cfg.DefaultVATRate.String())
	assert.Equal(t, "exclusive", cfg.TaxConvention)
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Setenv("SYNC_PAGE_SIZE", "not-a-number")
	t.Setenv("SYNC_TIMEOUT", "-5s")
	t.Setenv("DEFAULT_VAT_RATE", "-3")

	cfg := Load()

	assert.Equal(t, 250, cfg.SyncPageSize)
	assert.Equal(t, 3*time.Minute, cfg.SyncTimeout)
	assert.Equal(t, "21", cfg.DefaultVATRate.String())
}
