package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateInventoryConfigRejectsNonPositive(t *testing.T) {
	cfg := DefaultInventoryConfig()
	assert.NoError(t, validateInventoryConfig(cfg))

	cfg.SweepPageSize = 0
	assert.Error(t, validateInventoryConfig(cfg))

	cfg = DefaultInventoryConfig()
	cfg.DefaultReorderQuantity = -1
	assert.Error(t, validateInventoryConfig(cfg))
}

func TestInventoryConfigHolderFallsBackToDefaults(t *testing.T) {
	var holder *InventoryConfigHolder
	assert.Equal(t, DefaultInventoryConfig(), holder.Get())

	static := NewStaticInventoryConfigHolder(InventoryConfig{DefaultReorderQuantity: 3, SweepPageSize: 7, MaxOrderLines: 9})
	assert.Equal(t, int64(3), static.Get().DefaultReorderQuantity)
	assert.Equal(t, 7, static.Get().SweepPageSize)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("BOOTSTRAP_ENABLED", "off")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", " Admin@Example.com ")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.False(t, cfg.Bootstrap.Enabled)
	assert.Equal(t, "admin@example.com", cfg.Bootstrap.AdminEmail)
	assert.False(t, cfg.IsProduction())
}
