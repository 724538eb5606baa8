package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// InventoryConfig tunes the reorder advisory and order intake.
type InventoryConfig struct {
	DefaultReorderQuantity int64 `mapstructure:"defaultReorderQuantity"`
	SweepPageSize          int   `mapstructure:"sweepPageSize"`
	MaxOrderLines          int   `mapstructure:"maxOrderLines"`
}

func DefaultInventoryConfig() InventoryConfig {
	return InventoryConfig{
		DefaultReorderQuantity: 10,
		SweepPageSize:          500,
		MaxOrderLines:          200,
	}
}

type InventoryConfigHolder struct {
	current atomic.Value // holds InventoryConfig
}

// NewStaticInventoryConfigHolder returns a holder that never reloads.
func NewStaticInventoryConfigHolder(cfg InventoryConfig) *InventoryConfigHolder {
	holder := &InventoryConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInventoryConfigHolder() (*InventoryConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("inventory")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/stockwise/config") // Volume-mounted config
	v.AddConfigPath("/etc/stockwise")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("STOCKWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInventoryConfig()
	v.SetDefault("inventory.defaultReorderQuantity", defaults.DefaultReorderQuantity)
	v.SetDefault("inventory.sweepPageSize", defaults.SweepPageSize)
	v.SetDefault("inventory.maxOrderLines", defaults.MaxOrderLines)

	configFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		configFound = false
	}

	var cfg InventoryConfig
	if err := v.UnmarshalKey("inventory", &cfg); err != nil {
		return nil, err
	}
	if err := validateInventoryConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInventoryConfigHolder(cfg)
	if !configFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InventoryConfig
		if err := v.UnmarshalKey("inventory", &updated); err != nil {
			log.Printf("[inventory-config] reload failed: %v", err)
			return
		}
		if err := validateInventoryConfig(updated); err != nil {
			log.Printf("[inventory-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[inventory-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *InventoryConfigHolder) Get() InventoryConfig {
	if h == nil {
		return DefaultInventoryConfig()
	}
	cfg, ok := h.current.Load().(InventoryConfig)
	if !ok {
		return DefaultInventoryConfig()
	}
	return cfg
}

func validateInventoryConfig(cfg InventoryConfig) error {
	if cfg.DefaultReorderQuantity <= 0 {
		return errors.New("inventory.defaultReorderQuantity must be positive")
	}
	if cfg.SweepPageSize <= 0 {
		return errors.New("inventory.sweepPageSize must be positive")
	}
	if cfg.MaxOrderLines <= 0 {
		return errors.New("inventory.maxOrderLines must be positive")
	}
	return nil
}
