package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PricingConfig carries the tunable constants of both pricing formulas.
type PricingConfig struct {
	GCTPercent       float64 `mapstructure:"gctPercent" yaml:"gctPercent"`
	SurchargePercent float64 `mapstructure:"surchargePercent" yaml:"surchargePercent"`
	TierThresholdUSD float64 `mapstructure:"tierThresholdUsd" yaml:"tierThresholdUsd"`
	HighTierMarkup   float64 `mapstructure:"highTierMarkup" yaml:"highTierMarkup"`
	LowTierMarkup    float64 `mapstructure:"lowTierMarkup" yaml:"lowTierMarkup"`
	MaxMarkupPercent float64 `mapstructure:"maxMarkupPercent" yaml:"maxMarkupPercent"`
	RoundingUnits    []int64 `mapstructure:"roundingUnits" yaml:"roundingUnits"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		GCTPercent:       15,
		SurchargePercent: 7,
		TierThresholdUSD: 100,
		HighTierMarkup:   120,
		LowTierMarkup:    80,
		MaxMarkupPercent: 500,
		RoundingUnits:    []int64{100, 1000, 10000},
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewPricingConfigHolder reads pricing.yml when present and watches it for
// changes. Without a file the defaults apply.
func NewPricingConfigHolder(cfg Config, log *zap.Logger) (*PricingConfigHolder, error) {
	log = log.Named("pricing.config")
	v := viper.New()

	name := strings.TrimSpace(cfg.Pricing.ConfigName)
	if name == "" {
		name = "pricing"
	}
	v.SetConfigName(name)
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(cfg.Pricing.ConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("OPSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.gctPercent", defaults.GCTPercent)
	v.SetDefault("pricing.surchargePercent", defaults.SurchargePercent)
	v.SetDefault("pricing.tierThresholdUsd", defaults.TierThresholdUSD)
	v.SetDefault("pricing.highTierMarkup", defaults.HighTierMarkup)
	v.SetDefault("pricing.lowTierMarkup", defaults.LowTierMarkup)
	v.SetDefault("pricing.maxMarkupPercent", defaults.MaxMarkupPercent)
	v.SetDefault("pricing.roundingUnits", defaults.RoundingUnits)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read pricing config: %w", err)
		}
		fileLoaded = false
	}

	var current PricingConfig
	if err := v.UnmarshalKey("pricing", &current); err != nil {
		return nil, fmt.Errorf("decode pricing config: %w", err)
	}
	if err := ValidatePricingConfig(current); err != nil {
		return nil, err
	}

	holder := NewStaticPricingConfigHolder(current)
	if !fileLoaded {
		log.Info("pricing config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Warn("pricing config reload failed", zap.Error(err))
			return
		}
		if err := ValidatePricingConfig(updated); err != nil {
			log.Warn("invalid pricing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("pricing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticPricingConfigHolder returns a holder that never reloads.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func ValidatePricingConfig(cfg PricingConfig) error {
	if cfg.GCTPercent < 0 {
		return errors.New("pricing.gctPercent cannot be negative")
	}
	if cfg.SurchargePercent < 0 {
		return errors.New("pricing.surchargePercent cannot be negative")
	}
	if cfg.TierThresholdUSD <= 0 {
		return errors.New("pricing.tierThresholdUsd must be positive")
	}
	if cfg.MaxMarkupPercent <= 0 {
		return errors.New("pricing.maxMarkupPercent must be positive")
	}
	if cfg.HighTierMarkup < 0 || cfg.HighTierMarkup > cfg.MaxMarkupPercent {
		return errors.New("pricing.highTierMarkup out of range")
	}
	if cfg.LowTierMarkup < 0 || cfg.LowTierMarkup > cfg.MaxMarkupPercent {
		return errors.New("pricing.lowTierMarkup out of range")
	}
	if len(cfg.RoundingUnits) == 0 {
		return errors.New("pricing.roundingUnits cannot be empty")
	}
	for _, unit := range cfg.RoundingUnits {
		if unit <= 0 {
			return errors.New("pricing.roundingUnits must be positive")
		}
	}
	return nil
}
