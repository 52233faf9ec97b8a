package domain

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/opsdesk/internal/config"
)

// Policy carries the constants of both pricing formulas. Percentages are
// stored as percentages (15 means 15%).
type Policy struct {
	GCTPercent       decimal.Decimal
	SurchargePercent decimal.Decimal
	TierThresholdUSD decimal.Decimal
	HighTierMarkup   decimal.Decimal
	LowTierMarkup    decimal.Decimal
	MaxMarkupPercent decimal.Decimal
	RoundingUnits    []int64
}

func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultPricingConfig())
}

func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		GCTPercent:       decimal.NewFromFloat(cfg.GCTPercent),
		SurchargePercent: decimal.NewFromFloat(cfg.SurchargePercent),
		TierThresholdUSD: decimal.NewFromFloat(cfg.TierThresholdUSD),
		HighTierMarkup:   decimal.NewFromFloat(cfg.HighTierMarkup),
		LowTierMarkup:    decimal.NewFromFloat(cfg.LowTierMarkup),
		MaxMarkupPercent: decimal.NewFromFloat(cfg.MaxMarkupPercent),
		RoundingUnits:    append([]int64(nil), cfg.RoundingUnits...),
	}
}

func (p Policy) AllowsRoundingUnit(unit int64) bool {
	return lo.Contains(p.RoundingUnits, unit)
}

func (p Policy) validMarkup(markup decimal.Decimal) bool {
	return !markup.IsNegative() && markup.LessThanOrEqual(p.MaxMarkupPercent)
}
