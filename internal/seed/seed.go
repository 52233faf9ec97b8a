package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"github.com/smallbiznis/opsdesk/internal/config"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const systemActor = "system"

type defaultCategory struct {
	Name   string
	Markup int64
}

var defaultCategories = []defaultCategory{
	{Name: "Electronics", Markup: 25},
	{Name: "Hardware", Markup: 40},
	{Name: "Household", Markup: 35},
	{Name: "Auto Parts", Markup: 30},
	{Name: "Clothing", Markup: 50},
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Auth       authdomain.Service
	Categories categorydomain.Service
	Rates      exchangeratedomain.Service
}

// Run bootstraps a fresh install: the default admin, a starter category
// table and the configured exchange rate. Every step is a no-op once data
// exists.
func Run(ctx context.Context, p Params) error {
	log := p.Log.Named("seed")
	ctx = obscontext.WithActor(ctx, systemActor, string(authdomain.RoleAdmin))

	if p.Cfg.Bootstrap.EnsureDefaultAdmin {
		admin, err := p.Auth.EnsureDefaultAdmin(ctx, p.Cfg.Bootstrap.AdminEmail, p.Cfg.Bootstrap.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed default admin: %w", err)
		}
		if admin != nil {
			log.Warn("default admin created, change its password", zap.String("email", admin.Email))
		}
	}

	if err := ensureCategories(ctx, p.Categories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	if err := ensureExchangeRate(ctx, p.Rates, p.Cfg.Bootstrap.DefaultRate); err != nil {
		return fmt.Errorf("seed exchange rate: %w", err)
	}
	return nil
}

func ensureCategories(ctx context.Context, svc categorydomain.Service) error {
	existing, err := svc.List(ctx, categorydomain.ListRequest{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, c := range defaultCategories {
		_, err := svc.Create(ctx, categorydomain.CreateRequest{
			Name:          c.Name,
			MarkupPercent: decimal.NewFromInt(c.Markup),
		})
		if err != nil && !errors.Is(err, categorydomain.ErrDuplicateSlug) {
			return err
		}
	}
	return nil
}

func ensureExchangeRate(ctx context.Context, svc exchangeratedomain.Service, raw string) error {
	if raw == "" {
		return nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse bootstrap rate %q: %w", raw, err)
	}

	_, err = svc.CurrentRate(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, exchangeratedomain.ErrNoRate) {
		return err
	}
	_, err = svc.Set(ctx, exchangeratedomain.SetRequest{Rate: rate, Source: "bootstrap"})
	return err
}
