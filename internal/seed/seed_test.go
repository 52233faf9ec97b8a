package seed

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"github.com/smallbiznis/opsdesk/internal/config"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	authdomain.Service
	calls int
}

func (f *fakeAuth) EnsureDefaultAdmin(ctx context.Context, email, password string) (*authdomain.UserResponse, error) {
	f.calls++
	if f.calls > 1 {
		return nil, nil
	}
	return &authdomain.UserResponse{Email: email}, nil
}

type fakeCategories struct {
	categorydomain.Service
	created []categorydomain.CreateRequest
}

func (f *fakeCategories) List(ctx context.Context, req categorydomain.ListRequest) ([]categorydomain.Response, error) {
	out := make([]categorydomain.Response, len(f.created))
	for i, c := range f.created {
		out[i] = categorydomain.Response{Name: c.Name, MarkupPercent: c.MarkupPercent}
	}
	return out, nil
}

func (f *fakeCategories) Create(ctx context.Context, req categorydomain.CreateRequest) (*categorydomain.Response, error) {
	f.created = append(f.created, req)
	return &categorydomain.Response{Name: req.Name}, nil
}

type fakeRates struct {
	exchangeratedomain.Service
	rates []decimal.Decimal
}

func (f *fakeRates) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	if len(f.rates) == 0 {
		return decimal.Zero, exchangeratedomain.ErrNoRate
	}
	return f.rates[len(f.rates)-1], nil
}

func (f *fakeRates) Set(ctx context.Context, req exchangeratedomain.SetRequest) (*exchangeratedomain.Response, error) {
	f.rates = append(f.rates, req.Rate)
	return &exchangeratedomain.Response{Rate: req.Rate, Source: req.Source}, nil
}

func TestRunIsIdempotent(t *testing.T) {
	auth := &fakeAuth{}
	categories := &fakeCategories{}
	rates := &fakeRates{}

	p := Params{
		Log: zap.NewNop(),
		Cfg: config.Config{Bootstrap: config.BootstrapConfig{
			EnsureDefaultAdmin: true,
			AdminEmail:         "admin@opsdesk.local",
			AdminPassword:      "change-me-now",
			DefaultRate:        "157.25",
		}},
		Auth:       auth,
		Categories: categories,
		Rates:      rates,
	}

	require.NoError(t, Run(context.Background(), p))
	require.NoError(t, Run(context.Background(), p))

	assert.Equal(t, 2, auth.calls)
	assert.Len(t, categories.created, len(defaultCategories))
	require.Len(t, rates.rates, 1)
	assert.True(t, rates.rates[0].Equal(decimal.RequireFromString("157.25")))
}

func TestRunSkipsDisabledSteps(t *testing.T) {
	auth := &fakeAuth{}
	rates := &fakeRates{}

	err := Run(context.Background(), Params{
		Log:        zap.NewNop(),
		Cfg:        config.Config{},
		Auth:       auth,
		Categories: &fakeCategories{},
		Rates:      rates,
	})
	require.NoError(t, err)
	assert.Zero(t, auth.calls)
	assert.Empty(t, rates.rates)
}

func TestRunRejectsBadRate(t *testing.T) {
	err := Run(context.Background(), Params{
		Log:        zap.NewNop(),
		Cfg:        config.Config{Bootstrap: config.BootstrapConfig{DefaultRate: "abc"}},
		Auth:       &fakeAuth{},
		Categories: &fakeCategories{},
		Rates:      &fakeRates{},
	})
	assert.Error(t, err)
}
