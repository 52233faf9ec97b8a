package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/opsdesk/internal/clock"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	"github.com/smallbiznis/opsdesk/internal/exchangerate/repository"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, clk clock.Clock) exchangeratedomain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&exchangeratedomain.ExchangeRate{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.NewRepository(db),
	})
}

func TestCurrentWithoutHistory(t *testing.T) {
	svc := newTestService(t, clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, exchangeratedomain.ErrNoRate)
}

func TestCurrentIgnoresFutureRates(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, clk)
	ctx := obscontext.WithActor(context.Background(), "5", "manager")

	_, err := svc.Set(ctx, exchangeratedomain.SetRequest{Rate: decimal.NewFromInt(155)})
	require.NoError(t, err)

	future := clk.Now().Add(24 * time.Hour)
	_, err = svc.Set(ctx, exchangeratedomain.SetRequest{Rate: decimal.NewFromInt(162), EffectiveAt: &future})
	require.NoError(t, err)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(155).Equal(current.Rate))
	assert.Equal(t, "manual", current.Source)
	require.NotNil(t, current.CreatedBy)
	assert.Equal(t, "5", *current.CreatedBy)

	clk.Advance(48 * time.Hour)
	rate, err := svc.CurrentRate(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(162).Equal(rate))

	history, err := svc.History(ctx, exchangeratedomain.HistoryRequest{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, decimal.NewFromInt(162).Equal(history[0].Rate))
}

func TestSetRejectsNonPositiveRate(t *testing.T) {
	svc := newTestService(t, clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	_, err := svc.Set(context.Background(), exchangeratedomain.SetRequest{Rate: decimal.Zero})
	assert.ErrorIs(t, err, exchangeratedomain.ErrInvalidRate)

	_, err = svc.Set(context.Background(), exchangeratedomain.SetRequest{Rate: decimal.NewFromInt(-3)})
	assert.ErrorIs(t, err, exchangeratedomain.ErrInvalidRate)
}
