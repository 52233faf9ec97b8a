package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"github.com/smallbiznis/opsdesk/internal/category/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) categorydomain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&categorydomain.Category{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.NewRepository(db),
	})
}

func TestCreateBuildsSlugAndRejectsDuplicates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, categorydomain.CreateRequest{
		Name:          "Auto Parts & Tools",
		MarkupPercent: decimal.NewFromInt(35),
	})
	require.NoError(t, err)
	assert.Equal(t, "auto-parts-and-tools", created.Slug)
	assert.True(t, created.IsActive)

	_, err = svc.Create(ctx, categorydomain.CreateRequest{
		Name:          "auto parts and tools",
		MarkupPercent: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, categorydomain.ErrDuplicateSlug)
}

func TestCreateValidatesMarkupRange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, categorydomain.CreateRequest{Name: "Phones", MarkupPercent: decimal.NewFromInt(501)})
	assert.ErrorIs(t, err, categorydomain.ErrInvalidMarkup)

	_, err = svc.Create(ctx, categorydomain.CreateRequest{Name: "Phones", MarkupPercent: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, categorydomain.ErrInvalidMarkup)

	_, err = svc.Create(ctx, categorydomain.CreateRequest{Name: "  ", MarkupPercent: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, categorydomain.ErrInvalidName)

	edge, err := svc.Create(ctx, categorydomain.CreateRequest{Name: "Luxury", MarkupPercent: decimal.NewFromInt(500)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(edge.MarkupPercent))
}

func TestActiveMarkupsSkipsInactiveAndUnknown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	active, err := svc.Create(ctx, categorydomain.CreateRequest{Name: "Laptops", MarkupPercent: decimal.NewFromInt(25)})
	require.NoError(t, err)
	retired, err := svc.Create(ctx, categorydomain.CreateRequest{Name: "Pagers", MarkupPercent: decimal.NewFromInt(40)})
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, retired.ID)
	require.NoError(t, err)

	activeID, _ := snowflake.ParseString(active.ID)
	retiredID, _ := snowflake.ParseString(retired.ID)
	markups, err := svc.ActiveMarkups(ctx, []snowflake.ID{activeID, retiredID, snowflake.ID(42)})
	require.NoError(t, err)

	require.Len(t, markups, 1)
	assert.True(t, decimal.NewFromInt(25).Equal(markups[activeID].MarkupPercent))
	assert.Equal(t, "Laptops", markups[activeID].Name)
}

func TestUpdateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, categorydomain.CreateRequest{Name: "Shoes", MarkupPercent: decimal.NewFromInt(50)})
	require.NoError(t, err)

	markup := decimal.RequireFromString("62.5")
	name := "Footwear"
	updated, err := svc.Update(ctx, categorydomain.UpdateRequest{ID: created.ID, Name: &name, MarkupPercent: &markup})
	require.NoError(t, err)
	assert.Equal(t, "Footwear", updated.Name)
	assert.Equal(t, created.Slug, updated.Slug)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, markup.Equal(got.MarkupPercent))

	_, err = svc.Get(ctx, "999")
	assert.ErrorIs(t, err, categorydomain.ErrNotFound)
	_, err = svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, categorydomain.ErrInvalidID)
}

func TestListFiltersActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, categorydomain.CreateRequest{Name: "Books", MarkupPercent: decimal.NewFromInt(20)})
	require.NoError(t, err)
	old, err := svc.Create(ctx, categorydomain.CreateRequest{Name: "Cassettes", MarkupPercent: decimal.NewFromInt(20)})
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, old.ID)
	require.NoError(t, err)

	all, err := svc.List(ctx, categorydomain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	activeOnly := true
	active, err := svc.List(ctx, categorydomain.ListRequest{IsActive: &activeOnly})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Books", active[0].Name)
}
