package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	calllogdomain "github.com/smallbiznis/opsdesk/internal/calllog/domain"
	"github.com/smallbiznis/opsdesk/internal/calllog/repository"
	"github.com/smallbiznis/opsdesk/internal/clock"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (calllogdomain.Service, *clock.FakeClock, context.Context) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&calllogdomain.CallLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC))
	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.NewRepository(db),
		Clock: clk,
	})
	ctx := obscontext.WithActor(context.Background(), "1001", "staff")
	return svc, clk, ctx
}

func TestCreateCallLogDefaults(t *testing.T) {
	svc, clk, ctx := newTestService(t)

	resp, err := svc.Create(ctx, calllogdomain.CreateRequest{
		CallerName:      "  Marcia Brown ",
		CallerPhone:     "876-555-0134",
		DurationSeconds: 240,
		Summary:         "Asked about shipping times",
	})
	require.NoError(t, err)

	assert.Equal(t, "Marcia Brown", resp.CallerName)
	assert.Equal(t, calllogdomain.DirectionInbound, resp.Direction)
	assert.Equal(t, clk.Now(), resp.CalledAt)
	assert.Equal(t, "1001", resp.LoggedBy)
	assert.False(t, resp.FollowUp)
}

func TestCreateCallLogValidation(t *testing.T) {
	svc, _, ctx := newTestService(t)

	_, err := svc.Create(ctx, calllogdomain.CreateRequest{CallerName: " "})
	assert.ErrorIs(t, err, calllogdomain.ErrInvalidCallerName)

	_, err = svc.Create(ctx, calllogdomain.CreateRequest{CallerName: "Dane", Direction: "sideways"})
	assert.ErrorIs(t, err, calllogdomain.ErrInvalidDirection)

	_, err = svc.Create(ctx, calllogdomain.CreateRequest{CallerName: "Dane", DurationSeconds: -1})
	assert.ErrorIs(t, err, calllogdomain.ErrInvalidDuration)
}

func TestListCallLogsByFollowUp(t *testing.T) {
	svc, _, ctx := newTestService(t)

	_, err := svc.Create(ctx, calllogdomain.CreateRequest{CallerName: "Andre", Direction: "outbound", FollowUp: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, calllogdomain.CreateRequest{CallerName: "Keisha"})
	require.NoError(t, err)

	followUp := true
	list, err := svc.List(ctx, calllogdomain.ListRequest{FollowUp: &followUp})
	require.NoError(t, err)
	require.Len(t, list.CallLogs, 1)
	assert.Equal(t, "Andre", list.CallLogs[0].CallerName)

	noFollowUp := false
	list, err = svc.List(ctx, calllogdomain.ListRequest{FollowUp: &noFollowUp})
	require.NoError(t, err)
	require.Len(t, list.CallLogs, 1)
	assert.Equal(t, "Keisha", list.CallLogs[0].CallerName)

	list, err = svc.List(ctx, calllogdomain.ListRequest{Direction: "outbound", Pagination: pagination.Pagination{PageSize: 10}})
	require.NoError(t, err)
	assert.Len(t, list.CallLogs, 1)
	assert.False(t, list.HasMore)
}

func TestUpdateAndDeleteCallLog(t *testing.T) {
	svc, _, ctx := newTestService(t)

	created, err := svc.Create(ctx, calllogdomain.CreateRequest{CallerName: "Devon"})
	require.NoError(t, err)

	followUp := true
	duration := 95
	updated, err := svc.Update(ctx, calllogdomain.UpdateRequest{ID: created.ID, FollowUp: &followUp, DurationSeconds: &duration})
	require.NoError(t, err)
	assert.True(t, updated.FollowUp)
	assert.Equal(t, 95, updated.DurationSeconds)

	negative := -5
	_, err = svc.Update(ctx, calllogdomain.UpdateRequest{ID: created.ID, DurationSeconds: &negative})
	assert.ErrorIs(t, err, calllogdomain.ErrInvalidDuration)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, calllogdomain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), calllogdomain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "bogus"), calllogdomain.ErrInvalidID)
}
