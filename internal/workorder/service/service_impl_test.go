package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/opsdesk/internal/clock"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	workorderdomain "github.com/smallbiznis/opsdesk/internal/workorder/domain"
	"github.com/smallbiznis/opsdesk/internal/workorder/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (workorderdomain.Service, *clock.FakeClock) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&workorderdomain.WorkOrder{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 10, 1, 8, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.NewRepository(db),
		Clock: clk,
	})
	return svc, clk
}

func managerCtx() context.Context {
	return obscontext.WithActor(context.Background(), "7", "manager")
}

func TestCreateWorkOrder(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.Create(managerCtx(), workorderdomain.CreateRequest{
		CustomerName: "Harbour Cafe",
		Description:  "Install display fridge",
		Priority:     "high",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.Number, workorderdomain.NumberPrefix))
	assert.Equal(t, workorderdomain.StatusOpen, order.Status)
	assert.Equal(t, workflow.PriorityHigh, order.Priority)
	assert.Equal(t, "7", order.CreatedBy)

	_, err = svc.Create(managerCtx(), workorderdomain.CreateRequest{Description: "x"})
	assert.ErrorIs(t, err, workorderdomain.ErrInvalidCustomerName)
	_, err = svc.Create(managerCtx(), workorderdomain.CreateRequest{CustomerName: "x"})
	assert.ErrorIs(t, err, workorderdomain.ErrInvalidDescription)
}

func TestWorkOrderCompletion(t *testing.T) {
	svc, clk := newTestService(t)

	order, err := svc.Create(managerCtx(), workorderdomain.CreateRequest{CustomerName: "a", Description: "b"})
	require.NoError(t, err)

	held, err := svc.ChangeStatus(managerCtx(), workorderdomain.ChangeStatusRequest{ID: order.ID, Status: "on_hold", Note: "waiting on parts"})
	require.NoError(t, err)
	assert.Nil(t, held.CompletedAt)

	clk.Advance(24 * time.Hour)
	done, err := svc.ChangeStatus(managerCtx(), workorderdomain.ChangeStatusRequest{ID: order.ID, Status: "completed"})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clk.Now(), *done.CompletedAt)
	require.Len(t, done.StatusHistory, 3)
	assert.Equal(t, workorderdomain.StatusOnHold, done.StatusHistory[2].From)
}

func TestListOverdueWorkOrders(t *testing.T) {
	svc, clk := newTestService(t)
	past := clk.Now().Add(-48 * time.Hour)
	future := clk.Now().Add(48 * time.Hour)

	late, err := svc.Create(managerCtx(), workorderdomain.CreateRequest{CustomerName: "a", Description: "late", DueDate: &past})
	require.NoError(t, err)
	_, err = svc.Create(managerCtx(), workorderdomain.CreateRequest{CustomerName: "a", Description: "upcoming", DueDate: &future})
	require.NoError(t, err)
	cancelled, err := svc.Create(managerCtx(), workorderdomain.CreateRequest{CustomerName: "a", Description: "dropped", DueDate: &past})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(managerCtx(), workorderdomain.ChangeStatusRequest{ID: cancelled.ID, Status: "cancelled"})
	require.NoError(t, err)

	resp, err := svc.List(managerCtx(), workorderdomain.ListRequest{Overdue: true})
	require.NoError(t, err)
	require.Len(t, resp.WorkOrders, 1)
	assert.Equal(t, late.ID, resp.WorkOrders[0].ID)

	byNumber, err := svc.List(managerCtx(), workorderdomain.ListRequest{Number: strings.ToLower(late.Number)})
	require.NoError(t, err)
	require.Len(t, byNumber.WorkOrders, 1)
	assert.Equal(t, "late", byNumber.WorkOrders[0].Description)
}

func TestUpdateWorkOrder(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.Create(managerCtx(), workorderdomain.CreateRequest{CustomerName: "a", Description: "b"})
	require.NoError(t, err)

	bad := "someday"
	_, err = svc.Update(managerCtx(), workorderdomain.UpdateRequest{ID: order.ID, Priority: &bad})
	assert.ErrorIs(t, err, workflow.ErrInvalidPriority)

	phone := " 876-555-0101 "
	updated, err := svc.Update(managerCtx(), workorderdomain.UpdateRequest{ID: order.ID, CustomerPhone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "876-555-0101", updated.CustomerPhone)
	assert.Equal(t, order.Number, updated.Number)

	require.NoError(t, svc.Delete(managerCtx(), order.ID))
	assert.ErrorIs(t, svc.Delete(managerCtx(), order.ID), workorderdomain.ErrNotFound)
}
