package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	"github.com/smallbiznis/opsdesk/internal/audit/repository"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestAuditLogCapturesActorAndMasksMetadata(t *testing.T) {
	svc, db := newTestService(t)

	ctx := obscontext.WithActor(context.Background(), "77", "manager")
	ctx = obscontext.WithRequestID(ctx, "req-9")
	ctx = obscontext.WithClient(ctx, "10.1.1.1", "test-agent")

	target := "123"
	err := svc.AuditLog(ctx, "ticket.status_changed", "ticket", &target, map[string]any{
		"to":             "closed",
		"customer_email": "jane@example.com",
	})
	require.NoError(t, err)

	var entry auditdomain.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, auditdomain.ActorTypeUser, entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "77", *entry.ActorID)
	assert.Equal(t, "ticket", entry.TargetType)
	assert.Equal(t, "closed", entry.Metadata["to"])
	assert.Equal(t, "****.com", entry.Metadata["customer_email"])
	assert.Equal(t, "req-9", entry.Metadata["request_id"])
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.1.1.1", *entry.IPAddress)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.AuditLog(context.Background(), " ", "ticket", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(ctx, "category.created", "category", nil, nil))
	}
	require.NoError(t, svc.AuditLog(ctx, "user.created", "user", nil, nil))

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "category.created"})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 3)
	assert.False(t, first.HasMore)

	page, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Len(t, page.AuditLogs, 4)
	assert.Equal(t, auditdomain.ActorTypeSystem, page.AuditLogs[0].ActorType)

	small := auditdomain.ListAuditLogRequest{}
	small.PageSize = 3
	head, err := svc.List(ctx, small)
	require.NoError(t, err)
	assert.Len(t, head.AuditLogs, 3)
	require.True(t, head.HasMore)

	small.PageToken = head.NextPageToken
	tail, err := svc.List(ctx, small)
	require.NoError(t, err)
	assert.Len(t, tail.AuditLogs, 1)
	assert.False(t, tail.HasMore)
}

func TestListRejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t)
	req := auditdomain.ListAuditLogRequest{}
	req.PageToken = "not-a-token"
	_, err := svc.List(context.Background(), req)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
