package repository

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type note struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Status    string
	Body      string
	CreatedAt time.Time
}

func setupStore(t *testing.T) (*gorm.DB, Repository[note]) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}))
	return db, ProvideStore[note](db)
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	_, repo := setupStore(t)

	require.NoError(t, repo.Create(ctx, &note{ID: 1, Status: "open", Body: "first"}))

	got, err := repo.FindByID(ctx, int64(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Body)

	require.NoError(t, repo.Update(ctx, int64(1), map[string]any{"status": "closed"}))
	got, err = repo.FindOne(ctx, &note{Status: "closed"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)

	missing, err := repo.FindByID(ctx, int64(99))
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err := repo.Delete(ctx, int64(1))
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, int64(1))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStorePaginationAndOperators(t *testing.T) {
	ctx := context.Background()
	_, repo := setupStore(t)

	notes := make([]*note, 0, 5)
	for i := 1; i <= 5; i++ {
		status := "open"
		if i%2 == 0 {
			status = "closed"
		}
		notes = append(notes, &note{ID: int64(i), Status: status, Body: strconv.Itoa(i)})
	}
	require.NoError(t, repo.BatchCreate(ctx, notes))

	page, err := repo.Find(ctx, nil, option.ApplyPagination(pagination.Pagination{PageSize: 2}))
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(5), page[0].ID)

	token, err := pagination.EncodeCursor(pagination.Cursor{ID: "4"})
	require.NoError(t, err)
	next, err := repo.Find(ctx, nil, option.ApplyPagination(pagination.Pagination{PageSize: 2, PageToken: token}))
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, int64(3), next[0].ID)

	count, err := repo.Count(ctx, &note{Status: "open"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	filtered, err := repo.Find(ctx, nil, option.ApplyOperator(option.Condition{
		Field:    "id",
		Operator: option.GTE,
		Value:    4,
	}))
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, option.DefaultPageSize, option.NormalizePageSize(0))
	assert.Equal(t, option.MaxPageSize, option.NormalizePageSize(10_000))
	assert.Equal(t, 15, option.NormalizePageSize(15))
}
