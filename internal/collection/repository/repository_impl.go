package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	collectiondomain "github.com/smallbiznis/opsdesk/internal/collection/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[collectiondomain.Collection]
}

func NewRepository(db *gorm.DB) collectiondomain.Repository {
	return &repo{store: repository.ProvideStore[collectiondomain.Collection](db)}
}

func (r *repo) Create(ctx context.Context, collection *collectiondomain.Collection) error {
	return r.store.Create(ctx, collection)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*collectiondomain.Collection, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter collectiondomain.Filter, page pagination.Pagination) ([]*collectiondomain.Collection, pagination.PageInfo, error) {
	query := &collectiondomain.Collection{
		Status:      filter.Status,
		Method:      filter.Method,
		CollectedBy: filter.CollectedBy,
	}
	opts := []option.QueryOption{option.ApplyPagination(page)}
	if filter.CollectedFrom != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "collected_at", Operator: option.GTE, Value: *filter.CollectedFrom}))
	}
	if filter.CollectedTo != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "collected_at", Operator: option.LT, Value: *filter.CollectedTo}))
	}

	items, err := r.store.Find(ctx, query, opts...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, option.NormalizePageSize(page.PageSize), func(c *collectiondomain.Collection) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: c.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Save(ctx context.Context, collection *collectiondomain.Collection) error {
	return r.store.Save(ctx, collection)
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
