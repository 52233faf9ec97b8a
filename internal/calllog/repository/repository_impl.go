package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	calllogdomain "github.com/smallbiznis/opsdesk/internal/calllog/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[calllogdomain.CallLog]
}

func NewRepository(db *gorm.DB) calllogdomain.Repository {
	return &repo{store: repository.ProvideStore[calllogdomain.CallLog](db)}
}

func (r *repo) Create(ctx context.Context, call *calllogdomain.CallLog) error {
	return r.store.Create(ctx, call)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*calllogdomain.CallLog, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter calllogdomain.Filter, page pagination.Pagination) ([]*calllogdomain.CallLog, pagination.PageInfo, error) {
	query := &calllogdomain.CallLog{
		Direction: filter.Direction,
		LoggedBy:  filter.LoggedBy,
	}
	opts := []option.QueryOption{option.ApplyPagination(page)}
	// follow_up false is a zero value, so it cannot ride on the struct query.
	if filter.FollowUp != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "follow_up", Operator: option.EQ, Value: *filter.FollowUp}))
	}
	if filter.CalledFrom != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "called_at", Operator: option.GTE, Value: *filter.CalledFrom}))
	}
	if filter.CalledTo != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "called_at", Operator: option.LT, Value: *filter.CalledTo}))
	}

	items, err := r.store.Find(ctx, query, opts...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, option.NormalizePageSize(page.PageSize), func(c *calllogdomain.CallLog) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: c.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Save(ctx context.Context, call *calllogdomain.CallLog) error {
	return r.store.Save(ctx, call)
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
