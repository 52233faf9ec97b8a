package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	workorderdomain "github.com/smallbiznis/opsdesk/internal/workorder/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[workorderdomain.WorkOrder]
}

func NewRepository(db *gorm.DB) workorderdomain.Repository {
	return &repo{store: repository.ProvideStore[workorderdomain.WorkOrder](db)}
}

func (r *repo) Create(ctx context.Context, order *workorderdomain.WorkOrder) error {
	return r.store.Create(ctx, order)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*workorderdomain.WorkOrder, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter workorderdomain.Filter, page pagination.Pagination) ([]*workorderdomain.WorkOrder, pagination.PageInfo, error) {
	query := &workorderdomain.WorkOrder{
		Number:     filter.Number,
		Status:     filter.Status,
		Priority:   filter.Priority,
		AssigneeID: filter.AssigneeID,
	}
	opts := []option.QueryOption{option.ApplyPagination(page)}
	if filter.Overdue != nil {
		opts = append(opts,
			option.ApplyOperator(option.Condition{Field: "due_date", Operator: option.LT, Value: *filter.Overdue}),
			option.ApplyOperator(option.Condition{Field: "status", Operator: option.IN, Value: lo.ToAnySlice(workorderdomain.Statuses.Open())}),
		)
	}

	items, err := r.store.Find(ctx, query, opts...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, option.NormalizePageSize(page.PageSize), func(o *workorderdomain.WorkOrder) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: o.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Save(ctx context.Context, order *workorderdomain.WorkOrder) error {
	return r.store.Save(ctx, order)
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
