package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	taskdomain "github.com/smallbiznis/opsdesk/internal/task/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[taskdomain.Task]
}

func NewRepository(db *gorm.DB) taskdomain.Repository {
	return &repo{store: repository.ProvideStore[taskdomain.Task](db)}
}

func (r *repo) Create(ctx context.Context, task *taskdomain.Task) error {
	return r.store.Create(ctx, task)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*taskdomain.Task, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter taskdomain.Filter, page pagination.Pagination) ([]*taskdomain.Task, pagination.PageInfo, error) {
	query := &taskdomain.Task{
		Status:     filter.Status,
		Priority:   filter.Priority,
		AssigneeID: filter.AssigneeID,
	}
	opts := []option.QueryOption{option.ApplyPagination(page)}
	if filter.DueBefore != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "due_date",
			Operator: option.LT,
			Value:    *filter.DueBefore,
		}))
	}

	items, err := r.store.Find(ctx, query, opts...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, option.NormalizePageSize(page.PageSize), func(t *taskdomain.Task) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: t.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Save(ctx context.Context, task *taskdomain.Task) error {
	return r.store.Save(ctx, task)
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
