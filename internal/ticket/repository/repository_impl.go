package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[ticketdomain.Ticket]
}

func NewRepository(db *gorm.DB) ticketdomain.Repository {
	return &repo{store: repository.ProvideStore[ticketdomain.Ticket](db)}
}

func (r *repo) Create(ctx context.Context, ticket *ticketdomain.Ticket) error {
	return r.store.Create(ctx, ticket)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*ticketdomain.Ticket, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter ticketdomain.Filter, page pagination.Pagination) ([]*ticketdomain.Ticket, pagination.PageInfo, error) {
	query := &ticketdomain.Ticket{
		Status:     filter.Status,
		Priority:   filter.Priority,
		AssigneeID: filter.AssigneeID,
	}
	opts := []option.QueryOption{option.ApplyPagination(page)}
	if filter.OpenOnly {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "status",
			Operator: option.IN,
			Value:    lo.ToAnySlice(ticketdomain.Statuses.Open()),
		}))
	}

	items, err := r.store.Find(ctx, query, opts...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, option.NormalizePageSize(page.PageSize), func(t *ticketdomain.Ticket) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: t.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Save(ctx context.Context, ticket *ticketdomain.Ticket) error {
	return r.store.Save(ctx, ticket)
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
