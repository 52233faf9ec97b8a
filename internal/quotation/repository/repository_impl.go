package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	quotationdomain "github.com/smallbiznis/opsdesk/internal/quotation/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[quotationdomain.Quotation]
}

func NewRepository(db *gorm.DB) quotationdomain.Repository {
	return &repo{store: repository.ProvideStore[quotationdomain.Quotation](db)}
}

func (r *repo) Create(ctx context.Context, quotation *quotationdomain.Quotation) error {
	return r.store.Create(ctx, quotation)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*quotationdomain.Quotation, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter quotationdomain.Filter, page pagination.Pagination) ([]*quotationdomain.Quotation, pagination.PageInfo, error) {
	query := &quotationdomain.Quotation{
		Status:           filter.Status,
		AssigneeID:       filter.AssigneeID,
		PricingSessionID: filter.PricingSessionID,
	}

	items, err := r.store.Find(ctx, query, option.ApplyPagination(page))
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, option.NormalizePageSize(page.PageSize), func(q *quotationdomain.Quotation) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: q.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Save(ctx context.Context, quotation *quotationdomain.Quotation) error {
	return r.store.Save(ctx, quotation)
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
