package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	inquirydomain "github.com/smallbiznis/opsdesk/internal/inquiry/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[inquirydomain.Inquiry]
}

func NewRepository(db *gorm.DB) inquirydomain.Repository {
	return &repo{store: repository.ProvideStore[inquirydomain.Inquiry](db)}
}

func (r *repo) Create(ctx context.Context, inquiry *inquirydomain.Inquiry) error {
	return r.store.Create(ctx, inquiry)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*inquirydomain.Inquiry, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter inquirydomain.Filter, page pagination.Pagination) ([]*inquirydomain.Inquiry, pagination.PageInfo, error) {
	query := &inquirydomain.Inquiry{
		Status:     filter.Status,
		Source:     filter.Source,
		AssigneeID: filter.AssigneeID,
	}
	items, err := r.store.Find(ctx, query, option.ApplyPagination(page))
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, option.NormalizePageSize(page.PageSize), func(i *inquirydomain.Inquiry) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: i.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Save(ctx context.Context, inquiry *inquirydomain.Inquiry) error {
	return r.store.Save(ctx, inquiry)
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
