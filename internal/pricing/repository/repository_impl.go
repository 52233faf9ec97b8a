package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	"github.com/smallbiznis/opsdesk/pkg/db/option"
	"github.com/smallbiznis/opsdesk/pkg/db/pagination"
	"github.com/smallbiznis/opsdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[pricingdomain.Session]
}

func NewRepository(db *gorm.DB) pricingdomain.Repository {
	return &repo{store: repository.ProvideStore[pricingdomain.Session](db)}
}

func (r *repo) Create(ctx context.Context, session *pricingdomain.Session) error {
	return r.store.Create(ctx, session)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*pricingdomain.Session, error) {
	return r.store.FindByID(ctx, int64(id))
}

func (r *repo) List(ctx context.Context, filter pricingdomain.SessionFilter, pageToken string, pageSize int) ([]*pricingdomain.Session, pagination.PageInfo, error) {
	query := &pricingdomain.Session{Mode: filter.Mode}
	opts := []option.QueryOption{
		option.ApplyPagination(pagination.Pagination{PageToken: pageToken, PageSize: pageSize}),
	}
	if createdBy := strings.TrimSpace(filter.CreatedBy); createdBy != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "created_by",
			Operator: option.EQ,
			Value:    createdBy,
		}))
	}

	items, err := r.store.Find(ctx, query, opts...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	limit := option.NormalizePageSize(pageSize)
	items, info := pagination.BuildCursorPageInfo(items, limit, func(s *pricingdomain.Session) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: s.ID.String()})
		return token
	})
	return items, info, nil
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	return r.store.Delete(ctx, int64(id))
}
