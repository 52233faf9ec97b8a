package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) categorydomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, category *categorydomain.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*categorydomain.Category, error) {
	var category categorydomain.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *repository) FindActiveByIDs(ctx context.Context, ids []snowflake.ID) ([]categorydomain.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []categorydomain.Category
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&items).Error
	return items, err
}

func (r *repository) List(ctx context.Context, filter categorydomain.ListRequest) ([]categorydomain.Category, error) {
	var items []categorydomain.Category
	stmt := r.db.WithContext(ctx).Model(&categorydomain.Category{})
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	err := stmt.Order("name asc").Find(&items).Error
	return items, err
}

func (r *repository) Update(ctx context.Context, category *categorydomain.Category) error {
	return r.db.WithContext(ctx).
		Model(&categorydomain.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"name":           category.Name,
			"markup_percent": category.MarkupPercent,
			"is_active":      category.IsActive,
			"updated_at":     category.UpdatedAt,
		}).Error
}
