package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"github.com/smallbiznis/opsdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     categorydomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     categorydomain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) categorydomain.Service {
	return &Service{
		log:      p.Log.Named("category.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) List(ctx context.Context, req categorydomain.ListRequest) ([]categorydomain.Response, error) {
	items, err := s.repo.List(ctx, categorydomain.ListRequest{
		Name:     strings.TrimSpace(req.Name),
		IsActive: req.IsActive,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]categorydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*categorydomain.Response, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req categorydomain.CreateRequest) (*categorydomain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, categorydomain.ErrInvalidName
	}
	if err := categorydomain.ValidateMarkup(req.MarkupPercent); err != nil {
		return nil, err
	}

	categorySlug := slug.Make(strings.TrimSpace(req.Slug))
	if categorySlug == "" {
		categorySlug = slug.Make(name)
	}
	if categorySlug == "" {
		return nil, categorydomain.ErrInvalidName
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now().UTC()
	record := &categorydomain.Category{
		ID:            s.genID.Generate(),
		Name:          name,
		Slug:          categorySlug,
		MarkupPercent: req.MarkupPercent,
		IsActive:      isActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, categorydomain.ErrDuplicateSlug
		}
		return nil, err
	}

	s.audit(ctx, "category.created", record, map[string]any{
		"name":           record.Name,
		"markup_percent": record.MarkupPercent.String(),
	})

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req categorydomain.UpdateRequest) (*categorydomain.Response, error) {
	item, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, categorydomain.ErrInvalidName
		}
		item.Name = name
		changes["name"] = name
	}
	if req.MarkupPercent != nil {
		if err := categorydomain.ValidateMarkup(*req.MarkupPercent); err != nil {
			return nil, err
		}
		changes["markup_percent"] = map[string]any{
			"from": item.MarkupPercent.String(),
			"to":   req.MarkupPercent.String(),
		}
		item.MarkupPercent = *req.MarkupPercent
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
		changes["is_active"] = *req.IsActive
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	s.audit(ctx, "category.updated", item, changes)

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*categorydomain.Response, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	item.IsActive = false
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	s.audit(ctx, "category.deactivated", item, nil)

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) ActiveMarkups(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]categorydomain.Markup, error) {
	out := make(map[snowflake.ID]categorydomain.Markup, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	items, err := s.repo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = categorydomain.Markup{
			ID:            item.ID,
			Name:          item.Name,
			MarkupPercent: item.MarkupPercent,
		}
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id string) (*categorydomain.Category, error) {
	categoryID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, categorydomain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, categorydomain.ErrNotFound
	}
	return item, nil
}

func (s *Service) audit(ctx context.Context, action string, item *categorydomain.Category, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := item.ID.String()
	_ = s.auditSvc.AuditLog(ctx, action, "category", &targetID, metadata)
}

func toResponse(c *categorydomain.Category) categorydomain.Response {
	return categorydomain.Response{
		ID:            c.ID.String(),
		Name:          c.Name,
		Slug:          c.Slug,
		MarkupPercent: c.MarkupPercent,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
