package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	collectiondomain "github.com/smallbiznis/opsdesk/internal/collection/domain"
	notificationdomain "github.com/smallbiznis/opsdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordType = "collection"

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     collectiondomain.Repository
	Clock    clock.Clock                `optional:"true"`
	Notifier notificationdomain.Service `optional:"true"`
	AuditSvc auditdomain.Service        `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     collectiondomain.Repository
	clock    clock.Clock
	notifier notificationdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) collectiondomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("collection.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req collectiondomain.CreateRequest) (*collectiondomain.Response, error) {
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		return nil, collectiondomain.ErrInvalidCustomerName
	}
	if !req.Amount.IsPositive() {
		return nil, collectiondomain.ErrInvalidAmount
	}
	currency, err := workflow.ParseCurrency(req.Currency, collectiondomain.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	method, err := parseMethod(req.Method)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	collectedAt := now
	if req.CollectedAt != nil && !req.CollectedAt.IsZero() {
		collectedAt = req.CollectedAt.UTC()
	}

	collection := &collectiondomain.Collection{
		ID:            s.genID.Generate(),
		CustomerName:  customer,
		Amount:        req.Amount.Round(2),
		Currency:      currency,
		Method:        method,
		Reference:     strings.TrimSpace(req.Reference),
		Status:        collectiondomain.Statuses.Initial(),
		Notes:         strings.TrimSpace(req.Notes),
		CollectedBy:   actorID,
		CollectedAt:   collectedAt,
		StatusHistory: workflow.Start(collectiondomain.Statuses.Initial(), actorID, now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, collection); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, recordType)
	s.audit(ctx, "collection.created", collection.ID, map[string]any{
		"amount":   collection.Amount.StringFixed(2),
		"currency": collection.Currency,
		"method":   collection.Method,
	})

	resp := toResponse(collection)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*collectiondomain.Response, error) {
	collection, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(collection)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req collectiondomain.ListRequest) (*collectiondomain.ListResponse, error) {
	filter := collectiondomain.Filter{
		CollectedBy:   strings.TrimSpace(req.CollectedBy),
		CollectedFrom: req.CollectedFrom,
		CollectedTo:   req.CollectedTo,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := collectiondomain.Statuses.Parse(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.Method) != "" {
		method, err := parseMethod(req.Method)
		if err != nil {
			return nil, err
		}
		filter.Method = method
	}

	items, info, err := s.repo.List(ctx, filter, req.Pagination)
	if err != nil {
		return nil, err
	}

	return &collectiondomain.ListResponse{
		PageInfo: info,
		Collections: lo.Map(items, func(c *collectiondomain.Collection, _ int) collectiondomain.Response {
			return toResponse(c)
		}),
	}, nil
}

func (s *Service) Update(ctx context.Context, req collectiondomain.UpdateRequest) (*collectiondomain.Response, error) {
	collection, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.CustomerName != nil {
		customer := strings.TrimSpace(*req.CustomerName)
		if customer == "" {
			return nil, collectiondomain.ErrInvalidCustomerName
		}
		collection.CustomerName = customer
		changes["customer_name"] = customer
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, collectiondomain.ErrInvalidAmount
		}
		changes["amount"] = map[string]any{
			"from": collection.Amount.StringFixed(2),
			"to":   req.Amount.Round(2).StringFixed(2),
		}
		collection.Amount = req.Amount.Round(2)
	}
	if req.Method != nil {
		method, err := parseMethod(*req.Method)
		if err != nil {
			return nil, err
		}
		collection.Method = method
		changes["method"] = method
	}
	if req.Reference != nil {
		collection.Reference = strings.TrimSpace(*req.Reference)
		changes["reference"] = collection.Reference
	}
	if req.Notes != nil {
		collection.Notes = strings.TrimSpace(*req.Notes)
		changes["notes"] = true
	}

	collection.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, collection); err != nil {
		return nil, err
	}

	s.audit(ctx, "collection.updated", collection.ID, changes)

	resp := toResponse(collection)
	return &resp, nil
}

func (s *Service) ChangeStatus(ctx context.Context, req collectiondomain.ChangeStatusRequest) (*collectiondomain.Response, error) {
	collection, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	from := collection.Status
	status, history, err := collectiondomain.Statuses.Change(collection.Status, collection.StatusHistory, req.Status, actorID, now, req.Note)
	if err != nil {
		return nil, err
	}

	collection.Status = status
	collection.StatusHistory = history
	collection.UpdatedAt = now
	if err := s.repo.Save(ctx, collection); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, recordType, status)
	s.audit(ctx, "collection.status_changed", collection.ID, map[string]any{"from": from, "to": status})
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, notificationdomain.StatusChangeEvent{
			RecordType:   recordType,
			RecordID:     collection.ID.String(),
			Title:        collection.CustomerName + " " + collection.Amount.StringFixed(2) + " " + collection.Currency,
			From:         from,
			To:           status,
			ChangedBy:    actorID,
			Note:         strings.TrimSpace(req.Note),
			RecipientIDs: workflow.Recipients(collection.CollectedBy),
		})
	}

	resp := toResponse(collection)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	collectionID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, collectionID)
	if err != nil {
		return err
	}
	if !deleted {
		return collectiondomain.ErrNotFound
	}
	s.audit(ctx, "collection.deleted", collectionID, nil)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*collectiondomain.Collection, error) {
	collectionID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	collection, err := s.repo.FindByID(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, collectiondomain.ErrNotFound
	}
	return collection, nil
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, recordType, &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return 0, collectiondomain.ErrInvalidID
	}
	return parsed, nil
}

func parseMethod(raw string) (string, error) {
	method := strings.ToLower(strings.TrimSpace(raw))
	if method == "" {
		return collectiondomain.MethodCash, nil
	}
	if !lo.Contains(collectiondomain.Methods, method) {
		return "", collectiondomain.ErrInvalidMethod
	}
	return method, nil
}

func toResponse(c *collectiondomain.Collection) collectiondomain.Response {
	return collectiondomain.Response{
		ID:            c.ID.String(),
		CustomerName:  c.CustomerName,
		Amount:        c.Amount,
		Currency:      c.Currency,
		Method:        c.Method,
		Reference:     c.Reference,
		Status:        c.Status,
		Notes:         c.Notes,
		CollectedBy:   c.CollectedBy,
		CollectedAt:   c.CollectedAt,
		StatusHistory: append([]workflow.Transition(nil), c.StatusHistory...),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
