package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	notificationdomain "github.com/smallbiznis/opsdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	workorderdomain "github.com/smallbiznis/opsdesk/internal/workorder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordType = "work_order"

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     workorderdomain.Repository
	Clock    clock.Clock                `optional:"true"`
	Users    authdomain.Service         `optional:"true"`
	Notifier notificationdomain.Service `optional:"true"`
	AuditSvc auditdomain.Service        `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     workorderdomain.Repository
	clock    clock.Clock
	users    authdomain.Service
	notifier notificationdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) workorderdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("workorder.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		users:    p.Users,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req workorderdomain.CreateRequest) (*workorderdomain.Response, error) {
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		return nil, workorderdomain.ErrInvalidCustomerName
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, workorderdomain.ErrInvalidDescription
	}
	priority, err := workflow.ParsePriority(req.Priority)
	if err != nil {
		return nil, err
	}
	assigneeID, err := s.resolveAssignee(ctx, req.AssigneeID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	order := &workorderdomain.WorkOrder{
		ID:            s.genID.Generate(),
		Number:        workorderdomain.NumberPrefix + ulid.Make().String(),
		CustomerName:  customer,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Description:   description,
		Priority:      priority,
		DueDate:       utc(req.DueDate),
		Status:        workorderdomain.Statuses.Initial(),
		AssigneeID:    assigneeID,
		StatusHistory: workflow.Start(workorderdomain.Statuses.Initial(), actorID, now),
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, recordType)
	s.audit(ctx, "work_order.created", order.ID, map[string]any{"number": order.Number})
	s.log.Info("work order created", zap.String("work_order_id", order.ID.String()), zap.String("number", order.Number))
	s.notifyAssignment(ctx, order, actorID)

	resp := toResponse(order)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*workorderdomain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(order)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req workorderdomain.ListRequest) (*workorderdomain.ListResponse, error) {
	filter := workorderdomain.Filter{Number: strings.ToUpper(strings.TrimSpace(req.Number))}
	if strings.TrimSpace(req.Status) != "" {
		status, err := workorderdomain.Statuses.Parse(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.Priority) != "" {
		priority, err := workflow.ParsePriority(req.Priority)
		if err != nil {
			return nil, err
		}
		filter.Priority = priority
	}
	assigneeID, err := workflow.ParseAssignee(req.AssigneeID)
	if err != nil {
		return nil, err
	}
	filter.AssigneeID = assigneeID
	if req.Overdue {
		now := s.clock.Now()
		filter.Overdue = &now
	}

	items, info, err := s.repo.List(ctx, filter, req.Pagination)
	if err != nil {
		return nil, err
	}

	return &workorderdomain.ListResponse{
		PageInfo: info,
		WorkOrders: lo.Map(items, func(o *workorderdomain.WorkOrder, _ int) workorderdomain.Response {
			return toResponse(o)
		}),
	}, nil
}

func (s *Service) Update(ctx context.Context, req workorderdomain.UpdateRequest) (*workorderdomain.Response, error) {
	order, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.CustomerName != nil {
		customer := strings.TrimSpace(*req.CustomerName)
		if customer == "" {
			return nil, workorderdomain.ErrInvalidCustomerName
		}
		order.CustomerName = customer
		changes["customer_name"] = customer
	}
	if req.CustomerPhone != nil {
		order.CustomerPhone = strings.TrimSpace(*req.CustomerPhone)
		changes["customer_phone"] = order.CustomerPhone
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, workorderdomain.ErrInvalidDescription
		}
		order.Description = description
		changes["description"] = true
	}
	if req.Priority != nil {
		priority, err := workflow.ParsePriority(*req.Priority)
		if err != nil {
			return nil, err
		}
		order.Priority = priority
		changes["priority"] = priority
	}
	if req.DueDate != nil {
		order.DueDate = utc(req.DueDate)
		changes["due_date"] = order.DueDate
	}

	reassigned := false
	if req.AssigneeID != nil {
		assigneeID, err := s.resolveAssignee(ctx, *req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if workflow.IDString(assigneeID) != workflow.IDString(order.AssigneeID) {
			changes["assignee_id"] = map[string]any{
				"from": workflow.IDString(order.AssigneeID),
				"to":   workflow.IDString(assigneeID),
			}
			order.AssigneeID = assigneeID
			reassigned = assigneeID != nil
		}
	}

	order.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, err
	}

	s.audit(ctx, "work_order.updated", order.ID, changes)
	if reassigned {
		actorID, _ := obscontext.ActorFromContext(ctx)
		s.notifyAssignment(ctx, order, actorID)
	}

	resp := toResponse(order)
	return &resp, nil
}

func (s *Service) ChangeStatus(ctx context.Context, req workorderdomain.ChangeStatusRequest) (*workorderdomain.Response, error) {
	order, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	from := order.Status
	status, history, err := workorderdomain.Statuses.Change(order.Status, order.StatusHistory, req.Status, actorID, now, req.Note)
	if err != nil {
		return nil, err
	}

	order.Status = status
	order.StatusHistory = history
	order.UpdatedAt = now
	if status == workorderdomain.StatusCompleted {
		order.CompletedAt = &now
	} else {
		order.CompletedAt = nil
	}
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, recordType, status)
	s.audit(ctx, "work_order.status_changed", order.ID, map[string]any{"from": from, "to": status})
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, notificationdomain.StatusChangeEvent{
			RecordType:   recordType,
			RecordID:     order.ID.String(),
			Title:        order.Number,
			From:         from,
			To:           status,
			ChangedBy:    actorID,
			Note:         strings.TrimSpace(req.Note),
			RecipientIDs: workflow.Recipients(workflow.IDString(order.AssigneeID), order.CreatedBy),
		})
	}

	resp := toResponse(order)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orderID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, orderID)
	if err != nil {
		return err
	}
	if !deleted {
		return workorderdomain.ErrNotFound
	}
	s.audit(ctx, "work_order.deleted", orderID, nil)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*workorderdomain.WorkOrder, error) {
	orderID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, workorderdomain.ErrNotFound
	}
	return order, nil
}

func (s *Service) resolveAssignee(ctx context.Context, raw string) (*snowflake.ID, error) {
	id, err := workflow.ParseAssignee(raw)
	if err != nil || id == nil || s.users == nil {
		return id, err
	}
	user, err := s.users.GetUser(ctx, id.String())
	if err != nil || !user.IsActive {
		return nil, workflow.ErrInvalidAssignee
	}
	return id, nil
}

func (s *Service) notifyAssignment(ctx context.Context, order *workorderdomain.WorkOrder, actorID string) {
	if s.notifier == nil || order.AssigneeID == nil {
		return
	}
	s.notifier.NotifyAssignment(ctx, notificationdomain.AssignmentEvent{
		RecordType: recordType,
		RecordID:   order.ID.String(),
		Title:      order.Number + " " + order.CustomerName,
		AssigneeID: order.AssigneeID.String(),
		AssignedBy: actorID,
		DueDate:    order.DueDate,
	})
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
		return 0, workorderdomain.ErrInvalidID
	}
	return parsed, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func toResponse(o *workorderdomain.WorkOrder) workorderdomain.Response {
	return workorderdomain.Response{
		ID:            o.ID.String(),
		Number:        o.Number,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Description:   o.Description,
		Priority:      o.Priority,
		DueDate:       o.DueDate,
		Status:        o.Status,
		AssigneeID:    workflow.IDString(o.AssigneeID),
		CompletedAt:   o.CompletedAt,
		StatusHistory: append([]workflow.Transition(nil), o.StatusHistory...),
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
