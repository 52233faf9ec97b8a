package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	notificationdomain "github.com/smallbiznis/opsdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordType = "ticket"

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     ticketdomain.Repository
	Clock    clock.Clock                `optional:"true"`
	Users    authdomain.Service         `optional:"true"`
	Notifier notificationdomain.Service `optional:"true"`
	AuditSvc auditdomain.Service        `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     ticketdomain.Repository
	clock    clock.Clock
	users    authdomain.Service
	notifier notificationdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) ticketdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("ticket.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		users:    p.Users,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req ticketdomain.CreateRequest) (*ticketdomain.Response, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, ticketdomain.ErrInvalidSubject
	}
	email, err := normalizeEmail(req.CustomerEmail)
	if err != nil {
		return nil, err
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
	ticket := &ticketdomain.Ticket{
		ID:            s.genID.Generate(),
		Subject:       subject,
		Description:   strings.TrimSpace(req.Description),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: email,
		Priority:      priority,
		Status:        ticketdomain.Statuses.Initial(),
		AssigneeID:    assigneeID,
		StatusHistory: workflow.Start(ticketdomain.Statuses.Initial(), actorID, now),
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, recordType)
	s.audit(ctx, "ticket.created", ticket.ID, map[string]any{"priority": ticket.Priority})
	s.notifyAssignment(ctx, ticket, actorID)

	resp := toResponse(ticket)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ticketdomain.Response, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(ticket)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req ticketdomain.ListRequest) (*ticketdomain.ListResponse, error) {
	filter := ticketdomain.Filter{OpenOnly: req.OpenOnly}
	if strings.TrimSpace(req.Status) != "" {
		status, err := ticketdomain.Statuses.Parse(req.Status)
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

	items, info, err := s.repo.List(ctx, filter, req.Pagination)
	if err != nil {
		return nil, err
	}

	return &ticketdomain.ListResponse{
		PageInfo: info,
		Tickets: lo.Map(items, func(t *ticketdomain.Ticket, _ int) ticketdomain.Response {
			return toResponse(t)
		}),
	}, nil
}

func (s *Service) Update(ctx context.Context, req ticketdomain.UpdateRequest) (*ticketdomain.Response, error) {
	ticket, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return nil, ticketdomain.ErrInvalidSubject
		}
		ticket.Subject = subject
		changes["subject"] = subject
	}
	if req.Description != nil {
		ticket.Description = strings.TrimSpace(*req.Description)
		changes["description"] = true
	}
	if req.CustomerName != nil {
		ticket.CustomerName = strings.TrimSpace(*req.CustomerName)
		changes["customer_name"] = ticket.CustomerName
	}
	if req.CustomerEmail != nil {
		email, err := normalizeEmail(*req.CustomerEmail)
		if err != nil {
			return nil, err
		}
		ticket.CustomerEmail = email
		changes["customer_email"] = email
	}
	if req.Priority != nil {
		priority, err := workflow.ParsePriority(*req.Priority)
		if err != nil {
			return nil, err
		}
		ticket.Priority = priority
		changes["priority"] = priority
	}

	reassigned := false
	if req.AssigneeID != nil {
		assigneeID, err := s.resolveAssignee(ctx, *req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if workflow.IDString(assigneeID) != workflow.IDString(ticket.AssigneeID) {
			changes["assignee_id"] = map[string]any{
				"from": workflow.IDString(ticket.AssigneeID),
				"to":   workflow.IDString(assigneeID),
			}
			ticket.AssigneeID = assigneeID
			reassigned = assigneeID != nil
		}
	}

	ticket.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, ticket); err != nil {
		return nil, err
	}

	s.audit(ctx, "ticket.updated", ticket.ID, changes)
	if reassigned {
		actorID, _ := obscontext.ActorFromContext(ctx)
		s.notifyAssignment(ctx, ticket, actorID)
	}

	resp := toResponse(ticket)
	return &resp, nil
}

func (s *Service) ChangeStatus(ctx context.Context, req ticketdomain.ChangeStatusRequest) (*ticketdomain.Response, error) {
	ticket, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	from := ticket.Status
	status, history, err := ticketdomain.Statuses.Change(ticket.Status, ticket.StatusHistory, req.Status, actorID, now, req.Note)
	if err != nil {
		return nil, err
	}

	ticket.Status = status
	ticket.StatusHistory = history
	ticket.UpdatedAt = now
	// Closing a resolved ticket keeps the original resolution time.
	switch {
	case !ticketdomain.Statuses.Terminal(status):
		ticket.ResolvedAt = nil
	case ticket.ResolvedAt == nil:
		ticket.ResolvedAt = &now
	}
	if err := s.repo.Save(ctx, ticket); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, recordType, status)
	s.audit(ctx, "ticket.status_changed", ticket.ID, map[string]any{"from": from, "to": status})
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, notificationdomain.StatusChangeEvent{
			RecordType:   recordType,
			RecordID:     ticket.ID.String(),
			Title:        ticket.Subject,
			From:         from,
			To:           status,
			ChangedBy:    actorID,
			Note:         strings.TrimSpace(req.Note),
			RecipientIDs: workflow.Recipients(workflow.IDString(ticket.AssigneeID), ticket.CreatedBy),
		})
	}

	resp := toResponse(ticket)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ticketID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, ticketID)
	if err != nil {
		return err
	}
	if !deleted {
		return ticketdomain.ErrNotFound
	}
	s.audit(ctx, "ticket.deleted", ticketID, nil)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*ticketdomain.Ticket, error) {
	ticketID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ticketdomain.ErrNotFound
	}
	return ticket, nil
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

func (s *Service) notifyAssignment(ctx context.Context, ticket *ticketdomain.Ticket, actorID string) {
	if s.notifier == nil || ticket.AssigneeID == nil {
		return
	}
	s.notifier.NotifyAssignment(ctx, notificationdomain.AssignmentEvent{
		RecordType: recordType,
		RecordID:   ticket.ID.String(),
		Title:      ticket.Subject,
		AssigneeID: ticket.AssigneeID.String(),
		AssignedBy: actorID,
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
		return 0, ticketdomain.ErrInvalidID
	}
	return parsed, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", ticketdomain.ErrInvalidCustomerEmail
	}
	return strings.ToLower(addr.Address), nil
}

func toResponse(t *ticketdomain.Ticket) ticketdomain.Response {
	return ticketdomain.Response{
		ID:            t.ID.String(),
		Subject:       t.Subject,
		Description:   t.Description,
		CustomerName:  t.CustomerName,
		CustomerEmail: t.CustomerEmail,
		Priority:      t.Priority,
		Status:        t.Status,
		AssigneeID:    workflow.IDString(t.AssigneeID),
		ResolvedAt:    t.ResolvedAt,
		StatusHistory: append([]workflow.Transition(nil), t.StatusHistory...),
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
