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
	inquirydomain "github.com/smallbiznis/opsdesk/internal/inquiry/domain"
	notificationdomain "github.com/smallbiznis/opsdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordType = "inquiry"

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     inquirydomain.Repository
	Clock    clock.Clock                `optional:"true"`
	Users    authdomain.Service         `optional:"true"`
	Notifier notificationdomain.Service `optional:"true"`
	AuditSvc auditdomain.Service        `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     inquirydomain.Repository
	clock    clock.Clock
	users    authdomain.Service
	notifier notificationdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) inquirydomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("inquiry.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		users:    p.Users,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req inquirydomain.CreateRequest) (*inquirydomain.Response, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, inquirydomain.ErrInvalidCustomerName
	}
	email, err := normalizeEmail(req.CustomerEmail)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, inquirydomain.ErrInvalidSubject
	}
	source, err := parseSource(req.Source)
	if err != nil {
		return nil, err
	}
	assigneeID, err := s.resolveAssignee(ctx, req.AssigneeID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	item := &inquirydomain.Inquiry{
		ID:            s.genID.Generate(),
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Subject:       subject,
		Message:       strings.TrimSpace(req.Message),
		Source:        source,
		Status:        inquirydomain.Statuses.Initial(),
		AssigneeID:    assigneeID,
		Notes:         strings.TrimSpace(req.Notes),
		StatusHistory: workflow.Start(inquirydomain.Statuses.Initial(), actorID, now),
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, recordType)
	s.audit(ctx, "inquiry.created", item, map[string]any{"source": item.Source})
	s.log.Info("inquiry created", zap.String("inquiry_id", item.ID.String()), zap.String("source", item.Source))

	if s.notifier != nil {
		s.notifier.NotifyNewInquiry(ctx, notificationdomain.NewInquiryEvent{
			RecordID:      item.ID.String(),
			Source:        item.Source,
			CustomerName:  item.CustomerName,
			CustomerEmail: item.CustomerEmail,
			CustomerPhone: item.CustomerPhone,
			Subject:       item.Subject,
			Message:       item.Message,
		})
	}
	s.notifyAssignment(ctx, item, actorID)

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*inquirydomain.Response, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req inquirydomain.ListRequest) (*inquirydomain.ListResponse, error) {
	filter := inquirydomain.Filter{}
	if strings.TrimSpace(req.Status) != "" {
		status, err := inquirydomain.Statuses.Parse(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.Source) != "" {
		source, err := parseSource(req.Source)
		if err != nil {
			return nil, err
		}
		filter.Source = source
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

	return &inquirydomain.ListResponse{
		PageInfo: info,
		Inquiries: lo.Map(items, func(item *inquirydomain.Inquiry, _ int) inquirydomain.Response {
			return toResponse(item)
		}),
	}, nil
}

func (s *Service) Update(ctx context.Context, req inquirydomain.UpdateRequest) (*inquirydomain.Response, error) {
	item, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.CustomerName != nil {
		name := strings.TrimSpace(*req.CustomerName)
		if name == "" {
			return nil, inquirydomain.ErrInvalidCustomerName
		}
		item.CustomerName = name
		changes["customer_name"] = name
	}
	if req.CustomerEmail != nil {
		email, err := normalizeEmail(*req.CustomerEmail)
		if err != nil {
			return nil, err
		}
		item.CustomerEmail = email
		changes["customer_email"] = email
	}
	if req.CustomerPhone != nil {
		item.CustomerPhone = strings.TrimSpace(*req.CustomerPhone)
		changes["customer_phone"] = item.CustomerPhone
	}
	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return nil, inquirydomain.ErrInvalidSubject
		}
		item.Subject = subject
		changes["subject"] = subject
	}
	if req.Message != nil {
		item.Message = strings.TrimSpace(*req.Message)
		changes["message"] = true
	}
	if req.Notes != nil {
		item.Notes = strings.TrimSpace(*req.Notes)
		changes["notes"] = true
	}

	reassigned := false
	if req.AssigneeID != nil {
		assigneeID, err := s.resolveAssignee(ctx, *req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if workflow.IDString(assigneeID) != workflow.IDString(item.AssigneeID) {
			changes["assignee_id"] = map[string]any{
				"from": workflow.IDString(item.AssigneeID),
				"to":   workflow.IDString(assigneeID),
			}
			item.AssigneeID = assigneeID
			reassigned = assigneeID != nil
		}
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}

	s.audit(ctx, "inquiry.updated", item, changes)
	if reassigned {
		actorID, _ := obscontext.ActorFromContext(ctx)
		s.notifyAssignment(ctx, item, actorID)
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) ChangeStatus(ctx context.Context, req inquirydomain.ChangeStatusRequest) (*inquirydomain.Response, error) {
	item, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	from := item.Status
	status, history, err := inquirydomain.Statuses.Change(item.Status, item.StatusHistory, req.Status, actorID, now, req.Note)
	if err != nil {
		return nil, err
	}

	item.Status = status
	item.StatusHistory = history
	item.UpdatedAt = now
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, recordType, status)
	s.audit(ctx, "inquiry.status_changed", item, map[string]any{"from": from, "to": status})
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, notificationdomain.StatusChangeEvent{
			RecordType:   recordType,
			RecordID:     item.ID.String(),
			Title:        item.Subject,
			From:         from,
			To:           status,
			ChangedBy:    actorID,
			Note:         strings.TrimSpace(req.Note),
			RecipientIDs: workflow.Recipients(workflow.IDString(item.AssigneeID), item.CreatedBy),
		})
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	inquiryID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, inquiryID)
	if err != nil {
		return err
	}
	if !deleted {
		return inquirydomain.ErrNotFound
	}

	targetID := inquiryID.String()
	s.auditLog(ctx, "inquiry.deleted", &targetID, nil)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*inquirydomain.Inquiry, error) {
	inquiryID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, inquirydomain.ErrNotFound
	}
	return item, nil
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

func (s *Service) notifyAssignment(ctx context.Context, item *inquirydomain.Inquiry, actorID string) {
	if s.notifier == nil || item.AssigneeID == nil {
		return
	}
	s.notifier.NotifyAssignment(ctx, notificationdomain.AssignmentEvent{
		RecordType: recordType,
		RecordID:   item.ID.String(),
		Title:      item.Subject,
		AssigneeID: item.AssigneeID.String(),
		AssignedBy: actorID,
	})
}

func (s *Service) audit(ctx context.Context, action string, item *inquirydomain.Inquiry, metadata map[string]any) {
	targetID := item.ID.String()
	s.auditLog(ctx, action, &targetID, metadata)
}

func (s *Service) auditLog(ctx context.Context, action string, targetID *string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, action, recordType, targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return 0, inquirydomain.ErrInvalidID
	}
	return parsed, nil
}

func parseSource(raw string) (string, error) {
	source := strings.ToLower(strings.TrimSpace(raw))
	if source == "" {
		return "other", nil
	}
	if !lo.Contains(inquirydomain.Sources, source) {
		return "", inquirydomain.ErrInvalidSource
	}
	return source, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", inquirydomain.ErrInvalidCustomerEmail
	}
	return strings.ToLower(addr.Address), nil
}

func toResponse(item *inquirydomain.Inquiry) inquirydomain.Response {
	return inquirydomain.Response{
		ID:            item.ID.String(),
		CustomerName:  item.CustomerName,
		CustomerEmail: item.CustomerEmail,
		CustomerPhone: item.CustomerPhone,
		Subject:       item.Subject,
		Message:       item.Message,
		Source:        item.Source,
		Status:        item.Status,
		AssigneeID:    workflow.IDString(item.AssigneeID),
		Notes:         item.Notes,
		StatusHistory: append([]workflow.Transition(nil), item.StatusHistory...),
		CreatedBy:     item.CreatedBy,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}
