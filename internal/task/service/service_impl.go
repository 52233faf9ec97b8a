package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	notificationdomain "github.com/smallbiznis/opsdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	taskdomain "github.com/smallbiznis/opsdesk/internal/task/domain"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordType = "task"

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     taskdomain.Repository
	Clock    clock.Clock                `optional:"true"`
	Users    authdomain.Service         `optional:"true"`
	Notifier notificationdomain.Service `optional:"true"`
	AuditSvc auditdomain.Service        `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     taskdomain.Repository
	clock    clock.Clock
	users    authdomain.Service
	notifier notificationdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) taskdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("task.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		users:    p.Users,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req taskdomain.CreateRequest) (*taskdomain.Response, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, taskdomain.ErrInvalidTitle
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
	task := &taskdomain.Task{
		ID:            s.genID.Generate(),
		Title:         title,
		Description:   strings.TrimSpace(req.Description),
		Priority:      priority,
		DueDate:       utc(req.DueDate),
		Status:        taskdomain.Statuses.Initial(),
		AssigneeID:    assigneeID,
		StatusHistory: workflow.Start(taskdomain.Statuses.Initial(), actorID, now),
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, recordType)
	s.audit(ctx, "task.created", task.ID, map[string]any{"priority": task.Priority})
	s.notifyAssignment(ctx, task, actorID)

	resp := toResponse(task)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*taskdomain.Response, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(task)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req taskdomain.ListRequest) (*taskdomain.ListResponse, error) {
	filter := taskdomain.Filter{DueBefore: req.DueBefore}
	if strings.TrimSpace(req.Status) != "" {
		status, err := taskdomain.Statuses.Parse(req.Status)
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

	return &taskdomain.ListResponse{
		PageInfo: info,
		Tasks: lo.Map(items, func(t *taskdomain.Task, _ int) taskdomain.Response {
			return toResponse(t)
		}),
	}, nil
}

func (s *Service) Update(ctx context.Context, req taskdomain.UpdateRequest) (*taskdomain.Response, error) {
	task, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, taskdomain.ErrInvalidTitle
		}
		task.Title = title
		changes["title"] = title
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
		changes["description"] = true
	}
	if req.Priority != nil {
		priority, err := workflow.ParsePriority(*req.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = priority
		changes["priority"] = priority
	}
	switch {
	case req.ClearDue:
		task.DueDate = nil
		changes["due_date"] = nil
	case req.DueDate != nil:
		task.DueDate = utc(req.DueDate)
		changes["due_date"] = task.DueDate
	}

	reassigned := false
	if req.AssigneeID != nil {
		assigneeID, err := s.resolveAssignee(ctx, *req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if workflow.IDString(assigneeID) != workflow.IDString(task.AssigneeID) {
			changes["assignee_id"] = map[string]any{
				"from": workflow.IDString(task.AssigneeID),
				"to":   workflow.IDString(assigneeID),
			}
			task.AssigneeID = assigneeID
			reassigned = assigneeID != nil
		}
	}

	task.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}

	s.audit(ctx, "task.updated", task.ID, changes)
	if reassigned {
		actorID, _ := obscontext.ActorFromContext(ctx)
		s.notifyAssignment(ctx, task, actorID)
	}

	resp := toResponse(task)
	return &resp, nil
}

func (s *Service) ChangeStatus(ctx context.Context, req taskdomain.ChangeStatusRequest) (*taskdomain.Response, error) {
	task, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	from := task.Status
	status, history, err := taskdomain.Statuses.Change(task.Status, task.StatusHistory, req.Status, actorID, now, req.Note)
	if err != nil {
		return nil, err
	}

	task.Status = status
	task.StatusHistory = history
	task.UpdatedAt = now
	if status == taskdomain.StatusDone {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, recordType, status)
	s.audit(ctx, "task.status_changed", task.ID, map[string]any{"from": from, "to": status})
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, notificationdomain.StatusChangeEvent{
			RecordType:   recordType,
			RecordID:     task.ID.String(),
			Title:        task.Title,
			From:         from,
			To:           status,
			ChangedBy:    actorID,
			Note:         strings.TrimSpace(req.Note),
			RecipientIDs: workflow.Recipients(workflow.IDString(task.AssigneeID), task.CreatedBy),
		})
	}

	resp := toResponse(task)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	taskID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return taskdomain.ErrNotFound
	}
	s.audit(ctx, "task.deleted", taskID, nil)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*taskdomain.Task, error) {
	taskID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, taskdomain.ErrNotFound
	}
	return task, nil
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

func (s *Service) notifyAssignment(ctx context.Context, task *taskdomain.Task, actorID string) {
	if s.notifier == nil || task.AssigneeID == nil {
		return
	}
	s.notifier.NotifyAssignment(ctx, notificationdomain.AssignmentEvent{
		RecordType: recordType,
		RecordID:   task.ID.String(),
		Title:      task.Title,
		AssigneeID: task.AssigneeID.String(),
		AssignedBy: actorID,
		DueDate:    task.DueDate,
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
		return 0, taskdomain.ErrInvalidID
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

func toResponse(t *taskdomain.Task) taskdomain.Response {
	return taskdomain.Response{
		ID:            t.ID.String(),
		Title:         t.Title,
		Description:   t.Description,
		Priority:      t.Priority,
		DueDate:       t.DueDate,
		Status:        t.Status,
		AssigneeID:    workflow.IDString(t.AssigneeID),
		CompletedAt:   t.CompletedAt,
		StatusHistory: append([]workflow.Transition(nil), t.StatusHistory...),
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
