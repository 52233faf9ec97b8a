package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	calllogdomain "github.com/smallbiznis/opsdesk/internal/calllog/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordType = "call_log"

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     calllogdomain.Repository
	Clock    clock.Clock         `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     calllogdomain.Repository
	clock    clock.Clock
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) calllogdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("calllog.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req calllogdomain.CreateRequest) (*calllogdomain.Response, error) {
	caller := strings.TrimSpace(req.CallerName)
	if caller == "" {
		return nil, calllogdomain.ErrInvalidCallerName
	}
	direction, err := parseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	if req.DurationSeconds < 0 {
		return nil, calllogdomain.ErrInvalidDuration
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	calledAt := now
	if req.CalledAt != nil && !req.CalledAt.IsZero() {
		calledAt = req.CalledAt.UTC()
	}

	call := &calllogdomain.CallLog{
		ID:              s.genID.Generate(),
		CallerName:      caller,
		CallerPhone:     strings.TrimSpace(req.CallerPhone),
		Direction:       direction,
		DurationSeconds: req.DurationSeconds,
		Summary:         strings.TrimSpace(req.Summary),
		FollowUp:        req.FollowUp,
		CalledAt:        calledAt,
		LoggedBy:        actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, call); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, recordType)
	s.audit(ctx, "call_log.created", call.ID, map[string]any{
		"direction": call.Direction,
		"follow_up": call.FollowUp,
	})

	resp := toResponse(call)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*calllogdomain.Response, error) {
	call, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(call)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req calllogdomain.ListRequest) (*calllogdomain.ListResponse, error) {
	filter := calllogdomain.Filter{
		LoggedBy:   strings.TrimSpace(req.LoggedBy),
		FollowUp:   req.FollowUp,
		CalledFrom: req.CalledFrom,
		CalledTo:   req.CalledTo,
	}
	if strings.TrimSpace(req.Direction) != "" {
		direction, err := parseDirection(req.Direction)
		if err != nil {
			return nil, err
		}
		filter.Direction = direction
	}

	items, info, err := s.repo.List(ctx, filter, req.Pagination)
	if err != nil {
		return nil, err
	}

	return &calllogdomain.ListResponse{
		PageInfo: info,
		CallLogs: lo.Map(items, func(c *calllogdomain.CallLog, _ int) calllogdomain.Response {
			return toResponse(c)
		}),
	}, nil
}

func (s *Service) Update(ctx context.Context, req calllogdomain.UpdateRequest) (*calllogdomain.Response, error) {
	call, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.CallerName != nil {
		caller := strings.TrimSpace(*req.CallerName)
		if caller == "" {
			return nil, calllogdomain.ErrInvalidCallerName
		}
		call.CallerName = caller
		changes["caller_name"] = caller
	}
	if req.CallerPhone != nil {
		call.CallerPhone = strings.TrimSpace(*req.CallerPhone)
		changes["caller_phone"] = call.CallerPhone
	}
	if req.DurationSeconds != nil {
		if *req.DurationSeconds < 0 {
			return nil, calllogdomain.ErrInvalidDuration
		}
		call.DurationSeconds = *req.DurationSeconds
		changes["duration_seconds"] = call.DurationSeconds
	}
	if req.Summary != nil {
		call.Summary = strings.TrimSpace(*req.Summary)
		changes["summary"] = true
	}
	if req.FollowUp != nil {
		call.FollowUp = *req.FollowUp
		changes["follow_up"] = call.FollowUp
	}

	call.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, call); err != nil {
		return nil, err
	}

	s.audit(ctx, "call_log.updated", call.ID, changes)

	resp := toResponse(call)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	callID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, callID)
	if err != nil {
		return err
	}
	if !deleted {
		return calllogdomain.ErrNotFound
	}
	s.audit(ctx, "call_log.deleted", callID, nil)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*calllogdomain.CallLog, error) {
	callID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	call, err := s.repo.FindByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, calllogdomain.ErrNotFound
	}
	return call, nil
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
		return 0, calllogdomain.ErrInvalidID
	}
	return parsed, nil
}

func parseDirection(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", calllogdomain.DirectionInbound:
		return calllogdomain.DirectionInbound, nil
	case calllogdomain.DirectionOutbound:
		return calllogdomain.DirectionOutbound, nil
	default:
		return "", calllogdomain.ErrInvalidDirection
	}
}

func toResponse(c *calllogdomain.CallLog) calllogdomain.Response {
	return calllogdomain.Response{
		ID:              c.ID.String(),
		CallerName:      c.CallerName,
		CallerPhone:     c.CallerPhone,
		Direction:       c.Direction,
		DurationSeconds: c.DurationSeconds,
		Summary:         c.Summary,
		FollowUp:        c.FollowUp,
		CalledAt:        c.CalledAt,
		LoggedBy:        c.LoggedBy,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
