package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     exchangeratedomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     exchangeratedomain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) exchangeratedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("exchangerate.service"),
		genID:    p.GenID,
		clock:    clk,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Current(ctx context.Context) (*exchangeratedomain.Response, error) {
	rate, err := s.repo.Latest(ctx,
		exchangeratedomain.DefaultBaseCurrency,
		exchangeratedomain.DefaultQuoteCurrency,
		s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, exchangeratedomain.ErrNoRate
	}
	resp := toResponse(rate)
	return &resp, nil
}

func (s *Service) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return current.Rate, nil
}

func (s *Service) History(ctx context.Context, req exchangeratedomain.HistoryRequest) ([]exchangeratedomain.Response, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	items, err := s.repo.List(ctx,
		exchangeratedomain.DefaultBaseCurrency,
		exchangeratedomain.DefaultQuoteCurrency,
		limit,
	)
	if err != nil {
		return nil, err
	}

	resp := make([]exchangeratedomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Set(ctx context.Context, req exchangeratedomain.SetRequest) (*exchangeratedomain.Response, error) {
	if !req.Rate.IsPositive() {
		return nil, exchangeratedomain.ErrInvalidRate
	}

	now := s.clock.Now()
	effectiveAt := now
	if req.EffectiveAt != nil && !req.EffectiveAt.IsZero() {
		effectiveAt = req.EffectiveAt.UTC()
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "manual"
	}

	record := &exchangeratedomain.ExchangeRate{
		ID:            s.genID.Generate(),
		BaseCurrency:  exchangeratedomain.DefaultBaseCurrency,
		QuoteCurrency: exchangeratedomain.DefaultQuoteCurrency,
		Rate:          req.Rate,
		EffectiveAt:   effectiveAt,
		Source:        source,
		CreatedAt:     now,
	}
	if actorID, _ := obscontext.ActorFromContext(ctx); actorID != "" {
		record.CreatedBy = &actorID
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("exchange rate set",
		zap.String("rate", record.Rate.String()),
		zap.Time("effective_at", record.EffectiveAt),
		zap.String("source", record.Source),
	)

	if s.auditSvc != nil {
		targetID := record.ID.String()
		_ = s.auditSvc.AuditLog(ctx, "exchange_rate.set", "exchange_rate", &targetID, map[string]any{
			"rate":         record.Rate.String(),
			"effective_at": record.EffectiveAt,
			"source":       record.Source,
		})
	}

	resp := toResponse(record)
	return &resp, nil
}

func toResponse(r *exchangeratedomain.ExchangeRate) exchangeratedomain.Response {
	return exchangeratedomain.Response{
		ID:            r.ID.String(),
		BaseCurrency:  r.BaseCurrency,
		QuoteCurrency: r.QuoteCurrency,
		Rate:          r.Rate,
		EffectiveAt:   r.EffectiveAt,
		Source:        r.Source,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
	}
}
