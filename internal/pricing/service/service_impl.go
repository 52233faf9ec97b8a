package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/config"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	"github.com/smallbiznis/opsdesk/internal/providers/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock `optional:"true"`
	Repo        pricingdomain.Repository
	Policy      *config.PricingConfigHolder
	CategorySvc categorydomain.Service
	RateSvc     exchangeratedomain.Service
	PDF         pdf.Provider        `optional:"true"`
	AuditSvc    auditdomain.Service `optional:"true"`
	Metrics     *metrics.Metrics    `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        pricingdomain.Repository
	policy      *config.PricingConfigHolder
	categorySvc categorydomain.Service
	rateSvc     exchangeratedomain.Service
	pdf         pdf.Provider
	auditSvc    auditdomain.Service
	metrics     *metrics.Metrics
}

func NewService(p Params) pricingdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:         p.Log.Named("pricing.service"),
		genID:       p.GenID,
		clock:       clk,
		repo:        p.Repo,
		policy:      p.Policy,
		categorySvc: p.CategorySvc,
		rateSvc:     p.RateSvc,
		pdf:         p.PDF,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
	}
}

func (s *Service) currentPolicy() pricingdomain.Policy {
	if s.policy == nil {
		return pricingdomain.DefaultPolicy()
	}
	return pricingdomain.PolicyFromConfig(s.policy.Get())
}

func (s *Service) CalculateInvoice(ctx context.Context, req pricingdomain.InvoiceCalculateRequest) (*pricingdomain.InvoiceCalculateResponse, error) {
	rate, err := s.resolveRate(ctx, req.ExchangeRate)
	if err != nil {
		s.reject(ctx, pricingdomain.ModeInvoice, err)
		return nil, err
	}

	items, err := s.resolveMarkups(ctx, req.Items, req.Recompute)
	if err != nil {
		s.reject(ctx, pricingdomain.ModeInvoice, err)
		return nil, err
	}

	priced, err := s.currentPolicy().CalculateInvoice(items, rate, req.RoundingUnit, req.Recompute)
	if err != nil {
		s.reject(ctx, pricingdomain.ModeInvoice, err)
		return nil, err
	}

	updated := 0
	for i := range priced {
		if priced[i].FinalPrice != items[i].FinalPrice {
			updated++
		}
	}
	s.metrics.RecordPricingCalculation(ctx, string(pricingdomain.ModeInvoice), updated)

	return &pricingdomain.InvoiceCalculateResponse{
		Items:        priced,
		ExchangeRate: rate,
		RoundingUnit: req.RoundingUnit,
		Total:        pricingdomain.InvoiceTotal(priced),
	}, nil
}

func (s *Service) CalculateAmazon(ctx context.Context, req pricingdomain.AmazonCalculateRequest) (*pricingdomain.AmazonCalculateResponse, error) {
	rate, err := s.resolveRate(ctx, req.ExchangeRate)
	if err != nil {
		s.reject(ctx, pricingdomain.ModeAmazon, err)
		return nil, err
	}

	item, price, err := s.currentPolicy().CalculateAmazon(req.Item, rate)
	if err != nil {
		s.reject(ctx, pricingdomain.ModeAmazon, err)
		return nil, err
	}
	s.metrics.RecordPricingCalculation(ctx, string(pricingdomain.ModeAmazon), 1)

	return &pricingdomain.AmazonCalculateResponse{
		Item:                 item,
		ExchangeRate:         rate,
		MarkupPercent:        price.MarkupPercent,
		DefaultMarkupPercent: price.DefaultMarkupPercent,
		AmazonPrice:          price.AmazonPrice,
		SellingPriceUSD:      price.SellingPriceUSD,
		SellingPriceJMD:      price.SellingPriceJMD,
	}, nil
}

func (s *Service) DefaultAmazonMarkup(ctx context.Context, costUSD decimal.Decimal) (*pricingdomain.DefaultMarkupResponse, error) {
	if !costUSD.IsPositive() {
		return nil, &pricingdomain.FieldError{Field: "cost_usd", Err: pricingdomain.ErrInvalidCost}
	}
	return &pricingdomain.DefaultMarkupResponse{
		CostUSD:       costUSD,
		MarkupPercent: s.currentPolicy().DefaultAmazonMarkup(costUSD),
	}, nil
}

func (s *Service) SaveSession(ctx context.Context, req pricingdomain.SaveSessionRequest) (*pricingdomain.SessionResponse, error) {
	if !req.Mode.Valid() {
		return nil, &pricingdomain.FieldError{Field: "mode", Err: pricingdomain.ErrInvalidMode}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &pricingdomain.FieldError{Field: "title", Err: pricingdomain.ErrInvalidTitle}
	}
	if !req.ExchangeRate.IsPositive() {
		return nil, &pricingdomain.FieldError{Field: "exchange_rate", Err: pricingdomain.ErrInvalidExchangeRate}
	}

	policy := s.currentPolicy()
	var (
		payload   any
		itemCount int
		total     decimal.Decimal
	)
	switch req.Mode {
	case pricingdomain.ModeInvoice:
		if len(req.InvoiceItems) == 0 {
			return nil, &pricingdomain.FieldError{Field: "items", Err: pricingdomain.ErrEmptyItems}
		}
		items, err := policy.PriceInvoiceSession(req.InvoiceItems, req.ExchangeRate, req.RoundingUnit)
		if err != nil {
			return nil, err
		}
		payload, itemCount, total = items, len(items), pricingdomain.InvoiceTotal(items)
	case pricingdomain.ModeAmazon:
		if len(req.AmazonItems) == 0 {
			return nil, &pricingdomain.FieldError{Field: "amazon_items", Err: pricingdomain.ErrEmptyItems}
		}
		items, err := policy.PriceAmazonSession(req.AmazonItems, req.ExchangeRate)
		if err != nil {
			return nil, err
		}
		payload, itemCount, total = items, len(items), pricingdomain.AmazonTotal(items)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode session items: %w", err)
	}

	roundingUnit := req.RoundingUnit
	if req.Mode == pricingdomain.ModeAmazon {
		roundingUnit = 0
	}

	session := &pricingdomain.Session{
		ID:              s.genID.Generate(),
		Reference:       "PS-" + ulid.Make().String(),
		Mode:            req.Mode,
		Title:           title,
		Supplier:        strings.TrimSpace(req.Supplier),
		ExchangeRate:    req.ExchangeRate,
		RoundingUnit:    roundingUnit,
		Items:           datatypes.JSON(raw),
		ItemCount:       itemCount,
		TotalFinalPrice: total.Round(2),
		CreatedBy:       actorID(ctx),
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.RecordSessionSaved(ctx, string(session.Mode))
	s.audit(ctx, "pricing_session.saved", session.ID, map[string]any{
		"reference":  session.Reference,
		"mode":       string(session.Mode),
		"item_count": session.ItemCount,
		"total":      session.TotalFinalPrice.String(),
	})

	return toResponse(session)
}

func (s *Service) ListSessions(ctx context.Context, req pricingdomain.ListSessionRequest) (*pricingdomain.ListSessionResponse, error) {
	mode := pricingdomain.Mode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if mode != "" && !mode.Valid() {
		return nil, &pricingdomain.FieldError{Field: "mode", Err: pricingdomain.ErrInvalidMode}
	}

	items, info, err := s.repo.List(ctx, pricingdomain.SessionFilter{
		Mode:      mode,
		CreatedBy: req.CreatedBy,
	}, req.PageToken, req.PageSize)
	if err != nil {
		return nil, err
	}

	sessions := make([]pricingdomain.SessionResponse, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, toSummary(item))
	}

	return &pricingdomain.ListSessionResponse{PageInfo: info, Sessions: sessions}, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*pricingdomain.SessionResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(session)
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	sessionID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if !deleted {
		return pricingdomain.ErrNotFound
	}

	s.audit(ctx, "pricing_session.deleted", sessionID, nil)
	return nil
}

func (s *Service) ExportSessionPDF(ctx context.Context, id string) (*pricingdomain.SessionDocument, error) {
	if s.pdf == nil {
		return nil, errors.New("pdf provider not configured")
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	sheet, err := buildPricingSheet(session)
	if err != nil {
		return nil, err
	}
	reader, err := s.pdf.GeneratePricingSheet(ctx, sheet)
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	return &pricingdomain.SessionDocument{
		Filename: session.Reference + ".pdf",
		Content:  content,
	}, nil
}

// resolveMarkups fills MarkupPercent and CategoryName from the category
// table for every item that will be priced and references a category.
// Unknown and inactive categories resolve to a zero markup.
func (s *Service) resolveMarkups(ctx context.Context, items []pricingdomain.LineItem, recompute bool) ([]pricingdomain.LineItem, error) {
	out := make([]pricingdomain.LineItem, len(items))
	copy(out, items)

	ids := make([]snowflake.ID, 0, len(items))
	for i, item := range out {
		if item.CategoryID == nil || (item.Priced() && !recompute) {
			continue
		}
		id, err := snowflake.ParseString(strings.TrimSpace(*item.CategoryID))
		if err != nil {
			return nil, &pricingdomain.FieldError{
				Field: fmt.Sprintf("items[%d].category_id", i),
				Err:   pricingdomain.ErrInvalidCategory,
			}
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 || s.categorySvc == nil {
		return out, nil
	}

	markups, err := s.categorySvc.ActiveMarkups(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].CategoryID == nil || (out[i].Priced() && !recompute) {
			continue
		}
		id, _ := snowflake.ParseString(strings.TrimSpace(*out[i].CategoryID))
		markup, ok := markups[id]
		if !ok {
			out[i].MarkupPercent = decimal.Zero
			continue
		}
		out[i].MarkupPercent = markup.MarkupPercent
		out[i].CategoryName = markup.Name
	}
	return out, nil
}

func (s *Service) resolveRate(ctx context.Context, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if supplied != nil {
		if !supplied.IsPositive() {
			return decimal.Zero, &pricingdomain.FieldError{Field: "exchange_rate", Err: pricingdomain.ErrInvalidExchangeRate}
		}
		return *supplied, nil
	}
	if s.rateSvc == nil {
		return decimal.Zero, exchangeratedomain.ErrNoRate
	}
	return s.rateSvc.CurrentRate(ctx)
}

func (s *Service) reject(ctx context.Context, mode pricingdomain.Mode, err error) {
	var fieldErr *pricingdomain.FieldError
	if !errors.As(err, &fieldErr) {
		return
	}
	s.metrics.RecordPricingRejection(ctx, string(mode), fieldErr.Err.Error())
	s.log.Debug("pricing input rejected",
		zap.String("mode", string(mode)),
		zap.String("field", fieldErr.Field),
		zap.Error(fieldErr.Err),
	)
}

func (s *Service) load(ctx context.Context, id string) (*pricingdomain.Session, error) {
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, pricingdomain.ErrNotFound
	}
	return session, nil
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, "pricing_session", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return 0, pricingdomain.ErrInvalidID
	}
	return parsed, nil
}

func actorID(ctx context.Context) *string {
	id, _ := obscontext.ActorFromContext(ctx)
	if id == "" {
		return nil
	}
	return &id
}

func toSummary(session *pricingdomain.Session) pricingdomain.SessionResponse {
	return pricingdomain.SessionResponse{
		ID:              session.ID.String(),
		Reference:       session.Reference,
		Mode:            session.Mode,
		Title:           session.Title,
		Supplier:        session.Supplier,
		ExchangeRate:    session.ExchangeRate,
		RoundingUnit:    session.RoundingUnit,
		ItemCount:       session.ItemCount,
		TotalFinalPrice: session.TotalFinalPrice,
		CreatedBy:       session.CreatedBy,
		CreatedAt:       session.CreatedAt,
	}
}

func toResponse(session *pricingdomain.Session) (*pricingdomain.SessionResponse, error) {
	resp := toSummary(session)
	switch session.Mode {
	case pricingdomain.ModeAmazon:
		items, err := session.AmazonItems()
		if err != nil {
			return nil, fmt.Errorf("decode session items: %w", err)
		}
		resp.AmazonItems = items
	default:
		items, err := session.InvoiceItems()
		if err != nil {
			return nil, fmt.Errorf("decode session items: %w", err)
		}
		resp.InvoiceItems = items
	}
	return &resp, nil
}

func buildPricingSheet(session *pricingdomain.Session) (pdf.PricingSheetData, error) {
	sheet := pdf.PricingSheetData{
		Reference:    session.Reference,
		Title:        session.Title,
		Supplier:     session.Supplier,
		Mode:         string(session.Mode),
		ExchangeRate: session.ExchangeRate.String(),
		CreatedAt:    session.CreatedAt.Format(time.RFC822),
		Total:        session.TotalFinalPrice.StringFixed(2),
	}
	if session.CreatedBy != nil {
		sheet.CreatedBy = *session.CreatedBy
	}

	switch session.Mode {
	case pricingdomain.ModeAmazon:
		items, err := session.AmazonItems()
		if err != nil {
			return sheet, fmt.Errorf("decode session items: %w", err)
		}
		sheet.RoundingUnit = "none"
		sheet.Columns = []string{"Title", "Qty", "Cost USD", "Markup %", "Amazon USD", "Selling USD", "Selling JMD"}
		for _, item := range items {
			sheet.Rows = append(sheet.Rows, pdf.PricingSheetRow{Cells: []string{
				item.Title,
				strconv.Itoa(item.Quantity),
				item.CostUSD.StringFixed(2),
				optional(item.MarkupPercent, 2),
				optional(item.AmazonPrice, 2),
				optional(item.SellingPriceUSD, 2),
				optional(item.SellingPriceJMD, 2),
			}})
		}
	default:
		items, err := session.InvoiceItems()
		if err != nil {
			return sheet, fmt.Errorf("decode session items: %w", err)
		}
		sheet.RoundingUnit = strconv.FormatInt(session.RoundingUnit, 10)
		sheet.Columns = []string{"Description", "Qty", "Category", "Cost", "Markup %", "Local cost", "Selling", "Final"}
		for _, item := range items {
			sheet.Rows = append(sheet.Rows, pdf.PricingSheetRow{Cells: []string{
				item.Description,
				strconv.Itoa(item.Quantity),
				item.CategoryName,
				item.Cost.StringFixed(2),
				item.MarkupPercent.StringFixed(2),
				optional(item.LocalCost, 2),
				optional(item.SellingPrice, 2),
				optional(item.FinalPrice, 0),
			}})
		}
	}
	return sheet, nil
}

func optional(value *decimal.Decimal, places int32) string {
	if value == nil {
		return "-"
	}
	return value.StringFixed(places)
}
