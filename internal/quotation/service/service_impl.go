package service

import (
	"context"
	"errors"
	"io"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	notificationdomain "github.com/smallbiznis/opsdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	"github.com/smallbiznis/opsdesk/internal/providers/pdf"
	quotationdomain "github.com/smallbiznis/opsdesk/internal/quotation/domain"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordType = "quotation"

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     quotationdomain.Repository
	Clock    clock.Clock                `optional:"true"`
	Users    authdomain.Service         `optional:"true"`
	Pricing  pricingdomain.Service      `optional:"true"`
	PDF      pdf.Provider               `optional:"true"`
	Notifier notificationdomain.Service `optional:"true"`
	AuditSvc auditdomain.Service        `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     quotationdomain.Repository
	clock    clock.Clock
	users    authdomain.Service
	pricing  pricingdomain.Service
	pdf      pdf.Provider
	notifier notificationdomain.Service
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) quotationdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("quotation.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		users:    p.Users,
		pricing:  p.Pricing,
		pdf:      p.PDF,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req quotationdomain.CreateRequest) (*quotationdomain.Response, error) {
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		return nil, quotationdomain.ErrInvalidCustomerName
	}
	email, err := normalizeEmail(req.CustomerEmail)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.ItemDescription)
	if description == "" {
		return nil, quotationdomain.ErrInvalidDescription
	}
	currency, err := workflow.ParseCurrency(req.Currency, quotationdomain.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(req.QuotedAmount)
	if err != nil {
		return nil, err
	}
	sessionID, sessionTotal, err := s.resolvePricingSession(ctx, req.PricingSessionID)
	if err != nil {
		return nil, err
	}
	if amount == nil && sessionTotal != nil {
		amount = sessionTotal
	}
	assigneeID, err := s.resolveAssignee(ctx, req.AssigneeID)
	if err != nil {
		return nil, err
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	quotation := &quotationdomain.Quotation{
		ID:               s.genID.Generate(),
		CustomerName:     customer,
		CustomerEmail:    email,
		CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
		ItemDescription:  description,
		ItemURL:          strings.TrimSpace(req.ItemURL),
		Quantity:         normalizeQuantity(req.Quantity),
		QuotedAmount:     amount,
		Currency:         currency,
		PricingSessionID: sessionID,
		ValidUntil:       req.ValidUntil,
		Status:           quotationdomain.Statuses.Initial(),
		AssigneeID:       assigneeID,
		Notes:            strings.TrimSpace(req.Notes),
		StatusHistory:    workflow.Start(quotationdomain.Statuses.Initial(), actorID, now),
		CreatedBy:        actorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, quotation); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(ctx, recordType)
	s.audit(ctx, "quotation.created", quotation.ID, map[string]any{
		"quantity":           quotation.Quantity,
		"pricing_session_id": workflow.IDString(quotation.PricingSessionID),
	})
	s.notifyAssignment(ctx, quotation, actorID)

	resp := toResponse(quotation)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*quotationdomain.Response, error) {
	quotation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(quotation)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req quotationdomain.ListRequest) (*quotationdomain.ListResponse, error) {
	filter := quotationdomain.Filter{}
	if strings.TrimSpace(req.Status) != "" {
		status, err := quotationdomain.Statuses.Parse(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	assigneeID, err := workflow.ParseAssignee(req.AssigneeID)
	if err != nil {
		return nil, err
	}
	filter.AssigneeID = assigneeID
	if raw := strings.TrimSpace(req.PricingSessionID); raw != "" {
		sessionID, err := snowflake.ParseString(raw)
		if err != nil || sessionID <= 0 {
			return nil, quotationdomain.ErrInvalidPricingSession
		}
		filter.PricingSessionID = &sessionID
	}

	items, info, err := s.repo.List(ctx, filter, req.Pagination)
	if err != nil {
		return nil, err
	}

	return &quotationdomain.ListResponse{
		PageInfo: info,
		Quotations: lo.Map(items, func(q *quotationdomain.Quotation, _ int) quotationdomain.Response {
			return toResponse(q)
		}),
	}, nil
}

func (s *Service) Update(ctx context.Context, req quotationdomain.UpdateRequest) (*quotationdomain.Response, error) {
	quotation, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.CustomerName != nil {
		customer := strings.TrimSpace(*req.CustomerName)
		if customer == "" {
			return nil, quotationdomain.ErrInvalidCustomerName
		}
		quotation.CustomerName = customer
		changes["customer_name"] = customer
	}
	if req.CustomerEmail != nil {
		email, err := normalizeEmail(*req.CustomerEmail)
		if err != nil {
			return nil, err
		}
		quotation.CustomerEmail = email
		changes["customer_email"] = email
	}
	if req.CustomerPhone != nil {
		quotation.CustomerPhone = strings.TrimSpace(*req.CustomerPhone)
		changes["customer_phone"] = quotation.CustomerPhone
	}
	if req.ItemDescription != nil {
		description := strings.TrimSpace(*req.ItemDescription)
		if description == "" {
			return nil, quotationdomain.ErrInvalidDescription
		}
		quotation.ItemDescription = description
		changes["item_description"] = true
	}
	if req.ItemURL != nil {
		quotation.ItemURL = strings.TrimSpace(*req.ItemURL)
		changes["item_url"] = quotation.ItemURL
	}
	if req.Quantity != nil {
		quotation.Quantity = normalizeQuantity(*req.Quantity)
		changes["quantity"] = quotation.Quantity
	}
	if req.Currency != nil {
		currency, err := workflow.ParseCurrency(*req.Currency, quotationdomain.DefaultCurrency)
		if err != nil {
			return nil, err
		}
		quotation.Currency = currency
		changes["currency"] = currency
	}
	if req.PricingSessionID != nil {
		sessionID, sessionTotal, err := s.resolvePricingSession(ctx, *req.PricingSessionID)
		if err != nil {
			return nil, err
		}
		quotation.PricingSessionID = sessionID
		changes["pricing_session_id"] = workflow.IDString(sessionID)
		if req.QuotedAmount == nil && quotation.QuotedAmount == nil && sessionTotal != nil {
			quotation.QuotedAmount = sessionTotal
			changes["quoted_amount"] = sessionTotal.StringFixed(2)
		}
	}
	if req.QuotedAmount != nil {
		amount, err := normalizeAmount(req.QuotedAmount)
		if err != nil {
			return nil, err
		}
		quotation.QuotedAmount = amount
		changes["quoted_amount"] = amount.StringFixed(2)
	}
	if req.ValidUntil != nil {
		quotation.ValidUntil = req.ValidUntil
		changes["valid_until"] = req.ValidUntil
	}
	if req.Notes != nil {
		quotation.Notes = strings.TrimSpace(*req.Notes)
		changes["notes"] = true
	}

	reassigned := false
	if req.AssigneeID != nil {
		assigneeID, err := s.resolveAssignee(ctx, *req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if workflow.IDString(assigneeID) != workflow.IDString(quotation.AssigneeID) {
			changes["assignee_id"] = map[string]any{
				"from": workflow.IDString(quotation.AssigneeID),
				"to":   workflow.IDString(assigneeID),
			}
			quotation.AssigneeID = assigneeID
			reassigned = assigneeID != nil
		}
	}

	quotation.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, quotation); err != nil {
		return nil, err
	}

	s.audit(ctx, "quotation.updated", quotation.ID, changes)
	if reassigned {
		actorID, _ := obscontext.ActorFromContext(ctx)
		s.notifyAssignment(ctx, quotation, actorID)
	}

	resp := toResponse(quotation)
	return &resp, nil
}

func (s *Service) ChangeStatus(ctx context.Context, req quotationdomain.ChangeStatusRequest) (*quotationdomain.Response, error) {
	quotation, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	// A quote cannot be sent without a price.
	if target, err := quotationdomain.Statuses.Parse(req.Status); err == nil && target == quotationdomain.StatusQuoted {
		if quotation.QuotedAmount == nil || !quotation.QuotedAmount.IsPositive() {
			return nil, quotationdomain.ErrQuotedAmountRequired
		}
	}

	actorID, _ := obscontext.ActorFromContext(ctx)
	now := s.clock.Now()
	from := quotation.Status
	status, history, err := quotationdomain.Statuses.Change(quotation.Status, quotation.StatusHistory, req.Status, actorID, now, req.Note)
	if err != nil {
		return nil, err
	}

	quotation.Status = status
	quotation.StatusHistory = history
	quotation.UpdatedAt = now
	if err := s.repo.Save(ctx, quotation); err != nil {
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, recordType, status)
	s.audit(ctx, "quotation.status_changed", quotation.ID, map[string]any{"from": from, "to": status})
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, notificationdomain.StatusChangeEvent{
			RecordType:   recordType,
			RecordID:     quotation.ID.String(),
			Title:        quotation.ItemDescription,
			From:         from,
			To:           status,
			ChangedBy:    actorID,
			Note:         strings.TrimSpace(req.Note),
			RecipientIDs: workflow.Recipients(workflow.IDString(quotation.AssigneeID), quotation.CreatedBy),
		})
		if status == quotationdomain.StatusQuoted {
			s.notifier.NotifyQuotationReady(ctx, notificationdomain.QuotationReadyEvent{
				RecordID:      quotation.ID.String(),
				CustomerName:  quotation.CustomerName,
				CustomerEmail: quotation.CustomerEmail,
				Description:   quotation.ItemDescription,
				Quantity:      quotation.Quantity,
				Amount:        quotation.QuotedAmount.StringFixed(2),
				Currency:      quotation.Currency,
			})
		}
	}

	resp := toResponse(quotation)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	quotationID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, quotationID)
	if err != nil {
		return err
	}
	if !deleted {
		return quotationdomain.ErrNotFound
	}
	s.audit(ctx, "quotation.deleted", quotationID, nil)
	return nil
}

func (s *Service) ExportPDF(ctx context.Context, id string) (*quotationdomain.Document, error) {
	if s.pdf == nil {
		return nil, errors.New("pdf provider not configured")
	}
	quotation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	amount := ""
	if quotation.QuotedAmount != nil {
		amount = quotation.QuotedAmount.StringFixed(2)
	}
	reader, err := s.pdf.GenerateQuotation(ctx, pdf.QuotationData{
		Number:        quotation.Number(),
		IssueDate:     s.clock.Now().Format("January 2, 2006"),
		Status:        quotation.Status,
		CustomerName:  quotation.CustomerName,
		CustomerEmail: quotation.CustomerEmail,
		CustomerPhone: quotation.CustomerPhone,
		Description:   quotation.ItemDescription,
		ItemURL:       quotation.ItemURL,
		Quantity:      quotation.Quantity,
		Amount:        amount,
		Currency:      quotation.Currency,
		Notes:         quotation.Notes,
	})
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	return &quotationdomain.Document{
		Filename: quotation.Number() + ".pdf",
		Content:  content,
	}, nil
}

func (s *Service) load(ctx context.Context, id string) (*quotationdomain.Quotation, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	quotation, err := s.repo.FindByID(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, quotationdomain.ErrNotFound
	}
	return quotation, nil
}

// resolvePricingSession checks that a linked pricing session exists and
// returns its total so callers can prefill the quoted amount.
func (s *Service) resolvePricingSession(ctx context.Context, raw string) (*snowflake.ID, *decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil, nil, quotationdomain.ErrInvalidPricingSession
	}
	if s.pricing == nil {
		return &id, nil, nil
	}

	session, err := s.pricing.GetSession(ctx, id.String())
	if errors.Is(err, pricingdomain.ErrNotFound) {
		return nil, nil, quotationdomain.ErrInvalidPricingSession
	}
	if err != nil {
		return nil, nil, err
	}
	if !session.TotalFinalPrice.IsPositive() {
		return &id, nil, nil
	}
	total := session.TotalFinalPrice.Round(2)
	return &id, &total, nil
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

func (s *Service) notifyAssignment(ctx context.Context, quotation *quotationdomain.Quotation, actorID string) {
	if s.notifier == nil || quotation.AssigneeID == nil {
		return
	}
	s.notifier.NotifyAssignment(ctx, notificationdomain.AssignmentEvent{
		RecordType: recordType,
		RecordID:   quotation.ID.String(),
		Title:      quotation.ItemDescription,
		AssigneeID: quotation.AssigneeID.String(),
		AssignedBy: actorID,
		DueDate:    quotation.ValidUntil,
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
		return 0, quotationdomain.ErrInvalidID
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
		return "", quotationdomain.ErrInvalidCustomerEmail
	}
	return strings.ToLower(addr.Address), nil
}

func normalizeQuantity(quantity int) int {
	if quantity <= 0 {
		return 1
	}
	return quantity
}

func normalizeAmount(amount *decimal.Decimal) (*decimal.Decimal, error) {
	if amount == nil {
		return nil, nil
	}
	if !amount.IsPositive() {
		return nil, quotationdomain.ErrInvalidAmount
	}
	rounded := amount.Round(2)
	return &rounded, nil
}

func toResponse(q *quotationdomain.Quotation) quotationdomain.Response {
	return quotationdomain.Response{
		ID:               q.ID.String(),
		Number:           q.Number(),
		CustomerName:     q.CustomerName,
		CustomerEmail:    q.CustomerEmail,
		CustomerPhone:    q.CustomerPhone,
		ItemDescription:  q.ItemDescription,
		ItemURL:          q.ItemURL,
		Quantity:         q.Quantity,
		QuotedAmount:     q.QuotedAmount,
		Currency:         q.Currency,
		PricingSessionID: workflow.IDString(q.PricingSessionID),
		ValidUntil:       q.ValidUntil,
		Status:           q.Status,
		AssigneeID:       workflow.IDString(q.AssigneeID),
		Notes:            q.Notes,
		StatusHistory:    append([]workflow.Transition(nil), q.StatusHistory...),
		CreatedBy:        q.CreatedBy,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}
