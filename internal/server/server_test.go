package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	inquirydomain "github.com/smallbiznis/opsdesk/internal/inquiry/domain"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	pricingservice "github.com/smallbiznis/opsdesk/internal/pricing/service"
	quotationdomain "github.com/smallbiznis/opsdesk/internal/quotation/domain"
	"github.com/smallbiznis/opsdesk/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePricing struct {
	pricingdomain.Service
	invoiceReq *pricingdomain.InvoiceCalculateRequest
	invoiceErr error
	deleted    []string
}

func (f *fakePricing) CalculateInvoice(ctx context.Context, req pricingdomain.InvoiceCalculateRequest) (*pricingdomain.InvoiceCalculateResponse, error) {
	f.invoiceReq = &req
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	items := append([]pricingdomain.LineItem(nil), req.Items...)
	final := decimal.NewFromInt(3000)
	items[0].FinalPrice = &final
	return &pricingdomain.InvoiceCalculateResponse{
		Items:        items,
		ExchangeRate: decimal.NewFromInt(162),
		RoundingUnit: req.RoundingUnit,
		Total:        decimal.NewFromInt(3000),
	}, nil
}

func (f *fakePricing) DefaultAmazonMarkup(ctx context.Context, costUSD decimal.Decimal) (*pricingdomain.DefaultMarkupResponse, error) {
	markup := decimal.NewFromInt(80)
	if costUSD.GreaterThan(decimal.NewFromInt(100)) {
		markup = decimal.NewFromInt(120)
	}
	return &pricingdomain.DefaultMarkupResponse{CostUSD: costUSD, MarkupPercent: markup}, nil
}

func (f *fakePricing) DeleteSession(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRates struct {
	exchangeratedomain.Service
	rate *decimal.Decimal
}

func (f *fakeRates) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	if f.rate == nil {
		return decimal.Zero, exchangeratedomain.ErrNoRate
	}
	return *f.rate, nil
}

func newPricingService(rate *decimal.Decimal) pricingdomain.Service {
	return pricingservice.NewService(pricingservice.Params{
		Log:     zap.NewNop(),
		RateSvc: &fakeRates{rate: rate},
	})
}

type fakeInquiries struct {
	inquirydomain.Service
	statusReq *inquirydomain.ChangeStatusRequest
	statusErr error
}

func (f *fakeInquiries) Get(ctx context.Context, id string) (*inquirydomain.Response, error) {
	return nil, inquirydomain.ErrNotFound
}

func (f *fakeInquiries) ChangeStatus(ctx context.Context, req inquirydomain.ChangeStatusRequest) (*inquirydomain.Response, error) {
	f.statusReq = &req
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &inquirydomain.Response{ID: req.ID, Status: req.Status}, nil
}

type fakeQuotations struct {
	quotationdomain.Service
}

func (f *fakeQuotations) ExportPDF(ctx context.Context, id string) (*quotationdomain.Document, error) {
	return &quotationdomain.Document{Filename: "QR-" + id + ".pdf", Content: []byte("%PDF-1.4")}, nil
}

func TestAdminRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/admin/inquiries", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestUnknownSessionClearsCookie(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/admin/inquiries", "stale-token", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "_sid=;")
}

func TestCalculateInvoiceReturnsPricedItems(t *testing.T) {
	pricing := &fakePricing{}
	s := newTestServer(t, func(s *Server) { s.pricingSvc = pricing })

	rec := doRequest(t, s, http.MethodPost, "/admin/pricing/invoice/calculate", staffToken, map[string]any{
		"items": []map[string]any{
			{"description": "Drill", "cost": "10.00", "markup_percent": "25"},
		},
		"exchange_rate": "162",
		"rounding_unit": 1000,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, pricing.invoiceReq)
	require.NotNil(t, pricing.invoiceReq.ExchangeRate)
	assert.True(t, pricing.invoiceReq.ExchangeRate.Equal(decimal.NewFromInt(162)))
	assert.Equal(t, int64(1000), pricing.invoiceReq.RoundingUnit)

	var body struct {
		Data pricingdomain.InvoiceCalculateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	require.NotNil(t, body.Data.Items[0].FinalPrice)
	assert.True(t, body.Data.Items[0].FinalPrice.Equal(decimal.NewFromInt(3000)))
}

func TestCalculateInvoiceReportsItemField(t *testing.T) {
	pricing := &fakePricing{invoiceErr: &pricingdomain.FieldError{Field: "items[2].cost", Err: pricingdomain.ErrInvalidCost}}
	s := newTestServer(t, func(s *Server) { s.pricingSvc = pricing })

	rec := doRequest(t, s, http.MethodPost, "/admin/pricing/invoice/calculate", staffToken, map[string]any{
		"items":         []map[string]any{{"cost": "-1"}},
		"rounding_unit": 100,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "items[2].cost", payload.Errors[0].Field)
	assert.Equal(t, "invalid_cost", payload.Errors[0].Code)
}

func TestCalculateInvoiceRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, func(s *Server) { s.pricingSvc = &fakePricing{} })

	rec := doRequest(t, s, http.MethodPost, "/admin/pricing/invoice/calculate", staffToken, "not an object")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Errors[0].Code)
}

func TestDefaultAmazonMarkup(t *testing.T) {
	s := newTestServer(t, func(s *Server) { s.pricingSvc = &fakePricing{} })

	rec := doRequest(t, s, http.MethodGet, "/admin/pricing/amazon/default-markup?cost_usd=100.01", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data pricingdomain.DefaultMarkupResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.MarkupPercent.Equal(decimal.NewFromInt(120)))

	rec = doRequest(t, s, http.MethodGet, "/admin/pricing/amazon/default-markup?cost_usd=abc", staffToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cost_usd", decodeError(t, rec).Errors[0].Field)
}

func TestCalculateAmazonReturnsDerivedFields(t *testing.T) {
	s := newTestServer(t, func(s *Server) { s.pricingSvc = newPricingService(nil) })

	rec := doRequest(t, s, http.MethodPost, "/admin/pricing/amazon/calculate", staffToken, map[string]any{
		"item":          map[string]any{"title": "Desk lamp", "cost_usd": "50.00"},
		"exchange_rate": "162",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data pricingdomain.AmazonCalculateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.MarkupPercent.Equal(decimal.NewFromInt(80)))
	assert.True(t, body.Data.AmazonPrice.Equal(decimal.RequireFromString("53.5")))
	assert.True(t, body.Data.SellingPriceUSD.Equal(decimal.RequireFromString("96.3")))
	assert.True(t, body.Data.SellingPriceJMD.Equal(decimal.RequireFromString("15600.6")))
	require.NotNil(t, body.Data.Item.SellingPriceJMD)
	assert.Equal(t, "Desk lamp", body.Data.Item.Title)
}

func TestCalculateAmazonWithoutStoredRate(t *testing.T) {
	s := newTestServer(t, func(s *Server) { s.pricingSvc = newPricingService(nil) })

	rec := doRequest(t, s, http.MethodPost, "/admin/pricing/amazon/calculate", staffToken, map[string]any{
		"item": map[string]any{"title": "Desk lamp", "cost_usd": "50.00"},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "exchange_rate", payload.Errors[0].Field)
	assert.Equal(t, "exchange_rate_not_set", payload.Errors[0].Code)
}

func TestCalculateInvoiceFallsBackToStoredRate(t *testing.T) {
	stored := decimal.NewFromInt(162)
	s := newTestServer(t, func(s *Server) { s.pricingSvc = newPricingService(&stored) })

	rec := doRequest(t, s, http.MethodPost, "/admin/pricing/invoice/calculate", staffToken, map[string]any{
		"items": []map[string]any{
			{"description": "Drill", "cost": "10.00", "markup_percent": "25"},
		},
		"rounding_unit": 1000,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data pricingdomain.InvoiceCalculateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.ExchangeRate.Equal(stored))
	require.Len(t, body.Data.Items, 1)
	item := body.Data.Items[0]
	require.NotNil(t, item.FinalPrice)
	assert.True(t, item.LocalCost.Equal(decimal.RequireFromString("1863")))
	assert.True(t, item.SellingPrice.Equal(decimal.RequireFromString("2328.75")))
	assert.True(t, item.FinalPrice.Equal(decimal.NewFromInt(3000)))
}

func TestDeleteIsAdminOnly(t *testing.T) {
	pricing := &fakePricing{}
	s := newTestServer(t, func(s *Server) { s.pricingSvc = pricing })

	rec := doRequest(t, s, http.MethodDelete, "/admin/pricing/sessions/42", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, pricing.deleted)

	rec = doRequest(t, s, http.MethodDelete, "/admin/pricing/sessions/42", adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"42"}, pricing.deleted)
}

func TestChangeStatusPassesPathID(t *testing.T) {
	inquiries := &fakeInquiries{}
	s := newTestServer(t, func(s *Server) { s.inquirySvc = inquiries })

	rec := doRequest(t, s, http.MethodPost, "/admin/inquiries/77/status", staffToken, map[string]any{
		"status": "contacted",
		"note":   "called back",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, inquiries.statusReq)
	assert.Equal(t, "77", inquiries.statusReq.ID)
	assert.Equal(t, "contacted", inquiries.statusReq.Status)
}

func TestChangeStatusUnchangedIsValidationError(t *testing.T) {
	inquiries := &fakeInquiries{statusErr: workflow.ErrStatusUnchanged}
	s := newTestServer(t, func(s *Server) { s.inquirySvc = inquiries })

	rec := doRequest(t, s, http.MethodPost, "/admin/inquiries/77/status", staffToken, map[string]any{"status": "new"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "status", payload.Errors[0].Field)
	assert.Equal(t, "status_unchanged", payload.Errors[0].Code)
}

func TestRecordNotFound(t *testing.T) {
	s := newTestServer(t, func(s *Server) { s.inquirySvc = &fakeInquiries{} })

	rec := doRequest(t, s, http.MethodGet, "/admin/inquiries/77", staffToken, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestExportQuotationPDF(t *testing.T) {
	s := newTestServer(t, func(s *Server) { s.quotationSvc = &fakeQuotations{} })

	rec := doRequest(t, s, http.MethodGet, "/admin/quotations/9/pdf", staffToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="QR-9.pdf"`)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestCallLogsHaveNoStatusRoute(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/admin/call-logs/5/status", staffToken, map[string]any{"status": "done"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsersRequireAdmin(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/admin/users", staffToken, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	auth := &fakeAuth{loginResult: &authdomain.LoginResult{
		User:      authdomain.UserResponse{ID: "1001", Email: "admin@example.com", Role: authdomain.RoleAdmin},
		RawToken:  "fresh-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	s := newTestServer(t, func(s *Server) { s.authsvc = auth })

	rec := doRequest(t, s, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "admin@example.com",
		"password": "correct horse",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "_sid=fresh-token")
}

func TestLoginFailureIsAudited(t *testing.T) {
	audit := &fakeAudit{}
	s := newTestServer(t, func(s *Server) {
		s.authsvc = &fakeAuth{loginErr: authdomain.ErrInvalidCredentials}
		s.auditSvc = audit
	})

	rec := doRequest(t, s, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "admin@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{"user.login_failed"}, audit.actions)
}

func TestLogoutClearsCookie(t *testing.T) {
	auth := &fakeAuth{}
	s := newTestServer(t, func(s *Server) { s.authsvc = auth })

	rec := doRequest(t, s, http.MethodPost, "/auth/logout", adminToken, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{adminToken}, auth.loggedOut)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}
