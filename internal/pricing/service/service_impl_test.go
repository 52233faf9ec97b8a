package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/config"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	obscontext "github.com/smallbiznis/opsdesk/internal/observability/context"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	"github.com/smallbiznis/opsdesk/internal/pricing/repository"
	"github.com/smallbiznis/opsdesk/internal/providers/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeCategories struct {
	categorydomain.Service
	markups map[snowflake.ID]categorydomain.Markup
}

func (f *fakeCategories) ActiveMarkups(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]categorydomain.Markup, error) {
	out := map[snowflake.ID]categorydomain.Markup{}
	for _, id := range ids {
		if m, ok := f.markups[id]; ok {
			out[id] = m
		}
	}
	return out, nil
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

type fakePDF struct {
	pdf.NoOpProvider
	sheet pdf.PricingSheetData
}

func (f *fakePDF) GeneratePricingSheet(ctx context.Context, data pdf.PricingSheetData) (io.Reader, error) {
	f.sheet = data
	return bytes.NewReader([]byte("%PDF-fake")), nil
}

type fixture struct {
	svc        pricingdomain.Service
	node       *snowflake.Node
	categories *fakeCategories
	rates      *fakeRates
	pdf        *fakePDF
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&pricingdomain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		node:       node,
		categories: &fakeCategories{markups: map[snowflake.ID]categorydomain.Markup{}},
		rates:      &fakeRates{},
		pdf:        &fakePDF{},
	}
	f.svc = NewService(Params{
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:        repository.NewRepository(db),
		Policy:      config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
		CategorySvc: f.categories,
		RateSvc:     f.rates,
		PDF:         f.pdf,
	})
	return f
}

func (f *fixture) addCategory(name string, markup int64) string {
	id := f.node.Generate()
	f.categories.markups[id] = categorydomain.Markup{ID: id, Name: name, MarkupPercent: decimal.NewFromInt(markup)}
	return id.String()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func TestCalculateInvoiceResolvesCategoryMarkups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cables := f.addCategory("Cables", 25)
	unknown := f.node.Generate().String()

	resp, err := f.svc.CalculateInvoice(ctx, pricingdomain.InvoiceCalculateRequest{
		Items: []pricingdomain.LineItem{
			{Description: "USB cable", Quantity: 2, CategoryID: &cables, Cost: dec("10")},
			{Description: "Mystery", Quantity: 1, CategoryID: &unknown, Cost: dec("10"), MarkupPercent: dec("40")},
			{Description: "Manual markup", Quantity: 1, Cost: dec("10"), MarkupPercent: dec("25")},
		},
		ExchangeRate: ptr(dec("162")),
		RoundingUnit: 1000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)

	assert.Equal(t, "Cables", resp.Items[0].CategoryName)
	assert.True(t, dec("3000").Equal(*resp.Items[0].FinalPrice))
	assert.Nil(t, resp.Items[1].FinalPrice, "unknown category resolves to zero markup and is skipped")
	assert.True(t, resp.Items[1].MarkupPercent.IsZero())
	assert.True(t, dec("3000").Equal(*resp.Items[2].FinalPrice))
	assert.True(t, dec("9000").Equal(resp.Total))
}

func TestCalculateInvoiceUsesStoredRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := pricingdomain.InvoiceCalculateRequest{
		Items:        []pricingdomain.LineItem{{Description: "USB cable", Cost: dec("10"), MarkupPercent: dec("25")}},
		RoundingUnit: 100,
	}

	_, err := f.svc.CalculateInvoice(ctx, req)
	assert.ErrorIs(t, err, exchangeratedomain.ErrNoRate)

	f.rates.rate = ptr(dec("162"))
	resp, err := f.svc.CalculateInvoice(ctx, req)
	require.NoError(t, err)
	assert.True(t, dec("162").Equal(resp.ExchangeRate))
	assert.True(t, dec("2400").Equal(*resp.Items[0].FinalPrice))
}

func TestCalculateInvoiceRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CalculateInvoice(ctx, pricingdomain.InvoiceCalculateRequest{
		Items:        []pricingdomain.LineItem{{Cost: dec("10"), MarkupPercent: dec("25")}},
		ExchangeRate: ptr(dec("0")),
		RoundingUnit: 100,
	})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidExchangeRate)

	_, err = f.svc.CalculateInvoice(ctx, pricingdomain.InvoiceCalculateRequest{
		Items:        []pricingdomain.LineItem{{Cost: dec("10"), CategoryID: ptr("not-a-number")}},
		ExchangeRate: ptr(dec("162")),
		RoundingUnit: 100,
	})
	var fieldErr *pricingdomain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "items[0].category_id", fieldErr.Field)
}

func TestCalculateAmazon(t *testing.T) {
	f := newFixture(t)
	f.rates.rate = ptr(dec("162"))

	resp, err := f.svc.CalculateAmazon(context.Background(), pricingdomain.AmazonCalculateRequest{
		Item: pricingdomain.AmazonItem{Title: "Headphones", CostUSD: dec("50"), Quantity: 1},
	})
	require.NoError(t, err)
	assert.True(t, dec("80").Equal(resp.MarkupPercent))
	assert.True(t, dec("53.5").Equal(resp.AmazonPrice))
	assert.True(t, dec("96.3").Equal(resp.SellingPriceUSD))
	assert.True(t, dec("15600.6").Equal(resp.SellingPriceJMD))

	markup, err := f.svc.DefaultAmazonMarkup(context.Background(), dec("100.01"))
	require.NoError(t, err)
	assert.True(t, dec("120").Equal(markup.MarkupPercent))
}

func TestSaveSessionStoresItemsAndTotal(t *testing.T) {
	f := newFixture(t)
	ctx := obscontext.WithActor(context.Background(), "42", "staff")

	saved, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode:         pricingdomain.ModeInvoice,
		Title:        "  March restock ",
		Supplier:     "Acme",
		ExchangeRate: dec("162"),
		RoundingUnit: 1000,
		InvoiceItems: []pricingdomain.LineItem{
			{Description: "USB cable", Quantity: 2, Cost: dec("10"), MarkupPercent: dec("25"), FinalPrice: ptr(dec("3000"))},
			{Description: "Adapter", Quantity: 0, Cost: dec("5"), MarkupPercent: dec("25"), FinalPrice: ptr(dec("2000"))},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.Reference, "PS-"))
	assert.Equal(t, "March restock", saved.Title)
	assert.Equal(t, 2, saved.ItemCount)
	assert.True(t, dec("8000").Equal(saved.TotalFinalPrice))
	require.NotNil(t, saved.CreatedBy)
	assert.Equal(t, "42", *saved.CreatedBy)

	loaded, err := f.svc.GetSession(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, loaded.InvoiceItems, 2)
	assert.Equal(t, 1, loaded.InvoiceItems[1].Quantity)
	assert.True(t, dec("3000").Equal(*loaded.InvoiceItems[0].FinalPrice))
}

func TestSaveSessionValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{Mode: "ebay", Title: "x", ExchangeRate: dec("1")})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidMode)

	_, err = f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{Mode: pricingdomain.ModeAmazon, Title: " ", ExchangeRate: dec("1")})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidTitle)

	_, err = f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{Mode: pricingdomain.ModeAmazon, Title: "x", ExchangeRate: dec("1")})
	assert.ErrorIs(t, err, pricingdomain.ErrEmptyItems)

	_, err = f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode: pricingdomain.ModeInvoice, Title: "x", ExchangeRate: dec("1"), RoundingUnit: 5,
		InvoiceItems: []pricingdomain.LineItem{{Description: "a"}},
	})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidRoundingUnit)

	_, err = f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{Mode: pricingdomain.ModeInvoice, Title: "x"})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidExchangeRate)

	_, err = f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode: pricingdomain.ModeInvoice, Title: "x", ExchangeRate: dec("162"), RoundingUnit: 1000,
		InvoiceItems: []pricingdomain.LineItem{
			{Description: "ok", Cost: dec("10"), MarkupPercent: dec("25")},
			{Description: "bad", Cost: dec("-10"), MarkupPercent: dec("25"), FinalPrice: ptr(dec("1234.5"))},
		},
	})
	var fieldErr *pricingdomain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "items[1].cost", fieldErr.Field)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidCost)

	_, err = f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode: pricingdomain.ModeInvoice, Title: "x", ExchangeRate: dec("162"), RoundingUnit: 1000,
		InvoiceItems: []pricingdomain.LineItem{{Description: "a", Cost: dec("10"), MarkupPercent: dec("9000")}},
	})
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "items[0].markup_percent", fieldErr.Field)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidMarkup)

	_, err = f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode: pricingdomain.ModeAmazon, Title: "x", ExchangeRate: dec("162"),
		AmazonItems: []pricingdomain.AmazonItem{{Title: "a", CostUSD: dec("-5"), SellingPriceJMD: ptr(dec("-99999"))}},
	})
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "amazon_items[0].cost_usd", fieldErr.Field)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidCost)

	listed, err := f.svc.ListSessions(ctx, pricingdomain.ListSessionRequest{})
	require.NoError(t, err)
	assert.Empty(t, listed.Sessions)
}

func TestSaveSessionRecomputesDerivedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoice, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode:         pricingdomain.ModeInvoice,
		Title:        "tampered",
		ExchangeRate: dec("162"),
		RoundingUnit: 1000,
		InvoiceItems: []pricingdomain.LineItem{
			{Description: "cable", Quantity: 1, Cost: dec("10"), MarkupPercent: dec("25"),
				LocalCost: ptr(dec("1")), SellingPrice: ptr(dec("2")), FinalPrice: ptr(dec("1234.5"))},
			{Description: "no category", Quantity: 1, Cost: dec("4"), FinalPrice: ptr(dec("500"))},
		},
	})
	require.NoError(t, err)
	require.Len(t, invoice.InvoiceItems, 2)

	priced := invoice.InvoiceItems[0]
	require.NotNil(t, priced.FinalPrice)
	assert.True(t, dec("1863").Equal(*priced.LocalCost))
	assert.True(t, dec("2328.75").Equal(*priced.SellingPrice))
	assert.True(t, dec("3000").Equal(*priced.FinalPrice))
	assert.Nil(t, invoice.InvoiceItems[1].FinalPrice)
	assert.True(t, dec("3000").Equal(invoice.TotalFinalPrice))

	amazon, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode:         pricingdomain.ModeAmazon,
		Title:        "overridden markup",
		ExchangeRate: dec("162"),
		AmazonItems: []pricingdomain.AmazonItem{
			{Title: "lamp", Quantity: 2, CostUSD: dec("50"), MarkupPercent: ptr(dec("100")), SellingPriceJMD: ptr(dec("-99999"))},
		},
	})
	require.NoError(t, err)
	require.Len(t, amazon.AmazonItems, 1)

	item := amazon.AmazonItems[0]
	require.NotNil(t, item.SellingPriceJMD)
	assert.True(t, dec("100").Equal(*item.MarkupPercent))
	assert.True(t, dec("53.5").Equal(*item.AmazonPrice))
	assert.True(t, dec("107").Equal(*item.SellingPriceUSD))
	assert.True(t, dec("17334").Equal(*item.SellingPriceJMD))
	assert.True(t, dec("34668").Equal(amazon.TotalFinalPrice))
}

func TestListSessionsFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
			Mode:         pricingdomain.ModeAmazon,
			Title:        fmt.Sprintf("amazon %d", i),
			ExchangeRate: dec("162"),
			AmazonItems:  []pricingdomain.AmazonItem{{Title: "x", CostUSD: dec("50"), Quantity: 1, SellingPriceJMD: ptr(dec("15600.6"))}},
		})
		require.NoError(t, err)
	}
	_, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode:         pricingdomain.ModeInvoice,
		Title:        "invoice",
		ExchangeRate: dec("162"),
		RoundingUnit: 100,
		InvoiceItems: []pricingdomain.LineItem{{Description: "x", Quantity: 1, Cost: dec("1"), MarkupPercent: dec("25")}},
	})
	require.NoError(t, err)

	first, err := f.svc.ListSessions(ctx, pricingdomain.ListSessionRequest{Mode: "amazon", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Sessions, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "amazon 2", first.Sessions[0].Title)
	assert.Nil(t, first.Sessions[0].AmazonItems)

	second, err := f.svc.ListSessions(ctx, pricingdomain.ListSessionRequest{Mode: "amazon", PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Sessions, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "amazon 0", second.Sessions[0].Title)

	_, err = f.svc.ListSessions(ctx, pricingdomain.ListSessionRequest{Mode: "ebay"})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidMode)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode:         pricingdomain.ModeAmazon,
		Title:        "to delete",
		ExchangeRate: dec("162"),
		AmazonItems:  []pricingdomain.AmazonItem{{Title: "x", CostUSD: dec("50")}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSession(ctx, saved.ID))
	assert.ErrorIs(t, f.svc.DeleteSession(ctx, saved.ID), pricingdomain.ErrNotFound)

	_, err = f.svc.GetSession(ctx, saved.ID)
	assert.ErrorIs(t, err, pricingdomain.ErrNotFound)

	_, err = f.svc.GetSession(ctx, "abc")
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidID)
}

func TestExportSessionPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.svc.SaveSession(ctx, pricingdomain.SaveSessionRequest{
		Mode:         pricingdomain.ModeInvoice,
		Title:        "March restock",
		ExchangeRate: dec("162"),
		RoundingUnit: 1000,
		InvoiceItems: []pricingdomain.LineItem{
			{Description: "USB cable", Quantity: 2, Cost: dec("10"), MarkupPercent: dec("25"), FinalPrice: ptr(dec("3000"))},
			{Description: "Unpriced", Quantity: 1, Cost: dec("4")},
		},
	})
	require.NoError(t, err)

	doc, err := f.svc.ExportSessionPDF(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Reference+".pdf", doc.Filename)
	assert.Equal(t, "%PDF-fake", string(doc.Content))

	assert.Equal(t, "1000", f.pdf.sheet.RoundingUnit)
	require.Len(t, f.pdf.sheet.Rows, 2)
	assert.Equal(t, "3000", f.pdf.sheet.Rows[0].Cells[7])
	assert.Equal(t, "-", f.pdf.sheet.Rows[1].Cells[7])
	assert.Equal(t, "6000.00", f.pdf.sheet.Total)
}
