package domain

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func requireFieldError(t *testing.T, err error, field string, sentinel error) {
	t.Helper()
	require.Error(t, err)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr), "expected FieldError, got %T", err)
	assert.Equal(t, field, fieldErr.Field)
	assert.ErrorIs(t, err, sentinel)
}

func TestPriceInvoiceWorkedExample(t *testing.T) {
	price, err := DefaultPolicy().PriceInvoice(dec("10.00"), dec("162.00"), dec("25"), 1000)
	require.NoError(t, err)

	assertDecimal(t, "1863.00", price.LocalCost)
	assertDecimal(t, "2328.75", price.SellingPrice)
	assertDecimal(t, "3000", price.FinalPrice)
}

func TestPriceInvoiceRoundingUnits(t *testing.T) {
	policy := DefaultPolicy()

	cases := []struct {
		unit int64
		want string
	}{
		{unit: 100, want: "2400"},
		{unit: 1000, want: "3000"},
		{unit: 10000, want: "10000"},
	}
	for _, tc := range cases {
		price, err := policy.PriceInvoice(dec("10"), dec("162"), dec("25"), tc.unit)
		require.NoError(t, err)
		assertDecimal(t, tc.want, price.FinalPrice)
	}
}

func TestPriceInvoiceExactMultipleIsNotBumped(t *testing.T) {
	exact, err := DefaultPolicy().PriceInvoice(dec("200"), dec("5"), dec("0"), 100)
	require.NoError(t, err)
	assertDecimal(t, "1150", exact.LocalCost)
	assertDecimal(t, "1200", exact.FinalPrice)

	onUnit, err := DefaultPolicy().PriceInvoice(dec("400"), dec("5"), dec("0"), 100)
	require.NoError(t, err)
	assertDecimal(t, "2300", onUnit.SellingPrice)
	assertDecimal(t, "2300", onUnit.FinalPrice)
}

func TestPriceInvoiceRejectsInvalidInput(t *testing.T) {
	policy := DefaultPolicy()

	_, err := policy.PriceInvoice(dec("10"), dec("0"), dec("25"), 1000)
	requireFieldError(t, err, "exchange_rate", ErrInvalidExchangeRate)

	_, err = policy.PriceInvoice(dec("10"), dec("-1"), dec("25"), 1000)
	requireFieldError(t, err, "exchange_rate", ErrInvalidExchangeRate)

	_, err = policy.PriceInvoice(dec("10"), dec("162"), dec("25"), 500)
	requireFieldError(t, err, "rounding_unit", ErrInvalidRoundingUnit)

	_, err = policy.PriceInvoice(dec("0"), dec("162"), dec("25"), 1000)
	requireFieldError(t, err, "cost", ErrInvalidCost)

	_, err = policy.PriceInvoice(dec("10"), dec("162"), dec("500.01"), 1000)
	requireFieldError(t, err, "markup_percent", ErrInvalidMarkup)

	_, err = policy.PriceInvoice(dec("10"), dec("162"), dec("-5"), 1000)
	requireFieldError(t, err, "markup_percent", ErrInvalidMarkup)
}

func TestPriceInvoiceProperties(t *testing.T) {
	policy := DefaultPolicy()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		cost := decimal.New(rng.Int63n(1_000_000)+1, -2)
		rate := decimal.New(rng.Int63n(3_000_000)+1, -4)
		markup := decimal.New(rng.Int63n(50_001), -2)
		unit := policy.RoundingUnits[rng.Intn(len(policy.RoundingUnits))]
		step := decimal.NewFromInt(unit)

		price, err := policy.PriceInvoice(cost, rate, markup, unit)
		require.NoError(t, err)

		assert.True(t, price.FinalPrice.Mod(step).IsZero(), "final %s not a multiple of %d", price.FinalPrice, unit)
		assert.True(t, price.FinalPrice.GreaterThanOrEqual(price.SellingPrice), "final %s below selling %s", price.FinalPrice, price.SellingPrice)
		assert.True(t, price.FinalPrice.Sub(price.SellingPrice).LessThan(step))

		again, err := policy.PriceInvoice(cost, rate, markup, unit)
		require.NoError(t, err)
		assert.True(t, price.LocalCost.Equal(again.LocalCost))
		assert.True(t, price.SellingPrice.Equal(again.SellingPrice))
		assert.True(t, price.FinalPrice.Equal(again.FinalPrice))
	}
}

func TestRoundUp(t *testing.T) {
	assertDecimal(t, "3000", RoundUp(dec("2328.75"), 1000))
	assertDecimal(t, "2000", RoundUp(dec("2000"), 1000))
	assertDecimal(t, "100", RoundUp(dec("0.01"), 100))
	assertDecimal(t, "0", RoundUp(dec("0"), 100))
}

func TestCalculateInvoicePricesUnpricedItems(t *testing.T) {
	items := []LineItem{
		{Description: "USB cable", Quantity: 2, Cost: dec("10"), MarkupPercent: dec("25")},
		{Description: "Already priced", Quantity: 1, Cost: dec("10"), MarkupPercent: dec("25"),
			LocalCost: decPtr("1"), SellingPrice: decPtr("2"), FinalPrice: decPtr("100")},
	}

	out, err := DefaultPolicy().CalculateInvoice(items, dec("162"), 1000, false)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assertDecimal(t, "3000", *out[0].FinalPrice)
	assertDecimal(t, "100", *out[1].FinalPrice)
	assertDecimal(t, "2", *out[1].SellingPrice)

	assert.Nil(t, items[0].FinalPrice, "input must not be modified")
}

func TestCalculateInvoiceRecomputeRepricesEverything(t *testing.T) {
	items := []LineItem{
		{Description: "Already priced", Cost: dec("10"), MarkupPercent: dec("25"),
			LocalCost: decPtr("1"), SellingPrice: decPtr("2"), FinalPrice: decPtr("100")},
	}

	out, err := DefaultPolicy().CalculateInvoice(items, dec("162"), 100, true)
	require.NoError(t, err)
	assertDecimal(t, "1863", *out[0].LocalCost)
	assertDecimal(t, "2400", *out[0].FinalPrice)
	assertDecimal(t, "100", *items[0].FinalPrice)
}

func TestCalculateInvoiceSkipsZeroMarkup(t *testing.T) {
	items := []LineItem{
		{Description: "No category yet", Cost: dec("10"), MarkupPercent: decimal.Zero},
		{Description: "Category removed", Cost: dec("10"), MarkupPercent: decimal.Zero,
			LocalCost: decPtr("1863"), SellingPrice: decPtr("2328.75"), FinalPrice: decPtr("3000")},
		{Description: "No cost entered", Cost: decimal.Zero, MarkupPercent: decimal.Zero},
	}

	out, err := DefaultPolicy().CalculateInvoice(items, dec("200"), 1000, true)
	require.NoError(t, err)

	assert.Nil(t, out[0].FinalPrice)
	assertDecimal(t, "1863", *out[1].LocalCost)
	assertDecimal(t, "3000", *out[1].FinalPrice)
	assert.Nil(t, out[2].FinalPrice)
}

func TestCalculateInvoiceRejectsBadRateWithoutMutation(t *testing.T) {
	items := []LineItem{
		{Description: "A", Cost: dec("10"), MarkupPercent: dec("25")},
		{Description: "B", Cost: dec("10"), MarkupPercent: dec("25"), FinalPrice: decPtr("3000")},
	}

	for _, rate := range []string{"0", "-162"} {
		out, err := DefaultPolicy().CalculateInvoice(items, dec(rate), 1000, true)
		requireFieldError(t, err, "exchange_rate", ErrInvalidExchangeRate)
		assert.Nil(t, out)
		assert.Nil(t, items[0].FinalPrice)
		assertDecimal(t, "3000", *items[1].FinalPrice)
	}
}

func TestCalculateInvoiceValidatesBeforeComputing(t *testing.T) {
	items := []LineItem{
		{Description: "Fine", Cost: dec("10"), MarkupPercent: dec("25")},
		{Description: "Broken", Cost: dec("0"), MarkupPercent: dec("25")},
	}
	out, err := DefaultPolicy().CalculateInvoice(items, dec("162"), 1000, false)
	requireFieldError(t, err, "items[1].cost", ErrInvalidCost)
	assert.Nil(t, out)
	assert.Nil(t, items[0].FinalPrice)

	items[1] = LineItem{Description: "Too greedy", Cost: dec("10"), MarkupPercent: dec("501")}
	_, err = DefaultPolicy().CalculateInvoice(items, dec("162"), 1000, false)
	requireFieldError(t, err, "items[1].markup_percent", ErrInvalidMarkup)

	_, err = DefaultPolicy().CalculateInvoice(items[:1], dec("162"), 250, false)
	requireFieldError(t, err, "rounding_unit", ErrInvalidRoundingUnit)
}

func TestCalculateInvoiceIgnoresPricedItemsWhenNotRecomputing(t *testing.T) {
	items := []LineItem{
		{Description: "Stale", Cost: dec("0"), MarkupPercent: dec("900"), FinalPrice: decPtr("100")},
	}
	out, err := DefaultPolicy().CalculateInvoice(items, dec("162"), 1000, false)
	require.NoError(t, err)
	assertDecimal(t, "100", *out[0].FinalPrice)
}

func TestAmazonWorkedExample(t *testing.T) {
	price, err := DefaultPolicy().PriceAmazon(dec("50.00"), nil, dec("162.00"))
	require.NoError(t, err)

	assertDecimal(t, "80", price.MarkupPercent)
	assertDecimal(t, "80", price.DefaultMarkupPercent)
	assertDecimal(t, "53.50", price.AmazonPrice)
	assertDecimal(t, "96.30", price.SellingPriceUSD)
	assertDecimal(t, "15600.60", price.SellingPriceJMD)
}

func TestDefaultAmazonMarkupTierBoundary(t *testing.T) {
	policy := DefaultPolicy()

	assertDecimal(t, "80", policy.DefaultAmazonMarkup(dec("99.99")))
	assertDecimal(t, "80", policy.DefaultAmazonMarkup(dec("100.00")))
	assertDecimal(t, "120", policy.DefaultAmazonMarkup(dec("100.01")))
	assertDecimal(t, "120", policy.DefaultAmazonMarkup(dec("2500")))
}

func TestAmazonOverrideMarkupIsHonored(t *testing.T) {
	price, err := DefaultPolicy().PriceAmazon(dec("150"), decPtr("10"), dec("160"))
	require.NoError(t, err)

	assertDecimal(t, "10", price.MarkupPercent)
	assertDecimal(t, "120", price.DefaultMarkupPercent)
	assertDecimal(t, "160.5", price.AmazonPrice)
	assertDecimal(t, "176.55", price.SellingPriceUSD)
	assertDecimal(t, "28248", price.SellingPriceJMD)
}

func TestAmazonKeepsFullPrecision(t *testing.T) {
	price, err := DefaultPolicy().PriceAmazon(dec("19.99"), nil, dec("157.3456"))
	require.NoError(t, err)

	assertDecimal(t, "21.3893", price.AmazonPrice)
	assertDecimal(t, "38.50074", price.SellingPriceUSD)
	assertDecimal(t, "6057.922035744", price.SellingPriceJMD)
}

func TestCalculateAmazonRejectsWithoutMutation(t *testing.T) {
	item := AmazonItem{Title: "Headphones", CostUSD: dec("50"), Quantity: 1}

	for _, rate := range []string{"0", "-1"} {
		out, _, err := DefaultPolicy().CalculateAmazon(item, dec(rate))
		requireFieldError(t, err, "exchange_rate", ErrInvalidExchangeRate)
		assert.Nil(t, out.AmazonPrice)
		assert.Nil(t, out.MarkupPercent)
	}
	assert.Nil(t, item.SellingPriceJMD)

	_, _, err := DefaultPolicy().CalculateAmazon(AmazonItem{CostUSD: dec("0")}, dec("160"))
	requireFieldError(t, err, "cost_usd", ErrInvalidCost)

	_, _, err = DefaultPolicy().CalculateAmazon(AmazonItem{CostUSD: dec("10"), MarkupPercent: decPtr("600")}, dec("160"))
	requireFieldError(t, err, "markup_percent", ErrInvalidMarkup)
}

func TestCalculateAmazonFillsItem(t *testing.T) {
	item := AmazonItem{Title: "Headphones", CostUSD: dec("50"), Quantity: 2}

	out, _, err := DefaultPolicy().CalculateAmazon(item, dec("162"))
	require.NoError(t, err)
	assertDecimal(t, "80", *out.MarkupPercent)
	assertDecimal(t, "15600.6", *out.SellingPriceJMD)
	assert.Nil(t, item.MarkupPercent)
}

func TestTotals(t *testing.T) {
	invoice := []LineItem{
		{Quantity: 2, FinalPrice: decPtr("3000")},
		{Quantity: 0, FinalPrice: decPtr("1000")},
		{Quantity: 5},
	}
	assertDecimal(t, "7000", InvoiceTotal(invoice))

	amazon := []AmazonItem{
		{Quantity: 1, SellingPriceJMD: decPtr("15600.6")},
		{Quantity: 3, SellingPriceJMD: decPtr("100.1")},
	}
	assertDecimal(t, "15900.9", AmazonTotal(amazon))
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.DefaultPricingConfig()
	cfg.GCTPercent = 16.5
	cfg.RoundingUnits = []int64{50}

	policy := PolicyFromConfig(cfg)
	assertDecimal(t, "16.5", policy.GCTPercent)
	assert.True(t, policy.AllowsRoundingUnit(50))
	assert.False(t, policy.AllowsRoundingUnit(100))

	price, err := policy.PriceInvoice(dec("100"), dec("1"), dec("0"), 50)
	require.NoError(t, err)
	assertDecimal(t, "116.5", price.LocalCost)
	assertDecimal(t, "150", price.FinalPrice)
}
