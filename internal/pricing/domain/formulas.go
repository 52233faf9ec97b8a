package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// InvoicePrice holds the derived fields of the invoice formula.
type InvoicePrice struct {
	LocalCost    decimal.Decimal
	SellingPrice decimal.Decimal
	FinalPrice   decimal.Decimal
}

// AmazonPrice holds the derived fields of the marketplace formula.
type AmazonPrice struct {
	MarkupPercent        decimal.Decimal
	DefaultMarkupPercent decimal.Decimal
	AmazonPrice          decimal.Decimal
	SellingPriceUSD      decimal.Decimal
	SellingPriceJMD      decimal.Decimal
}

// PriceInvoice applies the invoice formula to a single item:
//
//	localCost    = cost * rate * (1 + gct)
//	sellingPrice = localCost * (1 + markup/100)
//	finalPrice   = ceil(sellingPrice / unit) * unit
func (p Policy) PriceInvoice(cost, rate, markup decimal.Decimal, unit int64) (InvoicePrice, error) {
	if !rate.IsPositive() {
		return InvoicePrice{}, fieldError("exchange_rate", ErrInvalidExchangeRate)
	}
	if !p.AllowsRoundingUnit(unit) {
		return InvoicePrice{}, fieldError("rounding_unit", ErrInvalidRoundingUnit)
	}
	if !cost.IsPositive() {
		return InvoicePrice{}, fieldError("cost", ErrInvalidCost)
	}
	if !p.validMarkup(markup) {
		return InvoicePrice{}, fieldError("markup_percent", ErrInvalidMarkup)
	}
	return p.priceInvoice(cost, rate, markup, unit), nil
}

func (p Policy) priceInvoice(cost, rate, markup decimal.Decimal, unit int64) InvoicePrice {
	localCost := cost.Mul(rate).Mul(hundred.Add(p.GCTPercent)).Shift(-2)
	sellingPrice := localCost.Mul(hundred.Add(markup)).Shift(-2)
	return InvoicePrice{
		LocalCost:    localCost,
		SellingPrice: sellingPrice,
		FinalPrice:   RoundUp(sellingPrice, unit),
	}
}

// RoundUp returns the smallest multiple of unit that is not below value.
func RoundUp(value decimal.Decimal, unit int64) decimal.Decimal {
	step := decimal.NewFromInt(unit)
	quotient, remainder := value.QuoRem(step, 0)
	if remainder.IsPositive() {
		quotient = quotient.Add(one)
	}
	return quotient.Mul(step)
}

// CalculateInvoice prices every item without a final price, or every item
// when recompute is set. Items whose markup is zero are left untouched.
// All eligible items are validated before any arithmetic; on error the
// returned slice is nil and items is unchanged. The input slice is never
// modified.
func (p Policy) CalculateInvoice(items []LineItem, rate decimal.Decimal, unit int64, recompute bool) ([]LineItem, error) {
	if !rate.IsPositive() {
		return nil, fieldError("exchange_rate", ErrInvalidExchangeRate)
	}
	if !p.AllowsRoundingUnit(unit) {
		return nil, fieldError("rounding_unit", ErrInvalidRoundingUnit)
	}

	eligible := make([]int, 0, len(items))
	for i, item := range items {
		if item.Priced() && !recompute {
			continue
		}
		if !p.validMarkup(item.MarkupPercent) {
			return nil, fieldError(itemField(i, "markup_percent"), ErrInvalidMarkup)
		}
		if item.MarkupPercent.IsZero() {
			continue
		}
		if !item.Cost.IsPositive() {
			return nil, fieldError(itemField(i, "cost"), ErrInvalidCost)
		}
		eligible = append(eligible, i)
	}

	out := make([]LineItem, len(items))
	copy(out, items)
	for _, i := range eligible {
		price := p.priceInvoice(out[i].Cost, rate, out[i].MarkupPercent, unit)
		out[i].LocalCost = &price.LocalCost
		out[i].SellingPrice = &price.SellingPrice
		out[i].FinalPrice = &price.FinalPrice
	}
	return out, nil
}

// DefaultAmazonMarkup returns the tier markup for costUSD. The threshold is
// exclusive: a cost equal to it takes the lower tier.
func (p Policy) DefaultAmazonMarkup(costUSD decimal.Decimal) decimal.Decimal {
	if costUSD.GreaterThan(p.TierThresholdUSD) {
		return p.HighTierMarkup
	}
	return p.LowTierMarkup
}

// PriceAmazon applies the marketplace formula. A nil markup selects the tier
// default; a supplied markup is used as given. No rounding is applied.
func (p Policy) PriceAmazon(costUSD decimal.Decimal, markup *decimal.Decimal, rate decimal.Decimal) (AmazonPrice, error) {
	if !rate.IsPositive() {
		return AmazonPrice{}, fieldError("exchange_rate", ErrInvalidExchangeRate)
	}
	if !costUSD.IsPositive() {
		return AmazonPrice{}, fieldError("cost_usd", ErrInvalidCost)
	}

	defaultMarkup := p.DefaultAmazonMarkup(costUSD)
	applied := defaultMarkup
	if markup != nil {
		applied = *markup
	}
	if !p.validMarkup(applied) {
		return AmazonPrice{}, fieldError("markup_percent", ErrInvalidMarkup)
	}

	amazonPrice := costUSD.Mul(hundred.Add(p.SurchargePercent)).Shift(-2)
	sellingUSD := amazonPrice.Mul(hundred.Add(applied)).Shift(-2)
	return AmazonPrice{
		MarkupPercent:        applied,
		DefaultMarkupPercent: defaultMarkup,
		AmazonPrice:          amazonPrice,
		SellingPriceUSD:      sellingUSD,
		SellingPriceJMD:      sellingUSD.Mul(rate),
	}, nil
}

// CalculateAmazon returns a priced copy of item.
func (p Policy) CalculateAmazon(item AmazonItem, rate decimal.Decimal) (AmazonItem, AmazonPrice, error) {
	price, err := p.PriceAmazon(item.CostUSD, item.MarkupPercent, rate)
	if err != nil {
		return item, AmazonPrice{}, err
	}
	out := item
	out.MarkupPercent = &price.MarkupPercent
	out.AmazonPrice = &price.AmazonPrice
	out.SellingPriceUSD = &price.SellingPriceUSD
	out.SellingPriceJMD = &price.SellingPriceJMD
	return out, price, nil
}

// PriceInvoiceSession prepares reviewed items for storage. Every item needs a
// positive cost and a markup within range. Derived fields are recomputed from
// the stored cost, markup, rate and unit; items without a markup are stored
// unpriced. Quantities are normalized.
func (p Policy) PriceInvoiceSession(items []LineItem, rate decimal.Decimal, unit int64) ([]LineItem, error) {
	if !rate.IsPositive() {
		return nil, fieldError("exchange_rate", ErrInvalidExchangeRate)
	}
	if !p.AllowsRoundingUnit(unit) {
		return nil, fieldError("rounding_unit", ErrInvalidRoundingUnit)
	}

	out := make([]LineItem, len(items))
	for i, item := range items {
		if !item.Cost.IsPositive() {
			return nil, fieldError(itemField(i, "cost"), ErrInvalidCost)
		}
		if !p.validMarkup(item.MarkupPercent) {
			return nil, fieldError(itemField(i, "markup_percent"), ErrInvalidMarkup)
		}

		item.Quantity = NormalizeQuantity(item.Quantity)
		item.LocalCost, item.SellingPrice, item.FinalPrice = nil, nil, nil
		if !item.MarkupPercent.IsZero() {
			price := p.priceInvoice(item.Cost, rate, item.MarkupPercent, unit)
			item.LocalCost = &price.LocalCost
			item.SellingPrice = &price.SellingPrice
			item.FinalPrice = &price.FinalPrice
		}
		out[i] = item
	}
	return out, nil
}

// PriceAmazonSession prepares reviewed marketplace items for storage. The
// stored markup is kept as given; a missing one takes the tier default.
func (p Policy) PriceAmazonSession(items []AmazonItem, rate decimal.Decimal) ([]AmazonItem, error) {
	if !rate.IsPositive() {
		return nil, fieldError("exchange_rate", ErrInvalidExchangeRate)
	}

	out := make([]AmazonItem, len(items))
	for i, item := range items {
		priced, _, err := p.CalculateAmazon(item, rate)
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				return nil, fieldError(fmt.Sprintf("amazon_items[%d].%s", i, fe.Field), fe.Err)
			}
			return nil, err
		}
		priced.Quantity = NormalizeQuantity(priced.Quantity)
		out[i] = priced
	}
	return out, nil
}

// InvoiceTotal sums final price times quantity over priced items.
func InvoiceTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.FinalPrice == nil {
			continue
		}
		total = total.Add(item.FinalPrice.Mul(decimal.NewFromInt(int64(NormalizeQuantity(item.Quantity)))))
	}
	return total
}

// AmazonTotal sums the local selling price times quantity over priced items.
func AmazonTotal(items []AmazonItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.SellingPriceJMD == nil {
			continue
		}
		total = total.Add(item.SellingPriceJMD.Mul(decimal.NewFromInt(int64(NormalizeQuantity(item.Quantity)))))
	}
	return total
}

// NormalizeQuantity treats a missing or non-positive quantity as one unit.
func NormalizeQuantity(quantity int) int {
	if quantity <= 0 {
		return 1
	}
	return quantity
}
