package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

type Provider interface {
	GeneratePricingSheet(ctx context.Context, data PricingSheetData) (io.Reader, error)
	GenerateQuotation(ctx context.Context, data QuotationData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GeneratePricingSheet(ctx context.Context, data PricingSheetData) (io.Reader, error) {
	return nil, nil
}

func (p *NoOpProvider) GenerateQuotation(ctx context.Context, data QuotationData) (io.Reader, error) {
	return nil, nil
}

type PDFProvider struct {
	companyName string
}

func New() Provider {
	return &PDFProvider{companyName: "OpsDesk"}
}
