package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type QuotationData struct {
	Number        string
	IssueDate     string
	Status        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	Description string
	ItemURL     string
	Quantity    int
	Amount      string
	Currency    string
	Notes       string
}

func (p *PDFProvider) GenerateQuotation(ctx context.Context, quote QuotationData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Quotation", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, p.companyName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(16,
		col.New(6).Add(
			text.New("Quotation number: "+quote.Number, props.Text{Top: 0}),
			text.New("Date of issue: "+quote.IssueDate, props.Text{Top: 4}),
			text.New("Status: "+quote.Status, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Prepared for", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(quote.CustomerName, props.Text{Top: 4, Align: align.Right}),
			text.New(quote.CustomerEmail, props.Text{Top: 8, Align: align.Right}),
			text.New(quote.CustomerPhone, props.Text{Top: 12, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(8, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	m.AddRow(12,
		col.New(8).Add(
			text.New(quote.Description, props.Text{Size: 9}),
			text.New(quote.ItemURL, props.Text{Size: 7, Top: 5}),
		),
		text.NewCol(2, fmt.Sprintf("%d", quote.Quantity), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, quote.Amount+" "+quote.Currency, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, quote.Amount+" "+quote.Currency, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if quote.Notes != "" {
		m.AddRow(20,
			text.NewCol(12, quote.Notes, props.Text{Size: 8, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate quotation: %w", err)
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
