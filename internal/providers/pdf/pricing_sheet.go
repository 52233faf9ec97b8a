package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PricingSheetData is a saved pricing session flattened to display strings.
type PricingSheetData struct {
	Reference    string
	Title        string
	Supplier     string
	Mode         string
	ExchangeRate string
	RoundingUnit string
	CreatedAt    string
	CreatedBy    string

	Columns []string
	Rows    []PricingSheetRow
	Total   string
}

// PricingSheetRow holds one cell per entry of PricingSheetData.Columns.
type PricingSheetRow struct {
	Cells []string
}

var ErrNoColumns = errors.New("pricing sheet has no columns")

func (p *PDFProvider) GeneratePricingSheet(ctx context.Context, sheet PricingSheetData) (io.Reader, error) {
	if len(sheet.Columns) == 0 {
		return nil, ErrNoColumns
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Pricing sheet", props.Text{
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

	m.AddRow(24,
		col.New(6).Add(
			text.New("Reference: "+sheet.Reference, props.Text{Top: 0}),
			text.New("Title: "+sheet.Title, props.Text{Top: 4}),
			text.New("Supplier: "+sheet.Supplier, props.Text{Top: 8}),
			text.New("Mode: "+sheet.Mode, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Exchange rate: "+sheet.ExchangeRate, props.Text{Top: 0, Align: align.Right}),
			text.New("Rounding unit: "+sheet.RoundingUnit, props.Text{Top: 4, Align: align.Right}),
			text.New("Saved: "+sheet.CreatedAt, props.Text{Top: 8, Align: align.Right}),
			text.New("By: "+sheet.CreatedBy, props.Text{Top: 12, Align: align.Right}),
		),
	)

	widths := columnWidths(len(sheet.Columns))

	header := make([]core.Col, 0, len(sheet.Columns))
	for i, name := range sheet.Columns {
		header = append(header, text.NewCol(widths[i], name, props.Text{
			Style: fontstyle.Bold,
			Size:  8,
			Align: cellAlign(i),
		}))
	}
	m.AddRow(8, header...)
	m.AddRow(2, line.NewCol(12))

	for _, row := range sheet.Rows {
		cells := make([]core.Col, 0, len(sheet.Columns))
		for i := range sheet.Columns {
			value := ""
			if i < len(row.Cells) {
				value = row.Cells[i]
			}
			cells = append(cells, text.NewCol(widths[i], value, props.Text{
				Size:  8,
				Align: cellAlign(i),
			}))
		}
		m.AddRow(7, cells...)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, sheet.Total, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pricing sheet: %w", err)
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

// columnWidths spreads a 12-column grid over n columns, giving the first
// column the remainder.
func columnWidths(n int) []int {
	widths := make([]int, n)
	if n > 12 {
		n = 12
	}
	base := 12 / n
	for i := range widths {
		widths[i] = base
	}
	widths[0] += 12 - base*n
	return widths
}

func cellAlign(index int) align.Type {
	if index == 0 {
		return align.Left
	}
	return align.Right
}
