// Package pdf renders a quote and its lines as a PDF document. It only
// consumes what the ledger exposes; nothing here touches the record store.
package pdf

import (
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/printatelier/backend-devis/internal/quote"
)

// Renderer builds quote documents with the configured seller identity.
type Renderer struct {
	CompanyName  string
	CompanyEmail string
}

// Build renders the quote document and returns the PDF bytes.
func (r Renderer) Build(q quote.Quote, items []quote.Item) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(12, "Devis", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New(r.CompanyName, props.Text{Style: fontstyle.Bold}),
			text.New(r.CompanyEmail, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Client", props.Text{Style: fontstyle.Bold}),
			text.New(q.ClientName, props.Text{Top: 5}),
			text.New(clientEmail(q), props.Text{Top: 9}),
		),
	)

	m.AddRow(10,
		col.New(12).Add(
			text.New("Reference: "+q.ID.String(), props.Text{}),
			text.New("Date: "+q.CreatedAt.Format("02/01/2006"), props.Text{Top: 4}),
		),
	)

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Unit (EUR)", props.Text{Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Total (EUR)", props.Text{Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, it := range items {
		m.AddRow(6,
			text.NewCol(6, itemDescription(it), props.Text{}),
			text.NewCol(2, strconv.Itoa(it.Qty), props.Text{Align: align.Right}),
			text.NewCol(2, it.UnitPriceExVAT.StringFixed(2), props.Text{Align: align.Right}),
			text.NewCol(2, it.LineExVAT.StringFixed(2), props.Text{Align: align.Right}),
		)
	}

	m.AddRow(8, col.New(12))
	m.AddRow(6,
		col.New(8),
		text.NewCol(2, "Subtotal ex VAT", props.Text{Align: align.Right}),
		text.NewCol(2, q.SubtotalExVAT.StringFixed(2), props.Text{Align: align.Right}),
	)
	m.AddRow(6,
		col.New(8),
		text.NewCol(2, "VAT", props.Text{Align: align.Right}),
		text.NewCol(2, q.VATAmount.StringFixed(2), props.Text{Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total inc VAT", props.Text{Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, q.TotalIncVAT.StringFixed(2), props.Text{Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func clientEmail(q quote.Quote) string {
	if q.ClientEmail == nil {
		return ""
	}
	return *q.ClientEmail
}

func itemDescription(it quote.Item) string {
	if it.Description != "" {
		return it.Description
	}
	return it.FormatLabel
}
