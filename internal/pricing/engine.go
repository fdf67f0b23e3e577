package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/common"
	"github.com/printatelier/backend-devis/internal/money"
)

// Currency is the only currency the engine quotes in.
const Currency = "EUR"

// DefaultVATRate applies when a request carries no usable rate.
var DefaultVATRate = decimal.NewFromInt(20)

// Breakdown is the computed, non-persisted result of one price request. It
// echoes the resolved selections and carries the four derived figures, each
// already rounded to two decimals.
type Breakdown struct {
	Format  catalog.Attribute
	Support *catalog.Attribute
	Finish  *catalog.Attribute

	Qty     int
	VATRate decimal.Decimal

	UnitPriceExVAT decimal.Decimal
	LineExVAT      decimal.Decimal
	VATAmount      decimal.Decimal
	TotalIncVAT    decimal.Decimal
}

// Compute derives a price breakdown from resolved attributes.
//
// The unit price is the format's base price plus the optional surcharges,
// rounded; the line, VAT, and total figures are each rounded as they are
// produced so the result matches the persisted two-decimal columns exactly.
// qty is clamped to a minimum of 1 and a negative VAT rate is treated as 0.
func Compute(format, support, finish *catalog.Attribute, qty int, vatRate decimal.Decimal) (Breakdown, error) {
	if format == nil {
		return Breakdown{}, common.BadRequest("FORMAT_REQUIRED", "a format_code or format_id is required")
	}
	if qty < 1 {
		qty = 1
	}
	if vatRate.IsNegative() {
		vatRate = decimal.Zero
	}

	unit := format.Price
	if support != nil {
		unit = unit.Add(support.Price)
	}
	if finish != nil {
		unit = unit.Add(finish.Price)
	}
	unit = money.Round2(unit)

	line := money.Round2(unit.Mul(decimal.NewFromInt(int64(qty))))
	vat := money.Round2(line.Mul(vatRate).Div(decimal.NewFromInt(100)))
	total := money.Round2(line.Add(vat))

	return Breakdown{
		Format:         *format,
		Support:        support,
		Finish:         finish,
		Qty:            qty,
		VATRate:        vatRate,
		UnitPriceExVAT: unit,
		LineExVAT:      line,
		VATAmount:      vat,
		TotalIncVAT:    total,
	}, nil
}

// MarshalJSON renders the breakdown in the shape persisted as the item
// snapshot and returned by the pricing endpoint.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	type computed struct {
		UnitPriceExVAT json.Number `json:"unit_price_ex_vat"`
		LineExVAT      json.Number `json:"line_ex_vat"`
		VATAmount      json.Number `json:"vat_amount"`
		TotalIncVAT    json.Number `json:"total_inc_vat"`
	}
	payload := struct {
		Currency   string         `json:"currency"`
		Qty        int            `json:"qty"`
		VATRate    json.Number    `json:"vat_rate"`
		Selections map[string]any `json:"selections"`
		Computed   computed       `json:"computed"`
	}{
		Currency: Currency,
		Qty:      b.Qty,
		VATRate:  money.Rate(b.VATRate),
		Selections: map[string]any{
			"format":  selectionView(&b.Format),
			"support": selectionView(b.Support),
			"finish":  selectionView(b.Finish),
		},
		Computed: computed{
			UnitPriceExVAT: money.Number(b.UnitPriceExVAT),
			LineExVAT:      money.Number(b.LineExVAT),
			VATAmount:      money.Number(b.VATAmount),
			TotalIncVAT:    money.Number(b.TotalIncVAT),
		},
	}
	return json.Marshal(payload)
}

func selectionView(attr *catalog.Attribute) any {
	if attr == nil {
		return nil
	}
	return catalog.NewAttributeView(*attr)
}
