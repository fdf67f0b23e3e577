package quote

import (
	"encoding/json"
	"time"

	"github.com/printatelier/backend-devis/internal/money"
)

// QuoteView is the public quote header payload.
type QuoteView struct {
	ID            string      `json:"id"`
	ClientName    string      `json:"client_name"`
	ClientEmail   *string     `json:"client_email,omitempty"`
	Notes         *string     `json:"notes,omitempty"`
	Status        string      `json:"status"`
	SubtotalExVAT json.Number `json:"subtotal_ex_vat"`
	VATAmount     json.Number `json:"vat_amount"`
	TotalIncVAT   json.Number `json:"total_inc_vat"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ItemView is the public quote line payload.
type ItemView struct {
	ID             int64           `json:"id"`
	QuoteID        string          `json:"quote_id"`
	FormatID       int64           `json:"format_id"`
	SupportID      *int64          `json:"support_id,omitempty"`
	FinishID       *int64          `json:"finish_id,omitempty"`
	Qty            int             `json:"qty"`
	UnitPriceExVAT json.Number     `json:"computed_unit_price_ex_vat"`
	LineExVAT      json.Number     `json:"line_ex_vat"`
	VATRate        json.Number     `json:"vat_rate"`
	Description    string          `json:"description"`
	Breakdown      json.RawMessage `json:"breakdown,omitempty"`
	FormatLabel    string          `json:"format_label,omitempty"`
	SupportLabel   *string         `json:"support_label,omitempty"`
	FinishLabel    *string         `json:"finish_label,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewQuoteView converts a quote into its public payload.
func NewQuoteView(q Quote) QuoteView {
	return QuoteView{
		ID:            q.ID.String(),
		ClientName:    q.ClientName,
		ClientEmail:   q.ClientEmail,
		Notes:         q.Notes,
		Status:        string(q.Status),
		SubtotalExVAT: money.Number(q.SubtotalExVAT),
		VATAmount:     money.Number(q.VATAmount),
		TotalIncVAT:   money.Number(q.TotalIncVAT),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// NewItemView converts a quote line into its public payload.
func NewItemView(it Item) ItemView {
	return ItemView{
		ID:             it.ID,
		QuoteID:        it.QuoteID.String(),
		FormatID:       it.FormatID,
		SupportID:      it.SupportID,
		FinishID:       it.FinishID,
		Qty:            it.Qty,
		UnitPriceExVAT: money.Number(it.UnitPriceExVAT),
		LineExVAT:      money.Number(it.LineExVAT),
		VATRate:        money.Rate(it.VATRate),
		Description:    it.Description,
		Breakdown:      it.Breakdown,
		FormatLabel:    it.FormatLabel,
		SupportLabel:   it.SupportLabel,
		FinishLabel:    it.FinishLabel,
		CreatedAt:      it.CreatedAt,
	}
}

// NewItemViews converts a slice of lines.
func NewItemViews(items []Item) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, NewItemView(it))
	}
	return views
}
