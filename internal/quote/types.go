package quote

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by the store when a quote id matches nothing.
var ErrNotFound = errors.New("quote not found")

// Status is the quote lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
	StatusSent      Status = "sent"
	StatusArchived  Status = "archived"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusFinalized, StatusSent, StatusArchived:
		return true
	}
	return false
}

// Quote is a persisted order header. Its three aggregate monetary fields are
// owned by the ledger: the subtotal always equals the sum of line_ex_vat over
// the quote's items, and the VAT and total amounts are derived from it.
type Quote struct {
	ID            uuid.UUID
	ClientName    string
	ClientEmail   *string
	Notes         *string
	Status        Status
	SubtotalExVAT decimal.Decimal
	VATAmount     decimal.Decimal
	TotalIncVAT   decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Item is one priced line belonging to exactly one quote. Immutable once
// inserted; the breakdown snapshot preserves the full computation for audit
// and document rendering.
type Item struct {
	ID             int64
	QuoteID        uuid.UUID
	FormatID       int64
	SupportID      *int64
	FinishID       *int64
	Qty            int
	UnitPriceExVAT decimal.Decimal
	LineExVAT      decimal.Decimal
	VATRate        decimal.Decimal
	Description    string
	Breakdown      json.RawMessage
	CreatedAt      time.Time

	// Labels resolved from the catalog when reading, for display only.
	FormatLabel  string
	SupportLabel *string
	FinishLabel  *string
}

// CreateQuoteParams carries the fields of a new quote header.
type CreateQuoteParams struct {
	ClientName  string
	ClientEmail *string
	Notes       *string
}

// InsertItemParams carries one priced line ready to persist.
type InsertItemParams struct {
	QuoteID        uuid.UUID
	FormatID       int64
	SupportID      *int64
	FinishID       *int64
	Qty            int
	UnitPriceExVAT decimal.Decimal
	LineExVAT      decimal.Decimal
	VATRate        decimal.Decimal
	Description    string
	Breakdown      json.RawMessage
}
