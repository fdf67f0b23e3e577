package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/common"
	"github.com/printatelier/backend-devis/internal/pricing"
)

// Querier is the record-store access the ledger needs. The same interface is
// satisfied by the pool-bound store and by a transaction-bound one, so every
// step of a mutation runs against a single transactional handle.
type Querier interface {
	catalog.Querier

	CreateQuote(ctx context.Context, arg CreateQuoteParams) (Quote, error)
	GetQuote(ctx context.Context, id uuid.UUID) (Quote, error)
	// GetQuoteForUpdate locks the quote row for the remainder of the
	// transaction, serializing concurrent mutations of the same quote.
	GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (Quote, error)
	ListQuoteItems(ctx context.Context, quoteID uuid.UUID) ([]Item, error)
	InsertQuoteItem(ctx context.Context, arg InsertItemParams) (Item, error)
	// RecomputeQuoteTotals re-derives the subtotal from all of the quote's
	// items in one aggregate statement and updates the three totals columns.
	RecomputeQuoteTotals(ctx context.Context, id uuid.UUID, vatRate decimal.Decimal) (Quote, error)
	FinalizeQuote(ctx context.Context, id uuid.UUID, vatRate decimal.Decimal, status Status) (Quote, error)
}

// TxRunner executes fn inside one database transaction: committed when fn
// returns nil, rolled back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Querier) error) error
}

// Service is the quote ledger. It owns the invariant that a quote's stored
// totals always equal the aggregate of its items, and it is the only writer
// of quotes and quote items.
type Service struct {
	Q              Querier
	Tx             TxRunner
	DefaultVATRate decimal.Decimal
}

// AddItemInput carries one add-line request.
type AddItemInput struct {
	Format      catalog.Selector
	Support     catalog.Selector
	Finish      catalog.Selector
	Qty         int
	VATRate     decimal.Decimal
	Description string
}

// Create persists a new draft quote with zeroed totals.
func (s *Service) Create(ctx context.Context, arg CreateQuoteParams) (Quote, error) {
	created, err := s.Q.CreateQuote(ctx, arg)
	if err != nil {
		return Quote{}, fmt.Errorf("create quote: %w", err)
	}
	return created, nil
}

// Get returns a quote header with its items, labels resolved.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Quote, []Item, error) {
	header, err := s.Q.GetQuote(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quote{}, nil, common.NotFound("QUOTE_NOT_FOUND", "no quote with this id")
		}
		return Quote{}, nil, fmt.Errorf("get quote: %w", err)
	}
	items, err := s.Q.ListQuoteItems(ctx, id)
	if err != nil {
		return Quote{}, nil, fmt.Errorf("list quote items: %w", err)
	}
	return header, items, nil
}

// AddItem prices one line and appends it to the quote, recomputing the
// quote's totals, all inside a single transaction. On any failure nothing is
// persisted and the specific error kind is surfaced.
func (s *Service) AddItem(ctx context.Context, quoteID uuid.UUID, in AddItemInput) (Item, Quote, error) {
	var (
		item    Item
		updated Quote
	)
	err := s.Tx.InTx(ctx, func(q Querier) error {
		// Existence check doubles as the row lock that serializes
		// concurrent calls against the same quote.
		if _, err := q.GetQuoteForUpdate(ctx, quoteID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return common.NotFound("QUOTE_NOT_FOUND", "no quote with this id")
			}
			return fmt.Errorf("lock quote: %w", err)
		}

		format, err := resolveFormat(ctx, q, in.Format)
		if err != nil {
			return err
		}
		support, err := resolveOptional(ctx, q, catalog.KindSupport, in.Support)
		if err != nil {
			return err
		}
		finish, err := resolveOptional(ctx, q, catalog.KindFinish, in.Finish)
		if err != nil {
			return err
		}

		breakdown, err := pricing.Compute(format, support, finish, in.Qty, in.VATRate)
		if err != nil {
			return err
		}
		snapshot, err := json.Marshal(breakdown)
		if err != nil {
			return fmt.Errorf("encode breakdown: %w", err)
		}

		description := in.Description
		if description == "" {
			description = format.Label
		}

		item, err = q.InsertQuoteItem(ctx, InsertItemParams{
			QuoteID:        quoteID,
			FormatID:       format.ID,
			SupportID:      attributeID(support),
			FinishID:       attributeID(finish),
			Qty:            breakdown.Qty,
			UnitPriceExVAT: breakdown.UnitPriceExVAT,
			LineExVAT:      breakdown.LineExVAT,
			VATRate:        breakdown.VATRate,
			Description:    description,
			Breakdown:      snapshot,
		})
		if err != nil {
			return fmt.Errorf("insert quote item: %w", err)
		}

		updated, err = q.RecomputeQuoteTotals(ctx, quoteID, breakdown.VATRate)
		if err != nil {
			return fmt.Errorf("recompute quote totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return Item{}, Quote{}, err
	}
	return item, updated, nil
}

// Finalize re-derives the quote's totals from its current items, applies the
// given (or default) tax rate, and sets the lifecycle status.
func (s *Service) Finalize(ctx context.Context, quoteID uuid.UUID, vatRate *decimal.Decimal, status Status) (Quote, error) {
	if status == "" {
		status = StatusFinalized
	}
	if !status.Valid() {
		return Quote{}, common.BadRequest("VALIDATION_ERROR", "unknown quote status")
	}
	rate := s.DefaultVATRate
	if vatRate != nil {
		rate = *vatRate
	}
	if rate.IsNegative() {
		rate = decimal.Zero
	}

	var updated Quote
	err := s.Tx.InTx(ctx, func(q Querier) error {
		if _, err := q.GetQuoteForUpdate(ctx, quoteID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return common.NotFound("QUOTE_NOT_FOUND", "no quote with this id")
			}
			return fmt.Errorf("lock quote: %w", err)
		}
		var err error
		updated, err = q.FinalizeQuote(ctx, quoteID, rate, status)
		if err != nil {
			return fmt.Errorf("finalize quote: %w", err)
		}
		return nil
	})
	if err != nil {
		return Quote{}, err
	}
	return updated, nil
}

// resolveFormat resolves the mandatory attribute. A missing selector is
// reported as FORMAT_REQUIRED, an unresolvable one as FORMAT_NOT_FOUND.
func resolveFormat(ctx context.Context, q Querier, sel catalog.Selector) (*catalog.Attribute, error) {
	format, err := catalog.Resolve(ctx, q, catalog.KindFormat, sel)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, common.BadRequest("FORMAT_NOT_FOUND", "no format matches the given selector")
		}
		return nil, err
	}
	if format == nil {
		return nil, common.BadRequest("FORMAT_REQUIRED", "a format_code or format_id is required")
	}
	return format, nil
}

// resolveOptional resolves an optional attribute: absent is valid-and-zero,
// supplied-but-unresolvable is an error.
func resolveOptional(ctx context.Context, q Querier, kind catalog.Kind, sel catalog.Selector) (*catalog.Attribute, error) {
	attr, err := catalog.Resolve(ctx, q, kind, sel)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, common.BadRequest("ATTRIBUTE_NOT_FOUND", "no "+string(kind)+" matches the given selector")
		}
		return nil, err
	}
	return attr, nil
}

func attributeID(attr *catalog.Attribute) *int64 {
	if attr == nil {
		return nil
	}
	id := attr.ID
	return &id
}
