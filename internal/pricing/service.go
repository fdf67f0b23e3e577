package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/common"
)

// Request carries the selectors and parameters of one price computation.
type Request struct {
	Format  catalog.Selector
	Support catalog.Selector
	Finish  catalog.Selector
	Qty     int
	VATRate decimal.Decimal
}

// Service resolves attribute selectors and runs the pure engine. It performs
// no writes; the quote ledger runs the same resolution against its own
// transaction instead.
type Service struct {
	Q catalog.Querier
}

// Quote resolves the request's selectors and computes a breakdown.
func (s *Service) Quote(ctx context.Context, req Request) (Breakdown, error) {
	format, err := resolve(ctx, s.Q, catalog.KindFormat, req.Format)
	if err != nil {
		return Breakdown{}, err
	}
	support, err := resolve(ctx, s.Q, catalog.KindSupport, req.Support)
	if err != nil {
		return Breakdown{}, err
	}
	finish, err := resolve(ctx, s.Q, catalog.KindFinish, req.Finish)
	if err != nil {
		return Breakdown{}, err
	}
	return Compute(format, support, finish, req.Qty, req.VATRate)
}

func resolve(ctx context.Context, q catalog.Querier, kind catalog.Kind, sel catalog.Selector) (*catalog.Attribute, error) {
	attr, err := catalog.Resolve(ctx, q, kind, sel)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, common.BadRequest("ATTRIBUTE_NOT_FOUND", "no "+string(kind)+" matches the given selector")
		}
		return nil, err
	}
	return attr, nil
}
