package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/printatelier/backend-devis/internal/money"
)

// ListQuerier extends Querier with catalog listings.
type ListQuerier interface {
	Querier
	ListAttributes(ctx context.Context, kind Kind) ([]Attribute, error)
}

// Service orchestrates catalog reads and caching for the listing endpoints.
type Service struct {
	queries ListQuerier
	cache   *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries ListQuerier
	Cache   *Cache
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache}, nil
}

// AttributeView is the public catalog payload. The price key depends on the
// kind: formats expose unit_price_ex_vat, supports and finishes expose
// extra_price_ex_vat.
type AttributeView struct {
	ID              int64        `json:"id"`
	Code            string       `json:"code"`
	Label           string       `json:"label"`
	UnitPriceExVAT  *json.Number `json:"unit_price_ex_vat,omitempty"`
	ExtraPriceExVAT *json.Number `json:"extra_price_ex_vat,omitempty"`
}

// NewAttributeView converts a catalog record into its public payload.
func NewAttributeView(attr Attribute) AttributeView {
	view := AttributeView{ID: attr.ID, Code: attr.Code, Label: attr.Label}
	price := money.Number(attr.Price)
	if attr.Kind == KindFormat {
		view.UnitPriceExVAT = &price
	} else {
		view.ExtraPriceExVAT = &price
	}
	return view
}

// List returns every attribute of the given kind, served from cache when warm.
func (s *Service) List(ctx context.Context, kind Kind) ([]AttributeView, error) {
	key := listCacheKey(kind)
	var cached []AttributeView
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	rows, err := s.queries.ListAttributes(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	views := make([]AttributeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, NewAttributeView(row))
	}
	_ = s.cache.SetJSON(ctx, key, views)
	return views, nil
}
