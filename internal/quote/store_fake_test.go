package quote_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/money"
	"github.com/printatelier/backend-devis/internal/quote"
)

// fakeData is the shared in-memory state behind the fake store.
type fakeData struct {
	attrs    map[catalog.Kind][]catalog.Attribute
	quotes   map[uuid.UUID]quote.Quote
	items    map[uuid.UUID][]quote.Item
	nextItem int64
}

func newFakeData() *fakeData {
	return &fakeData{
		attrs:  map[catalog.Kind][]catalog.Attribute{},
		quotes: map[uuid.UUID]quote.Quote{},
		items:  map[uuid.UUID][]quote.Item{},
	}
}

func (d *fakeData) addAttr(kind catalog.Kind, id int64, code, price string) {
	d.attrs[kind] = append(d.attrs[kind], catalog.Attribute{
		ID:    id,
		Kind:  kind,
		Code:  code,
		Label: strings.ToUpper(code),
		Price: decimal.RequireFromString(price),
	})
}

func (d *fakeData) snapshot() *fakeData {
	cp := newFakeData()
	cp.attrs = d.attrs
	cp.nextItem = d.nextItem
	for id, q := range d.quotes {
		cp.quotes[id] = q
	}
	for id, items := range d.items {
		cp.items[id] = append([]quote.Item(nil), items...)
	}
	return cp
}

func (d *fakeData) restore(from *fakeData) {
	d.quotes = from.quotes
	d.items = from.items
	d.nextItem = from.nextItem
}

// fakeConn runs queries against the data without locking. It is only handed
// out while the store's mutex is held, which mirrors the row lock taken by
// the real store.
type fakeConn struct {
	d *fakeData
}

func (c fakeConn) GetAttributeByCode(_ context.Context, kind catalog.Kind, code string) (catalog.Attribute, error) {
	for _, attr := range c.d.attrs[kind] {
		if strings.EqualFold(attr.Code, code) {
			return attr, nil
		}
	}
	return catalog.Attribute{}, catalog.ErrNotFound
}

func (c fakeConn) GetAttributeByID(_ context.Context, kind catalog.Kind, id int64) (catalog.Attribute, error) {
	for _, attr := range c.d.attrs[kind] {
		if attr.ID == id {
			return attr, nil
		}
	}
	return catalog.Attribute{}, catalog.ErrNotFound
}

func (c fakeConn) CreateQuote(_ context.Context, arg quote.CreateQuoteParams) (quote.Quote, error) {
	now := time.Now().UTC()
	q := quote.Quote{
		ID:          uuid.New(),
		ClientName:  arg.ClientName,
		ClientEmail: arg.ClientEmail,
		Notes:       arg.Notes,
		Status:      quote.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.d.quotes[q.ID] = q
	return q, nil
}

func (c fakeConn) GetQuote(_ context.Context, id uuid.UUID) (quote.Quote, error) {
	q, ok := c.d.quotes[id]
	if !ok {
		return quote.Quote{}, quote.ErrNotFound
	}
	return q, nil
}

func (c fakeConn) GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (quote.Quote, error) {
	return c.GetQuote(ctx, id)
}

func (c fakeConn) ListQuoteItems(_ context.Context, quoteID uuid.UUID) ([]quote.Item, error) {
	items := append([]quote.Item(nil), c.d.items[quoteID]...)
	// Resolve catalog labels like the real store's LEFT JOINs.
	for i := range items {
		if label := c.labelByID(catalog.KindFormat, items[i].FormatID); label != nil {
			items[i].FormatLabel = *label
		}
		if items[i].SupportID != nil {
			items[i].SupportLabel = c.labelByID(catalog.KindSupport, *items[i].SupportID)
		}
		if items[i].FinishID != nil {
			items[i].FinishLabel = c.labelByID(catalog.KindFinish, *items[i].FinishID)
		}
	}
	return items, nil
}

func (c fakeConn) labelByID(kind catalog.Kind, id int64) *string {
	for _, attr := range c.d.attrs[kind] {
		if attr.ID == id {
			label := attr.Label
			return &label
		}
	}
	return nil
}

func (c fakeConn) InsertQuoteItem(_ context.Context, arg quote.InsertItemParams) (quote.Item, error) {
	c.d.nextItem++
	item := quote.Item{
		ID:             c.d.nextItem,
		QuoteID:        arg.QuoteID,
		FormatID:       arg.FormatID,
		SupportID:      arg.SupportID,
		FinishID:       arg.FinishID,
		Qty:            arg.Qty,
		UnitPriceExVAT: arg.UnitPriceExVAT,
		LineExVAT:      arg.LineExVAT,
		VATRate:        arg.VATRate,
		Description:    arg.Description,
		Breakdown:      arg.Breakdown,
		CreatedAt:      time.Now().UTC(),
	}
	c.d.items[arg.QuoteID] = append(c.d.items[arg.QuoteID], item)
	return item, nil
}

func (c fakeConn) RecomputeQuoteTotals(_ context.Context, id uuid.UUID, vatRate decimal.Decimal) (quote.Quote, error) {
	q, ok := c.d.quotes[id]
	if !ok {
		return quote.Quote{}, quote.ErrNotFound
	}
	subtotal := decimal.Zero
	for _, item := range c.d.items[id] {
		subtotal = subtotal.Add(item.LineExVAT)
	}
	subtotal = money.Round2(subtotal)
	vat := money.Round2(subtotal.Mul(vatRate).Div(decimal.NewFromInt(100)))
	q.SubtotalExVAT = subtotal
	q.VATAmount = vat
	q.TotalIncVAT = money.Round2(subtotal.Add(vat))
	q.UpdatedAt = time.Now().UTC()
	c.d.quotes[id] = q
	return q, nil
}

func (c fakeConn) FinalizeQuote(ctx context.Context, id uuid.UUID, vatRate decimal.Decimal, status quote.Status) (quote.Quote, error) {
	q, err := c.RecomputeQuoteTotals(ctx, id, vatRate)
	if err != nil {
		return quote.Quote{}, err
	}
	q.Status = status
	c.d.quotes[id] = q
	return q, nil
}

// fakeStore is a mutex-serialized in-memory stand-in for the database store.
// InTx snapshots the data before running fn and restores it on error, which
// gives the same all-or-nothing behavior as a rolled-back transaction.
type fakeStore struct {
	mu sync.Mutex
	d  *fakeData
}

func newFakeStore() *fakeStore {
	return &fakeStore{d: newFakeData()}
}

func (s *fakeStore) conn() fakeConn { return fakeConn{d: s.d} }

func (s *fakeStore) InTx(_ context.Context, fn func(quote.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.d.snapshot()
	if err := fn(s.conn()); err != nil {
		s.d.restore(before)
		return err
	}
	return nil
}

func (s *fakeStore) GetAttributeByCode(ctx context.Context, kind catalog.Kind, code string) (catalog.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().GetAttributeByCode(ctx, kind, code)
}

func (s *fakeStore) GetAttributeByID(ctx context.Context, kind catalog.Kind, id int64) (catalog.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().GetAttributeByID(ctx, kind, id)
}

func (s *fakeStore) CreateQuote(ctx context.Context, arg quote.CreateQuoteParams) (quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().CreateQuote(ctx, arg)
}

func (s *fakeStore) GetQuote(ctx context.Context, id uuid.UUID) (quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().GetQuote(ctx, id)
}

func (s *fakeStore) GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().GetQuoteForUpdate(ctx, id)
}

func (s *fakeStore) ListQuoteItems(ctx context.Context, quoteID uuid.UUID) ([]quote.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().ListQuoteItems(ctx, quoteID)
}

func (s *fakeStore) InsertQuoteItem(ctx context.Context, arg quote.InsertItemParams) (quote.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().InsertQuoteItem(ctx, arg)
}

func (s *fakeStore) RecomputeQuoteTotals(ctx context.Context, id uuid.UUID, vatRate decimal.Decimal) (quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().RecomputeQuoteTotals(ctx, id, vatRate)
}

func (s *fakeStore) FinalizeQuote(ctx context.Context, id uuid.UUID, vatRate decimal.Decimal, status quote.Status) (quote.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().FinalizeQuote(ctx, id, vatRate, status)
}
