// Package db implements the Postgres record store behind the catalog
// resolver and the quote ledger. A Store can be bound to the pool or, via
// WithTx, to a single transaction, so ledger mutations run every statement
// against one transactional handle.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/quote"
)

// DBTX is the subset of pgx behaviour shared by pools and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store executes the application's SQL against the given handle.
type Store struct {
	db DBTX
}

// New constructs a Store bound to the given handle.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

func attributeTable(kind catalog.Kind) (table, priceColumn string, err error) {
	switch kind {
	case catalog.KindFormat:
		return "formats", "unit_price_ex_vat", nil
	case catalog.KindSupport:
		return "supports", "extra_price_ex_vat", nil
	case catalog.KindFinish:
		return "finishes", "extra_price_ex_vat", nil
	}
	return "", "", fmt.Errorf("unknown attribute kind %q", kind)
}

// GetAttributeByCode looks an attribute up by its case-insensitive code.
func (s *Store) GetAttributeByCode(ctx context.Context, kind catalog.Kind, code string) (catalog.Attribute, error) {
	table, priceColumn, err := attributeTable(kind)
	if err != nil {
		return catalog.Attribute{}, err
	}
	sql := fmt.Sprintf(
		`SELECT id, code, label, %s FROM %s WHERE lower(code) = lower($1) LIMIT 1`,
		priceColumn, table,
	)
	return s.scanAttribute(ctx, kind, sql, code)
}

// GetAttributeByID looks an attribute up by its numeric identifier.
func (s *Store) GetAttributeByID(ctx context.Context, kind catalog.Kind, id int64) (catalog.Attribute, error) {
	table, priceColumn, err := attributeTable(kind)
	if err != nil {
		return catalog.Attribute{}, err
	}
	sql := fmt.Sprintf(
		`SELECT id, code, label, %s FROM %s WHERE id = $1 LIMIT 1`,
		priceColumn, table,
	)
	return s.scanAttribute(ctx, kind, sql, id)
}

func (s *Store) scanAttribute(ctx context.Context, kind catalog.Kind, sql string, arg any) (catalog.Attribute, error) {
	attr := catalog.Attribute{Kind: kind}
	err := s.db.QueryRow(ctx, sql, arg).Scan(&attr.ID, &attr.Code, &attr.Label, &attr.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Attribute{}, catalog.ErrNotFound
		}
		return catalog.Attribute{}, wrapPgError("select attribute", err)
	}
	return attr, nil
}

// ListAttributes returns every attribute of a kind ordered by label.
func (s *Store) ListAttributes(ctx context.Context, kind catalog.Kind) ([]catalog.Attribute, error) {
	table, priceColumn, err := attributeTable(kind)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(
		`SELECT id, code, label, %s FROM %s ORDER BY label ASC`,
		priceColumn, table,
	)
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, wrapPgError("list attributes", err)
	}
	defer rows.Close()

	var attrs []catalog.Attribute
	for rows.Next() {
		attr := catalog.Attribute{Kind: kind}
		if err := rows.Scan(&attr.ID, &attr.Code, &attr.Label, &attr.Price); err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, rows.Err()
}

const quoteColumns = `id, client_name, client_email, notes, status, subtotal_ex_vat, vat_amount, total_inc_vat, created_at, updated_at`

func scanQuote(row pgx.Row) (quote.Quote, error) {
	var q quote.Quote
	var status string
	err := row.Scan(
		&q.ID, &q.ClientName, &q.ClientEmail, &q.Notes, &status,
		&q.SubtotalExVAT, &q.VATAmount, &q.TotalIncVAT,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return quote.Quote{}, err
	}
	q.Status = quote.Status(status)
	return q, nil
}

// CreateQuote inserts a new draft quote with zeroed totals.
func (s *Store) CreateQuote(ctx context.Context, arg quote.CreateQuoteParams) (quote.Quote, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO quotes (client_name, client_email, notes)
		 VALUES ($1, $2, $3)
		 RETURNING `+quoteColumns,
		arg.ClientName, arg.ClientEmail, arg.Notes,
	)
	created, err := scanQuote(row)
	if err != nil {
		return quote.Quote{}, wrapPgError("insert quote", err)
	}
	return created, nil
}

// GetQuote returns the quote header.
func (s *Store) GetQuote(ctx context.Context, id uuid.UUID) (quote.Quote, error) {
	row := s.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quote.Quote{}, quote.ErrNotFound
		}
		return quote.Quote{}, wrapPgError("select quote", err)
	}
	return q, nil
}

// GetQuoteForUpdate returns the quote header and locks its row until the
// surrounding transaction ends. Locks on different quotes do not conflict.
func (s *Store) GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (quote.Quote, error) {
	row := s.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quote.Quote{}, quote.ErrNotFound
		}
		return quote.Quote{}, wrapPgError("lock quote", err)
	}
	return q, nil
}

// ListQuoteItems returns the quote's lines with catalog labels resolved.
func (s *Store) ListQuoteItems(ctx context.Context, quoteID uuid.UUID) ([]quote.Item, error) {
	rows, err := s.db.Query(ctx,
		`SELECT qi.id, qi.quote_id, qi.format_id, qi.support_id, qi.finish_id,
		        qi.qty, qi.computed_unit_price_ex_vat, qi.line_ex_vat, qi.vat_rate,
		        qi.description, qi.breakdown, qi.created_at,
		        f.label  AS format_label,
		        s.label  AS support_label,
		        fi.label AS finish_label
		 FROM quote_items qi
		 LEFT JOIN formats  f  ON f.id  = qi.format_id
		 LEFT JOIN supports s  ON s.id  = qi.support_id
		 LEFT JOIN finishes fi ON fi.id = qi.finish_id
		 WHERE qi.quote_id = $1
		 ORDER BY qi.id ASC`,
		quoteID,
	)
	if err != nil {
		return nil, wrapPgError("list quote items", err)
	}
	defer rows.Close()

	var items []quote.Item
	for rows.Next() {
		var it quote.Item
		var formatLabel *string
		err := rows.Scan(
			&it.ID, &it.QuoteID, &it.FormatID, &it.SupportID, &it.FinishID,
			&it.Qty, &it.UnitPriceExVAT, &it.LineExVAT, &it.VATRate,
			&it.Description, &it.Breakdown, &it.CreatedAt,
			&formatLabel, &it.SupportLabel, &it.FinishLabel,
		)
		if err != nil {
			return nil, err
		}
		if formatLabel != nil {
			it.FormatLabel = *formatLabel
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertQuoteItem appends one priced line to a quote.
func (s *Store) InsertQuoteItem(ctx context.Context, arg quote.InsertItemParams) (quote.Item, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO quote_items (
		   quote_id, format_id, support_id, finish_id,
		   qty, computed_unit_price_ex_vat, line_ex_vat, vat_rate,
		   description, breakdown
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, quote_id, format_id, support_id, finish_id,
		           qty, computed_unit_price_ex_vat, line_ex_vat, vat_rate,
		           description, breakdown, created_at`,
		arg.QuoteID, arg.FormatID, arg.SupportID, arg.FinishID,
		arg.Qty, arg.UnitPriceExVAT, arg.LineExVAT, arg.VATRate,
		arg.Description, arg.Breakdown,
	)
	var it quote.Item
	err := row.Scan(
		&it.ID, &it.QuoteID, &it.FormatID, &it.SupportID, &it.FinishID,
		&it.Qty, &it.UnitPriceExVAT, &it.LineExVAT, &it.VATRate,
		&it.Description, &it.Breakdown, &it.CreatedAt,
	)
	if err != nil {
		return quote.Item{}, wrapPgError("insert quote item", err)
	}
	return it, nil
}

// RecomputeQuoteTotals re-derives the subtotal from all of the quote's items
// in a single aggregate statement, then derives the VAT and total columns
// with the same two-decimal rounding the engine uses. Recomputing from the
// item table rather than incrementing the stored value keeps the quote
// self-healing against any prior drift.
func (s *Store) RecomputeQuoteTotals(ctx context.Context, id uuid.UUID, vatRate decimal.Decimal) (quote.Quote, error) {
	row := s.db.QueryRow(ctx,
		`WITH sums AS (
		   SELECT COALESCE(SUM(line_ex_vat), 0)::numeric(12,2) AS subtotal
		   FROM quote_items
		   WHERE quote_id = $1
		 )
		 UPDATE quotes q
		 SET subtotal_ex_vat = sums.subtotal,
		     vat_amount      = ROUND(sums.subtotal * $2::numeric / 100.0, 2),
		     total_inc_vat   = ROUND(sums.subtotal + ROUND(sums.subtotal * $2::numeric / 100.0, 2), 2),
		     updated_at      = now()
		 FROM sums
		 WHERE q.id = $1
		 RETURNING q.id, q.client_name, q.client_email, q.notes, q.status,
		           q.subtotal_ex_vat, q.vat_amount, q.total_inc_vat,
		           q.created_at, q.updated_at`,
		id, vatRate.String(),
	)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quote.Quote{}, quote.ErrNotFound
		}
		return quote.Quote{}, wrapPgError("recompute quote totals", err)
	}
	return q, nil
}

// FinalizeQuote re-derives the totals like RecomputeQuoteTotals and sets the
// lifecycle status in the same statement.
func (s *Store) FinalizeQuote(ctx context.Context, id uuid.UUID, vatRate decimal.Decimal, status quote.Status) (quote.Quote, error) {
	row := s.db.QueryRow(ctx,
		`WITH sums AS (
		   SELECT COALESCE(SUM(line_ex_vat), 0)::numeric(12,2) AS subtotal
		   FROM quote_items
		   WHERE quote_id = $1
		 )
		 UPDATE quotes q
		 SET subtotal_ex_vat = sums.subtotal,
		     vat_amount      = ROUND(sums.subtotal * $2::numeric / 100.0, 2),
		     total_inc_vat   = ROUND(sums.subtotal + ROUND(sums.subtotal * $2::numeric / 100.0, 2), 2),
		     status          = $3,
		     updated_at      = now()
		 FROM sums
		 WHERE q.id = $1
		 RETURNING q.id, q.client_name, q.client_email, q.notes, q.status,
		           q.subtotal_ex_vat, q.vat_amount, q.total_inc_vat,
		           q.created_at, q.updated_at`,
		id, vatRate.String(), string(status),
	)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quote.Quote{}, quote.ErrNotFound
		}
		return quote.Quote{}, wrapPgError("finalize quote", err)
	}
	return q, nil
}

// wrapPgError attaches the SQLSTATE code when the driver reported one. The
// result stays opaque to callers; only the taxonomy errors mapped above are
// recoverable.
func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %s (sqlstate %s)", op, pgErr.Message, pgErr.Code)
	}
	return fmt.Errorf("%s: %w", op, err)
}
