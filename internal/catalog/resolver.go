package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Querier is the read-only record-store access the resolver needs. It is
// satisfied by the pool-bound store as well as by a transaction-bound one, so
// callers running inside a database transaction resolve against the same
// snapshot they write to.
type Querier interface {
	GetAttributeByCode(ctx context.Context, kind Kind, code string) (Attribute, error)
	GetAttributeByID(ctx context.Context, kind Kind, id int64) (Attribute, error)
}

// Resolve maps a selector to its full catalog record. An id takes precedence
// when both are supplied. A zero selector resolves to nil without error; a
// selector that matches nothing returns ErrNotFound.
func Resolve(ctx context.Context, q Querier, kind Kind, sel Selector) (*Attribute, error) {
	if sel.IsZero() {
		return nil, nil
	}
	var (
		attr Attribute
		err  error
	)
	if sel.ID != nil {
		attr, err = q.GetAttributeByID(ctx, kind, *sel.ID)
	} else {
		attr, err = q.GetAttributeByCode(ctx, kind, strings.ToLower(strings.TrimSpace(sel.Code)))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", kind, err)
	}
	return &attr, nil
}
