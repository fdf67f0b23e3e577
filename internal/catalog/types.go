package catalog

import (
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
)

// Kind identifies one of the three priced attribute families. Format carries
// the base unit price; Support and Finish carry additive surcharges.
type Kind string

const (
	KindFormat  Kind = "format"
	KindSupport Kind = "support"
	KindFinish  Kind = "finish"
)

// ErrNotFound is returned when a selector was supplied but no catalog record matches.
var ErrNotFound = errors.New("attribute not found")

// Attribute is one priced catalog record. The engine only reads these; the
// catalog itself is maintained by an external process.
type Attribute struct {
	ID    int64
	Kind  Kind
	Code  string
	Label string
	// Price is the unit price ex VAT for a Format, and the extra price ex
	// VAT for a Support or Finish.
	Price decimal.Decimal
}

// Selector references an attribute either by numeric id or by its
// case-insensitive code. A zero Selector means "no attribute requested",
// which is valid for the optional kinds.
type Selector struct {
	ID   *int64
	Code string
}

// IsZero reports whether neither an id nor a code was supplied.
func (s Selector) IsZero() bool {
	return s.ID == nil && s.Code == ""
}

var codePattern = regexp.MustCompile(`^[a-z0-9_.\-]+$`)

// ValidCode reports whether a lowercased code matches the catalog code pattern.
func ValidCode(code string) bool {
	return len(code) <= 100 && codePattern.MatchString(code)
}
