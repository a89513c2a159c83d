package normalize

import (
	"fmt"

	"github.com/ashendes/store-console/internal/models"
	"github.com/shopspring/decimal"
)

// Epsilon is the largest difference between declared and derived totals that is not reported
var Epsilon = decimal.NewFromFloat(0.01)

// SchemaMismatch reports a raw record whose required fields could not be resolved.
// The record is excluded from the canonical collection.
type SchemaMismatch struct {
	Source   models.SourceTag
	Index    int
	RecordID string
	Field    string
	Reason   string
}

// Error implements the error interface
func (e *SchemaMismatch) Error() string {
	id := e.RecordID
	if id == "" {
		id = fmt.Sprintf("#%d", e.Index)
	}
	if e.Reason == "" {
		return fmt.Sprintf("schema mismatch in %s record %s: field %q unresolvable", e.Source, id, e.Field)
	}
	return fmt.Sprintf("schema mismatch in %s record %s: field %q: %s", e.Source, id, e.Field, e.Reason)
}

func mismatch(source models.SourceTag, id, field, reason string) *SchemaMismatch {
	return &SchemaMismatch{Source: source, Index: -1, RecordID: id, Field: field, Reason: reason}
}

// TotalMismatch is an advisory raised when the declared total and the line item sum disagree.
// It never blocks rendering or mutation.
type TotalMismatch struct {
	OrderID  string
	Source   models.SourceTag
	Declared decimal.Decimal
	Derived  decimal.Decimal
}

// Difference returns the absolute gap between declared and derived totals
func (w TotalMismatch) Difference() decimal.Decimal {
	return w.Declared.Sub(w.Derived).Abs()
}

func (w TotalMismatch) String() string {
	return fmt.Sprintf("order %s: declared total %s differs from line item sum %s",
		w.OrderID, w.Declared.StringFixed(2), w.Derived.StringFixed(2))
}

// ExcludedMessage tells the operator that n records of kind are missing from a view
func ExcludedMessage(n int, kind string) string {
	noun := "records"
	if n == 1 {
		noun = "record"
	}
	return fmt.Sprintf("%d %s %s could not be shown.", n, kind, noun)
}
