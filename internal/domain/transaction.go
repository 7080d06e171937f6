package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction's direction. The engine never infers it;
// callers set it during canonicalization if the source carries one.
type Kind string

const (
	KindUnknown Kind = ""
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Transaction is the canonical representation of one transaction record.
// It is a domain struct, not a storage row; exporters map it into CSV/JSON
// shapes. Amount sign conventions are the caller's responsibility — the
// engine compares amounts as given.
type Transaction struct {
	// ID is unique within its feed. Synthesized as "{feed}_{index}" when
	// the source row carries none.
	ID string `json:"id"`

	// Feed labels the feed instance this transaction belongs to for the
	// duration of one engine invocation.
	Feed string `json:"feed"`

	// Date is a calendar date normalized to midnight UTC. Reconciliation
	// compares dates, never instants.
	Date time.Time `json:"date"`

	// Amount is the signed transaction value.
	Amount decimal.Decimal `json:"amount"`

	Kind Kind `json:"kind,omitempty"`

	// Description is stored verbatim for audit display; comparison
	// happens on a normalized copy inside the scorer.
	Description string `json:"description"`

	// Category is informational only and never used in matching.
	Category string `json:"category,omitempty"`

	// ReferenceID is an external bank/transfer reference. An exact match
	// on both sides is a strong signal.
	ReferenceID string `json:"reference_id,omitempty"`

	// CheckNumber plays the same role as ReferenceID for check payments.
	CheckNumber string `json:"check_number,omitempty"`

	// CreatedAt is the ingestion timestamp, audit-only. Zero when the
	// source row carries none.
	CreatedAt time.Time `json:"created_at,omitempty"`

	// ParseErr marks that the amount or date on the source row could not
	// be parsed and a sentinel value was substituted.
	ParseErr bool `json:"parse_err,omitempty"`
}

// SameDay reports whether both transactions fall on the same calendar date.
func (t Transaction) SameDay(other Transaction) bool {
	y1, d1 := t.Date.Year(), t.Date.YearDay()
	y2, d2 := other.Date.Year(), other.Date.YearDay()
	return y1 == y2 && d1 == d2
}

// SumAmounts totals the amounts of a transaction slice.
func SumAmounts(txns []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount)
	}
	return total
}
