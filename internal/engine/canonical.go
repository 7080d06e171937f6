package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/recon-engine/internal/domain"
)

// Field aliases accepted from upstream parsers. Different banks and
// accounting exports name the same column differently; the first alias
// present on a row wins.
var (
	idAliases          = []string{"id", "transaction_id", "txn_id"}
	dateAliases        = []string{"date", "transaction_date", "posted", "posted_date"}
	amountAliases      = []string{"amount", "value"}
	descriptionAliases = []string{"description", "memo", "payee", "narrative"}
	kindAliases        = []string{"kind", "type"}
	categoryAliases    = []string{"category"}
	referenceAliases   = []string{"reference_id", "reference", "ref"}
	checkAliases       = []string{"check_number", "check_no", "cheque_number"}
	createdAtAliases   = []string{"created_at", "ingested_at"}
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"02 Jan 2006",
}

// Canonicalize normalizes loosely-typed rows into canonical transactions.
// The output has the same length and order as the input, one-to-one. A
// malformed amount or date never aborts the batch: the transaction gets a
// sentinel value (zero amount, zero date) and ParseErr set.
func Canonicalize(feedLabel string, rows []map[string]any) []domain.Transaction {
	txns := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		txns = append(txns, canonicalizeRow(feedLabel, i, row))
	}
	return txns
}

func canonicalizeRow(feedLabel string, index int, row map[string]any) domain.Transaction {
	t := domain.Transaction{Feed: feedLabel}

	t.ID = stringField(row, idAliases)
	if t.ID == "" {
		t.ID = fmt.Sprintf("%s_%d", feedLabel, index)
	}

	t.Description = stringField(row, descriptionAliases)
	t.Category = stringField(row, categoryAliases)
	t.ReferenceID = stringField(row, referenceAliases)
	t.CheckNumber = stringField(row, checkAliases)

	switch strings.ToLower(stringField(row, kindAliases)) {
	case "income", "credit", "in":
		t.Kind = domain.KindIncome
	case "expense", "debit", "out":
		t.Kind = domain.KindExpense
	}

	amount, ok := amountField(row, amountAliases)
	if !ok {
		t.ParseErr = true
	}
	t.Amount = amount

	date, ok := dateField(row, dateAliases)
	if !ok {
		t.ParseErr = true
	}
	t.Date = date

	if created, ok := timestampField(row, createdAtAliases); ok {
		t.CreatedAt = created
	}

	return t
}

// stringField returns the first alias present on the row, coerced to a
// trimmed string.
func stringField(row map[string]any, aliases []string) string {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val)
		default:
			return strings.TrimSpace(fmt.Sprintf("%v", val))
		}
	}
	return ""
}

// amountField parses the first present amount alias as a decimal. String
// amounts tolerate currency symbols and thousands separators; both
// "1,234.56" and "1.234,56" styles are handled.
func amountField(row map[string]any, aliases []string) (decimal.Decimal, bool) {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			return decimal.NewFromFloat(val), true
		case int:
			return decimal.NewFromInt(int64(val)), true
		case int64:
			return decimal.NewFromInt(val), true
		case json.Number:
			if d, err := decimal.NewFromString(val.String()); err == nil {
				return d, true
			}
			return decimal.Zero, false
		case decimal.Decimal:
			return val, true
		case string:
			return parseAmountString(val)
		default:
			return decimal.Zero, false
		}
	}
	return decimal.Zero, false
}

func parseAmountString(s string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(s)
	// Multi-character symbols strip before their prefixes ("R$" before "$").
	for _, sym := range []string{"R$", "USD", "GBP", "EUR", "$", "£", "€"} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, false
	}

	// Accounting-style negatives: (120.00) means -120.00.
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.Trim(cleaned, "()")
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		// European convention: dot as thousands separator, comma as
		// decimal ("1.234,56").
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastComma >= 0 && lastDot < 0 && len(cleaned)-lastComma-1 <= 2 && strings.Count(cleaned, ",") == 1:
		// Lone comma with at most two trailing digits reads as a
		// decimal comma ("45,25").
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	default:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	if d, err := decimal.NewFromString(cleaned); err == nil {
		return d, true
	}
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return decimal.NewFromFloat(f), true
	}
	return decimal.Zero, false
}

// dateField parses the first present date alias, trying each accepted
// layout, and normalizes to midnight UTC.
func dateField(row map[string]any, aliases []string) (time.Time, bool) {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case time.Time:
			return midnightUTC(val), true
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				return time.Time{}, false
			}
			for _, layout := range dateLayouts {
				if parsed, err := time.Parse(layout, s); err == nil {
					return midnightUTC(parsed), true
				}
			}
			return time.Time{}, false
		default:
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}

// timestampField parses an instant, keeping time-of-day. CreatedAt ordering
// matters to the resolver's earliest-kept default.
func timestampField(row map[string]any, aliases []string) (time.Time, bool) {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case time.Time:
			return val, true
		case string:
			s := strings.TrimSpace(val)
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if parsed, err := time.Parse(layout, s); err == nil {
					return parsed, true
				}
			}
			return time.Time{}, false
		default:
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}

func midnightUTC(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
