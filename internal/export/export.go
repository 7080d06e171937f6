// Package export serializes engine results into the row-oriented and
// structured forms the surrounding product persists. Everything here is a
// pure transformation over an io.Writer; no file or network I/O happens.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/recon-engine/internal/domain"
)

var cleanViewHeader = []string{
	"id", "feed", "date", "amount", "kind", "description",
	"category", "reference_id", "check_number", "status", "kept_in_favor_of",
}

// CleanViewCSV writes every input transaction annotated with its dedup
// outcome: status "kept" or "removed", and for removed rows the id of the
// transaction it was removed in favor of.
func CleanViewCSV(w io.Writer, txns []domain.Transaction, log domain.AuditLog) error {
	removed := log.RemovedIndex()

	cw := csv.NewWriter(w)
	if err := cw.Write(cleanViewHeader); err != nil {
		return fmt.Errorf("CleanViewCSV: writing header: %w", err)
	}

	for _, t := range txns {
		status := "kept"
		keptInFavorOf := ""
		if keptID, ok := removed[t.ID]; ok {
			status = "removed"
			keptInFavorOf = keptID
		}

		date := ""
		if !t.Date.IsZero() {
			date = t.Date.Format("2006-01-02")
		}

		row := []string{
			t.ID,
			t.Feed,
			date,
			t.Amount.StringFixed(2),
			string(t.Kind),
			t.Description,
			t.Category,
			t.ReferenceID,
			t.CheckNumber,
			status,
			keptInFavorOf,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("CleanViewCSV: writing row for %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("CleanViewCSV: flushing: %w", err)
	}
	return nil
}

// auditDocument is the exported audit-log envelope.
type auditDocument struct {
	domain.AuditLog
	CorrelationID string    `json:"correlation_id"`
	ExportedAt    time.Time `json:"exported_at"`
}

// AuditLogJSON writes the full audit log wrapped with an export timestamp
// and a caller-supplied correlation id (generated when blank).
func AuditLogJSON(w io.Writer, log domain.AuditLog, correlationID string) error {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	doc := auditDocument{
		AuditLog:      log,
		CorrelationID: correlationID,
		ExportedAt:    time.Now().UTC(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("AuditLogJSON: encoding: %w", err)
	}
	return nil
}

// DiscrepancyJSON writes a discrepancy report as an indented JSON document.
func DiscrepancyJSON(w io.Writer, report domain.DiscrepancyReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("DiscrepancyJSON: encoding: %w", err)
	}
	return nil
}

// BulkOutcomeJSON writes a full bulk run outcome as an indented JSON
// document, matching the bulk API response shape.
func BulkOutcomeJSON(w io.Writer, outcome domain.BulkOutcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return fmt.Errorf("BulkOutcomeJSON: encoding: %w", err)
	}
	return nil
}
