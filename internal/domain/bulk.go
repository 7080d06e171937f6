package domain

import "github.com/shopspring/decimal"

// JobStatus is the terminal state of one bulk job.
type JobStatus string

const (
	JobStatusOK    JobStatus = "ok"
	JobStatusError JobStatus = "error"
)

// BulkJob is one client's reconciliation workload: two raw feeds as they
// arrive from the external parser. Feeds must not be mutated while the
// job runs (read-only snapshot semantics).
type BulkJob struct {
	ClientID string           `json:"client_id"`
	FeedA    []map[string]any `json:"feed_a"`
	FeedB    []map[string]any `json:"feed_b"`
}

// BulkResult is the outcome of one job. A failed job carries Err and no
// discrepancy report; failure of one job never affects siblings.
type BulkResult struct {
	ClientID     string             `json:"client_id"`
	Status       JobStatus          `json:"status"`
	MatchedCount int                `json:"matched_count,omitempty"`
	Discrepancy  *DiscrepancyReport `json:"discrepancy,omitempty"`
	Err          string             `json:"error,omitempty"`
}

// BulkSummary aggregates across one orchestrator run. Monetary and match
// totals cover successful jobs only.
type BulkSummary struct {
	Succeeded              int             `json:"succeeded"`
	Failed                 int             `json:"failed"`
	TotalMatched           int             `json:"total_matched"`
	TotalDiscrepancyAmount decimal.Decimal `json:"total_discrepancy_amount"`
}

// BulkOutcome is the full result of one orchestrator run: per-client
// results in job input order plus the aggregate.
type BulkOutcome struct {
	RunID   string       `json:"run_id"`
	Results []BulkResult `json:"results"`
	Summary BulkSummary  `json:"aggregate"`
}
