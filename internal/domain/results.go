package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupLabel is the clustering policy's classification of a duplicate group.
type GroupLabel string

const (
	LabelDefinite GroupLabel = "definite"
	LabelPossible GroupLabel = "possible"
)

// DuplicateGroup is a set of transactions within one feed believed to
// represent the same real-world event.
type DuplicateGroup struct {
	GroupID string `json:"group_id"`

	Label GroupLabel `json:"label"`

	// Transactions holds the group members in feed order, always >= 2.
	Transactions []Transaction `json:"transactions"`

	// RepresentativeScore is the minimum pairwise score across the edges
	// that caused the grouping — the weakest link.
	RepresentativeScore float64 `json:"representative_score"`
}

// MemberIDs returns the ids of all group members in group order.
func (g DuplicateGroup) MemberIDs() []string {
	ids := make([]string, 0, len(g.Transactions))
	for _, t := range g.Transactions {
		ids = append(ids, t.ID)
	}
	return ids
}

// MatchType distinguishes how confident a cross-feed pairing is.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
)

// MatchPair is one cross-feed pairing of a feed-A and a feed-B transaction.
type MatchPair struct {
	A     Transaction `json:"a"`
	B     Transaction `json:"b"`
	Score float64     `json:"score"`
	Type  MatchType   `json:"type"`
}

// MatchResult partitions two feeds into matched pairs and per-side residues.
type MatchResult struct {
	Pairs   []MatchPair   `json:"pairs"`
	OnlyInA []Transaction `json:"only_in_a"`
	OnlyInB []Transaction `json:"only_in_b"`
}

// Side names one of the two feeds in a cross-feed match.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// MatchStatus is the best-known match outcome for a single transaction,
// used to annotate a transaction list without re-running the match.
type MatchStatus struct {
	Matched       bool      `json:"matched"`
	CounterpartID string    `json:"counterpart_id,omitempty"`
	Score         float64   `json:"score,omitempty"`
	Type          MatchType `json:"type,omitempty"`
}

// DiscrepancyReport summarizes a cross-feed match: counts per match type
// and the monetary weight of what each side could not account for.
type DiscrepancyReport struct {
	ReportID     string          `json:"report_id"`
	MatchedCount int             `json:"matched_count"`
	ExactCount   int             `json:"exact_count"`
	FuzzyCount   int             `json:"fuzzy_count"`
	OnlyInA      []Transaction   `json:"only_in_a"`
	OnlyInB      []Transaction   `json:"only_in_b"`
	OnlyInATotal decimal.Decimal `json:"only_in_a_total"`
	OnlyInBTotal decimal.Decimal `json:"only_in_b_total"`
	GeneratedAt  time.Time       `json:"generated_at"`
}
