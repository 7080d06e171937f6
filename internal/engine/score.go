package engine

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/dvloznov/recon-engine/internal/domain"
)

var centsPerUnit = decimal.NewFromInt(100)

// Score computes the similarity of two transactions as a composite over
// the amount, date, description and identifier dimensions. It is symmetric
// and deterministic, always in [0,1].
//
// Two gates short-circuit to 0: a kind mismatch (when both sides carry
// one), and an amount difference beyond the configured tolerance — two
// transactions of different value are never the same event. No other
// dimension gates.
func Score(a, b domain.Transaction, s Settings) float64 {
	if a.Kind != domain.KindUnknown && b.Kind != domain.KindUnknown && a.Kind != b.Kind {
		return 0
	}
	amountDim, ok := amountScore(a.Amount, b.Amount, s.AmountToleranceCents)
	if !ok {
		return 0
	}

	totalWeight := s.Weights.Amount + s.Weights.Date + s.Weights.Description
	weighted := s.Weights.Amount*amountDim +
		s.Weights.Date*dateScore(a, b, s.DateWindowDays) +
		s.Weights.Description*descriptionScore(a.Description, b.Description)

	// The identifier dimension only participates when at least one side
	// carries a reference; weights renormalize over present dimensions so
	// reference-less feeds aren't penalized for omitting it.
	if idDim, present := identifierScore(a, b); present {
		totalWeight += s.Weights.Identifier
		weighted += s.Weights.Identifier * idDim
	}

	if totalWeight <= 0 {
		return 0
	}
	score := weighted / totalWeight
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// amountScore returns the amount dimension and whether the hard gate
// passed. Equal at 2dp scores 1; inside the tolerance the score decays
// linearly; beyond it the gate fails.
func amountScore(a, b decimal.Decimal, toleranceCents int64) (float64, bool) {
	diffCents := a.Sub(b).Abs().Mul(centsPerUnit)
	if diffCents.Round(0).IsZero() {
		return 1, true
	}
	tolerance := decimal.NewFromInt(toleranceCents)
	if diffCents.GreaterThan(tolerance) {
		return 0, false
	}
	ratio, _ := diffCents.Div(tolerance).Float64()
	return 1 - ratio, true
}

// dateScore is 1 for the same calendar date and decays linearly to 0
// across the window. Beyond the window it contributes nothing but never
// gates: bank clearing delays routinely shift dates. A zero date is a
// parse sentinel, not a real day, and scores 0 even against another zero.
func dateScore(a, b domain.Transaction, windowDays int) float64 {
	if a.Date.IsZero() || b.Date.IsZero() {
		return 0
	}
	if a.SameDay(b) {
		return 1
	}
	if windowDays <= 0 {
		return 0
	}
	days := a.Date.Sub(b.Date).Hours() / 24
	if days < 0 {
		days = -days
	}
	if days > float64(windowDays) {
		return 0
	}
	return 1 - days/float64(windowDays)
}

// containmentScore is credited when one normalized description contains
// the other, e.g. "office supply co" inside "office supply company inc".
// Truncated and abbreviated memos are the norm in bank feeds.
const containmentScore = 0.9

// descriptionScore compares normalized text with the best of containment,
// levenshtein ratio and token overlap, so reworded memos still earn
// partial credit.
func descriptionScore(a, b string) float64 {
	na, nb := normalizeText(a), normalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	best := 0.0
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		best = containmentScore
	}
	if lev := levenshteinRatio(na, nb); lev > best {
		best = lev
	}
	if overlap := tokenOverlap(na, nb); overlap > best {
		best = overlap
	}
	return best
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1 - float64(distance)/float64(longest)
}

func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = true
	}
	shared := 0
	for tok := range setB {
		if setA[tok] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

// identifierScore compares bank references and check numbers. A shared
// non-empty value scores 1; values present on both sides but different
// score 0 without gating, since one side may have omitted or mistyped the
// reference. When neither side carries any identifier the dimension is
// absent.
func identifierScore(a, b domain.Transaction) (score float64, present bool) {
	refMatch, refPresent := compareIdentifier(a.ReferenceID, b.ReferenceID)
	chkMatch, chkPresent := compareIdentifier(a.CheckNumber, b.CheckNumber)
	if !refPresent && !chkPresent {
		return 0, false
	}
	if refMatch || chkMatch {
		return 1, true
	}
	return 0, true
}

func compareIdentifier(a, b string) (match, present bool) {
	if a == "" && b == "" {
		return false, false
	}
	if a == "" || b == "" {
		// One-sided references don't count for or against.
		return false, false
	}
	return a == b, true
}
