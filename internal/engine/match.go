package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/recon-engine/internal/domain"
)

type candidatePair struct {
	aIdx, bIdx int
	score      float64
}

// Match reconciles two feeds: every candidate cross pair clearing
// PossibleThreshold enters a greedy maximum-score assignment, and
// whatever neither side could claim becomes residue.
//
// Greedy is an approximation, not a global optimum; ties are rare and the
// sort is stable by score then insertion order, so results are
// deterministic. An exact solver (Hungarian-style) could replace
// assignGreedy behind the same contract without touching anything else.
func Match(feedA, feedB []domain.Transaction, s Settings) (domain.MatchResult, error) {
	if err := s.Validate(); err != nil {
		return domain.MatchResult{}, err
	}

	var candidates []candidatePair
	for i, a := range feedA {
		for j, b := range feedB {
			score := Score(a, b, s)
			if score >= s.PossibleThreshold {
				candidates = append(candidates, candidatePair{aIdx: i, bIdx: j, score: score})
			}
		}
	}

	pairs := assignGreedy(candidates)

	result := domain.MatchResult{}
	claimedA := make(map[int]bool, len(pairs))
	claimedB := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		claimedA[p.aIdx] = true
		claimedB[p.bIdx] = true
		matchType := domain.MatchFuzzy
		if p.score >= s.DefiniteThreshold {
			matchType = domain.MatchExact
		}
		result.Pairs = append(result.Pairs, domain.MatchPair{
			A:     feedA[p.aIdx],
			B:     feedB[p.bIdx],
			Score: p.score,
			Type:  matchType,
		})
	}
	for i, a := range feedA {
		if !claimedA[i] {
			result.OnlyInA = append(result.OnlyInA, a)
		}
	}
	for j, b := range feedB {
		if !claimedB[j] {
			result.OnlyInB = append(result.OnlyInB, b)
		}
	}
	return result, nil
}

// assignGreedy claims candidate pairs in descending score order, skipping
// any pair where either side is already taken. Accepted pairs come back
// ordered by feed-A position for stable output.
func assignGreedy(candidates []candidatePair) []candidatePair {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	takenA := make(map[int]bool)
	takenB := make(map[int]bool)
	var accepted []candidatePair
	for _, c := range candidates {
		if takenA[c.aIdx] || takenB[c.bIdx] {
			continue
		}
		takenA[c.aIdx] = true
		takenB[c.bIdx] = true
		accepted = append(accepted, c)
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].aIdx < accepted[j].aIdx })
	return accepted
}

// BuildDiscrepancyReport summarizes a match result: counts per match type
// and the total monetary delta of each side's residue.
func BuildDiscrepancyReport(res domain.MatchResult) domain.DiscrepancyReport {
	report := domain.DiscrepancyReport{
		ReportID:     uuid.NewString(),
		MatchedCount: len(res.Pairs),
		OnlyInA:      res.OnlyInA,
		OnlyInB:      res.OnlyInB,
		OnlyInATotal: domain.SumAmounts(res.OnlyInA),
		OnlyInBTotal: domain.SumAmounts(res.OnlyInB),
		GeneratedAt:  time.Now().UTC(),
	}
	for _, p := range res.Pairs {
		switch p.Type {
		case domain.MatchExact:
			report.ExactCount++
		default:
			report.FuzzyCount++
		}
	}
	return report
}

// MatchStatuses flattens a match result into a lookup keyed by the queried
// side's transaction ids, so callers can annotate a transaction list (the
// "already recorded elsewhere" flag) without re-running the match.
func MatchStatuses(res domain.MatchResult, side domain.Side) map[string]domain.MatchStatus {
	statuses := make(map[string]domain.MatchStatus)
	for _, p := range res.Pairs {
		if side == domain.SideA {
			statuses[p.A.ID] = domain.MatchStatus{
				Matched:       true,
				CounterpartID: p.B.ID,
				Score:         p.Score,
				Type:          p.Type,
			}
		} else {
			statuses[p.B.ID] = domain.MatchStatus{
				Matched:       true,
				CounterpartID: p.A.ID,
				Score:         p.Score,
				Type:          p.Type,
			}
		}
	}
	residue := res.OnlyInA
	if side == domain.SideB {
		residue = res.OnlyInB
	}
	for _, t := range residue {
		statuses[t.ID] = domain.MatchStatus{Matched: false}
	}
	return statuses
}
