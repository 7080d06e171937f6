package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidSettings wraps every configuration rejection so callers can
// distinguish a bad config from a matching failure.
var ErrInvalidSettings = errors.New("invalid settings")

// ClusterPolicy selects how candidate duplicate groups are formed.
type ClusterPolicy string

const (
	// PolicyComponent groups by graph connected components: if A~B and
	// B~C, all three cluster even when A and C score below threshold.
	// Favors recall over precision.
	PolicyComponent ClusterPolicy = "component"

	// PolicyClique requires every pair inside a group to clear the
	// threshold on its own.
	PolicyClique ClusterPolicy = "clique"
)

// Weights are the relative importance of each scoring dimension. They do
// not have to sum to exactly 1; the composite normalizes over the weights
// of the dimensions present for a given pair.
type Weights struct {
	Amount      float64 `json:"amount" mapstructure:"amount"`
	Date        float64 `json:"date" mapstructure:"date"`
	Description float64 `json:"description" mapstructure:"description"`
	Identifier  float64 `json:"identifier" mapstructure:"identifier"`
}

// Settings control scoring, clustering and matching. All configuration is
// passed explicitly per call — there is no ambient or global state.
type Settings struct {
	// PossibleThreshold is the minimum composite score for a candidate
	// duplicate edge or cross-feed match.
	PossibleThreshold float64 `json:"possible_threshold" mapstructure:"possible_threshold"`

	// DefiniteThreshold is the score at or above which a pairing is
	// treated as certain ("definite" group label, "exact" match type).
	DefiniteThreshold float64 `json:"definite_threshold" mapstructure:"definite_threshold"`

	// AmountToleranceCents is the absolute amount difference, in cents,
	// beyond which two transactions can never match (hard gate).
	AmountToleranceCents int64 `json:"amount_tolerance_cents" mapstructure:"amount_tolerance_cents"`

	// DateWindowDays is the span over which the date dimension decays
	// linearly from 1 to 0. Dates outside the window contribute nothing
	// but do not gate — clearing delays are common.
	DateWindowDays int `json:"date_window_days" mapstructure:"date_window_days"`

	Weights Weights `json:"weights" mapstructure:"weights"`

	ClusterPolicy ClusterPolicy `json:"cluster_policy" mapstructure:"cluster_policy"`
}

// DefaultSettings returns the balanced configuration used when the caller
// supplies none.
func DefaultSettings() Settings {
	return Settings{
		PossibleThreshold:    0.75,
		DefiniteThreshold:    0.92,
		AmountToleranceCents: 1,
		DateWindowDays:       3,
		Weights: Weights{
			Amount:      0.4,
			Date:        0.2,
			Description: 0.25,
			Identifier:  0.15,
		},
		ClusterPolicy: PolicyComponent,
	}
}

// StrictSettings returns a configuration that only accepts near-identical
// records: same-day, clique-only grouping, high thresholds.
func StrictSettings() Settings {
	s := DefaultSettings()
	s.PossibleThreshold = 0.9
	s.DefiniteThreshold = 0.97
	s.AmountToleranceCents = 0
	s.DateWindowDays = 0
	s.ClusterPolicy = PolicyClique
	return s
}

// RelaxedSettings returns a configuration for exploratory matching with a
// wide date window and lower thresholds.
func RelaxedSettings() Settings {
	s := DefaultSettings()
	s.PossibleThreshold = 0.6
	s.DefiniteThreshold = 0.85
	s.AmountToleranceCents = 5
	s.DateWindowDays = 7
	return s
}

// Validate rejects a configuration before any matching runs.
func (s Settings) Validate() error {
	if s.PossibleThreshold < 0 || s.PossibleThreshold > 1 {
		return fmt.Errorf("%w: possible threshold must be in [0,1], got %v", ErrInvalidSettings, s.PossibleThreshold)
	}
	if s.DefiniteThreshold < 0 || s.DefiniteThreshold > 1 {
		return fmt.Errorf("%w: definite threshold must be in [0,1], got %v", ErrInvalidSettings, s.DefiniteThreshold)
	}
	if s.DefiniteThreshold < s.PossibleThreshold {
		return fmt.Errorf("%w: definite threshold %v below possible threshold %v",
			ErrInvalidSettings, s.DefiniteThreshold, s.PossibleThreshold)
	}
	if s.AmountToleranceCents < 0 {
		return fmt.Errorf("%w: amount tolerance must be non-negative, got %d", ErrInvalidSettings, s.AmountToleranceCents)
	}
	if s.DateWindowDays < 0 {
		return fmt.Errorf("%w: date window must be non-negative, got %d", ErrInvalidSettings, s.DateWindowDays)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"amount", s.Weights.Amount},
		{"date", s.Weights.Date},
		{"description", s.Weights.Description},
		{"identifier", s.Weights.Identifier},
	} {
		if w.value < 0 {
			return fmt.Errorf("%w: %s weight must be non-negative, got %v", ErrInvalidSettings, w.name, w.value)
		}
	}
	if s.Weights.Amount+s.Weights.Date+s.Weights.Description+s.Weights.Identifier <= 0 {
		return fmt.Errorf("%w: weights must not all be zero", ErrInvalidSettings)
	}
	switch s.ClusterPolicy {
	case PolicyComponent, PolicyClique:
	default:
		return fmt.Errorf("%w: unknown cluster policy %q", ErrInvalidSettings, s.ClusterPolicy)
	}
	return nil
}
