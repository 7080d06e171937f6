package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/recon-engine/internal/domain"
)

// mkTxn builds a canonical transaction for tests. Shared across the
// package's test files.
func mkTxn(id, date string, amount float64, description string) domain.Transaction {
	t := domain.Transaction{
		ID:          id,
		Feed:        "test",
		Amount:      decimal.NewFromFloat(amount),
		Description: description,
	}
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		t.Date = parsed.UTC()
	}
	return t
}

func TestScore_IdenticalTransactions(t *testing.T) {
	a := mkTxn("t1", "2024-02-01", 50.00, "Client Payment")
	b := mkTxn("t2", "2024-02-01", 50.00, "Client Payment")

	got := Score(a, b, DefaultSettings())
	if got != 1.0 {
		t.Errorf("Score() = %v, want 1.0 for identical transactions", got)
	}
}

func TestScore_Symmetry(t *testing.T) {
	s := DefaultSettings()
	pairs := []struct {
		name string
		a, b domain.Transaction
	}{
		{
			name: "identical",
			a:    mkTxn("a", "2024-01-05", -120.00, "OFFICE SUPPLY CO"),
			b:    mkTxn("b", "2024-01-05", -120.00, "OFFICE SUPPLY CO"),
		},
		{
			name: "different dates and memos",
			a:    mkTxn("a", "2024-01-05", -120.00, "OFFICE SUPPLY CO"),
			b:    mkTxn("b", "2024-01-07", -120.00, "Office Supply Company Inc"),
		},
		{
			name: "gated amounts",
			a:    mkTxn("a", "2024-01-05", -120.00, "coffee"),
			b:    mkTxn("b", "2024-01-05", -99.00, "coffee"),
		},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			ab := Score(tt.a, tt.b, s)
			ba := Score(tt.b, tt.a, s)
			if ab != ba {
				t.Errorf("Score(a,b) = %v, Score(b,a) = %v; want symmetric", ab, ba)
			}
		})
	}
}

func TestScore_AmountHardGate(t *testing.T) {
	s := DefaultSettings()

	// Same date, identical description, matching reference — the amount
	// gate must still force zero.
	a := mkTxn("a", "2024-01-05", 100.00, "Invoice 42 payment")
	b := mkTxn("b", "2024-01-05", 100.50, "Invoice 42 payment")
	a.ReferenceID = "REF-42"
	b.ReferenceID = "REF-42"

	if got := Score(a, b, s); got != 0 {
		t.Errorf("Score() = %v, want 0 when amounts differ beyond tolerance", got)
	}
}

func TestScore_AmountWithinTolerance(t *testing.T) {
	s := DefaultSettings()
	s.AmountToleranceCents = 5

	a := mkTxn("a", "2024-01-05", 100.00, "Invoice 42 payment")
	b := mkTxn("b", "2024-01-05", 100.03, "Invoice 42 payment")

	if got := Score(a, b, s); got <= 0 {
		t.Errorf("Score() = %v, want > 0 inside the tolerance", got)
	}
}

func TestScore_KindMismatchGates(t *testing.T) {
	a := mkTxn("a", "2024-01-05", 50.00, "transfer")
	b := mkTxn("b", "2024-01-05", 50.00, "transfer")
	a.Kind = domain.KindIncome
	b.Kind = domain.KindExpense

	if got := Score(a, b, DefaultSettings()); got != 0 {
		t.Errorf("Score() = %v, want 0 for mismatched kinds", got)
	}
}

func TestScore_UnknownKindDoesNotGate(t *testing.T) {
	a := mkTxn("a", "2024-01-05", 50.00, "transfer")
	b := mkTxn("b", "2024-01-05", 50.00, "transfer")
	a.Kind = domain.KindIncome

	if got := Score(a, b, DefaultSettings()); got != 1.0 {
		t.Errorf("Score() = %v, want 1.0 when only one side carries a kind", got)
	}
}

func TestScore_DateBeyondWindowDoesNotGate(t *testing.T) {
	// 10 days apart with a 3-day window: the date dimension contributes
	// nothing, but amount + description still carry the score.
	a := mkTxn("a", "2024-01-01", 75.00, "monthly retainer acme")
	b := mkTxn("b", "2024-01-11", 75.00, "monthly retainer acme")

	got := Score(a, b, DefaultSettings())
	if got <= 0 {
		t.Errorf("Score() = %v, want > 0 when only the date is off", got)
	}
	if got >= 1 {
		t.Errorf("Score() = %v, want < 1 when dates disagree", got)
	}
}

func TestDateScore_ZeroDatesEarnNoCredit(t *testing.T) {
	// Rows whose dates failed to parse carry the zero sentinel. Two such
	// rows share a "day" only by accident of the sentinel and must not
	// collect the date dimension.
	a := mkTxn("a", "", 75.00, "monthly retainer acme")
	b := mkTxn("b", "", 75.00, "monthly retainer acme")

	if got := dateScore(a, b, 3); got != 0 {
		t.Errorf("dateScore() = %v, want 0 for two zero dates", got)
	}

	c := mkTxn("c", "2024-01-01", 75.00, "monthly retainer acme")
	if got := dateScore(a, c, 3); got != 0 {
		t.Errorf("dateScore() = %v, want 0 when one side has a zero date", got)
	}

	if got := Score(a, b, DefaultSettings()); got >= 1 {
		t.Errorf("Score() = %v, want < 1 when neither row has a usable date", got)
	}
}

func TestScore_IdentifierMatchBoosts(t *testing.T) {
	s := DefaultSettings()

	a := mkTxn("a", "2024-01-05", 200.00, "payment")
	b := mkTxn("b", "2024-01-08", 200.00, "pmt received")
	without := Score(a, b, s)

	a.ReferenceID = "CHK-1009"
	b.ReferenceID = "CHK-1009"
	with := Score(a, b, s)

	if with <= without {
		t.Errorf("Score with matching reference = %v, without = %v; want a boost", with, without)
	}
}

func TestScore_IdentifierMismatchDoesNotGate(t *testing.T) {
	s := DefaultSettings()

	a := mkTxn("a", "2024-01-05", 200.00, "vendor payment march")
	b := mkTxn("b", "2024-01-05", 200.00, "vendor payment march")
	a.CheckNumber = "1001"
	b.CheckNumber = "1002"

	got := Score(a, b, s)
	if got == 0 {
		t.Error("Score() = 0, identifier mismatch must not hard-gate")
	}
	if got == 1 {
		t.Error("Score() = 1, identifier mismatch should cost something")
	}
}

func TestScore_BoundedZeroOne(t *testing.T) {
	s := RelaxedSettings()
	txns := []domain.Transaction{
		mkTxn("a", "2024-01-05", -120.00, "OFFICE SUPPLY CO"),
		mkTxn("b", "2024-01-07", -120.00, "Office Supply Company Inc"),
		mkTxn("c", "", 0, ""),
		mkTxn("d", "2024-03-01", 9999.99, "x"),
	}
	for i := range txns {
		for j := range txns {
			got := Score(txns[i], txns[j], s)
			if got < 0 || got > 1 {
				t.Errorf("Score(%s,%s) = %v, want in [0,1]", txns[i].ID, txns[j].ID, got)
			}
		}
	}
}

func TestDescriptionScore(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		wantMin float64
		wantMax float64
	}{
		{"identical", "Client Payment", "client payment", 1, 1},
		{"contained", "OFFICE SUPPLY CO", "Office Supply Company Inc", containmentScore, 1},
		{"reworded", "acme invoice 42", "invoice 42 acme", 0.5, 1},
		{"unrelated", "zzzz qqqq", "aaaa bbbb cccc", 0, 0.15},
		{"one empty", "", "anything", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := descriptionScore(tt.a, tt.b)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("descriptionScore(%q, %q) = %v, want in [%v,%v]", tt.a, tt.b, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(s *Settings) {}, false},
		{"strict", func(s *Settings) { *s = StrictSettings() }, false},
		{"relaxed", func(s *Settings) { *s = RelaxedSettings() }, false},
		{"possible above one", func(s *Settings) { s.PossibleThreshold = 1.2 }, true},
		{"negative definite", func(s *Settings) { s.DefiniteThreshold = -0.1 }, true},
		{"definite below possible", func(s *Settings) { s.DefiniteThreshold = 0.5 }, true},
		{"negative tolerance", func(s *Settings) { s.AmountToleranceCents = -1 }, true},
		{"negative window", func(s *Settings) { s.DateWindowDays = -3 }, true},
		{"negative weight", func(s *Settings) { s.Weights.Date = -0.2 }, true},
		{"all-zero weights", func(s *Settings) { s.Weights = Weights{} }, true},
		{"unknown policy", func(s *Settings) { s.ClusterPolicy = "transitive" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
