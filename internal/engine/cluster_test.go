package engine

import (
	"reflect"
	"testing"

	"github.com/dvloznov/recon-engine/internal/domain"
)

func TestCluster_DefiniteDuplicatePair(t *testing.T) {
	txns := []domain.Transaction{
		mkTxn("t1", "2024-02-01", 50.00, "Client Payment"),
		mkTxn("t2", "2024-02-01", 50.00, "Client Payment"),
	}

	groups, err := Cluster(txns, DefaultSettings())
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Cluster returned %d groups, want 1", len(groups))
	}

	g := groups[0]
	if g.Label != domain.LabelDefinite {
		t.Errorf("group label = %q, want definite", g.Label)
	}
	if got := g.MemberIDs(); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("group members = %v, want [t1 t2]", got)
	}
	if g.RepresentativeScore < DefaultSettings().DefiniteThreshold {
		t.Errorf("representative score = %v, want >= definite threshold", g.RepresentativeScore)
	}
}

func TestCluster_SingletonsNotEmitted(t *testing.T) {
	txns := []domain.Transaction{
		mkTxn("t1", "2024-02-01", 50.00, "Client Payment"),
		mkTxn("t2", "2024-03-15", 1234.99, "completely different thing"),
	}

	groups, err := Cluster(txns, DefaultSettings())
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("Cluster returned %d groups, want 0 for unrelated transactions", len(groups))
	}
}

// chainTxns builds A~B and B~C above the possible threshold while A and C
// themselves score below it: same amount and date throughout, with B's
// memo sharing one token with each neighbor.
func chainTxns() []domain.Transaction {
	return []domain.Transaction{
		mkTxn("a", "2024-02-01", 50.00, "zzzz qqqq"),
		mkTxn("b", "2024-02-01", 50.00, "zzzz aaaa"),
		mkTxn("c", "2024-02-01", 50.00, "aaaa bbbb cccc"),
	}
}

func TestCluster_ComponentPolicyMergesTransitively(t *testing.T) {
	s := DefaultSettings()
	txns := chainTxns()

	// Sanity: the chain shape holds under these settings.
	if got := Score(txns[0], txns[1], s); got < s.PossibleThreshold {
		t.Fatalf("score(a,b) = %v, want >= possible threshold", got)
	}
	if got := Score(txns[1], txns[2], s); got < s.PossibleThreshold {
		t.Fatalf("score(b,c) = %v, want >= possible threshold", got)
	}
	if got := Score(txns[0], txns[2], s); got >= s.PossibleThreshold {
		t.Fatalf("score(a,c) = %v, want < possible threshold", got)
	}

	groups, err := Cluster(txns, s)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Cluster returned %d groups, want 1 transitive component", len(groups))
	}
	if got := groups[0].MemberIDs(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("component members = %v, want [a b c]", got)
	}
	if groups[0].Label != domain.LabelPossible {
		t.Errorf("component label = %q, want possible (a,c pair is weak)", groups[0].Label)
	}
}

func TestCluster_CliquePolicySplitsChain(t *testing.T) {
	s := DefaultSettings()
	s.ClusterPolicy = PolicyClique

	groups, err := Cluster(chainTxns(), s)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Cluster returned %d groups, want 1 clique", len(groups))
	}
	if got := groups[0].MemberIDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("clique members = %v, want [a b]", got)
	}
}

func TestCluster_Disjointness(t *testing.T) {
	txns := []domain.Transaction{
		mkTxn("a1", "2024-02-01", 50.00, "Client Payment"),
		mkTxn("a2", "2024-02-01", 50.00, "Client Payment"),
		mkTxn("b1", "2024-02-10", -75.50, "Hosting invoice"),
		mkTxn("b2", "2024-02-11", -75.50, "Hosting invoice"),
		mkTxn("c1", "2024-02-20", 10.00, "misc"),
	}

	groups, err := Cluster(txns, DefaultSettings())
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Cluster returned %d groups, want 2", len(groups))
	}

	seen := map[string]bool{}
	for _, g := range groups {
		for _, id := range g.MemberIDs() {
			if seen[id] {
				t.Errorf("transaction %s appears in more than one group", id)
			}
			seen[id] = true
		}
	}
}

func TestCluster_Deterministic(t *testing.T) {
	txns := []domain.Transaction{
		mkTxn("a", "2024-02-01", 50.00, "zzzz qqqq"),
		mkTxn("b", "2024-02-01", 50.00, "zzzz aaaa"),
		mkTxn("c", "2024-02-01", 50.00, "aaaa bbbb cccc"),
		mkTxn("d", "2024-02-10", -75.50, "Hosting invoice"),
		mkTxn("e", "2024-02-11", -75.50, "Hosting invoice"),
	}

	first, err := Cluster(txns, DefaultSettings())
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Cluster(txns, DefaultSettings())
		if err != nil {
			t.Fatalf("Cluster failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Cluster is not deterministic: run %d differs", i)
		}
	}
}

func TestCluster_InvalidSettingsRejected(t *testing.T) {
	s := DefaultSettings()
	s.PossibleThreshold = 2

	if _, err := Cluster([]domain.Transaction{mkTxn("a", "2024-01-01", 1, "x")}, s); err == nil {
		t.Error("Cluster accepted invalid settings")
	}
}
