package selection

import (
	"fmt"
	"reflect"
	"testing"

	"mashclust/internal/cluster"
	"mashclust/internal/reference"
)

func bigCluster(n int) cluster.Cluster {
	c := cluster.Cluster{}
	for i := 0; i < n; i++ {
		c.Members = append(c.Members, fmt.Sprintf("g%02d", i))
	}
	c.Seed = c.Members[0]
	return c
}

func TestSelectSmallClusterTakesAll(t *testing.T) {
	clusters := []cluster.Cluster{
		{Seed: "A", Members: []string{"A", "B", "C"}},
		{Seed: "D", Members: []string{"D"}},
	}
	s := NewSelector(5, DefaultSeed)

	got := Flatten(s.Select(clusters, nil))
	if !reflect.DeepEqual(got, []string{"A", "B", "C", "D"}) {
		t.Errorf("Flatten() = %v", got)
	}
	if s.Draws() != 0 {
		t.Errorf("Draws() = %d, want 0", s.Draws())
	}
}

func TestSelectClusterEqualToCapMakesNoDraws(t *testing.T) {
	s := NewSelector(5, DefaultSeed)
	sel := s.Select([]cluster.Cluster{bigCluster(5)}, nil)

	if len(sel[0].Representatives) != 5 {
		t.Errorf("got %d representatives, want 5", len(sel[0].Representatives))
	}
	if s.Draws() != 0 {
		t.Errorf("Draws() = %d, want 0", s.Draws())
	}
}

func TestSelectCapsLargeClusters(t *testing.T) {
	s := NewSelector(3, DefaultSeed)
	sel := s.Select([]cluster.Cluster{bigCluster(20)}, nil)[0]

	if len(sel.Representatives) != 3 {
		t.Fatalf("got %d representatives, want 3", len(sel.Representatives))
	}
	if sel.Sampled != 3 {
		t.Errorf("Sampled = %d, want 3", sel.Sampled)
	}
	seen := make(map[string]bool)
	for _, r := range sel.Representatives {
		if seen[r] {
			t.Errorf("%s selected twice", r)
		}
		seen[r] = true
	}
}

func TestSelectReferencesFirst(t *testing.T) {
	c := bigCluster(10)
	refs := reference.FromIDs("g07", "g03")
	s := NewSelector(4, DefaultSeed)

	sel := s.Select([]cluster.Cluster{c}, refs)[0]

	// References come first, in cluster order.
	if sel.Representatives[0] != "g03" || sel.Representatives[1] != "g07" {
		t.Errorf("Representatives = %v, want references g03, g07 first", sel.Representatives)
	}
	if sel.References != 2 || sel.Sampled != 2 {
		t.Errorf("References = %d, Sampled = %d, want 2 and 2", sel.References, sel.Sampled)
	}
	for _, r := range sel.Representatives[2:] {
		if refs.Contains(r) {
			t.Errorf("sampled slot holds reference %s", r)
		}
	}
}

func TestSelectReferencesFillCap(t *testing.T) {
	c := bigCluster(10)
	refs := reference.FromIDs("g01", "g02", "g05", "g09")
	s := NewSelector(3, DefaultSeed)

	sel := s.Select([]cluster.Cluster{c}, refs)[0]

	if !reflect.DeepEqual(sel.Representatives, []string{"g01", "g02", "g05"}) {
		t.Errorf("Representatives = %v", sel.Representatives)
	}
	if s.Draws() != 0 {
		t.Errorf("Draws() = %d, want 0 when references fill the cap", s.Draws())
	}
}

func TestSelectDeterministic(t *testing.T) {
	clusters := []cluster.Cluster{bigCluster(30), bigCluster(12)}
	refs := reference.FromIDs("g04")

	first := Flatten(NewSelector(5, DefaultSeed).Select(clusters, refs))
	for i := 0; i < 10; i++ {
		got := Flatten(NewSelector(5, DefaultSeed).Select(clusters, refs))
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d = %v, want %v", i, got, first)
		}
	}
}

func TestSelectSeedChangesSample(t *testing.T) {
	clusters := []cluster.Cluster{bigCluster(50)}
	a := Flatten(NewSelector(5, 1).Select(clusters, nil))
	b := Flatten(NewSelector(5, 2).Select(clusters, nil))
	if reflect.DeepEqual(a, b) {
		t.Errorf("different seeds produced the same sample %v", a)
	}
}

func TestSelectZeroCap(t *testing.T) {
	s := NewSelector(0, DefaultSeed)
	sel := s.Select([]cluster.Cluster{bigCluster(4)}, nil)[0]
	if len(sel.Representatives) != 0 {
		t.Errorf("Representatives = %v, want none", sel.Representatives)
	}
}
