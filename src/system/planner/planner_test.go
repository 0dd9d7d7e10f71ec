package planner

import (
	"io"
	"log"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
)

func discardLog() *archivist.Archivist {
	return archivist.New(&archivist.Config{Logger: log.New(io.Discard, "", 0)})
}

// buildTriChain declares stays for a, b, c plus two required two-method
// constraints chaining them.
func buildTriChain() *cgraph.Graph {
	g := cgraph.New()
	for _, vid := range []string{"a", "b", "c"} {
		g.AddVariable(vid)
		g.AddMethod("stay_method("+vid+")", "stay("+vid+")", nil, nil, []string{vid})
	}
	g.AddMethod("C1.a2b", "C1", []string{"a"}, nil, []string{"b"})
	g.AddMethod("C1.b2a", "C1", []string{"b"}, nil, []string{"a"})
	g.AddMethod("C2.b2c", "C2", []string{"b"}, nil, []string{"c"})
	g.AddMethod("C2.c2b", "C2", []string{"c"}, nil, []string{"b"})
	return g
}

func newTriChainPlanner(g *cgraph.Graph) *QuickPlanner {
	p := NewQuickPlanner(g, discardLog())
	p.SetMaxStrength("stay(a)")
	p.SetMaxStrength("stay(b)")
	p.SetMaxStrength("stay(c)")
	return p
}

// Test: with stay(a) promoted strongest the planner selects the forward
// flow a -> b -> c and a's stay.
func Test_Plan_ForwardFlow(t *testing.T) {
	g := buildTriChain()
	p := newTriChainPlanner(g)
	p.SetMaxStrength("stay(a)")

	if !p.Plan(nil, map[string]bool{"C1": true, "C2": true}) {
		t.Fatalf("expected a solution")
	}
	sol := p.GetSGraph()
	if mid, _ := sol.SelectedFor("C1"); mid != "C1.a2b" {
		t.Fatalf("expected C1.a2b, got %s", mid)
	}
	if mid, _ := sol.SelectedFor("C2"); mid != "C2.b2c" {
		t.Fatalf("expected C2.b2c, got %s", mid)
	}
	if _, ok := sol.SelectedFor("stay(a)"); !ok {
		t.Fatalf("expected stay(a) enforced")
	}
	if _, ok := sol.SelectedFor("stay(b)"); ok {
		t.Fatalf("expected stay(b) unenforced")
	}
}

// Test: promoting stay(c) afterwards reverses the selection.
func Test_Plan_PromotionReversesFlow(t *testing.T) {
	g := buildTriChain()
	p := newTriChainPlanner(g)
	p.SetMaxStrength("stay(a)")
	if !p.Plan(nil, map[string]bool{"C1": true, "C2": true}) {
		t.Fatalf("expected a solution")
	}

	p.SetMaxStrength("stay(c)")
	if !p.Plan(p.GetSGraph(), map[string]bool{"stay(c)": true}) {
		t.Fatalf("expected a solution after promotion")
	}
	sol := p.GetSGraph()
	if mid, _ := sol.SelectedFor("C1"); mid != "C1.b2a" {
		t.Fatalf("expected C1.b2a, got %s", mid)
	}
	if mid, _ := sol.SelectedFor("C2"); mid != "C2.c2b" {
		t.Fatalf("expected C2.c2b, got %s", mid)
	}
	if _, ok := sol.SelectedFor("stay(c)"); !ok {
		t.Fatalf("expected stay(c) enforced")
	}
}

// Test: an empty changed set with an existing solution is a no-op returning
// the identical graph.
func Test_Plan_EmptyChangedNoOp(t *testing.T) {
	g := buildTriChain()
	p := newTriChainPlanner(g)
	if !p.Plan(nil, map[string]bool{"C1": true}) {
		t.Fatalf("expected a solution")
	}
	before := p.GetSGraph()
	if !p.Plan(before, map[string]bool{}) {
		t.Fatalf("expected the no-op to succeed")
	}
	if p.GetSGraph() != before {
		t.Fatalf("expected the identical solution graph")
	}
}

// Test: required constraints that can only conflict fail the plan.
func Test_Plan_RequiredConflictFails(t *testing.T) {
	g := cgraph.New()
	g.AddVariable("a")
	g.AddVariable("b")
	g.AddMethod("R1.a2b", "R1", []string{"a"}, nil, []string{"b"})
	g.AddMethod("R2.b2a", "R2", []string{"b"}, nil, []string{"a"})
	p := NewQuickPlanner(g, discardLog())

	if p.Plan(nil, map[string]bool{"R1": true, "R2": true}) {
		t.Fatalf("expected no solution for the required conflict")
	}
	if p.GetSGraph() != nil {
		t.Fatalf("expected no solution graph installed")
	}
}

// Test: required constraints outrank optionals; among optionals the index
// decides; among required declaration order decides.
func Test_Compare_Ordering(t *testing.T) {
	g := buildTriChain()
	p := newTriChainPlanner(g)

	if p.Compare("C1", "stay(c)") <= 0 {
		t.Fatalf("expected required C1 stronger than stay(c)")
	}
	if p.Compare("stay(c)", "stay(a)") <= 0 {
		t.Fatalf("expected later-promoted stay(c) stronger")
	}
	if p.Compare("C1", "C2") <= 0 {
		t.Fatalf("expected earlier-declared C1 stronger than C2")
	}
}

// Test: the optionals snapshot round-trips through SetOptionals, preserving
// the order across a planner replacement.
func Test_Optionals_SnapshotRoundTrip(t *testing.T) {
	g := buildTriChain()
	p := newTriChainPlanner(g)
	p.SetMinStrength("stay(b)")
	snapshot := p.GetOptionals()

	replacement := NewQuickPlanner(g, discardLog())
	replacement.SetOptionals(snapshot)
	if diff := cmp.Diff(snapshot, replacement.GetOptionals()); diff != "" {
		t.Fatalf("snapshot not preserved (-want +got):\n%s", diff)
	}
	if replacement.Compare("stay(c)", "stay(b)") <= 0 {
		t.Fatalf("expected stay(c) stronger than demoted stay(b)")
	}
}

// Test: RemoveOptional drops the constraint from the strength order.
func Test_RemoveOptional(t *testing.T) {
	g := buildTriChain()
	p := newTriChainPlanner(g)
	p.RemoveOptional("stay(b)")
	for _, cid := range p.GetOptionals() {
		if cid == "stay(b)" {
			t.Fatalf("expected stay(b) removed from the order")
		}
	}
}
