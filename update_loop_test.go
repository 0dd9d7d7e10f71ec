package hotdrink_test

import (
	"testing"

	cfgb "github.com/thejohnfreeman/hotdrink/src/system/configBuilder"
	"github.com/thejohnfreeman/hotdrink/src/system/model"
)

// Test: N edits of the same variable between two updates coalesce into one
// activation per downstream method, computing from the last value.
func Test_Coalescing_MultipleEditsOneActivation(t *testing.T) {
	hd := setupTriChain(false)

	hd.Set("a", 1)
	hd.Set("a", 2)
	hd.Set("a", 3)
	hd.Update()

	if got := hd.Value("b"); got != 4 {
		t.Fatalf("expected b computed from the last edit, got %v", got)
	}
	if got := hd.Value("c"); got != 8 {
		t.Fatalf("expected c == 8, got %v", got)
	}
	if got := hd.GetMemory().ActivationsForMethod("C1.a2b"); got != 1 {
		t.Fatalf("expected exactly one activation of C1.a2b, got %d", got)
	}
	if got := hd.GetMemory().ActivationsForMethod("C2.b2c"); got != 1 {
		t.Fatalf("expected exactly one activation of C2.b2c, got %d", got)
	}
}

// Test: an unenforceable pair of required constraints leaves the previous
// solution graph in place with solved false; removing one recovers.
func Test_NoSolution_KeepsPreviousSolution(t *testing.T) {
	hd := setupFresh(false)
	hd.AddVariable("a", 0)
	hd.AddVariable("b", 0)
	hd.Update()
	if !hd.SolvedNow() {
		t.Fatalf("expected solved with stays only")
	}
	previous := hd.GetSGraph()

	hd.AddConstraint(cfgb.NewConstraint("R1").
		AddMethod("R1.a2b", []string{"a"}, []string{"b"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0]}
		}).Build())
	hd.AddConstraint(cfgb.NewConstraint("R2").
		AddMethod("R2.b2a", []string{"b"}, []string{"a"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0]}
		}).Build())
	hd.Update()

	if hd.SolvedNow() {
		t.Fatalf("expected unsolved while required constraints conflict")
	}
	if hd.GetSGraph() != previous {
		t.Fatalf("expected the previous solution graph kept in place")
	}

	hd.RemoveConstraint("R2")
	hd.Update()
	if !hd.SolvedNow() {
		t.Fatalf("expected solved after removing the conflicting constraint")
	}
	if _, ok := hd.GetSGraph().SelectedFor("R1"); !ok {
		t.Fatalf("expected R1 enforced after recovery")
	}
}

// Test: removing a constraint whose method is actively selected does not
// replan inline; the stale selection stays visible until the next batched
// update.
func Test_RemoveSelectedMethodDefersReplan(t *testing.T) {
	hd := setupTriChain(false)
	hd.Set("a", 1)
	hd.Update()

	if mid, _ := hd.GetSGraph().SelectedFor("C1"); mid != "C1.a2b" {
		t.Fatalf("expected C1.a2b selected, got %s", mid)
	}

	hd.RemoveConstraint("C1")
	if mid, ok := hd.GetSGraph().SelectedFor("C1"); !ok || mid != "C1.a2b" {
		t.Fatalf("expected the stale selection retained until the next update, got %s/%t", mid, ok)
	}

	hd.Update()
	if _, ok := hd.GetSGraph().SelectedFor("C1"); ok {
		t.Fatalf("expected the selection gone after the batched update")
	}
}

// Test: removing a variable still used by a constraint is a silent no-op;
// after the constraint goes it succeeds.
func Test_RemoveVariable_StructuralNoOp(t *testing.T) {
	hd := setupTriChain(false)

	hd.RemoveVariable("a")
	if !hd.GetCGraph().HasVariable("a") {
		t.Fatalf("expected a retained while C1 uses it")
	}

	hd.RemoveConstraint("C1")
	hd.Update()
	hd.RemoveVariable("a")
	if hd.GetCGraph().HasVariable("a") {
		t.Fatalf("expected a removed once unused")
	}
	if _, ok := hd.GetSGraph().SelectedFor(model.StayConstraintId("a")); ok {
		hd.Update()
		if _, ok := hd.GetSGraph().SelectedFor(model.StayConstraintId("a")); ok {
			t.Fatalf("expected stay(a) unselected after removal")
		}
	}
}

// Test: removing a component retracts everything it declared.
func Test_Components_RemovalRetractsDeclarations(t *testing.T) {
	hd := setupFresh(false)
	comp := cfgb.NewComponent("pair")
	comp.AddVariable("p", 0).AddVariable("q", 0)
	comp.AddConstraint(cfgb.NewConstraint("link").
		AddMethod("link.p2q", []string{"p"}, []string{"q"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0]}
		}))
	hd.AddComponents(comp)
	hd.Update()
	if !hd.GetCGraph().HasConstraint("link") {
		t.Fatalf("expected link declared")
	}

	hd.RemoveComponents(comp)
	hd.Update()
	if hd.GetCGraph().HasConstraint("link") {
		t.Fatalf("expected link retracted")
	}
	if hd.GetCGraph().HasVariable("p") {
		t.Fatalf("expected p retracted")
	}
}

// Test: the planner swap carries the strength order over and the model
// replans identically.
func Test_SwitchToNewPlanner_CarriesStrengths(t *testing.T) {
	hd := setupTriChain(false)
	hd.Set("c", 9)
	hd.Update()

	beforeOptionals := hd.GetEngine().GetPlanner().GetOptionals()
	if mid, _ := hd.GetSGraph().SelectedFor("C2"); mid != "C2.c2b" {
		t.Fatalf("expected C2.c2b before the swap, got %s", mid)
	}

	hd.SwitchToNewPlanner("quick")
	hd.Update()

	afterOptionals := hd.GetEngine().GetPlanner().GetOptionals()
	if len(beforeOptionals) != len(afterOptionals) {
		t.Fatalf("expected the optionals carried over")
	}
	if mid, _ := hd.GetSGraph().SelectedFor("C2"); mid != "C2.c2b" {
		t.Fatalf("expected the same selection after the swap, got %s", mid)
	}
	if !hd.SolvedNow() {
		t.Fatalf("expected solved after the swap update")
	}
}
