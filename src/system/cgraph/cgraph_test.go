package cgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildChain() *Graph {
	g := New()
	for _, vid := range []string{"a", "b", "c"} {
		g.AddVariable(vid)
	}
	g.AddMethod("m.a2b", "C1", []string{"a"}, nil, []string{"b"})
	g.AddMethod("m.b2a", "C1", []string{"b"}, nil, []string{"a"})
	g.AddMethod("m.b2c", "C2", []string{"b"}, nil, []string{"c"})
	g.AddMethod("m.c2b", "C2", []string{"c"}, nil, []string{"b"})
	return g
}

// Test: mutations are idempotent, unknown removals are no-ops, and removing
// the last method drops the owning constraint.
func Test_Graph_MutationSemantics(t *testing.T) {
	g := buildChain()
	g.AddVariable("a")
	g.AddMethod("m.a2b", "C9", []string{"c"}, nil, []string{"a"})
	if got := g.ConstraintForMethod("m.a2b"); got != "C1" {
		t.Fatalf("expected re-add ignored, got owner %s", got)
	}
	g.RemoveMethod("unknown")

	g.RemoveMethod("m.b2c")
	if !g.HasConstraint("C2") {
		t.Fatalf("expected C2 alive with one method left")
	}
	g.RemoveMethod("m.c2b")
	if g.HasConstraint("C2") {
		t.Fatalf("expected C2 dropped with its last method")
	}
}

// Test: queries over unknown ids return empty sets.
func Test_Graph_UnknownQueriesEmpty(t *testing.T) {
	g := buildChain()
	if got := g.MethodsOf("nope"); len(got) != 0 {
		t.Fatalf("expected empty methods, got %+v", got)
	}
	if got := g.ConstraintsWhichUse("nope"); len(got) != 0 {
		t.Fatalf("expected empty users, got %+v", got)
	}
	if got := g.InputsFor("nope"); len(got) != 0 {
		t.Fatalf("expected empty inputs, got %+v", got)
	}
	if got := g.ConstraintForMethod("nope"); got != "" {
		t.Fatalf("expected empty owner, got %s", got)
	}
}

// Test: a variable used by any constraint cannot be removed.
func Test_Graph_RemoveUsedVariableNoOp(t *testing.T) {
	g := buildChain()
	g.RemoveVariable("b")
	if !g.HasVariable("b") {
		t.Fatalf("expected b retained while used")
	}
	g.RemoveMethod("m.a2b")
	g.RemoveMethod("m.b2a")
	g.RemoveMethod("m.b2c")
	g.RemoveMethod("m.c2b")
	g.RemoveVariable("b")
	if g.HasVariable("b") {
		t.Fatalf("expected b removed once unused")
	}
}

// Test: reverse queries are memoized until the next mutation.
func Test_Graph_CacheInvalidation(t *testing.T) {
	g := buildChain()
	want := []string{"C1", "C2"}
	if diff := cmp.Diff(want, g.ConstraintsWhichUse("b")); diff != "" {
		t.Fatalf("unexpected users (-want +got):\n%s", diff)
	}
	hits, misses := g.CacheStats()
	if hits != 0 || misses != 1 {
		t.Fatalf("expected 0/1 cache stats, got %d/%d", hits, misses)
	}
	g.ConstraintsWhichUse("b")
	hits, _ = g.CacheStats()
	if hits != 1 {
		t.Fatalf("expected a cache hit, got %d", hits)
	}

	g.AddVariable("d")
	g.ConstraintsWhichUse("b")
	_, misses = g.CacheStats()
	if misses != 2 {
		t.Fatalf("expected a miss after invalidation, got %d", misses)
	}
}

// Test: the solution graph tracks writers and walks downstream through
// selected methods only.
func Test_Solution_DownstreamWalks(t *testing.T) {
	g := buildChain()
	sol := NewSolution(g)
	sol.Select("C1", "m.a2b")
	sol.Select("C2", "m.b2c")

	if writer, _ := sol.WriterOf("b"); writer != "m.a2b" {
		t.Fatalf("expected m.a2b writing b, got %s", writer)
	}

	vars := sol.DownstreamVariables([]string{"m.a2b"})
	if diff := cmp.Diff([]string{"b", "c"}, vars); diff != "" {
		t.Fatalf("unexpected downstream variables (-want +got):\n%s", diff)
	}
	mids := sol.DownstreamMethods([]string{"m.a2b"})
	if diff := cmp.Diff([]string{"m.a2b", "m.b2c"}, mids); diff != "" {
		t.Fatalf("unexpected downstream methods (-want +got):\n%s", diff)
	}
	if !sol.IsAcyclic() {
		t.Fatalf("expected acyclic selection")
	}
}

// Test: a conflicting selection is detected as cyclic.
func Test_Solution_CycleDetected(t *testing.T) {
	g := New()
	g.AddVariable("a")
	g.AddVariable("b")
	g.AddMethod("m.a2b", "C1", []string{"a"}, nil, []string{"b"})
	g.AddMethod("m.b2a", "C2", []string{"b"}, nil, []string{"a"})
	sol := NewSolution(g)
	sol.Select("C1", "m.a2b")
	sol.Select("C2", "m.b2a")
	if sol.IsAcyclic() {
		t.Fatalf("expected the a<->b selection to be cyclic")
	}
}

// Test: a prior-flagged input induces no dataflow edge.
func Test_Solution_PriorInputNoEdge(t *testing.T) {
	g := New()
	g.AddVariable("a")
	g.AddVariable("b")
	g.AddMethod("m.a2b", "C1", []string{"a"}, nil, []string{"b"})
	g.AddMethod("m.b2a", "C2", []string{"b"}, []bool{true}, []string{"a"})
	sol := NewSolution(g)
	sol.Select("C1", "m.a2b")
	sol.Select("C2", "m.b2a")
	if !sol.IsAcyclic() {
		t.Fatalf("expected the prior edge to break the cycle")
	}
}
