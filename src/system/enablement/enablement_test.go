package enablement

import (
	"io"
	"log"
	"testing"

	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
	"github.com/thejohnfreeman/hotdrink/src/system/model"
)

func newAnalyzer() (*Analyzer, *cgraph.Graph) {
	g := cgraph.New()
	for _, vid := range []string{"a", "b", "c"} {
		g.AddVariable(vid)
	}
	g.AddMethod("m.a2b", "C1", []string{"a"}, nil, []string{"b"})
	g.AddMethod("m.b2c", "C2", []string{"b"}, []bool{true}, []string{"c"})
	log := archivist.New(&archivist.Config{Logger: log.New(io.Discard, "", 0)})
	return New(g, log), g
}

// Test: an all-known activation chain labels everything Relevant and the
// whole path contributes Yes.
func Test_Analyzer_KnownChainRelevant(t *testing.T) {
	a, _ := newAnalyzer()
	a.SetOutputs(map[string]int{"c": 1})
	a.Reset([]string{"a"})

	a.MethodScheduled("C1", "m.a2b", []InputRecord{{Vid: "a"}}, []string{"b"})
	a.MethodScheduled("C2", "m.b2c", []InputRecord{{Vid: "b", Prior: true, Assumed: false}}, []string{"c"})

	if got := a.RelevantOf("c"); got != model.FUZZY_YES {
		t.Fatalf("expected c relevant Yes, got %s", got)
	}
	if got := a.ContributingOf("a"); got != model.FUZZY_YES {
		t.Fatalf("expected a contributing Yes, got %s", got)
	}
	if got := a.ContributingOf("b"); got != model.FUZZY_YES {
		t.Fatalf("expected b contributing Yes, got %s", got)
	}
}

// Test: crossing an assumed prior input degrades the labels to
// AssumedRelevant / Maybe.
func Test_Analyzer_AssumedDegradesToMaybe(t *testing.T) {
	a, _ := newAnalyzer()
	a.SetOutputs(map[string]int{"c": 1})
	a.Reset([]string{"a"})

	a.MethodScheduled("C2", "m.b2c", []InputRecord{{Vid: "b", Prior: true, Assumed: true}}, []string{"c"})

	if got := a.RelevantOf("c"); got != model.FUZZY_MAYBE {
		t.Fatalf("expected c Maybe, got %s", got)
	}
	if got := a.ContributingOf("b"); got != model.FUZZY_MAYBE {
		t.Fatalf("expected b contributing Maybe through the assumed edge, got %s", got)
	}
}

// Test: a variable with no activation path but a structural route to an
// output is Maybe; one with no route at all is No.
func Test_Analyzer_StructuralFallback(t *testing.T) {
	a, g := newAnalyzer()
	g.AddVariable("orphan")
	a.SetOutputs(map[string]int{"c": 1})
	a.Reset(nil)

	if got := a.RelevantOf("a"); got != model.FUZZY_MAYBE {
		t.Fatalf("expected a structurally Maybe, got %s", got)
	}
	if got := a.RelevantOf("orphan"); got != model.FUZZY_NO {
		t.Fatalf("expected orphan No, got %s", got)
	}
	if got := a.ContributingOf("a"); got != model.FUZZY_NO {
		t.Fatalf("expected a contributing No without activations, got %s", got)
	}
}
