package planner

import (
	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
)

const TYPE_QUICK = "quick"

// Planner selects one method per enforceable constraint so that the combined
// dataflow is acyclic, preferring stronger constraints. The strength order
// over optional constraints survives a planner swap through
// GetOptionals/SetOptionals.
type Planner interface {
	Plan(prev *cgraph.Solution, changed map[string]bool) bool
	GetSGraph() *cgraph.Solution
	GetOptionals() []string
	SetOptionals(order []string)
	SetMaxStrength(cid string)
	SetMinStrength(cid string)
	RemoveOptional(cid string)
	Compare(a string, b string) int
}

// NewByType constructs a planner for the given type name. Unknown types fall
// back to the quick planner with a warning.
func NewByType(plannerType string, graph *cgraph.Graph, log *archivist.Archivist) Planner {
	if plannerType != TYPE_QUICK && plannerType != "" {
		log.Warning("unknown planner type, falling back to quick: ", plannerType)
	}
	return NewQuickPlanner(graph, log)
}

// QuickPlanner plans through propagate-degrees-of-freedom: any constraint
// owning a method whose outputs no other live constraint touches gets that
// method selected and leaves the working set, which frees more variables.
// Optional constraints join the enforced set greedily in descending strength
// order; one that stalls the pass is left unenforced.
type QuickPlanner struct {
	graph     *cgraph.Graph
	strengths *StrengthOrder
	sgraph    *cgraph.Solution
	log       *archivist.Archivist
}

func NewQuickPlanner(graph *cgraph.Graph, log *archivist.Archivist) *QuickPlanner {
	return &QuickPlanner{
		graph:     graph,
		strengths: NewStrengthOrder(),
		log:       log,
	}
}

func (p *QuickPlanner) GetSGraph() *cgraph.Solution {
	return p.sgraph
}

func (p *QuickPlanner) GetOptionals() []string {
	return p.strengths.List()
}

func (p *QuickPlanner) SetOptionals(order []string) {
	p.strengths.SetList(order)
}

func (p *QuickPlanner) SetMaxStrength(cid string) {
	p.log.Debug(archivist.DEBUG_LEVEL_PLANNING, "planning STRENGTH max ", cid)
	p.strengths.SetMax(cid)
}

func (p *QuickPlanner) SetMinStrength(cid string) {
	p.log.Debug(archivist.DEBUG_LEVEL_PLANNING, "planning STRENGTH min ", cid)
	p.strengths.SetMin(cid)
}

func (p *QuickPlanner) RemoveOptional(cid string) {
	p.strengths.Remove(cid)
}

// Compare orders two constraints by strength: positive means a is stronger.
// Required constraints outrank every optional; required against required
// falls back to declaration order, optionals use the strength index.
func (p *QuickPlanner) Compare(a string, b string) int {
	aRank := p.strengths.IndexOf(a)
	bRank := p.strengths.IndexOf(b)
	aRequired := aRank < 0
	bRequired := bRank < 0
	if aRequired && bRequired {
		// earlier declaration wins
		return p.graph.RankOf(b) - p.graph.RankOf(a)
	}
	if aRequired {
		return 1
	}
	if bRequired {
		return -1
	}
	return aRank - bRank
}

// Plan computes a fresh solution graph. An empty changed set with an existing
// solution is a no-op. Returns false when a required constraint cannot be
// enforced; the previous solution graph stays in place then.
//
// The required constraints are planned first; then each optional constraint,
// strongest first, is trialed against the enforced set and kept only when the
// combined set still admits an acyclic selection. Weaker optionals displaced
// by a stronger one simply fail their own trial later.
func (p *QuickPlanner) Plan(prev *cgraph.Solution, changed map[string]bool) bool {
	if prev != nil && len(changed) == 0 {
		p.sgraph = prev
		return true
	}

	enforced := make(map[string]bool)
	for _, cid := range p.graph.Constraints() {
		if 0 < len(p.graph.MethodsOf(cid)) && !p.strengths.Contains(cid) {
			enforced[cid] = true
		}
	}
	sol := p.pdof(enforced)
	if sol == nil {
		p.log.Warning("planning stalled on required constraints, keeping previous solution")
		return false
	}

	optionals := p.strengths.List()
	for index := len(optionals) - 1; 0 <= index; index-- {
		cid := optionals[index]
		if !p.graph.HasConstraint(cid) || len(p.graph.MethodsOf(cid)) == 0 {
			continue
		}
		enforced[cid] = true
		if trial := p.pdof(enforced); trial != nil {
			sol = trial
		} else {
			delete(enforced, cid)
			p.log.Debug(archivist.DEBUG_LEVEL_PLANNING, "planning UNENFORCED constraint=", cid)
		}
	}

	if !sol.IsAcyclic() {
		// cannot happen by construction, but a broken solution graph must
		// never replace a working one
		p.log.Error("planning produced a cyclic solution graph")
		return false
	}
	p.sgraph = sol
	return true
}

// pdof runs the propagate-degrees-of-freedom pass over the given constraint
// set: any constraint owning a method whose outputs no other live constraint
// touches gets selected, which frees more variables. Returns nil when the
// pass stalls before the set is exhausted.
func (p *QuickPlanner) pdof(cids map[string]bool) *cgraph.Solution {
	live := make(map[string]bool, len(cids))
	for cid := range cids {
		live[cid] = true
	}
	sol := cgraph.NewSolution(p.graph)
	for 0 < len(live) {
		progress := false
		for _, cid := range p.graph.Constraints() {
			if !live[cid] {
				continue
			}
			mid := p.freeMethod(cid, live)
			if mid == "" {
				continue
			}
			p.log.Debug(archivist.DEBUG_LEVEL_EVERYTHING, "planning SELECT constraint=", cid, " method=", mid)
			sol.Select(cid, mid)
			delete(live, cid)
			progress = true
		}
		if !progress {
			return nil
		}
	}
	return sol
}

// freeMethod returns the first declared method of cid whose outputs no other
// live constraint touches, or "".
func (p *QuickPlanner) freeMethod(cid string, live map[string]bool) string {
	for _, mid := range p.graph.MethodsOf(cid) {
		if p.outputsFree(cid, mid, live) {
			return mid
		}
	}
	return ""
}

func (p *QuickPlanner) outputsFree(cid string, mid string, live map[string]bool) bool {
	for _, vid := range p.graph.OutputsFor(mid) {
		for _, user := range p.graph.ConstraintsWhichUse(vid) {
			if user == cid || !live[user] {
				continue
			}
			if p.usesLive(user, vid) {
				return false
			}
		}
	}
	return true
}

// usesLive reports whether cid touches vid through an output or a primary
// (non-prior) input of any of its methods. Prior-flagged reads induce no
// dataflow edge and never block freeness.
func (p *QuickPlanner) usesLive(cid string, vid string) bool {
	for _, mid := range p.graph.MethodsOf(cid) {
		for _, out := range p.graph.OutputsFor(mid) {
			if out == vid {
				return true
			}
		}
		for index, in := range p.graph.InputsFor(mid) {
			if in == vid && !p.graph.PriorAt(mid, index) {
				return true
			}
		}
	}
	return false
}
