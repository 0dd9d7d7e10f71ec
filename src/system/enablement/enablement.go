package enablement

import (
	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
	"github.com/thejohnfreeman/hotdrink/src/system/model"
)

// Enablement labels per variable, derived from the stream of method
// activations of one update.
type Label int

const (
	LABEL_IRRELEVANT Label = iota
	LABEL_ASSUMED
	LABEL_RELEVANT
)

func (l Label) String() string {
	switch l {
	case LABEL_RELEVANT:
		return "Relevant"
	case LABEL_ASSUMED:
		return "AssumedRelevant"
	}
	return "Irrelevant"
}

// InputRecord describes one input of a scheduled method. Assumed is true for
// a prior-flagged input whose writer had not been scheduled yet when the
// method ran.
type InputRecord struct {
	Vid     string
	Prior   bool
	Assumed bool
}

type activation struct {
	cid     string
	mid     string
	inputs  []InputRecord
	outputs []string
}

// Analyzer observes method scheduling events and maintains the enablement
// labels, recomputing global contribution against the current output variable
// multiset on every relabeling.
type Analyzer struct {
	graph       *cgraph.Graph
	log         *archivist.Archivist
	outputs     map[string]int
	labels      map[string]Label
	activations []activation
	contrib     map[string]model.Fuzzy
}

func New(graph *cgraph.Graph, log *archivist.Archivist) *Analyzer {
	return &Analyzer{
		graph:   graph,
		log:     log,
		outputs: make(map[string]int),
		labels:  make(map[string]Label),
		contrib: make(map[string]model.Fuzzy),
	}
}

// SetOutputs replaces the output refcounts.
func (a *Analyzer) SetOutputs(outputs map[string]int) {
	a.outputs = make(map[string]int, len(outputs))
	for vid, refs := range outputs {
		if 0 < refs {
			a.outputs[vid] = refs
		}
	}
	a.recompute()
}

// Reset clears the per-update state. Source variables start out Relevant,
// everything else starts Irrelevant until an activation touches it.
func (a *Analyzer) Reset(sources []string) {
	a.labels = make(map[string]Label)
	a.activations = nil
	for _, vid := range sources {
		a.labels[vid] = LABEL_RELEVANT
	}
	a.recompute()
}

// MethodScheduled ingests one activation and relabels its outputs: Relevant
// when every prior input is backed by an already-scheduled writer and labeled
// Relevant, AssumedRelevant as soon as one assumed value is crossed.
func (a *Analyzer) MethodScheduled(cid string, mid string, inputs []InputRecord, outputs []string) {
	label := LABEL_RELEVANT
	for _, in := range inputs {
		contribution := LABEL_RELEVANT
		if in.Prior {
			if in.Assumed {
				contribution = LABEL_ASSUMED
			} else {
				contribution = a.labels[in.Vid]
			}
		}
		if contribution < label {
			label = contribution
		}
	}
	for _, vid := range outputs {
		a.labels[vid] = label
	}
	a.activations = append(a.activations, activation{cid: cid, mid: mid, inputs: inputs, outputs: outputs})
	a.log.Debug(archivist.DEBUG_LEVEL_EVALUATION, "enablement LABEL method=", mid, " label=", label.String())
	a.recompute()
}

// recompute walks backwards from the output variables over this update's
// activations and rebuilds the contribution map. Crossing an assumed input
// degrades the contribution to Maybe.
func (a *Analyzer) recompute() {
	producers := make(map[string]*activation)
	for index := range a.activations {
		act := &a.activations[index]
		for _, vid := range act.outputs {
			producers[vid] = act
		}
	}

	contrib := make(map[string]model.Fuzzy)
	type visit struct {
		vid      string
		strength model.Fuzzy
	}
	var queue []visit
	for vid := range a.outputs {
		queue = append(queue, visit{vid: vid, strength: model.FUZZY_YES})
	}
	for 0 < len(queue) {
		current := queue[0]
		queue = queue[1:]
		if contrib[current.vid] >= current.strength {
			continue
		}
		contrib[current.vid] = current.strength
		act, ok := producers[current.vid]
		if !ok {
			continue
		}
		for _, in := range act.inputs {
			strength := current.strength
			if in.Assumed && strength > model.FUZZY_MAYBE {
				strength = model.FUZZY_MAYBE
			}
			queue = append(queue, visit{vid: in.Vid, strength: strength})
		}
	}
	a.contrib = contrib
}

// ContributingOf returns the fuzzy contribution of vid with respect to the
// declared outputs.
func (a *Analyzer) ContributingOf(vid string) model.Fuzzy {
	return a.contrib[vid]
}

// RelevantOf returns the fuzzy relevance of vid. Variables without a relevant
// activation path are refined by a purely structural walk over the constraint
// graph that ignores the current selection.
func (a *Analyzer) RelevantOf(vid string) model.Fuzzy {
	switch a.labels[vid] {
	case LABEL_RELEVANT:
		if a.contrib[vid] == model.FUZZY_YES {
			return model.FUZZY_YES
		}
		if a.contrib[vid] == model.FUZZY_MAYBE {
			return model.FUZZY_MAYBE
		}
	case LABEL_ASSUMED:
		if a.contrib[vid] != model.FUZZY_NO {
			return model.FUZZY_MAYBE
		}
	}
	if a.reachesOutputStructurally(vid) {
		return model.FUZZY_MAYBE
	}
	return model.FUZZY_NO
}

// reachesOutputStructurally walks variable→method→variable edges over the
// whole constraint graph, any method of any constraint, selection ignored.
func (a *Analyzer) reachesOutputStructurally(vid string) bool {
	if 0 < a.outputs[vid] {
		return true
	}
	seen := map[string]bool{vid: true}
	queue := []string{vid}
	for 0 < len(queue) {
		current := queue[0]
		queue = queue[1:]
		for _, mid := range a.graph.Methods() {
			reads := false
			for _, in := range a.graph.InputsFor(mid) {
				if in == current {
					reads = true
					break
				}
			}
			if !reads {
				continue
			}
			for _, out := range a.graph.OutputsFor(mid) {
				if 0 < a.outputs[out] {
					return true
				}
				if !seen[out] {
					seen[out] = true
					queue = append(queue, out)
				}
			}
		}
	}
	return false
}

// Apply copies the fuzzy labels onto the variables.
func (a *Analyzer) Apply(variables map[string]*model.Variable) {
	for vid, variable := range variables {
		variable.Contributing = a.ContributingOf(vid)
		variable.Relevant = a.RelevantOf(vid)
	}
}
