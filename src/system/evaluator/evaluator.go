package evaluator

import (
	"fmt"

	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
	"github.com/thejohnfreeman/hotdrink/src/system/enablement"
	"github.com/thejohnfreeman/hotdrink/src/system/memory"
	"github.com/thejohnfreeman/hotdrink/src/system/model"
	"github.com/thejohnfreeman/hotdrink/src/system/signal"
)

// Config wires the evaluator into the engine. The engine keeps ownership of
// variable/method registries and of the pending bookkeeping; the evaluator
// only drives activations.
type Config struct {
	Graph    *cgraph.Graph
	Sched    *signal.Scheduler
	Analyzer *enablement.Analyzer
	Memory   *memory.Memory
	History  bool
	Log      *archivist.Archivist

	VariableLookup func(vid string) *model.Variable
	MethodLookup   func(mid string) *model.Method
	IsStay         func(mid string) bool
	// Attach installs a promise on a variable and does the engine's pending
	// accounting.
	Attach func(v *model.Variable, p *signal.Promise)
	// Commit arranges the variable's attached promise to settle into its
	// signal, with the engine's settled accounting.
	Commit func(v *model.Variable)
}

// Evaluator runs the selected methods downstream of a set of constraints,
// skipping stay methods, in the topological order handed over from the
// scheduler. It never blocks: unresolved inputs chain the activation and the
// outputs turn into pending promises immediately.
type Evaluator struct {
	conf Config
}

func New(conf Config) *Evaluator {
	return &Evaluator{conf: conf}
}

// Evaluate drives one evaluation pass for the given constraint ids.
func (e *Evaluator) Evaluate(batch string, cids []string, sol *cgraph.Solution, topomids []string) {
	// map each constraint to its currently selected method, dropping the
	// unenforced ones
	var seeds []string
	for _, cid := range cids {
		if mid, ok := sol.SelectedFor(cid); ok {
			seeds = append(seeds, mid)
		}
	}
	if len(seeds) == 0 {
		return
	}

	// initial edit commit: pre-existing promises on downstream variables are
	// committed so edited values flow into the update
	downVars := sol.DownstreamVariables(seeds)
	for _, vid := range downVars {
		variable := e.conf.VariableLookup(vid)
		if variable != nil && variable.PendingPromise() != nil {
			e.conf.Commit(variable)
		}
	}

	// methods downstream of the seeds, stays dropped, brought into the
	// topological order
	downMids := make(map[string]bool)
	for _, mid := range sol.DownstreamMethods(seeds) {
		if !e.conf.IsStay(mid) {
			downMids[mid] = true
		}
	}
	var scheduledMids []string
	for _, mid := range topomids {
		if downMids[mid] {
			scheduledMids = append(scheduledMids, mid)
		}
	}
	e.conf.Log.Debug(archivist.DEBUG_LEVEL_EVALUATION, "evaluating EVAL batch=", batch, " scheduled=", scheduledMids)

	scheduled := make(map[string]bool)
	for seq, mid := range scheduledMids {
		e.activate(batch, seq, mid, sol, scheduled)
		scheduled[mid] = true
	}

	// second commit pass: the freshly installed output promises settle into
	// the variable signals as they resolve
	for _, vid := range sol.DownstreamVariables(seeds) {
		variable := e.conf.VariableLookup(vid)
		if variable != nil && variable.PendingPromise() != nil {
			e.conf.Commit(variable)
		}
	}
}

// activate schedules one method: snapshots prior inputs, chains primary input
// promises, installs pending output promises and hands the activation to the
// enablement analyzer.
func (e *Evaluator) activate(batch string, seq int, mid string, sol *cgraph.Solution, scheduledSoFar map[string]bool) {
	graph := e.conf.Graph
	cid := graph.ConstraintForMethod(mid)
	method := e.conf.MethodLookup(mid)
	if method == nil {
		e.conf.Log.Error("evaluating unknown method: ", mid)
		return
	}

	inputs := graph.InputsFor(mid)
	inputPromises := make([]*signal.Promise, len(inputs))
	records := make([]enablement.InputRecord, len(inputs))
	for index, vid := range inputs {
		variable := e.conf.VariableLookup(vid)
		prior := graph.PriorAt(mid, index)
		record := enablement.InputRecord{Vid: vid, Prior: prior}
		if variable == nil {
			inputPromises[index] = signal.Resolved(e.conf.Sched, nil)
		} else if prior {
			// prior reads snapshot the committed value from before this
			// update; a writer scheduled after this method leaves the value
			// assumed
			inputPromises[index] = signal.Resolved(e.conf.Sched, variable.Value())
			if writer, ok := sol.WriterOf(vid); ok && writer != mid && !scheduledSoFar[writer] && !e.conf.IsStay(writer) {
				record.Assumed = true
			}
		} else if variable.Pending && variable.PendingPromise() != nil {
			inputPromises[index] = variable.PendingPromise()
		} else {
			inputPromises[index] = signal.Resolved(e.conf.Sched, variable.Value())
		}
		records[index] = record
	}

	outputs := graph.OutputsFor(mid)
	outputPromises := make([]*signal.Promise, len(outputs))
	for index, vid := range outputs {
		promise := signal.NewPromise(e.conf.Sched)
		outputPromises[index] = promise
		if variable := e.conf.VariableLookup(vid); variable != nil {
			e.conf.Attach(variable, promise)
		}
	}

	e.conf.Analyzer.MethodScheduled(cid, mid, records, outputs)
	if e.conf.History && e.conf.Memory != nil {
		e.conf.Memory.Mapper.MapActivation(batch, seq, cid, mid, inputs, outputs)
	}

	signal.All(e.conf.Sched, inputPromises, func(values []interface{}, err error) {
		if err != nil {
			for _, promise := range outputPromises {
				promise.Reject(err)
			}
			return
		}
		results := method.Fn(values)
		if len(results) != len(outputPromises) {
			e.conf.Log.Error("evaluating method returned wrong output arity: ", mid)
			err := fmt.Errorf("method %s returned %d outputs, want %d", mid, len(results), len(outputPromises))
			for _, promise := range outputPromises {
				promise.Reject(err)
			}
			return
		}
		for index, result := range results {
			if chained, ok := result.(*signal.Promise); ok {
				signal.Pipe(chained, outputPromises[index])
			} else {
				outputPromises[index].Resolve(result)
			}
		}
	})
}
