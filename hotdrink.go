package hotdrink

import (
	"github.com/google/uuid"

	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
	"github.com/thejohnfreeman/hotdrink/src/system/engine"
	"github.com/thejohnfreeman/hotdrink/src/system/interfaces"
	"github.com/thejohnfreeman/hotdrink/src/system/memory"
	"github.com/thejohnfreeman/hotdrink/src/system/model"
	"github.com/thejohnfreeman/hotdrink/src/system/observer"
	"github.com/thejohnfreeman/hotdrink/src/system/signal"
)

// Settings configures a property model instance. Ident names the per-model
// gits memory instance and defaults to a fresh uuid. ManualUpdates disables
// scheduling an update on every recorded change; with it set, nothing happens
// until Update is called, which is what deterministic tests want.
type Settings struct {
	Ident                  string
	LogLevel               int
	DebugLevel             int
	Logger                 interfaces.LoggerInterface
	History                bool
	ForwardEmergingSources bool
	PlannerType            string
	ManualUpdates          bool
}

// Hotdrink is a multi-way dataflow constraint system: declare variables,
// multi-method constraints, outputs and touch dependencies, edit variables,
// and the engine plans an acyclic method selection and recomputes everything
// downstream.
type Hotdrink struct {
	Settings Settings

	log    *archivist.Archivist
	sched  *signal.Scheduler
	mem    *memory.Memory
	engine *engine.Engine
}

func New(settings Settings) *Hotdrink {
	if settings.Ident == "" {
		settings.Ident = uuid.NewString()
	}
	log := archivist.New(&archivist.Config{
		Logger:     settings.Logger,
		LogLevel:   settings.LogLevel,
		DebugLevel: settings.DebugLevel,
	})
	sched := signal.NewScheduler()
	mem := memory.New(settings.Ident, log)
	eng := engine.New(sched, log, mem, engine.Options{
		PlannerType:            settings.PlannerType,
		ForwardEmergingSources: settings.ForwardEmergingSources,
		History:                settings.History,
		ScheduleUpdateOnChange: !settings.ManualUpdates,
	})
	log.Info("Created hotdrink instance: ", settings.Ident)
	return &Hotdrink{
		Settings: settings,
		log:      log,
		sched:    sched,
		mem:      mem,
		engine:   eng,
	}
}

// - - - - - - - - - - - - - - - - - - - - - - -
// COMPONENTS

func (h *Hotdrink) AddComponents(comps ...interfaces.ComponentInterface) {
	h.engine.AddComponents(comps...)
}

func (h *Hotdrink) RemoveComponents(comps ...interfaces.ComponentInterface) {
	h.engine.RemoveComponents(comps...)
}

// MarkComponentChanged queues a registered component for re-reporting.
func (h *Hotdrink) MarkComponentChanged(comp interfaces.ComponentInterface) {
	h.engine.MarkComponentChanged(comp)
}

// - - - - - - - - - - - - - - - - - - - - - - -
// DIRECT MUTATORS

func (h *Hotdrink) AddVariable(id string, initial interface{}) {
	h.engine.AddVariable(model.NewVariable(id, initial))
}

func (h *Hotdrink) AddVariableInstance(v *model.Variable) {
	h.engine.AddVariable(v)
}

func (h *Hotdrink) RemoveVariable(id string) {
	h.engine.RemoveVariable(id)
}

func (h *Hotdrink) AddConstraint(c *model.Constraint) {
	h.engine.AddConstraint(c)
}

func (h *Hotdrink) RemoveConstraint(cid string) {
	h.engine.RemoveConstraint(cid)
}

func (h *Hotdrink) AddOutput(vid string) {
	h.engine.AddOutput(vid)
}

func (h *Hotdrink) RemoveOutput(vid string) {
	h.engine.RemoveOutput(vid)
}

func (h *Hotdrink) AddTouchDependency(from string, to string) {
	h.engine.AddTouchDependency(from, to)
}

func (h *Hotdrink) RemoveTouchDependency(from string, to string) {
	h.engine.RemoveTouchDependency(from, to)
}

func (h *Hotdrink) AddTouchSet(ids []string) {
	h.engine.AddTouchSet(ids)
}

func (h *Hotdrink) RemoveTouchSet(ids []string) {
	h.engine.RemoveTouchSet(ids)
}

// - - - - - - - - - - - - - - - - - - - - - - -
// EDITS & UPDATES

// Set records a variable edit; an eq-equal value counts as a touch unless a
// promise is pending on the variable.
func (h *Hotdrink) Set(vid string, value interface{}) {
	h.engine.SetVariable(vid, value)
}

// Touch promotes the variable's stay and its touch dependencies without
// changing the value.
func (h *Hotdrink) Touch(vid string) {
	h.engine.TouchVariable(vid)
}

// NewPromise creates a promise bound to this model's scheduler, for
// asynchronous method bodies to hand out and settle later.
func (h *Hotdrink) NewPromise() *signal.Promise {
	return signal.NewPromise(h.sched)
}

// Update forces a synchronous update, for tests and deterministic drivers.
func (h *Hotdrink) Update() {
	h.engine.Update()
}

// Tick drains the cooperative scheduler, running any scheduled update and
// delivering settled promises and signals.
func (h *Hotdrink) Tick() {
	h.engine.Tick()
}

// - - - - - - - - - - - - - - - - - - - - - - -
// INSPECTION

// Solved is the scheduled boolean signal; it replays the last state on
// subscribe.
func (h *Hotdrink) Solved() *signal.Signal {
	return h.engine.Solved()
}

func (h *Hotdrink) SolvedNow() bool {
	return h.engine.SolvedNow()
}

// Value returns a variable's current committed value.
func (h *Hotdrink) Value(vid string) interface{} {
	if v := h.engine.VariableById(vid); v != nil {
		return v.Value()
	}
	return nil
}

// Variable exposes the variable instance, including its value signal and
// fuzzy labels.
func (h *Hotdrink) Variable(vid string) *model.Variable {
	return h.engine.VariableById(vid)
}

func (h *Hotdrink) GetCGraph() *cgraph.Graph {
	return h.engine.GetCGraph()
}

func (h *Hotdrink) GetSGraph() *cgraph.Solution {
	return h.engine.GetSGraph()
}

func (h *Hotdrink) GetMemory() *memory.Memory {
	return h.mem
}

func (h *Hotdrink) GetEngine() *engine.Engine {
	return h.engine
}

// SwitchToNewPlanner hot-swaps the planner, carrying the strength order over
// and re-marking every constraint as needing enforcement.
func (h *Hotdrink) SwitchToNewPlanner(plannerType string) {
	h.engine.SwitchToNewPlanner(plannerType)
}

// GetObserverInstance returns a quiescence observer whose Loop blocks until
// the model settles, then runs the callback with the memory instance.
func (h *Hotdrink) GetObserverInstance(cb func(memoryInstance *memory.Memory)) *observer.Observer {
	return observer.New(h.engine, h.mem, cb, h.log)
}
