package engine

import (
	"github.com/google/uuid"

	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
	"github.com/thejohnfreeman/hotdrink/src/system/enablement"
	"github.com/thejohnfreeman/hotdrink/src/system/evaluator"
	"github.com/thejohnfreeman/hotdrink/src/system/interfaces"
	"github.com/thejohnfreeman/hotdrink/src/system/memory"
	"github.com/thejohnfreeman/hotdrink/src/system/model"
	"github.com/thejohnfreeman/hotdrink/src/system/planner"
	"github.com/thejohnfreeman/hotdrink/src/system/signal"
	"github.com/thejohnfreeman/hotdrink/src/system/topo"
)

// Options is the engine configuration.
type Options struct {
	PlannerType            string
	ForwardEmergingSources bool
	History                bool
	// ScheduleUpdateOnChange makes every recorded change schedule an update
	// on the cooperative queue; with it off, updates only run when Update is
	// called.
	ScheduleUpdateOnChange bool
}

// Engine is the update loop: it ingests model mutations, batches them into
// the three pending sets, and drives plan → toposort → evaluate, raising the
// solved signal at quiescence.
type Engine struct {
	sched    *signal.Scheduler
	log      *archivist.Archivist
	mem      *memory.Memory
	graph    *cgraph.Graph
	planner  planner.Planner
	analyzer *enablement.Analyzer
	eval     *evaluator.Evaluator
	opts     Options

	variables   map[string]*model.Variable
	methods     map[string]*model.Method
	constraints map[string]*model.Constraint
	stayOf      map[string]string
	stayMids    map[string]bool
	outputs     map[string]int
	touchDeps   map[string][]string
	components  []interfaces.ComponentInterface

	needUpdating   []interfaces.ComponentInterface
	needEnforcing  map[string]bool
	needEvaluating map[string]bool

	pendingCount    int
	updateScheduled bool
	topomids        []string
	solvedSignal    *signal.Signal
	solvedValue     bool
	batch           string
}

func New(sched *signal.Scheduler, log *archivist.Archivist, mem *memory.Memory, opts Options) *Engine {
	graph := cgraph.New()
	e := &Engine{
		sched:          sched,
		log:            log,
		mem:            mem,
		graph:          graph,
		opts:           opts,
		variables:      make(map[string]*model.Variable),
		methods:        make(map[string]*model.Method),
		constraints:    make(map[string]*model.Constraint),
		stayOf:         make(map[string]string),
		stayMids:       make(map[string]bool),
		outputs:        make(map[string]int),
		touchDeps:      make(map[string][]string),
		needEnforcing:  make(map[string]bool),
		needEvaluating: make(map[string]bool),
		solvedValue:    true,
	}
	e.planner = planner.NewByType(opts.PlannerType, graph, log)
	e.analyzer = enablement.New(graph, log)
	e.eval = evaluator.New(evaluator.Config{
		Graph:          graph,
		Sched:          sched,
		Analyzer:       e.analyzer,
		Memory:         mem,
		History:        opts.History,
		Log:            log,
		VariableLookup: e.VariableById,
		MethodLookup:   e.methodById,
		IsStay:         e.isStayMethod,
		Attach:         e.attachPromise,
		Commit:         e.commitVariable,
	})
	e.solvedSignal = signal.NewSignal(sched, "solved")
	e.solvedSignal.Emit(true)
	return e
}

// - - - - - - - - - - - - - - - - - - - - - - -
// REGISTRY ACCESS

func (e *Engine) VariableById(vid string) *model.Variable {
	return e.variables[vid]
}

func (e *Engine) methodById(mid string) *model.Method {
	return e.methods[mid]
}

func (e *Engine) isStayMethod(mid string) bool {
	return e.stayMids[mid]
}

func (e *Engine) GetCGraph() *cgraph.Graph {
	return e.graph
}

func (e *Engine) GetSGraph() *cgraph.Solution {
	return e.planner.GetSGraph()
}

func (e *Engine) GetPlanner() planner.Planner {
	return e.planner
}

func (e *Engine) Solved() *signal.Signal {
	return e.solvedSignal
}

// SolvedNow reports the current solved state without going through the
// signal.
func (e *Engine) SolvedNow() bool {
	return e.solvedValue
}

func (e *Engine) PendingCount() int {
	return e.pendingCount
}

// - - - - - - - - - - - - - - - - - - - - - - -
// MODEL MUTATORS

func (e *Engine) AddVariable(v *model.Variable) {
	if e.addVariable(v) {
		e.recordChange()
	}
}

func (e *Engine) addVariable(v *model.Variable) bool {
	if _, ok := e.variables[v.Id]; ok {
		return false
	}
	v.Bind(e.sched)
	e.variables[v.Id] = v
	e.graph.AddVariable(v.Id)

	// every variable carries an implicit stay constraint keeping it at its
	// current value
	stayCid := model.StayConstraintId(v.Id)
	stayMid := model.StayMethodId(v.Id)
	variable := v
	stayMethod := &model.Method{
		Id:      stayMid,
		Outputs: []string{v.Id},
		Fn: func(_ []interface{}) []interface{} {
			return []interface{}{variable.Value()}
		},
	}
	e.methods[stayMid] = stayMethod
	e.stayMids[stayMid] = true
	e.stayOf[v.Id] = stayCid
	e.constraints[stayCid] = &model.Constraint{
		Id:      stayCid,
		Methods: []*model.Method{stayMethod},
		Level:   v.Level,
	}
	e.graph.AddMethod(stayMid, stayCid, nil, nil, []string{v.Id})
	e.placeOptional(stayCid, v.Level)
	e.needEnforcing[stayCid] = true

	e.mem.Mapper.MapModelVariable(v.Id, v.Level.String())
	e.mem.Mapper.MapChange(e.batch, "addVariable", interfaces.CHANGE_VARIABLE, v.Id)
	return true
}

func (e *Engine) RemoveVariable(vid string) {
	if e.removeVariable(vid) {
		e.recordChange()
	}
}

func (e *Engine) removeVariable(vid string) bool {
	v, ok := e.variables[vid]
	if !ok {
		return false
	}
	stayCid := e.stayOf[vid]
	for _, user := range e.graph.ConstraintsWhichUse(vid) {
		if user != stayCid {
			// still used by a real constraint; the caller retains
			// responsibility for ordering
			e.log.Debug(archivist.DEBUG_LEVEL_UPDATES, "updating REMOVE variable still in use: ", vid)
			return false
		}
	}
	stayMid := model.StayMethodId(vid)
	e.graph.RemoveMethod(stayMid)
	e.graph.RemoveVariable(vid)
	e.planner.RemoveOptional(stayCid)
	delete(e.methods, stayMid)
	delete(e.stayMids, stayMid)
	delete(e.stayOf, vid)
	delete(e.constraints, stayCid)
	delete(e.variables, vid)
	if v.Pending {
		e.pendingCount--
	}
	e.needEnforcing[stayCid] = true
	e.mem.Mapper.MapChange(e.batch, "removeVariable", interfaces.CHANGE_VARIABLE, vid)
	return true
}

func (e *Engine) AddConstraint(c *model.Constraint) {
	if e.addConstraint(c) {
		e.recordChange()
	}
}

func (e *Engine) addConstraint(c *model.Constraint) bool {
	if _, ok := e.constraints[c.Id]; ok {
		return false
	}
	var kept []*model.Method
	for _, m := range c.Methods {
		if !m.Valid() {
			e.log.Warning("dropping invalid method (duplicate output or self-write without prior): ", m.Id)
			continue
		}
		if missing := e.missingVariable(m); missing != "" {
			e.log.Warning("dropping method over undeclared variable: ", m.Id, missing)
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		e.log.Warning("dropping constraint without valid methods: ", c.Id)
		return false
	}
	c.Methods = kept
	e.constraints[c.Id] = c
	for _, m := range kept {
		e.methods[m.Id] = m
		e.graph.AddMethod(m.Id, c.Id, m.Inputs, m.Priors, m.Outputs)
	}
	if c.Optional() {
		e.placeOptional(c.Id, c.Level)
	}
	// declared touch variables act like touch dependencies from the
	// variables' stays onto this constraint
	for _, vid := range c.TouchVariables {
		e.addTouchDependency(vid, c.Id)
	}
	e.needEnforcing[c.Id] = true
	var mids []string
	for _, m := range kept {
		mids = append(mids, m.Id)
		e.mem.Mapper.MapModelMethod(m.Id, c.Id, m.Inputs, m.Priors, m.Outputs)
	}
	e.mem.Mapper.MapModelConstraint(c.Id, c.Level.String(), mids)
	e.mem.Mapper.MapChange(e.batch, "addConstraint", interfaces.CHANGE_CONSTRAINT, c.Id)
	return true
}

func (e *Engine) missingVariable(m *model.Method) string {
	for _, vid := range append(append([]string{}, m.Inputs...), m.Outputs...) {
		if _, ok := e.variables[vid]; !ok {
			return vid
		}
	}
	return ""
}

func (e *Engine) RemoveConstraint(cid string) {
	if e.removeConstraint(cid) {
		e.recordChange()
	}
}

func (e *Engine) removeConstraint(cid string) bool {
	c, ok := e.constraints[cid]
	if !ok {
		return false
	}
	if len(c.Methods) == 1 && e.stayMids[c.Methods[0].Id] {
		// implicit stays only go away with their variable
		return false
	}
	for _, m := range c.Methods {
		e.graph.RemoveMethod(m.Id)
		delete(e.methods, m.Id)
	}
	e.planner.RemoveOptional(cid)
	delete(e.constraints, cid)
	delete(e.touchDeps, cid)
	e.needEnforcing[cid] = true
	e.mem.Mapper.MapChange(e.batch, "removeConstraint", interfaces.CHANGE_CONSTRAINT, cid)
	return true
}

func (e *Engine) AddOutput(vid string) {
	e.addOutput(vid)
	e.recordChange()
}

func (e *Engine) addOutput(vid string) {
	e.outputs[vid]++
	e.analyzer.SetOutputs(e.outputs)
	e.mem.Mapper.MapChange(e.batch, "addOutput", interfaces.CHANGE_OUTPUT, vid)
}

func (e *Engine) RemoveOutput(vid string) {
	e.removeOutput(vid)
	e.recordChange()
}

func (e *Engine) removeOutput(vid string) {
	if e.outputs[vid] == 0 {
		return
	}
	e.outputs[vid]--
	if e.outputs[vid] == 0 {
		delete(e.outputs, vid)
	}
	e.analyzer.SetOutputs(e.outputs)
	e.mem.Mapper.MapChange(e.batch, "removeOutput", interfaces.CHANGE_OUTPUT, vid)
}

// resolveConstraintId maps a variable id onto its stay constraint; constraint
// ids pass through.
func (e *Engine) resolveConstraintId(id string) string {
	if stayCid, ok := e.stayOf[id]; ok {
		return stayCid
	}
	return id
}

func (e *Engine) AddTouchDependency(from string, to string) {
	e.addTouchDependency(from, to)
	e.recordChange()
}

func (e *Engine) addTouchDependency(from string, to string) {
	fromCid := e.resolveConstraintId(from)
	toCid := e.resolveConstraintId(to)
	for _, existing := range e.touchDeps[fromCid] {
		if existing == toCid {
			return
		}
	}
	e.touchDeps[fromCid] = append(e.touchDeps[fromCid], toCid)
	e.mem.Mapper.MapChange(e.batch, "addTouchDependency", interfaces.CHANGE_TOUCH_DEP, fromCid+"->"+toCid)
}

func (e *Engine) RemoveTouchDependency(from string, to string) {
	e.removeTouchDependency(from, to)
	e.recordChange()
}

func (e *Engine) removeTouchDependency(from string, to string) {
	fromCid := e.resolveConstraintId(from)
	toCid := e.resolveConstraintId(to)
	deps := e.touchDeps[fromCid]
	for index, existing := range deps {
		if existing == toCid {
			e.touchDeps[fromCid] = append(deps[:index], deps[index+1:]...)
			e.mem.Mapper.MapChange(e.batch, "removeTouchDependency", interfaces.CHANGE_TOUCH_DEP, fromCid+"->"+toCid)
			return
		}
	}
}

// AddTouchSet links every ordered pair of the given ids so touching any one
// promotes all the others.
func (e *Engine) AddTouchSet(ids []string) {
	for _, from := range ids {
		for _, to := range ids {
			if from != to {
				e.addTouchDependency(from, to)
			}
		}
	}
	e.recordChange()
}

func (e *Engine) RemoveTouchSet(ids []string) {
	for _, from := range ids {
		for _, to := range ids {
			if from != to {
				e.removeTouchDependency(from, to)
			}
		}
	}
	e.recordChange()
}

func (e *Engine) placeOptional(cid string, level model.Level) {
	switch level {
	case model.LEVEL_MIN:
		e.planner.SetMinStrength(cid)
	case model.LEVEL_MAX:
		e.planner.SetMaxStrength(cid)
	}
}

// - - - - - - - - - - - - - - - - - - - - - - -
// COMPONENTS

func (e *Engine) AddComponents(comps ...interfaces.ComponentInterface) {
	for _, comp := range comps {
		e.components = append(e.components, comp)
		e.needUpdating = append(e.needUpdating, comp)
	}
	e.recordChange()
}

func (e *Engine) RemoveComponents(comps ...interfaces.ComponentInterface) {
	for _, comp := range comps {
		for index, existing := range e.components {
			if existing == comp {
				e.components = append(e.components[:index], e.components[index+1:]...)
				break
			}
		}
		e.applyChanges(comp.ReportRemoval())
	}
	e.recordChange()
}

// MarkComponentChanged queues a registered component for re-reporting on the
// next update.
func (e *Engine) MarkComponentChanged(comp interfaces.ComponentInterface) {
	e.needUpdating = append(e.needUpdating, comp)
	e.recordChange()
}

func (e *Engine) applyChanges(changes interfaces.ComponentChanges) {
	// removes strictly before adds
	for _, change := range changes.Removes {
		switch change.Kind {
		case interfaces.CHANGE_CONSTRAINT:
			if change.Constraint != nil {
				e.removeConstraint(change.Constraint.Id)
			}
		case interfaces.CHANGE_OUTPUT:
			e.removeOutput(change.Output)
		case interfaces.CHANGE_TOUCH_DEP:
			e.removeTouchDependency(change.TouchFrom, change.TouchTo)
		case interfaces.CHANGE_VARIABLE:
			if change.Variable != nil {
				e.removeVariable(change.Variable.Id)
			}
		}
	}
	for _, change := range changes.Adds {
		switch change.Kind {
		case interfaces.CHANGE_VARIABLE:
			if change.Variable != nil {
				e.addVariable(change.Variable)
			}
		case interfaces.CHANGE_CONSTRAINT:
			if change.Constraint != nil {
				e.addConstraint(change.Constraint)
			}
		case interfaces.CHANGE_OUTPUT:
			e.addOutput(change.Output)
		case interfaces.CHANGE_TOUCH_DEP:
			e.addTouchDependency(change.TouchFrom, change.TouchTo)
		}
	}
}

// - - - - - - - - - - - - - - - - - - - - - - -
// EDITS

// SetVariable records an edit. An eq-equal value on a variable with no pending
// promise only touches the variable (promotion without evaluation); any other
// edit also marks the stay for evaluation.
func (e *Engine) SetVariable(vid string, value interface{}) {
	v, ok := e.variables[vid]
	if !ok {
		e.log.Warning("edit on unknown variable: ", vid)
		return
	}
	stayCid := e.stayOf[vid]
	if v.EqualsCurrent(value) && !v.Pending {
		e.doPromotions(stayCid)
		e.recordChange()
		return
	}
	e.attachPromise(v, signal.Resolved(e.sched, value))
	e.doPromotions(stayCid)
	e.needEvaluating[stayCid] = true
	e.recordChange()
}

// TouchVariable promotes the variable's stay and its touch dependencies
// without forcing evaluation.
func (e *Engine) TouchVariable(vid string) {
	if _, ok := e.variables[vid]; !ok {
		e.log.Warning("touch on unknown variable: ", vid)
		return
	}
	e.doPromotions(e.stayOf[vid])
	e.recordChange()
}

// doPromotions walks the touch dependencies breadth-first from the origin,
// visiting only optional constraints and never re-visiting. The collected
// constraints are promoted to max strength in reverse collection order so the
// origin ends up strongest; any that are not currently selected get marked
// for enforcement.
func (e *Engine) doPromotions(origin string) {
	collected := []string{origin}
	visited := map[string]bool{origin: true}
	generation := []string{origin}
	for 0 < len(generation) {
		var next []string
		for _, cid := range generation {
			for _, to := range e.touchDeps[cid] {
				if visited[to] {
					continue
				}
				c, ok := e.constraints[to]
				if !ok || !c.Optional() {
					continue
				}
				visited[to] = true
				next = append(next, to)
			}
		}
		// within one generation stronger constraints come first
		for i := 0; i < len(next); i++ {
			for j := i + 1; j < len(next); j++ {
				if e.planner.Compare(next[j], next[i]) > 0 {
					next[i], next[j] = next[j], next[i]
				}
			}
		}
		collected = append(collected, next...)
		generation = next
	}

	sgraph := e.planner.GetSGraph()
	for index := len(collected) - 1; 0 <= index; index-- {
		cid := collected[index]
		e.planner.SetMaxStrength(cid)
		selected := false
		if sgraph != nil {
			_, selected = sgraph.SelectedFor(cid)
		}
		if !selected {
			e.needEnforcing[cid] = true
		}
	}
	e.log.Debug(archivist.DEBUG_LEVEL_UPDATES, "updating PROMOTE origin=", origin, " collected=", collected)
}

// - - - - - - - - - - - - - - - - - - - - - - -
// PENDING BOOKKEEPING

func (e *Engine) attachPromise(v *model.Variable, p *signal.Promise) {
	if v.AttachPromise(p) {
		e.pendingCount++
	}
}

func (e *Engine) commitVariable(v *model.Variable) {
	v.CommitPromise(func(settled *model.Variable, err error) {
		e.pendingCount--
		if err != nil {
			e.log.Warning("method promise rejected for variable: ", settled.Id)
		}
		if e.pendingCount == 0 {
			e.maybeSolved()
		}
	})
}

// - - - - - - - - - - - - - - - - - - - - - - -
// UPDATE CYCLE

func (e *Engine) recordChange() {
	if e.solvedValue {
		e.solvedValue = false
		e.solvedSignal.Emit(false)
	}
	if e.opts.ScheduleUpdateOnChange && !e.updateScheduled {
		e.updateScheduled = true
		e.sched.Schedule(signal.PRIORITY_UPDATE, e.performScheduledUpdate)
	}
}

func (e *Engine) performScheduledUpdate() {
	e.updateScheduled = false
	e.performUpdate()
}

// Update forces a synchronous update and drains the scheduler, for tests and
// deterministic drivers.
func (e *Engine) Update() {
	if !e.updateScheduled {
		e.performUpdate()
	}
	e.sched.Flush()
}

// Tick drains the cooperative scheduler without forcing an update.
func (e *Engine) Tick() {
	e.sched.Flush()
}

func (e *Engine) performUpdate() {
	e.batch = uuid.NewString()
	e.log.Debug(archivist.DEBUG_LEVEL_UPDATES, "updating UPDATE begin batch=", e.batch)

	// 1. drain changed components
	comps := e.needUpdating
	e.needUpdating = nil
	for _, comp := range comps {
		e.applyChanges(comp.ReportUpdates())
	}

	// 2. plan
	if 0 < len(e.needEnforcing) || e.planner.GetSGraph() == nil {
		changed := e.needEnforcing
		e.needEnforcing = make(map[string]bool)
		if !e.planner.Plan(e.planner.GetSGraph(), changed) {
			// required constraints cannot all be enforced; the previous
			// solution stays in place and the update completes without
			// evaluating. The changed set stays queued so a later mutation
			// can still resolve the conflict.
			for cid := range changed {
				e.needEnforcing[cid] = true
			}
			e.log.Warning("updating no solution, keeping previous solution graph")
			return
		}
		sgraph := e.planner.GetSGraph()
		e.topomids = topo.Toposort(sgraph, e.planner)
		e.rebuildStayPriorities(sgraph)
		e.refreshSources(sgraph)
		e.analyzer.Reset(e.currentSources(sgraph))
	}

	// 3. evaluate
	if 0 < len(e.needEvaluating) {
		var cids []string
		for _, cid := range e.graph.Constraints() {
			if e.needEvaluating[cid] {
				cids = append(cids, cid)
			}
		}
		e.needEvaluating = make(map[string]bool)
		e.eval.Evaluate(e.batch, cids, e.planner.GetSGraph(), e.topomids)
	}

	e.analyzer.Apply(e.variables)
	e.maybeSolved()
	e.log.Debug(archivist.DEBUG_LEVEL_UPDATES, "updating UPDATE end batch=", e.batch)
}

// rebuildStayPriorities reinstalls the optional strength order from the new
// solution: scanning the topological method order in reverse puts the
// downstream-most optionals weakest and the sources strongest; unenforced
// optionals keep their previous relative order below all enforced ones.
func (e *Engine) rebuildStayPriorities(sgraph *cgraph.Solution) {
	var collected []string
	seen := make(map[string]bool)
	for index := len(e.topomids) - 1; 0 <= index; index-- {
		cid := e.graph.ConstraintForMethod(e.topomids[index])
		c, ok := e.constraints[cid]
		if !ok || !c.Optional() || seen[cid] {
			continue
		}
		seen[cid] = true
		collected = append(collected, cid)
	}
	var order []string
	for _, cid := range e.planner.GetOptionals() {
		if !seen[cid] {
			order = append(order, cid)
		}
	}
	order = append(order, collected...)
	e.planner.SetOptionals(order)
}

// refreshSources updates every variable's source flag. With forward emerging
// sources enabled, a variable that just became a source gets its current
// value forwarded as a promise and its stay queued for evaluation in this
// same update.
func (e *Engine) refreshSources(sgraph *cgraph.Solution) {
	for _, vid := range e.graph.Variables() {
		v, ok := e.variables[vid]
		if !ok {
			continue
		}
		stayCid := e.stayOf[vid]
		_, selected := sgraph.SelectedFor(stayCid)
		if selected && !v.Source && e.opts.ForwardEmergingSources && !v.Pending {
			e.attachPromise(v, signal.Resolved(e.sched, v.Value()))
			e.needEvaluating[stayCid] = true
		}
		v.Source = selected
	}
}

func (e *Engine) currentSources(sgraph *cgraph.Solution) []string {
	var sources []string
	for _, vid := range e.graph.Variables() {
		if _, ok := sgraph.SelectedFor(e.stayOf[vid]); ok {
			sources = append(sources, vid)
		}
	}
	return sources
}

func (e *Engine) maybeSolved() {
	if e.solvedValue {
		return
	}
	if e.pendingCount != 0 || e.updateScheduled {
		return
	}
	if 0 < len(e.needUpdating) || 0 < len(e.needEnforcing) || 0 < len(e.needEvaluating) {
		return
	}
	e.solvedValue = true
	e.solvedSignal.Emit(true)
}

// - - - - - - - - - - - - - - - - - - - - - - -
// PLANNER SWAP

// SwitchToNewPlanner replaces the planner, carrying the optional strength
// order over and re-marking every constraint as needing enforcement.
func (e *Engine) SwitchToNewPlanner(plannerType string) {
	optionals := e.planner.GetOptionals()
	e.planner = planner.NewByType(plannerType, e.graph, e.log)
	e.planner.SetOptionals(optionals)
	e.eval = evaluator.New(evaluator.Config{
		Graph:          e.graph,
		Sched:          e.sched,
		Analyzer:       e.analyzer,
		Memory:         e.mem,
		History:        e.opts.History,
		Log:            e.log,
		VariableLookup: e.VariableById,
		MethodLookup:   e.methodById,
		IsStay:         e.isStayMethod,
		Attach:         e.attachPromise,
		Commit:         e.commitVariable,
	})
	for _, cid := range e.graph.Constraints() {
		e.needEnforcing[cid] = true
	}
	e.recordChange()
}
