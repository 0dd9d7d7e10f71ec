package configBuilder

import (
	"github.com/thejohnfreeman/hotdrink/src/system/interfaces"
	"github.com/thejohnfreeman/hotdrink/src/system/model"
)

// Component is a fluent builder for a set of model declarations and, once
// registered with the engine, the component the update loop polls for
// deltas. Every Add/Remove call records a pending change; ReportUpdates
// hands them over and clears them.
type Component struct {
	name string

	variables   map[string]*model.Variable
	constraints map[string]*model.Constraint
	outputs     []string
	touchDeps   [][2]string

	pendingAdds    []interfaces.ComponentChange
	pendingRemoves []interfaces.ComponentChange
}

func NewComponent(name string) *Component {
	return &Component{
		name:        name,
		variables:   make(map[string]*model.Variable),
		constraints: make(map[string]*model.Constraint),
	}
}

func (c *Component) Name() string {
	return c.name
}

// AddVariable declares a variable with its initial value.
func (c *Component) AddVariable(id string, initial interface{}) *Component {
	return c.AddVariableInstance(model.NewVariable(id, initial))
}

// AddVariableWithLevel declares a variable whose stay gets the given optional
// placement.
func (c *Component) AddVariableWithLevel(id string, initial interface{}, level model.Level) *Component {
	v := model.NewVariable(id, initial)
	v.Level = level
	return c.AddVariableInstance(v)
}

// AddVariableWithEq declares a variable with a custom equality predicate for
// no-op suppression.
func (c *Component) AddVariableWithEq(id string, initial interface{}, eq func(a, b interface{}) bool) *Component {
	v := model.NewVariable(id, initial)
	v.Eq = eq
	return c.AddVariableInstance(v)
}

// AddVariableInstance declares a pre-built variable.
func (c *Component) AddVariableInstance(v *model.Variable) *Component {
	c.variables[v.Id] = v
	c.pendingAdds = append(c.pendingAdds, interfaces.ComponentChange{
		Kind:     interfaces.CHANGE_VARIABLE,
		Variable: v,
	})
	return c
}

// AddConstraint declares a constraint built with NewConstraint.
func (c *Component) AddConstraint(spec *ConstraintSpec) *Component {
	constraint := spec.Build()
	c.constraints[constraint.Id] = constraint
	c.pendingAdds = append(c.pendingAdds, interfaces.ComponentChange{
		Kind:       interfaces.CHANGE_CONSTRAINT,
		Constraint: constraint,
	})
	return c
}

// AddOutput declares an output variable; outputs are refcounted by the
// engine.
func (c *Component) AddOutput(vid string) *Component {
	c.outputs = append(c.outputs, vid)
	c.pendingAdds = append(c.pendingAdds, interfaces.ComponentChange{
		Kind:   interfaces.CHANGE_OUTPUT,
		Output: vid,
	})
	return c
}

// AddTouchDependency declares a promotion edge; each endpoint is a constraint
// id or a variable id standing for its stay.
func (c *Component) AddTouchDependency(from string, to string) *Component {
	c.touchDeps = append(c.touchDeps, [2]string{from, to})
	c.pendingAdds = append(c.pendingAdds, interfaces.ComponentChange{
		Kind:      interfaces.CHANGE_TOUCH_DEP,
		TouchFrom: from,
		TouchTo:   to,
	})
	return c
}

// RemoveVariable retracts a declared variable.
func (c *Component) RemoveVariable(id string) *Component {
	v, ok := c.variables[id]
	if !ok {
		return c
	}
	delete(c.variables, id)
	c.pendingRemoves = append(c.pendingRemoves, interfaces.ComponentChange{
		Kind:     interfaces.CHANGE_VARIABLE,
		Variable: v,
	})
	return c
}

// RemoveConstraint retracts a declared constraint.
func (c *Component) RemoveConstraint(id string) *Component {
	constraint, ok := c.constraints[id]
	if !ok {
		return c
	}
	delete(c.constraints, id)
	c.pendingRemoves = append(c.pendingRemoves, interfaces.ComponentChange{
		Kind:       interfaces.CHANGE_CONSTRAINT,
		Constraint: constraint,
	})
	return c
}

// ReportUpdates returns the pending deltas and clears them. Implements
// interfaces.ComponentInterface.
func (c *Component) ReportUpdates() interfaces.ComponentChanges {
	changes := interfaces.ComponentChanges{
		Adds:    c.pendingAdds,
		Removes: c.pendingRemoves,
	}
	c.pendingAdds = nil
	c.pendingRemoves = nil
	return changes
}

// ReportRemoval returns the component's full declaration set as removes, in
// an order safe to apply: edges and outputs first, then constraints, then
// variables.
func (c *Component) ReportRemoval() interfaces.ComponentChanges {
	var removes []interfaces.ComponentChange
	for _, dep := range c.touchDeps {
		removes = append(removes, interfaces.ComponentChange{
			Kind:      interfaces.CHANGE_TOUCH_DEP,
			TouchFrom: dep[0],
			TouchTo:   dep[1],
		})
	}
	for _, vid := range c.outputs {
		removes = append(removes, interfaces.ComponentChange{
			Kind:   interfaces.CHANGE_OUTPUT,
			Output: vid,
		})
	}
	for _, constraint := range c.constraints {
		removes = append(removes, interfaces.ComponentChange{
			Kind:       interfaces.CHANGE_CONSTRAINT,
			Constraint: constraint,
		})
	}
	for _, v := range c.variables {
		removes = append(removes, interfaces.ComponentChange{
			Kind:     interfaces.CHANGE_VARIABLE,
			Variable: v,
		})
	}
	return interfaces.ComponentChanges{Removes: removes}
}

// ConstraintSpec builds one multi-method constraint.
type ConstraintSpec struct {
	id             string
	level          model.Level
	methods        []*model.Method
	touchVariables []string
}

func NewConstraint(id string) *ConstraintSpec {
	return &ConstraintSpec{
		id:    id,
		level: model.LEVEL_DEFAULT,
	}
}

// SetLevel marks the constraint optional with the given strength placement.
// LEVEL_DEFAULT keeps it required.
func (s *ConstraintSpec) SetLevel(level model.Level) *ConstraintSpec {
	s.level = level
	return s
}

// AddMethod declares one alternative method computing outputs from inputs.
func (s *ConstraintSpec) AddMethod(mid string, inputs []string, outputs []string, fn model.Body) *ConstraintSpec {
	return s.AddMethodWithPriors(mid, inputs, nil, outputs, fn)
}

// AddMethodWithPriors declares a method with per-input prior flags.
func (s *ConstraintSpec) AddMethodWithPriors(mid string, inputs []string, priors []bool, outputs []string, fn model.Body) *ConstraintSpec {
	s.methods = append(s.methods, &model.Method{
		Id:      mid,
		Inputs:  inputs,
		Priors:  priors,
		Outputs: outputs,
		Fn:      fn,
	})
	return s
}

// SetTouchVariables declares variables whose touch promotes this constraint.
func (s *ConstraintSpec) SetTouchVariables(vids ...string) *ConstraintSpec {
	s.touchVariables = vids
	return s
}

func (s *ConstraintSpec) Build() *model.Constraint {
	return &model.Constraint{
		Id:             s.id,
		Methods:        s.methods,
		Level:          s.level,
		TouchVariables: s.touchVariables,
	}
}
