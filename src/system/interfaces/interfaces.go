package interfaces

import "github.com/thejohnfreeman/hotdrink/src/system/model"

// LoggerInterface is the minimal sink the archivist writes to. The stdlib
// *log.Logger satisfies it, as does any test capture buffer.
type LoggerInterface interface {
	Println(v ...interface{})
}

// ComponentInterface is implemented by user-facing containers of model
// declarations. The engine polls ReportUpdates whenever the component was
// marked as changed; the returned changes are applied removes-first.
type ComponentInterface interface {
	Name() string
	ReportUpdates() ComponentChanges
	// ReportRemoval returns the component's full current declaration set as
	// removes, used when the component itself is taken out of the model.
	ReportRemoval() ComponentChanges
}

// ComponentChanges is the delta a component hands to the update loop.
type ComponentChanges struct {
	Adds    []ComponentChange
	Removes []ComponentChange
}

// Change kinds for ComponentChange.Kind
const (
	CHANGE_VARIABLE   = "Variable"
	CHANGE_CONSTRAINT = "Constraint"
	CHANGE_OUTPUT     = "Output"
	CHANGE_TOUCH_DEP  = "TouchDependency"
)

// ComponentChange names exactly one declaration. Only the fields matching
// Kind are populated; the engine ignores the rest.
type ComponentChange struct {
	Kind       string
	Variable   *model.Variable
	Constraint *model.Constraint
	Output     string // variable id
	TouchFrom  string // constraint or variable id
	TouchTo    string
}
