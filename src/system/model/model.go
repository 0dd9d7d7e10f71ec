package model

// Fuzzy is the three-valued lattice used for the contributing and relevant
// labels on variables.
type Fuzzy int

const (
	FUZZY_NO Fuzzy = iota
	FUZZY_MAYBE
	FUZZY_YES
)

func (f Fuzzy) String() string {
	switch f {
	case FUZZY_YES:
		return "Yes"
	case FUZZY_MAYBE:
		return "Maybe"
	}
	return "No"
}

// Level is the optional strength placement of a constraint. LEVEL_DEFAULT
// means the constraint is required and takes no part in the optional
// strength order.
type Level int

const (
	LEVEL_DEFAULT Level = iota
	LEVEL_MAX
	LEVEL_MIN
)

func (l Level) String() string {
	switch l {
	case LEVEL_MAX:
		return "Max"
	case LEVEL_MIN:
		return "Min"
	}
	return "Default"
}

// Body computes a method's outputs from its resolved input values. Each
// output slot may be a plain value or a *signal.Promise for asynchronous
// methods; the evaluator wraps plain values.
type Body func(inputs []interface{}) []interface{}

// Method is one alternative way to satisfy a constraint: it consumes the
// ordered Inputs and writes the ordered Outputs. A prior-flagged input is
// read as the variable's previous value and induces no write-read edge.
type Method struct {
	Id      string
	Inputs  []string
	Priors  []bool
	Outputs []string
	Fn      Body
}

func (m *Method) PriorAt(index int) bool {
	if m.Priors == nil || index >= len(m.Priors) {
		return false
	}
	return m.Priors[index]
}

// Valid checks the structural method rules: outputs must be distinct, and an
// input may only equal an output when it carries the prior flag.
func (m *Method) Valid() bool {
	seen := make(map[string]bool)
	for _, out := range m.Outputs {
		if seen[out] {
			return false
		}
		seen[out] = true
	}
	for index, in := range m.Inputs {
		if seen[in] && !m.PriorAt(index) {
			return false
		}
	}
	return true
}

// Constraint owns its ordered alternative methods. All methods of one
// constraint touch the same variable set, differing in which subset they
// compute. A LEVEL_DEFAULT constraint is required; Max/Min constraints are
// optional and live in the planner's strength order.
type Constraint struct {
	Id             string
	Methods        []*Method
	Level          Level
	TouchVariables []string
}

func (c *Constraint) Optional() bool {
	return c.Level != LEVEL_DEFAULT
}

// VariableSet returns the union of all variables touched by the constraint's
// methods, in first-seen order.
func (c *Constraint) VariableSet() []string {
	var set []string
	seen := make(map[string]bool)
	for _, m := range c.Methods {
		for _, id := range append(append([]string{}, m.Outputs...), m.Inputs...) {
			if !seen[id] {
				seen[id] = true
				set = append(set, id)
			}
		}
	}
	return set
}

// MethodById returns the declared method with the given id, or nil.
func (c *Constraint) MethodById(mid string) *Method {
	for _, m := range c.Methods {
		if m.Id == mid {
			return m
		}
	}
	return nil
}

// StayConstraintId derives the implicit stay constraint id for a variable.
func StayConstraintId(vid string) string {
	return "stay(" + vid + ")"
}

// StayMethodId derives the stay method id for a variable.
func StayMethodId(vid string) string {
	return "stay_method(" + vid + ")"
}
