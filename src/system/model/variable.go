package model

import (
	"reflect"

	"github.com/thejohnfreeman/hotdrink/src/system/signal"
)

// Variable holds one value of the property model. The exposed value lives in
// a replaying signal; edits and method outputs arrive as promises which are
// committed by the evaluator. Pending is true while an attached promise has
// not been committed yet.
type Variable struct {
	Id           string
	Level        Level
	Pending      bool
	Source       bool
	Contributing Fuzzy
	Relevant     Fuzzy
	// Eq suppresses no-op updates. Nil falls back to reflect.DeepEqual.
	Eq func(a, b interface{}) bool

	value       interface{}
	prior       interface{}
	lastErr     error
	valueSignal *signal.Signal
	promise     *signal.Promise
	committing  *signal.Promise
}

// NewVariable creates an unbound variable. Variables default to LEVEL_MAX so
// their stay constraints are optional and promotable.
func NewVariable(id string, initial interface{}) *Variable {
	return &Variable{
		Id:    id,
		Level: LEVEL_MAX,
		value: initial,
		prior: initial,
	}
}

// Bind attaches the variable to a scheduler, creating its value signal and
// emitting the initial value. Called once by the engine on registration.
func (v *Variable) Bind(sched *signal.Scheduler) {
	if v.valueSignal != nil {
		return
	}
	v.valueSignal = signal.NewSignal(sched, v.Id)
	v.valueSignal.Emit(v.value)
}

func (v *Variable) Bound() bool {
	return v.valueSignal != nil
}

// ValueSignal exposes the variable's signal for subscription.
func (v *Variable) ValueSignal() *signal.Signal {
	return v.valueSignal
}

// Value returns the last committed value.
func (v *Variable) Value() interface{} {
	return v.value
}

// PriorValue returns the value committed before the current one. Prior-flagged
// method inputs do not read this; the evaluator serves them Value().
func (v *Variable) PriorValue() interface{} {
	return v.prior
}

// LastError returns the rejection committed last, if the most recent commit
// was a rejection.
func (v *Variable) LastError() error {
	return v.lastErr
}

// EqualsCurrent reports whether value is an eq-equal no-op edit.
func (v *Variable) EqualsCurrent(value interface{}) bool {
	if v.Eq != nil {
		return v.Eq(v.value, value)
	}
	return reflect.DeepEqual(v.value, value)
}

// AttachPromise installs p as the variable's pending promise, superseding any
// previous one. A superseded promise's eventual settlement is dropped for the
// variable. Returns true if the variable newly became pending.
func (v *Variable) AttachPromise(p *signal.Promise) bool {
	v.promise = p
	v.committing = nil
	if v.Pending {
		return false
	}
	v.Pending = true
	return true
}

// PendingPromise returns the currently attached promise, or nil.
func (v *Variable) PendingPromise() *signal.Promise {
	return v.promise
}

// CommitPromise arranges for the attached promise's resolution to replace the
// exposed value. onSettled fires once per commit, after the value moved into
// the signal; it is where the engine decrements its pending count. Multiple
// calls for the same promise are collapsed; a promise superseded before it
// settles is ignored.
func (v *Variable) CommitPromise(onSettled func(v *Variable, err error)) {
	if v.promise == nil || v.committing == v.promise {
		return
	}
	p := v.promise
	v.committing = p
	p.Then(func(value interface{}, err error) {
		// a later attach superseded this promise, drop the settlement
		if v.promise != p {
			return
		}
		v.promise = nil
		v.committing = nil
		v.Pending = false
		if err != nil {
			v.lastErr = err
			v.valueSignal.Emit(err)
			onSettled(v, err)
			return
		}
		v.lastErr = nil
		if !v.EqualsCurrent(value) {
			v.prior = v.value
			v.value = value
			v.valueSignal.Emit(value)
		}
		onSettled(v, nil)
	})
}
