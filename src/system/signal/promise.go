package signal

const (
	promisePending = iota
	promiseFulfilled
	promiseRejected
)

// Promise is a single-settlement deferred value. Settling schedules the
// registered callbacks at PRIORITY_SIGNAL; a promise settles at most once and
// later Resolve/Reject calls are dropped. Promises are not goroutine-safe:
// callers on other goroutines must funnel their settlement through whatever
// serializes access to the engine.
type Promise struct {
	sched     *Scheduler
	state     int
	value     interface{}
	err       error
	callbacks []func(value interface{}, err error)
}

func NewPromise(sched *Scheduler) *Promise {
	return &Promise{sched: sched}
}

// Resolved returns an already-fulfilled promise.
func Resolved(sched *Scheduler, value interface{}) *Promise {
	return &Promise{sched: sched, state: promiseFulfilled, value: value}
}

// Rejected returns an already-rejected promise.
func Rejected(sched *Scheduler, err error) *Promise {
	return &Promise{sched: sched, state: promiseRejected, err: err}
}

func (p *Promise) Resolve(value interface{}) {
	p.settle(promiseFulfilled, value, nil)
}

func (p *Promise) Reject(err error) {
	p.settle(promiseRejected, nil, err)
}

func (p *Promise) settle(state int, value interface{}, err error) {
	if p.state != promisePending {
		return
	}
	p.state = state
	p.value = value
	p.err = err
	callbacks := p.callbacks
	p.callbacks = nil
	for _, fn := range callbacks {
		callback := fn
		p.sched.Schedule(PRIORITY_SIGNAL, func() {
			callback(value, err)
		})
	}
}

// Then registers fn to run once the promise settles. On an already-settled
// promise fn is scheduled immediately.
func (p *Promise) Then(fn func(value interface{}, err error)) {
	if p.state == promisePending {
		p.callbacks = append(p.callbacks, fn)
		return
	}
	value, err := p.value, p.err
	p.sched.Schedule(PRIORITY_SIGNAL, func() {
		fn(value, err)
	})
}

// Settled reports whether the promise has been fulfilled or rejected.
func (p *Promise) Settled() bool {
	return p.state != promisePending
}

// Result returns the settlement. Only meaningful when Settled.
func (p *Promise) Result() (interface{}, error) {
	return p.value, p.err
}

// Pipe forwards the settlement of src into dst.
func Pipe(src *Promise, dst *Promise) {
	src.Then(func(value interface{}, err error) {
		if err != nil {
			dst.Reject(err)
			return
		}
		dst.Resolve(value)
	})
}

// All invokes fn once every promise in ps has settled. The values slice is
// positional; the first rejection wins and is passed as err with the partial
// values. An empty ps invokes fn on the next scheduler tick.
func All(sched *Scheduler, ps []*Promise, fn func(values []interface{}, err error)) {
	values := make([]interface{}, len(ps))
	remaining := len(ps)
	var firstErr error
	if remaining == 0 {
		sched.Schedule(PRIORITY_SIGNAL, func() {
			fn(values, nil)
		})
		return
	}
	for i, p := range ps {
		index := i
		p.Then(func(value interface{}, err error) {
			if err != nil && firstErr == nil {
				firstErr = err
			}
			values[index] = value
			remaining--
			if remaining == 0 {
				fn(values, firstErr)
			}
		})
	}
}
