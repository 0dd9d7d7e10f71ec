package signal

// Signal is a single-threaded observable value. Subscribers receive the last
// emitted value on subscribe (replayed through the scheduler, never inline)
// and every coalesced emission afterwards. Emissions between two scheduler
// ticks collapse into one delivery carrying the latest value.
type Signal struct {
	sched         *Scheduler
	name          string
	subscribers   []func(interface{})
	last          interface{}
	hasLast       bool
	notifyPending bool
}

func NewSignal(sched *Scheduler, name string) *Signal {
	return &Signal{
		sched: sched,
		name:  name,
	}
}

// Subscribe registers fn. If a value was emitted before, fn is scheduled with
// it right away.
func (s *Signal) Subscribe(fn func(value interface{})) {
	s.subscribers = append(s.subscribers, fn)
	if s.hasLast {
		value := s.last
		s.sched.Schedule(PRIORITY_SIGNAL, func() {
			fn(value)
		})
	}
}

// Emit records value as the signal's latest and schedules one delivery.
// Multiple emits before the delivery runs coalesce; subscribers only see the
// final value.
func (s *Signal) Emit(value interface{}) {
	s.last = value
	s.hasLast = true
	if s.notifyPending {
		return
	}
	s.notifyPending = true
	s.sched.Schedule(PRIORITY_SIGNAL, func() {
		s.notifyPending = false
		current := s.last
		for _, fn := range s.subscribers {
			fn(current)
		}
	})
}

// Last returns the most recently emitted value, if any.
func (s *Signal) Last() (interface{}, bool) {
	return s.last, s.hasLast
}

func (s *Signal) Name() string {
	return s.name
}
