package observer

import (
	"time"

	"github.com/voodooEntity/gits"

	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/engine"
	"github.com/thejohnfreeman/hotdrink/src/system/memory"
)

// Observer blocks until the engine reaches quiescence: solved, nothing
// pending, and no change for a handful of consecutive polls. Each poll ticks
// the engine's cooperative scheduler, so promise settlements queued by
// asynchronous methods get drained here.
type Observer struct {
	InactiveIncrement int
	engine            *engine.Engine
	mem               *memory.Memory
	callback          func(memoryInstance *memory.Memory)
	log               *archivist.Archivist
	tickFunction      *func(gits *gits.Gits, logger *archivist.Archivist)
	tickRate          int
	pollInterval      time.Duration
}

func New(engineInstance *engine.Engine, memoryInstance *memory.Memory, cb func(memoryInstance *memory.Memory), logger *archivist.Archivist) *Observer {
	logger.Info("Creating observer")
	return &Observer{
		InactiveIncrement: 0,
		engine:            engineInstance,
		mem:               memoryInstance,
		callback:          cb,
		log:               logger,
		tickRate:          25,
		tickFunction:      nil,
		pollInterval:      10 * time.Millisecond,
	}
}

// RegisterTickFunction installs a function invoked every tickRate polls with
// the memory's gits instance, for periodic inspection.
func (o *Observer) RegisterTickFunction(tickFn *func(gits *gits.Gits, logger *archivist.Archivist)) {
	o.tickFunction = tickFn
}

func (o *Observer) SetTickRate(tickRate int) {
	o.tickRate = tickRate
}

func (o *Observer) SetPollInterval(interval time.Duration) {
	o.pollInterval = interval
}

func (o *Observer) tick() {
	(*o.tickFunction)(o.mem.Gits, o.log)
}

// Loop blocks until quiescence, then runs the end callback with the memory
// instance.
func (o *Observer) Loop() {
	i := 0
	for !o.ReachedQuiescence() {
		i++
		o.log.Debug(archivist.DEBUG_LEVEL_EVERYTHING, "Observer looping:")
		if nil != o.tickFunction && i == o.tickRate {
			o.tick()
			i = 0
		}

		time.Sleep(o.pollInterval)
	}
	o.Endgame()
	o.log.Info("Property model reached quiescence, observer exiting")
}

// ReachedQuiescence drains the scheduler and checks the solved state. Only a
// handful of consecutive solved polls count, so a resolution arriving between
// two polls restarts the countdown.
func (o *Observer) ReachedQuiescence() bool {
	o.engine.Tick()
	if !o.engine.SolvedNow() || 0 < o.engine.PendingCount() {
		o.InactiveIncrement = 0
		return false
	}
	if o.InactiveIncrement > 5 {
		return true
	}
	o.InactiveIncrement++
	return false
}

func (o *Observer) Endgame() {
	o.log.Info("executing endgame")
	// execute callback with memory instance provided
	o.callback(o.mem)
}
