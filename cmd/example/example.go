package main

import (
	"fmt"
	"log"
	"os"

	"github.com/voodooEntity/gits"
	"github.com/voodooEntity/gits/src/query"

	"github.com/thejohnfreeman/hotdrink"
	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	cfgb "github.com/thejohnfreeman/hotdrink/src/system/configBuilder"
	"github.com/thejohnfreeman/hotdrink/src/system/memory"
)

func main() {
	logger := log.New(os.Stdout, "", 0)

	// create base instance. ident is optional and
	// defaults to a fresh uuid.
	hd := hotdrink.New(hotdrink.Settings{
		Ident:    "example",
		LogLevel: archivist.LEVEL_INFO,
		Logger:   logger,
		History:  true,
	})

	// declare a three variable chain: a <-> b <-> c
	comp := cfgb.NewComponent("chain")
	comp.AddVariable("a", 0).AddVariable("b", 0).AddVariable("c", 0)
	comp.AddConstraint(cfgb.NewConstraint("left").
		AddMethod("left.forward", []string{"a"}, []string{"b"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) * 2}
		}).
		AddMethod("left.backward", []string{"b"}, []string{"a"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) / 2}
		}))
	comp.AddConstraint(cfgb.NewConstraint("right").
		AddMethod("right.forward", []string{"b"}, []string{"c"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) + 1}
		}).
		AddMethod("right.backward", []string{"c"}, []string{"b"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) - 1}
		}))
	comp.AddOutput("c")
	hd.AddComponents(comp)
	hd.Tick()

	// edit a; the planner routes the dataflow a -> b -> c
	hd.Set("a", 4)

	// get an observer instance. provide a callback
	// to be executed once the model settles.
	obsi := hd.GetObserverInstance(func(mi *memory.Memory) {
		logger.Println("a:", hd.Value("a"), "b:", hd.Value("b"), "c:", hd.Value("c"))
	})

	// register a tick function
	fn := func(gitsInstance *gits.Gits, logger *archivist.Archivist) {
		logger.Info("yes i tick")
	}
	obsi.RegisterTickFunction(&fn)
	obsi.SetTickRate(20)

	// blocking while the model is unsolved
	obsi.Loop()

	// history is enabled so we can look up the
	// executed method activations
	res := hd.GetMemory().Gits.Query().Execute(query.New().Read("Activation"))
	fmt.Println(fmt.Sprintf("%+v", res))
}
