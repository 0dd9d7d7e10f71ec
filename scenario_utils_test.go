package hotdrink_test

import (
	"io"
	"log"
	"math/rand"
	"strings"

	"github.com/thejohnfreeman/hotdrink"
	cfgb "github.com/thejohnfreeman/hotdrink/src/system/configBuilder"
)

// - - - - - - - - - - - - - - - - - - - - - - -
// SETUP FRESH INSTANCE OF THE PROPERTY MODEL
// - needs to be run for each test case
// - manual updates so every test drives the engine deterministically
// - history enabled so activations can be asserted through gits queries

const charset = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func setupFresh(forwardEmergingSources bool) *hotdrink.Hotdrink {
	return hotdrink.New(hotdrink.Settings{
		Ident:                  GenerateRandomString(10),
		Logger:                 log.New(io.Discard, "", 0),
		ManualUpdates:          true,
		History:                true,
		ForwardEmergingSources: forwardEmergingSources,
	})
}

// setupTriChain builds the canonical three variable chain a <-> b <-> c with
// two required two-method constraints:
//   - C1: b = a+1 / a = b-1
//   - C2: c = b*2 / b = c/2
//
// c is declared as output. The component is registered and one update has
// run, so edits can follow immediately.
func setupTriChain(forwardEmergingSources bool) *hotdrink.Hotdrink {
	hd := setupFresh(forwardEmergingSources)
	comp := cfgb.NewComponent("chain")
	comp.AddVariable("a", 0).AddVariable("b", 0).AddVariable("c", 0)
	comp.AddConstraint(cfgb.NewConstraint("C1").
		AddMethod("C1.a2b", []string{"a"}, []string{"b"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) + 1}
		}).
		AddMethod("C1.b2a", []string{"b"}, []string{"a"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) - 1}
		}))
	comp.AddConstraint(cfgb.NewConstraint("C2").
		AddMethod("C2.b2c", []string{"b"}, []string{"c"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) * 2}
		}).
		AddMethod("C2.c2b", []string{"c"}, []string{"b"}, func(in []interface{}) []interface{} {
			return []interface{}{in[0].(int) / 2}
		}))
	comp.AddOutput("c")
	hd.AddComponents(comp)
	hd.Update()
	return hd
}

func GenerateRandomString(length int) string {
	// Create a strings.Builder to efficiently build the string
	var sb strings.Builder
	sb.Grow(length)

	// Loop 'length' times, selecting a random character from the charset
	for i := 0; i < length; i++ {
		randomIndex := rand.Intn(len(charset))
		randomChar := charset[randomIndex]

		sb.WriteByte(randomChar)
	}

	return sb.String()
}
