package topo

import (
	"sort"

	"github.com/thejohnfreeman/hotdrink/src/system/cgraph"
	"github.com/thejohnfreeman/hotdrink/src/system/planner"
)

// Toposort orders the solution graph's selected methods so that every method
// runs after the methods producing its primary inputs. Among methods ready at
// the same time the stronger constraint goes first, which keeps evaluation
// stable and priority-respecting; remaining ties fall back to declaration
// order. The result is deterministic for identical graphs and strengths.
func Toposort(sol *cgraph.Solution, p planner.Planner) []string {
	graph := sol.Graph()
	mids := sol.SelectedMethods()

	indegree := make(map[string]int, len(mids))
	consumers := make(map[string][]string, len(mids))
	for _, mid := range mids {
		indegree[mid] = 0
	}
	for _, mid := range mids {
		for index, vid := range graph.InputsFor(mid) {
			if graph.PriorAt(mid, index) {
				continue
			}
			writer, ok := sol.WriterOf(vid)
			if !ok || writer == mid {
				continue
			}
			consumers[writer] = append(consumers[writer], mid)
			indegree[mid]++
		}
	}

	stronger := func(a string, b string) bool {
		cmp := p.Compare(graph.ConstraintForMethod(a), graph.ConstraintForMethod(b))
		if cmp != 0 {
			return 0 < cmp
		}
		aRank := graph.RankOf(graph.ConstraintForMethod(a))
		bRank := graph.RankOf(graph.ConstraintForMethod(b))
		if aRank != bRank {
			return aRank < bRank
		}
		return a < b
	}

	var ready []string
	for _, mid := range mids {
		if indegree[mid] == 0 {
			ready = append(ready, mid)
		}
	}

	var order []string
	for 0 < len(ready) {
		sort.SliceStable(ready, func(i, j int) bool {
			return stronger(ready[i], ready[j])
		})
		mid := ready[0]
		ready = ready[1:]
		order = append(order, mid)
		for _, consumer := range consumers[mid] {
			indegree[consumer]--
			if indegree[consumer] == 0 {
				ready = append(ready, consumer)
			}
		}
	}
	return order
}
