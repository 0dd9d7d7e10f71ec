package cgraph

// Solution is the solution graph: at most one selected method per enforced
// constraint. The directed input-variable→method and method→output-variable
// edges (prior-flagged inputs excluded) must form a DAG; the planner
// guarantees that by construction and IsAcyclic double-checks it.
type Solution struct {
	graph    *Graph
	selected map[string]string
	writers  map[string]string
}

func NewSolution(g *Graph) *Solution {
	return &Solution{
		graph:    g,
		selected: make(map[string]string),
		writers:  make(map[string]string),
	}
}

// Clone returns an independent copy sharing the underlying constraint graph.
func (s *Solution) Clone() *Solution {
	clone := NewSolution(s.graph)
	for cid, mid := range s.selected {
		clone.selected[cid] = mid
	}
	for vid, mid := range s.writers {
		clone.writers[vid] = mid
	}
	return clone
}

// Graph returns the constraint graph this solution selects over.
func (s *Solution) Graph() *Graph {
	return s.graph
}

// Select records mid as the selected method of cid.
func (s *Solution) Select(cid string, mid string) {
	s.Unselect(cid)
	s.selected[cid] = mid
	for _, vid := range s.graph.OutputsFor(mid) {
		s.writers[vid] = mid
	}
}

// Unselect drops cid's selection, if any.
func (s *Solution) Unselect(cid string) {
	mid, ok := s.selected[cid]
	if !ok {
		return
	}
	delete(s.selected, cid)
	for _, vid := range s.graph.OutputsFor(mid) {
		if s.writers[vid] == mid {
			delete(s.writers, vid)
		}
	}
}

// SelectedFor returns the selected method of cid.
func (s *Solution) SelectedFor(cid string) (string, bool) {
	mid, ok := s.selected[cid]
	return mid, ok
}

// WriterOf returns the selected method writing vid.
func (s *Solution) WriterOf(vid string) (string, bool) {
	mid, ok := s.writers[vid]
	return mid, ok
}

// SelectedMethods returns the selected method ids in constraint registration
// order.
func (s *Solution) SelectedMethods() []string {
	var mids []string
	for _, cid := range s.graph.Constraints() {
		if mid, ok := s.selected[cid]; ok {
			mids = append(mids, mid)
		}
	}
	return mids
}

// EnforcedConstraints returns the constraint ids with a selection, in
// registration order.
func (s *Solution) EnforcedConstraints() []string {
	var cids []string
	for _, cid := range s.graph.Constraints() {
		if _, ok := s.selected[cid]; ok {
			cids = append(cids, cid)
		}
	}
	return cids
}

// consumersOf returns the selected methods reading vid as a primary
// (non-prior) input.
func (s *Solution) consumersOf(vid string) []string {
	var consumers []string
	for _, mid := range s.SelectedMethods() {
		for index, in := range s.graph.InputsFor(mid) {
			if in == vid && !s.graph.PriorAt(mid, index) {
				consumers = append(consumers, mid)
				break
			}
		}
	}
	return consumers
}

// DownstreamVariables walks method→output-variable→consumer-method edges from
// the seed methods and returns every variable reached, in visit order.
func (s *Solution) DownstreamVariables(seedMids []string) []string {
	var vids []string
	seenM := make(map[string]bool)
	seenV := make(map[string]bool)
	queue := append([]string{}, seedMids...)
	for _, mid := range seedMids {
		seenM[mid] = true
	}
	for 0 < len(queue) {
		mid := queue[0]
		queue = queue[1:]
		for _, vid := range s.graph.OutputsFor(mid) {
			if seenV[vid] {
				continue
			}
			seenV[vid] = true
			vids = append(vids, vid)
			for _, consumer := range s.consumersOf(vid) {
				if !seenM[consumer] {
					seenM[consumer] = true
					queue = append(queue, consumer)
				}
			}
		}
	}
	return vids
}

// DownstreamMethods walks method→method edges (via shared variables, prior
// inputs excluded) from the seed methods. The seeds themselves are included.
func (s *Solution) DownstreamMethods(seedMids []string) []string {
	var mids []string
	seen := make(map[string]bool)
	queue := []string{}
	for _, mid := range seedMids {
		if sel, ok := s.selected[s.graph.ConstraintForMethod(mid)]; !ok || sel != mid {
			continue
		}
		if !seen[mid] {
			seen[mid] = true
			mids = append(mids, mid)
			queue = append(queue, mid)
		}
	}
	for 0 < len(queue) {
		mid := queue[0]
		queue = queue[1:]
		for _, vid := range s.graph.OutputsFor(mid) {
			for _, consumer := range s.consumersOf(vid) {
				if !seen[consumer] {
					seen[consumer] = true
					mids = append(mids, consumer)
					queue = append(queue, consumer)
				}
			}
		}
	}
	return mids
}

// IsAcyclic verifies the selected method digraph contains no cycle.
func (s *Solution) IsAcyclic() bool {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var visit func(mid string) bool
	visit = func(mid string) bool {
		switch state[mid] {
		case visiting:
			return false
		case done:
			return true
		}
		state[mid] = visiting
		for _, vid := range s.graph.OutputsFor(mid) {
			for _, consumer := range s.consumersOf(vid) {
				if !visit(consumer) {
					return false
				}
			}
		}
		state[mid] = done
		return true
	}
	for _, mid := range s.SelectedMethods() {
		if !visit(mid) {
			return false
		}
	}
	return true
}
