package planner

// StrengthOrder is a total order over the optional constraint ids, weakest
// first. Promotion rewrites the index map, which keeps lookups O(1); the
// slice itself is small enough that an ordered tree did not pay for itself.
type StrengthOrder struct {
	order []string
	index map[string]int
}

func NewStrengthOrder() *StrengthOrder {
	return &StrengthOrder{
		index: make(map[string]int),
	}
}

func (so *StrengthOrder) Contains(cid string) bool {
	_, ok := so.index[cid]
	return ok
}

// IndexOf returns the strength rank of cid (higher is stronger), or -1.
func (so *StrengthOrder) IndexOf(cid string) int {
	rank, ok := so.index[cid]
	if !ok {
		return -1
	}
	return rank
}

// SetMax moves cid to the strongest end, inserting it if unknown.
func (so *StrengthOrder) SetMax(cid string) {
	so.Remove(cid)
	so.order = append(so.order, cid)
	so.index[cid] = len(so.order) - 1
}

// SetMin moves cid to the weakest end, inserting it if unknown.
func (so *StrengthOrder) SetMin(cid string) {
	so.Remove(cid)
	so.order = append([]string{cid}, so.order...)
	so.reindex()
}

// Remove drops cid from the order. Unknown ids are no-ops.
func (so *StrengthOrder) Remove(cid string) {
	pos, ok := so.index[cid]
	if !ok {
		return
	}
	so.order = append(so.order[:pos], so.order[pos+1:]...)
	delete(so.index, cid)
	so.reindex()
}

// List returns the order weakest to strongest.
func (so *StrengthOrder) List() []string {
	return append([]string{}, so.order...)
}

// SetList replaces the whole order, weakest first.
func (so *StrengthOrder) SetList(order []string) {
	so.order = append([]string{}, order...)
	so.index = make(map[string]int, len(order))
	so.reindex()
}

func (so *StrengthOrder) reindex() {
	for pos, id := range so.order {
		so.index[id] = pos
	}
}
