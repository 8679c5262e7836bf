package formulate

// NodeSet is a fixed-capacity bitset over solver node indices, used
// for the per-vehicle allowed-node masks.
type NodeSet struct {
	words []uint64
}

// NewNodeSet returns an empty set with capacity for n indices.
func NewNodeSet(n int) NodeSet {
	return NodeSet{words: make([]uint64, (n+63)/64)}
}

// Add inserts index i.
func (s NodeSet) Add(i int) {
	s.words[i/64] |= 1 << (uint(i) % 64)
}

// Has reports whether index i is in the set.
func (s NodeSet) Has(i int) bool {
	w := i / 64
	if w < 0 || w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<(uint(i)%64)) != 0
}

// Count returns the number of indices in the set.
func (s NodeSet) Count() int {
	c := 0
	for _, w := range s.words {
		for ; w != 0; w &= w - 1 {
			c++
		}
	}
	return c
}
