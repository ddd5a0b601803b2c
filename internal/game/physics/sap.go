package physics

import "fightcore/internal/fixmath"

// SweepAndPrune is a one-axis broad phase. It projects box bounds onto X, sorts the
// endpoints and reports every pair of intervals that overlap.
//
// Boxes move little between ticks, so the endpoint order from the previous tick is
// nearly sorted and insertion sort runs in close to linear time. Insertion sort is
// also stable, which keeps the pair order a pure function of the input.
type SweepAndPrune struct {
	endpoints []endpoint // all min/max endpoints
	pairs     []Pair     // output buffer (reused)
	active    []uint32   // active interval set (reused)
}

type endpoint struct {
	value fixmath.Scalar // X coordinate
	id    uint32         // which box
	isMin bool           // true = start of interval
}

// Pair holds the indices of two boxes whose X intervals overlap, with A < B.
type Pair struct {
	A, B uint32
}

// Interval is one box's extent on the sweep axis.
type Interval struct {
	Min, Max fixmath.Scalar
}

// NewSweepAndPrune creates a broad phase sized for maxBoxes.
func NewSweepAndPrune(maxBoxes int) *SweepAndPrune {
	return &SweepAndPrune{
		endpoints: make([]endpoint, 0, maxBoxes*2),
		pairs:     make([]Pair, 0, maxBoxes),
		active:    make([]uint32, 0, maxBoxes),
	}
}

// Update rebuilds the endpoint list from intervals (indexed by box id) and returns
// overlapping pairs sorted by (A, B). The returned slice is reused by the next call.
func (s *SweepAndPrune) Update(intervals []Interval) []Pair {
	s.pairs = s.pairs[:0]
	s.endpoints = s.endpoints[:0]

	for i, iv := range intervals {
		s.endpoints = append(s.endpoints,
			endpoint{iv.Min, uint32(i), true},
			endpoint{iv.Max, uint32(i), false},
		)
	}
	insertionSortEndpoints(s.endpoints)

	// Sweep: track active intervals
	s.active = s.active[:0]
	for _, ep := range s.endpoints {
		if ep.isMin {
			for _, other := range s.active {
				a, b := other, ep.id
				if a > b {
					a, b = b, a
				}
				s.pairs = append(s.pairs, Pair{a, b})
			}
			s.active = append(s.active, ep.id)
			continue
		}
		for i, id := range s.active {
			if id == ep.id {
				// order inside active does not matter, pairs are sorted below
				s.active[i] = s.active[len(s.active)-1]
				s.active = s.active[:len(s.active)-1]
				break
			}
		}
	}

	insertionSortPairs(s.pairs)
	return s.pairs
}

// insertionSortEndpoints sorts by coordinate. At equal coordinates a min endpoint
// sorts before a max one, so touching boxes count as overlapping.
func insertionSortEndpoints(eps []endpoint) {
	for i := 1; i < len(eps); i++ {
		key := eps[i]
		j := i - 1
		for j >= 0 && endpointLess(key, eps[j]) {
			eps[j+1] = eps[j]
			j--
		}
		eps[j+1] = key
	}
}

func endpointLess(a, b endpoint) bool {
	if a.value != b.value {
		return a.value < b.value
	}
	return a.isMin && !b.isMin
}

func insertionSortPairs(ps []Pair) {
	for i := 1; i < len(ps); i++ {
		key := ps[i]
		j := i - 1
		for j >= 0 && (ps[j].A > key.A || (ps[j].A == key.A && ps[j].B > key.B)) {
			ps[j+1] = ps[j]
			j--
		}
		ps[j+1] = key
	}
}
