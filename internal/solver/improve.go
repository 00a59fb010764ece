package solver

import "field-route-planner/internal/travel"

// twoOpt reverses sub-sequences of seq while total travel decreases.
// Mutates seq in place and returns the final travel minutes. With no depot
// the first and last stops are free endpoints, so edge bookkeeping differs
// from the classic closed-tour form: reversing [i..j] replaces the edges
// into i and out of j only.
func twoOpt(m *travel.Matrix, seq []int) int {
	improved := true
	for improved {
		improved = false
		for i := 0; i < len(seq)-1; i++ {
			for j := i + 1; j < len(seq); j++ {
				delta := 0
				if i > 0 {
					delta += m.Travel(seq[i-1], seq[j]) - m.Travel(seq[i-1], seq[i])
				}
				if j < len(seq)-1 {
					delta += m.Travel(seq[i], seq[j+1]) - m.Travel(seq[j], seq[j+1])
				}
				if delta < 0 {
					for l, r := i, j; l < r; l, r = l+1, r-1 {
						seq[l], seq[r] = seq[r], seq[l]
					}
					improved = true
				}
			}
		}
	}
	_, trav := m.RouteMinutes(seq)
	return trav
}

// insertionDelta is the travel increase from inserting site at position pos
// of seq (pos may equal len(seq) to append).
func insertionDelta(m *travel.Matrix, seq []int, pos, site int) int {
	switch {
	case len(seq) == 0:
		return 0
	case pos == 0:
		return m.Travel(site, seq[0])
	case pos == len(seq):
		return m.Travel(seq[len(seq)-1], site)
	default:
		return m.Travel(seq[pos-1], site) + m.Travel(site, seq[pos]) - m.Travel(seq[pos-1], seq[pos])
	}
}

// bestInsertion finds the cheapest feasible position for site in route r.
// Returns (position, travel delta, ok).
func bestInsertion(m *travel.Matrix, r *Route, site int, budget, maxStops int) (int, int, bool) {
	if len(r.Seq) >= maxStops {
		return 0, 0, false
	}
	bestPos, bestDelta, found := 0, 0, false
	for pos := 0; pos <= len(r.Seq); pos++ {
		delta := insertionDelta(m, r.Seq, pos, site)
		if r.ServiceMinutes+m.Service(site)+r.TravelMinutes+delta > budget {
			continue
		}
		if !found || delta < bestDelta {
			bestPos, bestDelta, found = pos, delta, true
		}
	}
	return bestPos, bestDelta, found
}

// insertAt places site into the route at pos and updates its totals.
func insertAt(m *travel.Matrix, r *Route, pos, site, delta int) {
	r.Seq = append(r.Seq, 0)
	copy(r.Seq[pos+1:], r.Seq[pos:])
	r.Seq[pos] = site
	r.ServiceMinutes += m.Service(site)
	r.TravelMinutes += delta
}

// removeAt takes the stop at pos out of the route and updates its totals.
func removeAt(m *travel.Matrix, r *Route, pos int) int {
	site := r.Seq[pos]
	delta := 0
	switch {
	case len(r.Seq) == 1:
		// Route becomes empty.
	case pos == 0:
		delta = -m.Travel(site, r.Seq[1])
	case pos == len(r.Seq)-1:
		delta = -m.Travel(r.Seq[pos-1], site)
	default:
		delta = m.Travel(r.Seq[pos-1], r.Seq[pos+1]) -
			m.Travel(r.Seq[pos-1], site) - m.Travel(site, r.Seq[pos+1])
	}
	r.Seq = append(r.Seq[:pos], r.Seq[pos+1:]...)
	r.ServiceMinutes -= m.Service(site)
	r.TravelMinutes += delta
	return site
}
