// Package solver builds single-day routes for K crews over N sites under a
// shared time budget and stop cap. Routes have no depot: crews stage from
// their first stop and finish at their last.
//
// Two implementations share one contract: the greedy savings solver (fast
// mode) and the optimizing solver, which never returns a worse answer than
// greedy on the same input. Infeasibility is expressed through unassigned
// sites, never through an error.
package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"field-route-planner/internal/travel"
)

// DefaultTimeBudget bounds the optimizing solver's search per invocation.
const DefaultTimeBudget = 60 * time.Second

// Params configures one single-day solve.
type Params struct {
	Crews         int
	BudgetMinutes int
	MaxStops      int
	MinimizeCrews bool
	// TimeBudget caps the optimizing solver's wall-clock search. Zero
	// selects DefaultTimeBudget. The fast solver ignores it.
	TimeBudget time.Duration
}

// Route is one crew's visit sequence, as matrix indexes.
type Route struct {
	Seq            []int
	ServiceMinutes int
	TravelMinutes  int
}

// RouteMinutes is driving plus service time for the route.
func (r *Route) RouteMinutes() int {
	return r.ServiceMinutes + r.TravelMinutes
}

// Solution holds exactly Crews routes (some possibly empty) plus the matrix
// indexes of sites that could not be placed.
type Solution struct {
	Routes     []Route
	Unassigned []int
}

// TotalTravel sums driving minutes across all routes.
func (s *Solution) TotalTravel() int {
	total := 0
	for i := range s.Routes {
		total += s.Routes[i].TravelMinutes
	}
	return total
}

// ScheduledCount returns the number of placed sites.
func (s *Solution) ScheduledCount() int {
	n := 0
	for i := range s.Routes {
		n += len(s.Routes[i].Seq)
	}
	return n
}

// SingleDaySolver is the capability higher layers depend on; they never see
// which variant is behind it.
type SingleDaySolver interface {
	Solve(ctx context.Context, m *travel.Matrix, p Params) (*Solution, error)
}

// ErrSolver reports an internal solver failure (oracle errors and the like).
// Infeasible inputs never produce it.
type ErrSolver struct {
	Reason string
	Err    error
}

func (e *ErrSolver) Error() string {
	return fmt.Sprintf("solver error: %s", e.Reason)
}

func (e *ErrSolver) Unwrap() error {
	return e.Err
}

// New returns the fast greedy solver or the full optimizer.
func New(fastMode bool) SingleDaySolver {
	if fastMode {
		return NewGreedySolver()
	}
	return NewOptimizingSolver()
}

// better reports whether a beats b under the solver's objective order:
// fewer unassigned, less total travel, smaller max route, smaller spread
// across routes, then lexicographic route content as the final tie-break
// so equal-cost solutions compare deterministically.
func better(a, b *Solution) bool {
	if b == nil {
		return true
	}
	if a == nil {
		return false
	}
	if len(a.Unassigned) != len(b.Unassigned) {
		return len(a.Unassigned) < len(b.Unassigned)
	}
	if at, bt := a.TotalTravel(), b.TotalTravel(); at != bt {
		return at < bt
	}
	if am, bm := maxRouteMinutes(a), maxRouteMinutes(b); am != bm {
		return am < bm
	}
	if av, bv := routeSpread(a), routeSpread(b); av != bv {
		return av < bv
	}
	return lexLess(a, b)
}

func maxRouteMinutes(s *Solution) int {
	max := 0
	for i := range s.Routes {
		if rm := s.Routes[i].RouteMinutes(); rm > max {
			max = rm
		}
	}
	return max
}

// routeSpread is the sum of squared deviations of route minutes from their
// mean, scaled to stay integral.
func routeSpread(s *Solution) int {
	if len(s.Routes) == 0 {
		return 0
	}
	sum := 0
	for i := range s.Routes {
		sum += s.Routes[i].RouteMinutes()
	}
	n := len(s.Routes)
	spread := 0
	for i := range s.Routes {
		d := s.Routes[i].RouteMinutes()*n - sum
		spread += d * d
	}
	return spread
}

func lexLess(a, b *Solution) bool {
	for i := range a.Routes {
		if i >= len(b.Routes) {
			return false
		}
		ar, br := a.Routes[i].Seq, b.Routes[i].Seq
		for k := 0; k < len(ar) && k < len(br); k++ {
			if ar[k] != br[k] {
				return ar[k] < br[k]
			}
		}
		if len(ar) != len(br) {
			return len(ar) < len(br)
		}
	}
	return false
}

// solveMinimizeCrews sweeps K=1..p.Crews and returns the first K with no
// unassigned sites, else the full-roster solution.
func solveMinimizeCrews(
	ctx context.Context,
	m *travel.Matrix,
	p Params,
	solve func(ctx context.Context, m *travel.Matrix, p Params) (*Solution, error),
) (*Solution, error) {
	sub := p
	sub.MinimizeCrews = false
	for k := 1; k < p.Crews; k++ {
		sub.Crews = k
		sol, err := solve(ctx, m, sub)
		if err != nil {
			return nil, err
		}
		if len(sol.Unassigned) == 0 {
			// Pad to the requested roster so team indexing stays stable.
			for len(sol.Routes) < p.Crews {
				sol.Routes = append(sol.Routes, Route{})
			}
			return sol, nil
		}
	}
	sub.Crews = p.Crews
	return solve(ctx, m, sub)
}

// sortedSiteIndexes returns 0..n-1 ordered by site id for deterministic
// iteration regardless of input order.
func sortedSiteIndexes(m *travel.Matrix) []int {
	idx := make([]int, m.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return m.Sites[idx[a]].ID < m.Sites[idx[b]].ID
	})
	return idx
}
