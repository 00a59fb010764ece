package solver

import (
	"context"
	"log"
	"sort"
	"time"

	"field-route-planner/internal/travel"
)

// optimizingSolver is the full-mode solver. It seeds from the greedy
// solution, then runs regret-2 reinsertion of unassigned sites plus
// relocate/swap/2-opt local search until convergence or the wall-clock
// budget runs out. Seeding from greedy guarantees the result is never worse
// than fast mode on the same input.
type optimizingSolver struct{}

// NewOptimizingSolver creates the full single-day solver.
func NewOptimizingSolver() SingleDaySolver {
	return &optimizingSolver{}
}

func (o *optimizingSolver) Solve(ctx context.Context, m *travel.Matrix, p Params) (*Solution, error) {
	if p.MinimizeCrews {
		return solveMinimizeCrews(ctx, m, p, o.solve)
	}
	return o.solve(ctx, m, p)
}

func (o *optimizingSolver) solve(ctx context.Context, m *travel.Matrix, p Params) (*Solution, error) {
	start := time.Now()
	seed, err := (&greedySolver{}).solve(ctx, m, p)
	if err != nil {
		return nil, err
	}

	budget := p.TimeBudget
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	deadline := start.Add(budget)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	cur := cloneSolution(seed)
	best := cloneSolution(seed)

	for pass := 0; ; pass++ {
		if time.Now().After(deadline) {
			break
		}
		improved := o.insertUnassigned(m, cur, p)
		improved = o.relocatePass(m, cur, p, deadline) || improved
		improved = o.swapPass(m, cur, p, deadline) || improved
		for i := range cur.Routes {
			if len(cur.Routes[i].Seq) > 2 {
				before := cur.Routes[i].TravelMinutes
				cur.Routes[i].TravelMinutes = twoOpt(m, cur.Routes[i].Seq)
				if cur.Routes[i].TravelMinutes < before {
					improved = true
				}
			}
		}
		if better(cur, best) {
			best = cloneSolution(cur)
		}
		if !improved {
			break
		}
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		log.Printf("[TIMING] Full solve: %v (sites=%d crews=%d unassigned=%d)",
			elapsed, m.Len(), p.Crews, len(best.Unassigned))
	}
	return best, nil
}

// insertUnassigned places loose sites by regret-2: at every step the site
// whose second-cheapest insertion exceeds its cheapest by the most goes
// first, so sites with only one good home claim it before it fills up.
func (o *optimizingSolver) insertUnassigned(m *travel.Matrix, sol *Solution, p Params) bool {
	improved := false
	for len(sol.Unassigned) > 0 {
		type candidate struct {
			poolIdx, route, pos, delta, regret int
		}
		bestCand := candidate{poolIdx: -1}
		for pi, site := range sol.Unassigned {
			firstDelta, secondDelta := -1, -1
			firstRoute, firstPos := -1, 0
			for ri := range sol.Routes {
				pos, delta, ok := bestInsertion(m, &sol.Routes[ri], site, p.BudgetMinutes, p.MaxStops)
				if !ok {
					continue
				}
				if firstDelta < 0 || delta < firstDelta {
					secondDelta = firstDelta
					firstDelta, firstRoute, firstPos = delta, ri, pos
				} else if secondDelta < 0 || delta < secondDelta {
					secondDelta = delta
				}
			}
			if firstRoute < 0 {
				continue
			}
			regret := 0
			if secondDelta >= 0 {
				regret = secondDelta - firstDelta
			}
			if bestCand.poolIdx < 0 || regret > bestCand.regret ||
				(regret == bestCand.regret && m.Sites[site].ID < m.Sites[sol.Unassigned[bestCand.poolIdx]].ID) {
				bestCand = candidate{poolIdx: pi, route: firstRoute, pos: firstPos, delta: firstDelta, regret: regret}
			}
		}
		if bestCand.poolIdx < 0 {
			break
		}
		site := sol.Unassigned[bestCand.poolIdx]
		sol.Unassigned = append(sol.Unassigned[:bestCand.poolIdx], sol.Unassigned[bestCand.poolIdx+1:]...)
		insertAt(m, &sol.Routes[bestCand.route], bestCand.pos, site, bestCand.delta)
		improved = true
	}
	return improved
}

// relocatePass moves single stops between routes when doing so cuts total
// travel and keeps both routes feasible.
func (o *optimizingSolver) relocatePass(m *travel.Matrix, sol *Solution, p Params, deadline time.Time) bool {
	improved := false
	for a := range sol.Routes {
		if time.Now().After(deadline) {
			return improved
		}
		for pos := 0; pos < len(sol.Routes[a].Seq); {
			src := &sol.Routes[a]
			site := src.Seq[pos]
			beforeTravel := src.TravelMinutes
			removed := *src
			removed.Seq = append([]int(nil), src.Seq...)
			site = removeAt(m, &removed, pos)
			removalGain := beforeTravel - removed.TravelMinutes

			moved := false
			for b := range sol.Routes {
				if b == a {
					continue
				}
				insPos, delta, ok := bestInsertion(m, &sol.Routes[b], site, p.BudgetMinutes, p.MaxStops)
				if !ok || delta >= removalGain {
					continue
				}
				*src = removed
				insertAt(m, &sol.Routes[b], insPos, site, delta)
				improved, moved = true, true
				break
			}
			if !moved {
				pos++
			}
		}
	}
	return improved
}

// swapPass exchanges stop pairs between routes when the exchange cuts total
// travel and keeps both routes feasible.
func (o *optimizingSolver) swapPass(m *travel.Matrix, sol *Solution, p Params, deadline time.Time) bool {
	improved := false
	for a := 0; a < len(sol.Routes); a++ {
		for b := a + 1; b < len(sol.Routes); b++ {
			if time.Now().After(deadline) {
				return improved
			}
			if trySwap(m, sol, a, b, p) {
				improved = true
			}
		}
	}
	return improved
}

// trySwap attempts the best single-pair exchange between routes a and b.
func trySwap(m *travel.Matrix, sol *Solution, a, b int, p Params) bool {
	ra, rb := &sol.Routes[a], &sol.Routes[b]
	baseTravel := ra.TravelMinutes + rb.TravelMinutes

	for ia := 0; ia < len(ra.Seq); ia++ {
		for ib := 0; ib < len(rb.Seq); ib++ {
			newA := cloneRoute(ra)
			newB := cloneRoute(rb)
			siteA := removeAt(m, &newA, ia)
			siteB := removeAt(m, &newB, ib)

			posA, deltaA, okA := bestInsertion(m, &newA, siteB, p.BudgetMinutes, p.MaxStops)
			if !okA {
				continue
			}
			insertAt(m, &newA, posA, siteB, deltaA)
			posB, deltaB, okB := bestInsertion(m, &newB, siteA, p.BudgetMinutes, p.MaxStops)
			if !okB {
				continue
			}
			insertAt(m, &newB, posB, siteA, deltaB)

			if newA.TravelMinutes+newB.TravelMinutes < baseTravel {
				*ra = newA
				*rb = newB
				return true
			}
		}
	}
	return false
}

func cloneRoute(r *Route) Route {
	return Route{
		Seq:            append([]int(nil), r.Seq...),
		ServiceMinutes: r.ServiceMinutes,
		TravelMinutes:  r.TravelMinutes,
	}
}

func cloneSolution(s *Solution) *Solution {
	out := &Solution{
		Routes:     make([]Route, len(s.Routes)),
		Unassigned: append([]int(nil), s.Unassigned...),
	}
	for i := range s.Routes {
		out.Routes[i] = cloneRoute(&s.Routes[i])
	}
	sort.Ints(out.Unassigned)
	return out
}
