package solver

import (
	"context"
	"log"
	"sort"

	"field-route-planner/internal/travel"
)

// greedySolver is the fast-mode solver: Clarke-Wright style savings merges
// around a hub site, a per-route 2-opt pass, and reinsertion of anything
// still loose. Bit-deterministic for a given input.
type greedySolver struct{}

// NewGreedySolver creates the fast single-day solver.
func NewGreedySolver() SingleDaySolver {
	return &greedySolver{}
}

func (g *greedySolver) Solve(ctx context.Context, m *travel.Matrix, p Params) (*Solution, error) {
	if p.MinimizeCrews {
		return solveMinimizeCrews(ctx, m, p, g.solve)
	}
	return g.solve(ctx, m, p)
}

func (g *greedySolver) solve(_ context.Context, m *travel.Matrix, p Params) (*Solution, error) {
	n := m.Len()
	if n == 0 {
		return &Solution{Routes: make([]Route, p.Crews)}, nil
	}

	// Seed: one route per schedulable site. Sites whose service time alone
	// busts the budget go straight to unassigned.
	routes := make([]*Route, 0, n)
	routeOf := make(map[int]*Route, n)
	var unassigned []int
	for _, i := range sortedSiteIndexes(m) {
		if m.Service(i) > p.BudgetMinutes {
			unassigned = append(unassigned, i)
			continue
		}
		r := &Route{Seq: []int{i}, ServiceMinutes: m.Service(i)}
		routes = append(routes, r)
		routeOf[i] = r
	}

	// Savings relative to the hub: the site minimizing total travel to all
	// others stands in for the virtual depot of classic Clarke-Wright.
	hub := hubSite(m)
	type saving struct {
		i, j  int
		value int
	}
	savings := make([]saving, 0, n*(n-1))
	for i := range routeOf {
		for j := range routeOf {
			if i == j {
				continue
			}
			savings = append(savings, saving{
				i:     i,
				j:     j,
				value: m.Travel(i, hub) + m.Travel(hub, j) - m.Travel(i, j),
			})
		}
	}
	sort.Slice(savings, func(a, b int) bool {
		if savings[a].value != savings[b].value {
			return savings[a].value > savings[b].value
		}
		if savings[a].i != savings[b].i {
			return m.Sites[savings[a].i].ID < m.Sites[savings[b].i].ID
		}
		return m.Sites[savings[a].j].ID < m.Sites[savings[b].j].ID
	})

	// Merge in savings order: tail of one route onto the head of another,
	// while the combined route still fits budget and stop cap.
	for _, s := range savings {
		ri, rj := routeOf[s.i], routeOf[s.j]
		if ri == nil || rj == nil || ri == rj {
			continue
		}
		if ri.Seq[len(ri.Seq)-1] != s.i || rj.Seq[0] != s.j {
			continue
		}
		if len(ri.Seq)+len(rj.Seq) > p.MaxStops {
			continue
		}
		service := ri.ServiceMinutes + rj.ServiceMinutes
		trav := ri.TravelMinutes + rj.TravelMinutes + m.Travel(s.i, s.j)
		if service+trav > p.BudgetMinutes {
			continue
		}
		ri.Seq = append(ri.Seq, rj.Seq...)
		ri.ServiceMinutes = service
		ri.TravelMinutes = trav
		for _, idx := range rj.Seq {
			routeOf[idx] = ri
		}
		routes = removeRoute(routes, rj)
	}

	// More routes than crews: keep the routes covering the most work and
	// dissolve the rest into the insertion pool.
	sort.SliceStable(routes, func(a, b int) bool {
		if len(routes[a].Seq) != len(routes[b].Seq) {
			return len(routes[a].Seq) > len(routes[b].Seq)
		}
		if routes[a].TravelMinutes != routes[b].TravelMinutes {
			return routes[a].TravelMinutes < routes[b].TravelMinutes
		}
		return m.Sites[routes[a].Seq[0]].ID < m.Sites[routes[b].Seq[0]].ID
	})
	var pool []int
	if len(routes) > p.Crews {
		for _, r := range routes[p.Crews:] {
			pool = append(pool, r.Seq...)
		}
		routes = routes[:p.Crews]
	}

	// Spare crews open fresh routes before anything is declared loose.
	sort.Slice(pool, func(a, b int) bool {
		return m.Sites[pool[a]].ID < m.Sites[pool[b]].ID
	})
	for len(routes) < p.Crews && len(pool) > 0 {
		site := pool[0]
		pool = pool[1:]
		routes = append(routes, &Route{Seq: []int{site}, ServiceMinutes: m.Service(site)})
	}

	pool = g.insertPool(m, routes, pool, p)

	// 2-opt each route, then one more insertion pass: shorter routes may
	// have freed enough budget for a leftover.
	for _, r := range routes {
		if len(r.Seq) > 2 {
			r.TravelMinutes = twoOpt(m, r.Seq)
		}
	}
	pool = g.insertPool(m, routes, pool, p)

	unassigned = append(unassigned, pool...)
	sort.Slice(unassigned, func(a, b int) bool {
		return m.Sites[unassigned[a]].ID < m.Sites[unassigned[b]].ID
	})

	sol := &Solution{Routes: make([]Route, 0, p.Crews), Unassigned: unassigned}
	for _, r := range routes {
		sol.Routes = append(sol.Routes, *r)
	}
	for len(sol.Routes) < p.Crews {
		sol.Routes = append(sol.Routes, Route{})
	}

	if len(unassigned) > 0 {
		log.Printf("[SOLVER] Greedy left %d of %d sites unassigned (crews=%d budget=%d cap=%d)",
			len(unassigned), n, p.Crews, p.BudgetMinutes, p.MaxStops)
	}
	return sol, nil
}

// insertPool places pool sites into routes by cheapest feasible insertion,
// in site-id order, and returns the sites that did not fit.
func (g *greedySolver) insertPool(m *travel.Matrix, routes []*Route, pool []int, p Params) []int {
	sort.Slice(pool, func(a, b int) bool {
		return m.Sites[pool[a]].ID < m.Sites[pool[b]].ID
	})
	var leftovers []int
	for _, site := range pool {
		bestRoute := -1
		bestPos, bestDelta := 0, 0
		for ri, r := range routes {
			pos, delta, ok := bestInsertion(m, r, site, p.BudgetMinutes, p.MaxStops)
			if !ok {
				continue
			}
			if bestRoute < 0 || delta < bestDelta {
				bestRoute, bestPos, bestDelta = ri, pos, delta
			}
		}
		if bestRoute < 0 {
			leftovers = append(leftovers, site)
			continue
		}
		insertAt(m, routes[bestRoute], bestPos, site, bestDelta)
	}
	return leftovers
}

// hubSite returns the index minimizing total travel to all other sites,
// ties broken by site id through the sorted iteration order.
func hubSite(m *travel.Matrix) int {
	best, bestSum := 0, -1
	for _, i := range sortedSiteIndexes(m) {
		sum := 0
		for j := 0; j < m.Len(); j++ {
			sum += m.Travel(i, j)
		}
		if bestSum < 0 || sum < bestSum {
			best, bestSum = i, sum
		}
	}
	return best
}

func removeRoute(routes []*Route, target *Route) []*Route {
	for i, r := range routes {
		if r == target {
			return append(routes[:i], routes[i+1:]...)
		}
	}
	return routes
}
