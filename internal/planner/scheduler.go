// Package planner turns a PlanRequest into dated crew routes. It layers the
// single-day solver into three strategies: the fixed-crew multi-day loop,
// the sequential cluster planner, and the fixed-calendar planner.
package planner

import (
	"context"
	"fmt"
	"log"
	"sort"

	"field-route-planner/internal/config"
	"field-route-planner/internal/geo"
	"field-route-planner/internal/models"
	"field-route-planner/internal/solver"
	"field-route-planner/internal/travel"
)

// Planner plans site visit schedules against a travel-time oracle.
type Planner struct {
	est travel.Estimator
	cfg config.Config
}

// New creates a Planner using est for travel times.
func New(est travel.Estimator, cfg config.Config) *Planner {
	return &Planner{est: est, cfg: cfg}
}

// teamDayRec carries a TeamDay with its numeric sort keys. Labels are
// strings in the output, so ordering is kept numeric until emission.
type teamDayRec struct {
	td      models.TeamDay
	cluster int // -1 when unclustered
	crew    int
}

// emitTeamDays orders records by date, cluster, then crew number and strips
// the sort keys.
func emitTeamDays(recs []teamDayRec) []models.TeamDay {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].td.Date.Equal(recs[j].td.Date) {
			return recs[i].td.Date.Before(recs[j].td.Date)
		}
		if recs[i].cluster != recs[j].cluster {
			return recs[i].cluster < recs[j].cluster
		}
		return recs[i].crew < recs[j].crew
	})
	out := make([]models.TeamDay, len(recs))
	for i, r := range recs {
		out[i] = r.td
	}
	return out
}

// scheduleParams configures one multi-day loop run.
type scheduleParams struct {
	crews        int
	fastMode     bool
	minimize     bool
	endDate      models.Date // zero means open-ended
	allowPartial bool        // stop with leftovers instead of failing
	clusterID    *int        // tag emitted team days with this cluster
	label        func(crew int) string
}

// scheduleOutcome is the raw result of the multi-day loop.
type scheduleOutcome struct {
	recs      []teamDayRec
	leftovers []models.Site // sites that never got a slot
	lastDate  models.Date
	daysUsed  int
}

// runSchedule is the multi-day fixed-crew loop shared by every planning
// strategy. Each work day it picks the densest batch of remaining sites,
// solves a single day for sp.crews crews, and removes whatever got placed.
// Five consecutive days with zero placements means the leftovers will never
// fit, and the loop fails or, with allowPartial, stops.
func (p *Planner) runSchedule(ctx context.Context, req *models.PlanRequest, sp scheduleParams) (*scheduleOutcome, error) {
	remaining := append([]models.Site(nil), req.Sites...)
	budget := req.EffectiveBudgetMinutes()
	holidays := req.HolidaySet()

	start := req.StartDate
	if start.IsZero() {
		start = models.Today()
	}
	day := nextWorkDay(start, holidays)

	label := sp.label
	if label == nil {
		label = crewLabel
	}
	out := &scheduleOutcome{lastDate: day}
	stall := 0
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, &solver.ErrSolver{Reason: "planning canceled", Err: err}
		}
		if !sp.endDate.IsZero() && day.After(sp.endDate) {
			// Calendar exhausted; caller decides whether leftovers are fatal.
			out.leftovers = append(out.leftovers, remaining...)
			return out, nil
		}
		if out.daysUsed >= p.cfg.MaxPlanningDays {
			if sp.allowPartial {
				out.leftovers = append(out.leftovers, remaining...)
				return out, nil
			}
			return nil, &ErrProgressFailure{
				SitesRemaining:  len(remaining),
				ConsecutiveDays: out.daysUsed,
				Crews:           sp.crews,
				Recommendations: append(
					[]string{fmt.Sprintf("schedule exceeds %d days", p.cfg.MaxPlanningDays)},
					relaxations(req)...),
			}
		}

		batch := dailyBatch(remaining, sp.crews*req.MaxSitesPerCrewPerDay)
		m, err := travel.BuildMatrix(ctx, p.est, batch)
		if err != nil {
			return nil, &solver.ErrSolver{Reason: "building travel matrix", Err: err}
		}
		sol, err := solver.New(sp.fastMode).Solve(ctx, m, solver.Params{
			Crews:         sp.crews,
			BudgetMinutes: budget,
			MaxStops:      req.MaxSitesPerCrewPerDay,
			MinimizeCrews: sp.minimize,
			TimeBudget:    p.cfg.SolverTimeBudget,
		})
		if err != nil {
			return nil, err
		}

		scheduled := sol.ScheduledCount()
		if scheduled == 0 {
			stall++
			if stall >= p.cfg.StallThreshold {
				// Sites whose service time alone exceeds the route cap can
				// never be placed; purge them before deciding whether the
				// rest is genuinely stuck.
				var infeasible []models.Site
				remaining, infeasible = dropInfeasible(remaining, req.MaxRouteMinutes)
				if len(infeasible) > 0 {
					log.Printf("[PLANNER] Dropped %d sites whose service time alone exceeds %d minutes",
						len(infeasible), req.MaxRouteMinutes)
					out.leftovers = append(out.leftovers, infeasible...)
				}
				if len(remaining) == 0 {
					return out, nil
				}
				if sp.allowPartial {
					out.leftovers = append(out.leftovers, remaining...)
					return out, nil
				}
				return nil, &ErrProgressFailure{
					SitesRemaining:      len(remaining),
					SitesScheduledToday: scheduled,
					Unassigned:          len(sol.Unassigned),
					ConsecutiveDays:     stall,
					Crews:               sp.crews,
					Recommendations:     relaxations(req),
				}
			}
		} else {
			stall = 0
			out.recs = append(out.recs, solutionRecs(m, sol, day, sp.clusterID, label)...)
			remaining = removeScheduled(remaining, m, sol)
			out.lastDate = day
		}

		out.daysUsed++
		day = nextWorkDay(day.AddDays(1), holidays)
	}
	return out, nil
}

// dailyBatch picks up to max sites nearest the centroid of what remains, so
// each day's solve works a geographically dense set.
func dailyBatch(remaining []models.Site, max int) []models.Site {
	if len(remaining) <= max {
		return remaining
	}
	center := geo.Centroid(travel.SitePoints(remaining))
	idx := make([]int, len(remaining))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		da := geo.DistanceMiles(center, geo.Point{Lat: remaining[idx[a]].Lat, Lon: remaining[idx[a]].Lon})
		db := geo.DistanceMiles(center, geo.Point{Lat: remaining[idx[b]].Lat, Lon: remaining[idx[b]].Lon})
		if da != db {
			return da < db
		}
		return remaining[idx[a]].ID < remaining[idx[b]].ID
	})
	batch := make([]models.Site, 0, max)
	for _, i := range idx[:max] {
		batch = append(batch, remaining[i])
	}
	return batch
}

// crewLabel is the fixed-crew team naming scheme.
func crewLabel(crew int) string {
	return fmt.Sprintf("T%d", crew)
}

// solutionRecs converts a day's solver output to team-day records. Crew
// numbers are 1-based route positions; empty routes produce nothing.
func solutionRecs(m *travel.Matrix, sol *solver.Solution, day models.Date, clusterID *int, label func(int) string) []teamDayRec {
	clusterKey := -1
	if clusterID != nil {
		clusterKey = *clusterID
	}
	recs := make([]teamDayRec, 0, len(sol.Routes))
	for ri := range sol.Routes {
		r := &sol.Routes[ri]
		if len(r.Seq) == 0 {
			continue
		}
		siteIDs := make([]string, len(r.Seq))
		for k, idx := range r.Seq {
			siteIDs[k] = m.Sites[idx].ID
		}
		recs = append(recs, teamDayRec{
			td: models.TeamDay{
				TeamID:         label(ri + 1),
				Date:           day,
				ClusterID:      clusterID,
				SiteIDs:        siteIDs,
				ServiceMinutes: r.ServiceMinutes,
				RouteMinutes:   r.RouteMinutes(),
			},
			cluster: clusterKey,
			crew:    ri + 1,
		})
	}
	return recs
}

// removeScheduled drops the sites the solution placed from the remaining set.
func removeScheduled(remaining []models.Site, m *travel.Matrix, sol *solver.Solution) []models.Site {
	placed := make(map[string]struct{})
	for ri := range sol.Routes {
		for _, idx := range sol.Routes[ri].Seq {
			placed[m.Sites[idx].ID] = struct{}{}
		}
	}
	out := remaining[:0]
	for _, s := range remaining {
		if _, ok := placed[s.ID]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// dropInfeasible splits off sites whose service time alone exceeds the budget.
func dropInfeasible(remaining []models.Site, budget int) (kept, dropped []models.Site) {
	kept = remaining[:0]
	for _, s := range remaining {
		if s.ServiceMinutes > budget {
			dropped = append(dropped, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, dropped
}

// scheduleFixedCrews is the fixed-crew entry point. With minimize_crews the
// caller accepts a partial plan over a progress failure.
func (p *Planner) scheduleFixedCrews(ctx context.Context, req *models.PlanRequest) (*models.PlanResult, error) {
	out, err := p.runSchedule(ctx, req, scheduleParams{
		crews:        req.TeamConfig.Teams,
		fastMode:     req.FastMode,
		minimize:     req.MinimizeCrews,
		allowPartial: req.MinimizeCrews,
	})
	if err != nil {
		return nil, err
	}
	return buildResult(out.recs, len(out.leftovers)), nil
}

// buildResult assembles the final PlanResult with date bounds derived from
// the emitted team days.
func buildResult(recs []teamDayRec, unassigned int) *models.PlanResult {
	teamDays := emitTeamDays(recs)
	res := &models.PlanResult{TeamDays: teamDays, Unassigned: unassigned}
	if len(teamDays) > 0 {
		res.StartDate = teamDays[0].Date
		res.EndDate = teamDays[len(teamDays)-1].Date
	}
	return res
}
