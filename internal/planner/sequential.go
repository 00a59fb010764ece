package planner

import (
	"context"
	"fmt"
	"log"
	"sort"

	"field-route-planner/internal/cluster"
	"field-route-planner/internal/models"
	"field-route-planner/internal/solver"
	"field-route-planner/internal/travel"
)

// scheduleSequentialClusters is the cluster-aware fixed-crew planner. Crews
// stay inside one cluster per day; a crew whose cluster runs dry moves to
// the cluster with the most sites left. Team labels carry both the cluster
// and the crew, e.g. "C2-T3".
func (p *Planner) scheduleSequentialClusters(ctx context.Context, req *models.PlanRequest) (*models.PlanResult, error) {
	// Copy each group so in-place removal never touches the request.
	remaining := make(map[int][]models.Site)
	for cid, members := range cluster.GroupByCluster(req.Sites) {
		remaining[cid] = append([]models.Site(nil), members...)
	}
	budget := req.EffectiveBudgetMinutes()
	holidays := req.HolidaySet()
	totalCrews := req.TeamConfig.Teams

	start := req.StartDate
	if start.IsZero() {
		start = models.Today()
	}
	day := nextWorkDay(start, holidays)

	crewOf := make(map[int]int, totalCrews)
	var recs []teamDayRec
	var leftovers []models.Site
	stall, daysUsed := 0, 0

	for countRemaining(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, &solver.ErrSolver{Reason: "planning canceled", Err: err}
		}
		if daysUsed >= p.cfg.MaxPlanningDays {
			return nil, &ErrProgressFailure{
				SitesRemaining:  countRemaining(remaining),
				ConsecutiveDays: daysUsed,
				Crews:           totalCrews,
				Recommendations: append(
					[]string{fmt.Sprintf("schedule exceeds %d days", p.cfg.MaxPlanningDays)},
					relaxations(req)...),
			}
		}

		assignFreeCrews(crewOf, remaining, totalCrews)

		crewsByCluster := make(map[int][]int)
		for crew, cid := range crewOf {
			crewsByCluster[cid] = append(crewsByCluster[cid], crew)
		}
		clusterIDs := make([]int, 0, len(crewsByCluster))
		for cid := range crewsByCluster {
			clusterIDs = append(clusterIDs, cid)
		}
		sort.Ints(clusterIDs)

		scheduledToday := 0
		for _, cid := range clusterIDs {
			rem := remaining[cid]
			if len(rem) == 0 {
				continue
			}
			crews := crewsByCluster[cid]
			sort.Ints(crews)

			batch := dailyBatch(rem, len(crews)*req.MaxSitesPerCrewPerDay)
			m, err := travel.BuildMatrix(ctx, p.est, batch)
			if err != nil {
				return nil, &solver.ErrSolver{Reason: "building travel matrix", Err: err}
			}
			sol, err := solver.New(req.FastMode).Solve(ctx, m, solver.Params{
				Crews:         len(crews),
				BudgetMinutes: budget,
				MaxStops:      req.MaxSitesPerCrewPerDay,
				TimeBudget:    p.cfg.SolverTimeBudget,
			})
			if err != nil {
				return nil, err
			}

			recs = append(recs, clusterRecs(m, sol, day, cid, crews)...)
			remaining[cid] = removeScheduled(rem, m, sol)
			scheduledToday += sol.ScheduledCount()
		}

		if scheduledToday == 0 {
			stall++
			if stall >= p.cfg.StallThreshold {
				dropped := 0
				for cid, rem := range remaining {
					kept, infeasible := dropInfeasible(rem, req.MaxRouteMinutes)
					remaining[cid] = kept
					leftovers = append(leftovers, infeasible...)
					dropped += len(infeasible)
				}
				if dropped > 0 {
					log.Printf("[PLANNER] Dropped %d sites whose service time alone exceeds %d minutes",
						dropped, req.MaxRouteMinutes)
				}
				if countRemaining(remaining) == 0 {
					break
				}
				if req.MinimizeCrews {
					for _, rem := range remaining {
						leftovers = append(leftovers, rem...)
					}
					break
				}
				return nil, &ErrProgressFailure{
					SitesRemaining:  countRemaining(remaining),
					ConsecutiveDays: stall,
					Crews:           totalCrews,
					Recommendations: relaxations(req),
				}
			}
		} else {
			stall = 0
		}

		daysUsed++
		day = nextWorkDay(day.AddDays(1), holidays)
	}

	return buildResult(recs, len(leftovers)), nil
}

// assignFreeCrews points every idle crew at a cluster. Clusters nobody is
// working get priority by remaining size; once each live cluster has a crew,
// further idle crews double up on the largest one.
func assignFreeCrews(crewOf map[int]int, remaining map[int][]models.Site, totalCrews int) {
	sizes := make(map[int]int)
	for cid, rem := range remaining {
		if len(rem) > 0 {
			sizes[cid] = len(rem)
		}
	}

	held := make(map[int]bool)
	for crew := 1; crew <= totalCrews; crew++ {
		if cid, ok := crewOf[crew]; ok && len(remaining[cid]) > 0 {
			held[cid] = true
		}
	}

	byPriority := cluster.SizesDescending(sizes)
	for crew := 1; crew <= totalCrews; crew++ {
		if cid, ok := crewOf[crew]; ok && len(remaining[cid]) > 0 {
			continue
		}
		delete(crewOf, crew)

		pick := -1
		for _, cid := range byPriority {
			if !held[cid] {
				pick = cid
				break
			}
		}
		if pick < 0 && len(byPriority) > 0 {
			pick = byPriority[0]
		}
		if pick >= 0 {
			crewOf[crew] = pick
			held[pick] = true
		}
	}
}

// clusterRecs converts one cluster's day solution. Route i belongs to the
// i-th crew working the cluster, labeled C<cluster>-T<crew> (1-based).
func clusterRecs(m *travel.Matrix, sol *solver.Solution, day models.Date, cid int, crews []int) []teamDayRec {
	clusterID := cid
	recs := make([]teamDayRec, 0, len(crews))
	for ri := range sol.Routes {
		r := &sol.Routes[ri]
		if len(r.Seq) == 0 || ri >= len(crews) {
			continue
		}
		siteIDs := make([]string, len(r.Seq))
		for k, idx := range r.Seq {
			siteIDs[k] = m.Sites[idx].ID
		}
		recs = append(recs, teamDayRec{
			td: models.TeamDay{
				TeamID:         fmt.Sprintf("C%d-T%d", cid+1, crews[ri]),
				Date:           day,
				ClusterID:      &clusterID,
				SiteIDs:        siteIDs,
				ServiceMinutes: r.ServiceMinutes,
				RouteMinutes:   r.RouteMinutes(),
			},
			cluster: cid,
			crew:    crews[ri],
		})
	}
	return recs
}

func countRemaining(remaining map[int][]models.Site) int {
	n := 0
	for _, rem := range remaining {
		n += len(rem)
	}
	return n
}
