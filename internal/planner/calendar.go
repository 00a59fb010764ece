package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"field-route-planner/internal/cluster"
	"field-route-planner/internal/models"
)

// planFixedCalendar plans against a hard end date, sizing the crew count
// itself. It estimates a starting crew count from total workload, probes
// feasibility with the fast solver, then commits the first count whose plan
// lands inside the window. The crew buffer bounds how far above the estimate
// it will go.
func (p *Planner) planFixedCalendar(ctx context.Context, req *models.PlanRequest) (*models.PlanResult, error) {
	recs, err := p.calendarRecs(ctx, req, nil, nil)
	if err != nil {
		return nil, err
	}
	return buildResult(recs, 0), nil
}

// calendarRecs is the fixed-calendar core, parameterized with cluster
// tagging so the clustered variant can reuse it per cluster.
func (p *Planner) calendarRecs(ctx context.Context, req *models.PlanRequest, clusterID *int, label func(int) string) ([]teamDayRec, error) {
	holidays := req.HolidaySet()
	workDays := countWorkDays(req.StartDate, req.EndDate, holidays)
	if workDays == 0 {
		return nil, &models.ErrInvalidRequest{
			Reason:          "no work days between start_date and end_date",
			Recommendations: []string{"extend the date range", "remove holidays from the window"},
		}
	}

	k0 := p.estimateCrews(req, workDays)
	kMax := k0 + p.cfg.CrewBuffer

	var lastCause *ErrProgressFailure
	for k := k0; k <= kMax; k++ {
		// Cheap feasibility probe first, so the full solver only runs on
		// crew counts that can work at all.
		probe, ok, err := p.tryCalendar(ctx, req, k, true, clusterID, label, &lastCause)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if req.FastMode {
			log.Printf("[PLANNER] Calendar plan fits with %d crews over %d work days", k, workDays)
			return probe.recs, nil
		}
		full, ok, err := p.tryCalendar(ctx, req, k, false, clusterID, label, &lastCause)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		log.Printf("[PLANNER] Calendar plan fits with %d crews over %d work days", k, workDays)
		return full.recs, nil
	}

	return nil, &ErrCalendarInfeasible{
		CrewsTriedFrom: k0,
		CrewsTriedTo:   kMax,
		WorkDays:       workDays,
		Cause:          lastCause,
		Recommendations: append(
			[]string{"extend end_date to allow more work days"},
			relaxations(req)...),
	}
}

// tryCalendar runs one bounded multi-day schedule with k crews. A progress
// failure counts as "this k does not work", not as a hard error.
func (p *Planner) tryCalendar(
	ctx context.Context,
	req *models.PlanRequest,
	k int,
	fast bool,
	clusterID *int,
	label func(int) string,
	lastCause **ErrProgressFailure,
) (*scheduleOutcome, bool, error) {
	out, err := p.runSchedule(ctx, req, scheduleParams{
		crews:     k,
		fastMode:  fast,
		endDate:   req.EndDate,
		clusterID: clusterID,
		label:     label,
	})
	if err != nil {
		var pf *ErrProgressFailure
		if errors.As(err, &pf) {
			*lastCause = pf
			return nil, false, nil
		}
		return nil, false, err
	}
	return out, len(out.leftovers) == 0, nil
}

// estimateCrews sizes the starting crew count from total workload over the
// available work days, floored by the per-day stop capacity.
func (p *Planner) estimateCrews(req *models.PlanRequest, workDays int) int {
	totalService := 0
	for _, s := range req.Sites {
		totalService += s.ServiceMinutes
	}
	estTravel := len(req.Sites) * p.cfg.EstTravelMinutesPerSite
	perCrew := workDays * req.EffectiveBudgetMinutes()
	if perCrew <= 0 {
		return 1
	}

	k := ceilDiv(totalService+estTravel, perCrew)
	if byCap := ceilDiv(len(req.Sites), workDays*req.MaxSitesPerCrewPerDay); byCap > k {
		k = byCap
	}
	if k < 1 {
		k = 1
	}
	return k
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// planCalendarClusters plans each cluster as an independent fixed-calendar
// problem over the same date window, in parallel. Crew counts are sized per
// cluster and labels carry the cluster, so "C2-T1" and "C3-T1" are distinct
// crews.
func (p *Planner) planCalendarClusters(ctx context.Context, req *models.PlanRequest) (*models.PlanResult, error) {
	byCluster := cluster.GroupByCluster(req.Sites)
	ids := make([]int, 0, len(byCluster))
	for cid := range byCluster {
		ids = append(ids, cid)
	}
	sort.Ints(ids)

	g, gctx := errgroup.WithContext(ctx)
	recsPer := make([][]teamDayRec, len(ids))
	for i, cid := range ids {
		i, cid := i, cid
		sub := *req
		sub.Sites = byCluster[cid]
		g.Go(func() error {
			clusterID := cid
			label := func(crew int) string { return fmt.Sprintf("C%d-T%d", cid+1, crew) }
			recs, err := p.calendarRecs(gctx, &sub, &clusterID, label)
			if err != nil {
				return fmt.Errorf("cluster %d: %w", cid, err)
			}
			recsPer[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var recs []teamDayRec
	for _, r := range recsPer {
		recs = append(recs, r...)
	}
	return buildResult(recs, 0), nil
}
