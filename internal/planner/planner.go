package planner

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"field-route-planner/internal/models"
)

// Plan validates the request and dispatches to the right strategy:
//
//	end_date + use_clusters -> per-cluster calendar plans in parallel
//	end_date                -> fixed-calendar planner
//	use_clusters            -> sequential cluster planner
//	otherwise               -> fixed-crew multi-day loop
//
// A request with no start date begins today, so a site list that fits one
// day comes back as a single-day plan.
func (p *Planner) Plan(ctx context.Context, req *models.PlanRequest) (*models.PlanResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	planID := uuid.NewString()
	start := time.Now()
	log.Printf("[PLANNER] Plan %s: %d sites, %d crews, calendar=%v clusters=%v fast=%v",
		planID, len(req.Sites), req.TeamConfig.Teams, req.IsCalendarMode(), req.UseClusters, req.FastMode)

	var (
		res *models.PlanResult
		err error
	)
	switch {
	case req.IsCalendarMode() && req.UseClusters:
		res, err = p.planCalendarClusters(ctx, req)
	case req.IsCalendarMode():
		res, err = p.planFixedCalendar(ctx, req)
	case req.UseClusters:
		res, err = p.scheduleSequentialClusters(ctx, req)
	default:
		res, err = p.scheduleFixedCrews(ctx, req)
	}
	if err != nil {
		log.Printf("[PLANNER] Plan %s failed after %v: %v", planID, time.Since(start), err)
		return nil, err
	}

	log.Printf("[PLANNER] Plan %s done in %v: %d team days, %d sites scheduled, %d unassigned",
		planID, time.Since(start), len(res.TeamDays), res.ScheduledSiteCount(), res.Unassigned)
	return res, nil
}
