package planner

import (
	"fmt"

	"field-route-planner/internal/models"
)

// ErrProgressFailure is raised by the multi-day loop when no site has been
// scheduled for StallThreshold consecutive work days: the constraints are
// too tight to ever place the leftovers.
type ErrProgressFailure struct {
	SitesRemaining      int
	SitesScheduledToday int
	Unassigned          int
	ConsecutiveDays     int
	Crews               int
	Recommendations     []string
}

func (e *ErrProgressFailure) Error() string {
	return fmt.Sprintf(
		"no progress possible with %d crews after %d consecutive days (sites remaining: %d, scheduled today: %d, unassigned: %d)",
		e.Crews, e.ConsecutiveDays, e.SitesRemaining, e.SitesScheduledToday, e.Unassigned)
}

// ErrCalendarInfeasible is raised when the calendar planner has exhausted
// its crew-buffer retries. Cause carries the last progress failure.
type ErrCalendarInfeasible struct {
	CrewsTriedFrom  int
	CrewsTriedTo    int
	WorkDays        int
	Cause           *ErrProgressFailure
	Recommendations []string
}

func (e *ErrCalendarInfeasible) Error() string {
	return fmt.Sprintf(
		"unable to plan within the fixed date range: tried %d to %d crews over %d work days",
		e.CrewsTriedFrom, e.CrewsTriedTo, e.WorkDays)
}

func (e *ErrCalendarInfeasible) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// relaxations suggests constraint changes likely to make a stuck request
// feasible. Ordered cheapest-first.
func relaxations(req *models.PlanRequest) []string {
	recs := []string{
		fmt.Sprintf("increase max_route_minutes (current: %d)", req.MaxRouteMinutes),
		fmt.Sprintf("add a crew (current: %d)", req.TeamConfig.Teams),
	}
	if req.FastMode {
		recs = append(recs, "disable fast mode for better optimization")
	}
	if !req.UseClusters {
		recs = append(recs, "enable clustering to keep routes local")
	}
	if req.ServiceMinutesPerSite > 0 {
		recs = append(recs, fmt.Sprintf("decrease service_minutes_per_site (current: %d)", req.ServiceMinutesPerSite))
	}
	return recs
}
