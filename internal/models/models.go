package models

// Site is a geocoded service location to visit exactly once.
type Site struct {
	ID             string  `json:"id" validate:"required"`
	Lat            float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon            float64 `json:"lon" validate:"gte=-180,lte=180"`
	ServiceMinutes int     `json:"service_minutes,omitempty" validate:"gte=0"`
	ClusterID      *int    `json:"cluster_id,omitempty"`
	Name           string  `json:"name,omitempty"`
	Street         string  `json:"street,omitempty"`
	City           string  `json:"city,omitempty"`
	State          string  `json:"state,omitempty"`
	Zip            string  `json:"zip,omitempty"`
}

// DisplayName returns the street address when present, else the site id.
func (s *Site) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Street != "" {
		return s.Street
	}
	return s.ID
}

// Workday is the daily working window. End must be after Start.
type Workday struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// Minutes returns the length of the working window in minutes.
func (w Workday) Minutes() int {
	return int(w.End) - int(w.Start)
}

// TeamConfig describes the crew roster for a plan. In fixed-calendar mode
// Teams is treated as a starting point and the planner computes the final
// crew count itself.
type TeamConfig struct {
	Teams   int     `json:"teams" validate:"min=1"`
	Workday Workday `json:"workday"`
}

// TeamDay is one crew's route on one date. SiteIDs is in visit order.
type TeamDay struct {
	TeamID         string   `json:"team_id"`
	Date           Date     `json:"date"`
	ClusterID      *int     `json:"cluster_id,omitempty"`
	SiteIDs        []string `json:"site_ids"`
	ServiceMinutes int      `json:"service_minutes"`
	RouteMinutes   int      `json:"route_minutes"`
}

// TravelMinutes returns the driving portion of the route time.
func (td *TeamDay) TravelMinutes() int {
	return td.RouteMinutes - td.ServiceMinutes
}

// PlanResult is the full output of a planning run. Every input site appears
// exactly once across TeamDays plus the Unassigned count.
type PlanResult struct {
	TeamDays   []TeamDay `json:"team_days"`
	Unassigned int       `json:"unassigned"`
	StartDate  Date      `json:"start_date"`
	EndDate    Date      `json:"end_date"`
}

// CrewsUsed returns the number of distinct team ids in the result.
func (r *PlanResult) CrewsUsed() int {
	seen := make(map[string]struct{})
	for _, td := range r.TeamDays {
		seen[td.TeamID] = struct{}{}
	}
	return len(seen)
}

// ScheduledSiteCount returns the total stops across all team days.
func (r *PlanResult) ScheduledSiteCount() int {
	n := 0
	for _, td := range r.TeamDays {
		n += len(td.SiteIDs)
	}
	return n
}
