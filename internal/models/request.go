package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by Normalize when a request omits the field.
const (
	DefaultMaxRouteMinutes       = 480
	DefaultServiceMinutesPerSite = 60
	DefaultMaxSitesPerCrewPerDay = 8
)

// PlanRequest is the aggregated planning input. End date presence selects
// fixed-calendar mode; otherwise the plan runs in fixed-crew mode.
type PlanRequest struct {
	Sites                 []Site     `json:"sites" validate:"required,min=1,dive"`
	TeamConfig            TeamConfig `json:"team_config"`
	UseClusters           bool       `json:"use_clusters"`
	StartDate             Date       `json:"start_date"`
	EndDate               Date       `json:"end_date"`
	Holidays              []Date     `json:"holidays"`
	MaxRouteMinutes       int        `json:"max_route_minutes" validate:"gte=0"`
	ServiceMinutesPerSite int        `json:"service_minutes_per_site" validate:"gte=0"`
	BreakMinutes          int        `json:"break_minutes" validate:"gte=0"`
	FastMode              bool       `json:"fast_mode"`
	MaxSitesPerCrewPerDay int        `json:"max_sites_per_crew_per_day" validate:"gte=0"`
	MinimizeCrews         bool       `json:"minimize_crews"`
}

// ErrInvalidRequest is returned when a request fails boundary validation.
type ErrInvalidRequest struct {
	Reason          string
	Recommendations []string
}

func (e *ErrInvalidRequest) Error() string {
	return fmt.Sprintf("invalid plan request: %s", e.Reason)
}

var validate = validator.New()

// ParsePlanRequest decodes a JSON request, rejecting unknown fields.
func ParsePlanRequest(data []byte) (*PlanRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var req PlanRequest
	if err := dec.Decode(&req); err != nil {
		return nil, &ErrInvalidRequest{Reason: err.Error()}
	}
	return &req, nil
}

// Normalize fills in documented defaults and per-site service minutes.
// Call before Validate.
func (r *PlanRequest) Normalize() {
	if r.MaxRouteMinutes == 0 {
		r.MaxRouteMinutes = DefaultMaxRouteMinutes
	}
	if r.ServiceMinutesPerSite == 0 {
		r.ServiceMinutesPerSite = DefaultServiceMinutesPerSite
	}
	if r.MaxSitesPerCrewPerDay == 0 {
		r.MaxSitesPerCrewPerDay = DefaultMaxSitesPerCrewPerDay
	}
	if r.TeamConfig.Teams == 0 {
		r.TeamConfig.Teams = 1
	}
	if r.TeamConfig.Workday.Start == 0 && r.TeamConfig.Workday.End == 0 {
		// Default 08:00-17:00 working window. An explicit zero-length window
		// is left alone so validation can reject it.
		r.TeamConfig.Workday = Workday{Start: 8 * 60, End: 17 * 60}
	}
	for i := range r.Sites {
		if r.Sites[i].ServiceMinutes == 0 {
			r.Sites[i].ServiceMinutes = r.ServiceMinutesPerSite
		}
	}
}

// Validate checks structural and cross-field constraints. Returns
// *ErrInvalidRequest on failure.
func (r *PlanRequest) Validate() error {
	if len(r.Sites) == 0 {
		return &ErrInvalidRequest{Reason: "cannot plan with zero sites"}
	}
	if err := validate.Struct(r); err != nil {
		return &ErrInvalidRequest{Reason: formatValidationError(err)}
	}

	seen := make(map[string]struct{}, len(r.Sites))
	for _, s := range r.Sites {
		if _, dup := seen[s.ID]; dup {
			return &ErrInvalidRequest{Reason: fmt.Sprintf("duplicate site id %q", s.ID)}
		}
		seen[s.ID] = struct{}{}
	}

	if r.TeamConfig.Workday.Minutes() <= 0 {
		return &ErrInvalidRequest{Reason: "workday end must be after start"}
	}
	if !r.EndDate.IsZero() {
		if r.StartDate.IsZero() {
			return &ErrInvalidRequest{Reason: "start_date is required when end_date is provided"}
		}
		if r.EndDate.Before(r.StartDate) {
			return &ErrInvalidRequest{Reason: "end_date is before start_date"}
		}
	}
	if r.BreakMinutes >= r.TeamConfig.Workday.Minutes() {
		return &ErrInvalidRequest{
			Reason:          "break_minutes leaves no working time",
			Recommendations: []string{"decrease break_minutes", "widen the workday window"},
		}
	}
	if r.UseClusters {
		for _, s := range r.Sites {
			if s.ClusterID == nil {
				return &ErrInvalidRequest{
					Reason:          fmt.Sprintf("use_clusters is set but site %q has no cluster_id", s.ID),
					Recommendations: []string{"run clustering before planning", "disable use_clusters"},
				}
			}
			if *s.ClusterID < 0 {
				return &ErrInvalidRequest{Reason: fmt.Sprintf("site %q has negative cluster_id", s.ID)}
			}
		}
	}
	return nil
}

// IsCalendarMode reports whether the request carries a fixed end date.
func (r *PlanRequest) IsCalendarMode() bool {
	return !r.EndDate.IsZero()
}

// EffectiveBudgetMinutes is the per-crew per-day time cap after the break is
// taken out, also bounded by the working window.
func (r *PlanRequest) EffectiveBudgetMinutes() int {
	budget := r.MaxRouteMinutes
	if w := r.TeamConfig.Workday.Minutes(); w < budget {
		budget = w
	}
	return budget - r.BreakMinutes
}

// HolidaySet returns the holidays as a lookup set keyed by date string.
func (r *PlanRequest) HolidaySet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Holidays))
	for _, h := range r.Holidays {
		set[h.String()] = struct{}{}
	}
	return set
}

func formatValidationError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %q failed %q (value %v)", e.Field(), e.Tag(), e.Value()))
	}
	return strings.Join(msgs, "; ")
}
