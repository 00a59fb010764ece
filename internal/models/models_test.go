package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2026-02-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-02", d.String())
	assert.Equal(t, time.Monday, d.Weekday())

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-02-02"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, d.Equal(back))
}

func TestDateZeroMarshalsNull(t *testing.T) {
	data, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var d Date
	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.True(t, d.IsZero())
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2025, time.January, 3) // Friday
	assert.False(t, d.IsWeekend())
	assert.True(t, d.AddDays(1).IsWeekend())
	assert.True(t, d.AddDays(2).IsWeekend())
	assert.False(t, d.AddDays(3).IsWeekend())
	assert.Equal(t, 7, d.DaysUntil(d.AddDays(7)))
}

func TestClockTime(t *testing.T) {
	c, err := ParseClockTime("08:30:00")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(510), c)
	assert.Equal(t, "08:30:00", c.String())

	c2, err := ParseClockTime("17:00")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(17*60), c2)

	_, err = ParseClockTime("25:00")
	assert.Error(t, err)
}

func TestWorkdayMinutes(t *testing.T) {
	w := Workday{Start: 8 * 60, End: 17 * 60}
	assert.Equal(t, 540, w.Minutes())
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	req := &PlanRequest{Sites: []Site{{ID: "s1", Lat: 30, Lon: -91}}}
	req.Normalize()

	assert.Equal(t, DefaultMaxRouteMinutes, req.MaxRouteMinutes)
	assert.Equal(t, DefaultServiceMinutesPerSite, req.ServiceMinutesPerSite)
	assert.Equal(t, DefaultMaxSitesPerCrewPerDay, req.MaxSitesPerCrewPerDay)
	assert.Equal(t, 1, req.TeamConfig.Teams)
	assert.Equal(t, 540, req.TeamConfig.Workday.Minutes())
	assert.Equal(t, DefaultServiceMinutesPerSite, req.Sites[0].ServiceMinutes)
}

func TestNormalizeKeepsPerSiteService(t *testing.T) {
	req := &PlanRequest{Sites: []Site{{ID: "s1", ServiceMinutes: 45}}}
	req.Normalize()
	assert.Equal(t, 45, req.Sites[0].ServiceMinutes)
}

func TestValidateRejections(t *testing.T) {
	base := func() *PlanRequest {
		req := &PlanRequest{Sites: []Site{
			{ID: "s1", Lat: 30.4, Lon: -91.1},
			{ID: "s2", Lat: 30.5, Lon: -91.2},
		}}
		req.Normalize()
		return req
	}

	t.Run("duplicate site id", func(t *testing.T) {
		req := base()
		req.Sites[1].ID = "s1"
		var ire *ErrInvalidRequest
		require.ErrorAs(t, req.Validate(), &ire)
		assert.Contains(t, ire.Reason, "duplicate")
	})

	t.Run("end before start", func(t *testing.T) {
		req := base()
		req.StartDate, _ = ParseDate("2026-03-02")
		req.EndDate, _ = ParseDate("2026-02-02")
		assert.Error(t, req.Validate())
	})

	t.Run("end without start", func(t *testing.T) {
		req := base()
		req.EndDate, _ = ParseDate("2026-03-02")
		assert.Error(t, req.Validate())
	})

	t.Run("zero-length workday", func(t *testing.T) {
		req := base()
		req.TeamConfig.Workday = Workday{Start: 9 * 60, End: 9 * 60}
		req.Normalize()
		// The explicit empty window must survive Normalize and be rejected.
		assert.Equal(t, 0, req.TeamConfig.Workday.Minutes())
		var ire *ErrInvalidRequest
		require.ErrorAs(t, req.Validate(), &ire)
		assert.Contains(t, ire.Reason, "workday")
	})

	t.Run("break swallows workday", func(t *testing.T) {
		req := base()
		req.BreakMinutes = 600
		var ire *ErrInvalidRequest
		require.ErrorAs(t, req.Validate(), &ire)
		assert.NotEmpty(t, ire.Recommendations)
	})

	t.Run("clusters without cluster ids", func(t *testing.T) {
		req := base()
		req.UseClusters = true
		assert.Error(t, req.Validate())
	})

	t.Run("latitude out of range", func(t *testing.T) {
		req := base()
		req.Sites[0].Lat = 95
		assert.Error(t, req.Validate())
	})

	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})
}

func TestParsePlanRequestRejectsUnknownFields(t *testing.T) {
	_, err := ParsePlanRequest([]byte(`{"sites":[{"id":"a"}],"bogus":1}`))
	var ire *ErrInvalidRequest
	require.ErrorAs(t, err, &ire)
}

func TestEffectiveBudgetMinutes(t *testing.T) {
	req := &PlanRequest{Sites: []Site{{ID: "s1"}}}
	req.Normalize()
	req.BreakMinutes = 30
	// Workday 540 exceeds the 480 route cap, so the cap governs.
	assert.Equal(t, 450, req.EffectiveBudgetMinutes())

	req.TeamConfig.Workday = Workday{Start: 8 * 60, End: 11 * 60}
	assert.Equal(t, 150, req.EffectiveBudgetMinutes())
}

func TestPlanRequestJSONRoundTrip(t *testing.T) {
	raw := []byte(`{
		"sites": [{"id": "s1", "lat": 30.45, "lon": -91.15, "service_minutes": 45}],
		"team_config": {"teams": 2, "workday": {"start": "08:00:00", "end": "17:00:00"}},
		"start_date": "2026-02-02",
		"end_date": "2026-03-02",
		"holidays": ["2026-02-16"],
		"max_route_minutes": 480,
		"fast_mode": true
	}`)
	req, err := ParsePlanRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, req.TeamConfig.Teams)
	assert.Equal(t, ClockTime(480), req.TeamConfig.Workday.Start)
	assert.True(t, req.IsCalendarMode())
	assert.Contains(t, req.HolidaySet(), "2026-02-16")

	out, err := json.Marshal(req)
	require.NoError(t, err)
	req2, err := ParsePlanRequest(out)
	require.NoError(t, err)
	assert.Equal(t, req, req2)
}

func TestPlanResultAccessors(t *testing.T) {
	res := &PlanResult{TeamDays: []TeamDay{
		{TeamID: "T1", SiteIDs: []string{"a", "b"}, ServiceMinutes: 120, RouteMinutes: 150},
		{TeamID: "T2", SiteIDs: []string{"c"}, ServiceMinutes: 60, RouteMinutes: 60},
		{TeamID: "T1", SiteIDs: []string{"d"}, ServiceMinutes: 60, RouteMinutes: 60},
	}}
	assert.Equal(t, 2, res.CrewsUsed())
	assert.Equal(t, 4, res.ScheduledSiteCount())
	assert.Equal(t, 30, res.TeamDays[0].TravelMinutes())
}
