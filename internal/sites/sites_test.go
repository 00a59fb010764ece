package sites

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-route-planner/internal/models"
)

const sampleCSV = `site_id,name,lat,lon,service_minutes,street,city,state,zip
LA-001,Acme Baton Rouge,30.4515,-91.1871,45,100 Main St,Baton Rouge,LA,70801
LA-002,,29.9511,-90.0715,,200 Canal St,New Orleans,LA,70112
NC-001,Acme Charlotte,35.2271,-80.8431,90,,,NC,
`

func TestLoadCSV(t *testing.T) {
	sites, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, sites, 3)

	assert.Equal(t, "LA-001", sites[0].ID)
	assert.Equal(t, "Acme Baton Rouge", sites[0].Name)
	assert.InDelta(t, 30.4515, sites[0].Lat, 0.0001)
	assert.Equal(t, 45, sites[0].ServiceMinutes)
	assert.Equal(t, "70801", sites[0].Zip)

	// Omitted service minutes stay zero for Normalize to fill.
	assert.Zero(t, sites[1].ServiceMinutes)
	assert.Nil(t, sites[1].ClusterID)
}

func TestLoadCSVColumnOrderIndependent(t *testing.T) {
	csv := "lat,site_id,lon\n30.1,x1,-91.2\n"
	sites, err := LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "x1", sites[0].ID)
	assert.InDelta(t, -91.2, sites[0].Lon, 0.0001)
}

func TestLoadCSVErrors(t *testing.T) {
	t.Run("missing required column", func(t *testing.T) {
		_, err := LoadCSV(strings.NewReader("site_id,lat\nx,30\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lon")
	})

	t.Run("bad latitude", func(t *testing.T) {
		_, err := LoadCSV(strings.NewReader("site_id,lat,lon\nx,abc,-91\n"))
		assert.Error(t, err)
	})

	t.Run("empty site id", func(t *testing.T) {
		_, err := LoadCSV(strings.NewReader("site_id,lat,lon\n,30,-91\n"))
		assert.Error(t, err)
	})

	t.Run("no rows", func(t *testing.T) {
		_, err := LoadCSV(strings.NewReader("site_id,lat,lon\n"))
		assert.Error(t, err)
	})
}

func TestLoadClusteredCSV(t *testing.T) {
	csv := "site_id,lat,lon,cluster_id\na,30,-91,0\nb,31,-92,1\n"
	sites, err := LoadClusteredCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.NotNil(t, sites[0].ClusterID)
	assert.Equal(t, 0, *sites[0].ClusterID)
	assert.Equal(t, 1, *sites[1].ClusterID)

	t.Run("missing cluster column", func(t *testing.T) {
		_, err := LoadClusteredCSV(strings.NewReader("site_id,lat,lon\na,30,-91\n"))
		assert.Error(t, err)
	})

	t.Run("empty cluster value", func(t *testing.T) {
		_, err := LoadClusteredCSV(strings.NewReader("site_id,lat,lon,cluster_id\na,30,-91,\n"))
		assert.Error(t, err)
	})
}

func TestWriteScheduleCSV(t *testing.T) {
	inputSites := []models.Site{
		{ID: "LA-001", Name: "Acme BR", Street: "100 Main St", City: "Baton Rouge", State: "LA", Zip: "70801", ServiceMinutes: 45},
		{ID: "LA-002", City: "New Orleans", State: "LA", ServiceMinutes: 60},
	}
	cid := 0
	res := &models.PlanResult{
		TeamDays: []models.TeamDay{{
			TeamID:         "C1-T1",
			Date:           models.NewDate(2025, 6, 2),
			ClusterID:      &cid,
			SiteIDs:        []string{"LA-001", "LA-002"},
			ServiceMinutes: 105,
			RouteMinutes:   160,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, res, inputSites))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(scheduleHeader, ","), lines[0])
	assert.Equal(t, "2025-06-02,C1-T1,0,1,LA-001,Acme BR,100 Main St,Baton Rouge,LA,70801,45,160", lines[1])
	assert.Equal(t, "2025-06-02,C1-T1,0,2,LA-002,,,New Orleans,LA,,60,160", lines[2])
}
