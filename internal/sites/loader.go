// Package sites reads and writes the CSV formats the planner exchanges with
// upstream tooling: site lists in, team schedules out.
package sites

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"field-route-planner/internal/models"
)

// LoadCSV reads a site list. The header must include site_id, lat and lon;
// service_minutes, cluster_id, street, city, state, zip and name are
// optional. Column order does not matter.
func LoadCSV(r io.Reader) ([]models.Site, error) {
	return load(r, false)
}

// LoadClusteredCSV reads a pre-clustered site list: same format as LoadCSV
// but cluster_id is required on every row.
func LoadClusteredCSV(r io.Reader) ([]models.Site, error) {
	return load(r, true)
}

func load(r io.Reader, requireCluster bool) ([]models.Site, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"site_id", "lat", "lon"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv header missing required column %q", required)
		}
	}
	if requireCluster {
		if _, ok := col["cluster_id"]; !ok {
			return nil, fmt.Errorf("clustered csv header missing required column %q", "cluster_id")
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var sites []models.Site
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}

		s := models.Site{
			ID:     field(row, "site_id"),
			Name:   field(row, "name"),
			Street: field(row, "street"),
			City:   field(row, "city"),
			State:  field(row, "state"),
			Zip:    field(row, "zip"),
		}
		if s.ID == "" {
			return nil, fmt.Errorf("csv line %d: empty site_id", line)
		}
		if s.Lat, err = strconv.ParseFloat(field(row, "lat"), 64); err != nil {
			return nil, fmt.Errorf("csv line %d: bad lat: %w", line, err)
		}
		if s.Lon, err = strconv.ParseFloat(field(row, "lon"), 64); err != nil {
			return nil, fmt.Errorf("csv line %d: bad lon: %w", line, err)
		}
		if v := field(row, "service_minutes"); v != "" {
			if s.ServiceMinutes, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("csv line %d: bad service_minutes: %w", line, err)
			}
		}
		if v := field(row, "cluster_id"); v != "" {
			cid, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: bad cluster_id: %w", line, err)
			}
			s.ClusterID = &cid
		} else if requireCluster {
			return nil, fmt.Errorf("csv line %d: empty cluster_id", line)
		}
		sites = append(sites, s)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("csv contains no site rows")
	}
	return sites, nil
}
