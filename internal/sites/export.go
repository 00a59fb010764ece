package sites

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"field-route-planner/internal/models"
)

var scheduleHeader = []string{
	"date",
	"team_id",
	"cluster_id",
	"stop_number",
	"site_id",
	"site_name",
	"street",
	"city",
	"state",
	"zip",
	"service_minutes",
	"route_minutes",
}

// WriteScheduleCSV emits one row per stop of the plan, in team-day order,
// in a shape spreadsheet tools import directly. Site details are looked up
// from the original input list.
func WriteScheduleCSV(w io.Writer, res *models.PlanResult, inputSites []models.Site) error {
	byID := make(map[string]models.Site, len(inputSites))
	for _, s := range inputSites {
		byID[s.ID] = s
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(scheduleHeader); err != nil {
		return fmt.Errorf("writing schedule header: %w", err)
	}
	for _, td := range res.TeamDays {
		clusterID := ""
		if td.ClusterID != nil {
			clusterID = strconv.Itoa(*td.ClusterID)
		}
		for stop, siteID := range td.SiteIDs {
			site := byID[siteID]
			row := []string{
				td.Date.String(),
				td.TeamID,
				clusterID,
				strconv.Itoa(stop + 1),
				siteID,
				site.Name,
				site.Street,
				site.City,
				site.State,
				site.Zip,
				strconv.Itoa(site.ServiceMinutes),
				strconv.Itoa(td.RouteMinutes),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing schedule row for site %s: %w", siteID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
