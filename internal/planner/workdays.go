package planner

import "field-route-planner/internal/models"

// isWorkDay reports whether d is neither a weekend nor a holiday.
func isWorkDay(d models.Date, holidays map[string]struct{}) bool {
	if d.IsWeekend() {
		return false
	}
	_, holiday := holidays[d.String()]
	return !holiday
}

// nextWorkDay returns the first work day on or after d.
func nextWorkDay(d models.Date, holidays map[string]struct{}) models.Date {
	for !isWorkDay(d, holidays) {
		d = d.AddDays(1)
	}
	return d
}

// countWorkDays counts work days in [start, end] inclusive.
func countWorkDays(start, end models.Date, holidays map[string]struct{}) int {
	n := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if isWorkDay(d, holidays) {
			n++
		}
	}
	return n
}
