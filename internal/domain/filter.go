package domain

import "sort"

// Selection is the active filter state. Month is always set; a nil DayOfWeek
// or Hour means that filter is inactive.
type Selection struct {
	Month     int
	DayOfWeek *int
	Hour      *int
}

// SelectorOptions holds the values selectable at each filter stage.
// DaysOfWeek is computed from the month-filtered view and Hours from the
// view filtered by month and, when active, day-of-week, so each selector
// only offers combinations that exist.
type SelectorOptions struct {
	Months     []int `json:"months"`
	DaysOfWeek []int `json:"days_of_week"`
	Hours      []int `json:"hours"`
}

// Filter returns the rows of readings matching sel. Row order is preserved
// and row content is untouched; an empty result is a valid empty view.
func Filter(readings []NodeReading, sel Selection) []NodeReading {
	out := make([]NodeReading, 0, len(readings))
	for _, r := range readings {
		if r.Month != sel.Month {
			continue
		}
		if sel.DayOfWeek != nil && r.DayOfWeek != *sel.DayOfWeek {
			continue
		}
		if sel.Hour != nil && r.Hour != *sel.Hour {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Months returns the sorted distinct month values present in readings.
func Months(readings []NodeReading) []int {
	return distinctSorted(readings, func(r NodeReading) int { return r.Month })
}

// Options computes the cascading selector values for sel. The hour filter in
// sel does not constrain its own option list: hours are offered from the view
// filtered by the earlier stages only.
func Options(readings []NodeReading, sel Selection) SelectorOptions {
	byMonth := Filter(readings, Selection{Month: sel.Month})
	byDay := byMonth
	if sel.DayOfWeek != nil {
		byDay = Filter(readings, Selection{Month: sel.Month, DayOfWeek: sel.DayOfWeek})
	}

	return SelectorOptions{
		Months:     Months(readings),
		DaysOfWeek: distinctSorted(byMonth, func(r NodeReading) int { return r.DayOfWeek }),
		Hours:      distinctSorted(byDay, func(r NodeReading) int { return r.Hour }),
	}
}

func distinctSorted(readings []NodeReading, key func(NodeReading) int) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, r := range readings {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
