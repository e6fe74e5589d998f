package merge

import (
	"sort"

	"github.com/planbiir/gpxmerge/internal/gpx"
	"github.com/planbiir/gpxmerge/internal/ordering"
)

// DayGroup collects the outputs that belong to one tour day.
type DayGroup struct {
	Day     int
	HasDay  bool
	Outputs []gpx.Output
}

// GroupByDay groups per-file outputs by the day number in their names for
// display. Days are ascending; outputs without a day number come last. It
// does not affect point ordering.
func GroupByDay(outputs []gpx.Output) []DayGroup {
	var (
		groups  []DayGroup
		undated []gpx.Output
	)
	pos := make(map[int]int)

	for _, out := range outputs {
		day, ok := ordering.DayNumber(out.Name)
		if !ok {
			undated = append(undated, out)
			continue
		}
		idx, seen := pos[day]
		if !seen {
			idx = len(groups)
			pos[day] = idx
			groups = append(groups, DayGroup{Day: day, HasDay: true})
		}
		groups[idx].Outputs = append(groups[idx].Outputs, out)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Day < groups[b].Day
	})

	if len(undated) > 0 {
		groups = append(groups, DayGroup{Outputs: undated})
	}
	return groups
}

// DayOrderConflicts reports whether files with day numbers appear in an order
// that disagrees with those numbers. Arrival order always wins for
// emission; this only serves as a hint to the user.
func DayOrderConflicts(fileOrder []string) bool {
	last := -1
	for _, name := range fileOrder {
		day, ok := ordering.DayNumber(name)
		if !ok {
			continue
		}
		if day < last {
			return true
		}
		last = day
	}
	return false
}
