package pact

import (
	"time"

	"github.com/dukerupert/pacto/internal/model"
)

// transitions lists every allowed status change. DONE is terminal.
var transitions = map[model.PactStatus][]model.PactStatus{
	model.StatusPending: {model.StatusDoing, model.StatusDone},
	model.StatusDoing:   {model.StatusDone},
}

// CanTransition reports whether a pact may move from one status to another.
func CanTransition(from, to model.PactStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Filter selects a subset of a household's pacts.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterToday      Filter = "today"
	FilterTomorrow   Filter = "tomorrow"
	FilterOverdue    Filter = "overdue"
	FilterUnassigned Filter = "unassigned"
)

// ParseFilter maps a query value to a Filter. Unknown values mean all.
func ParseFilter(s string) Filter {
	switch f := Filter(s); f {
	case FilterToday, FilterTomorrow, FilterOverdue, FilterUnassigned:
		return f
	}
	return FilterAll
}

// dayBounds returns the first and last instant of the day containing t,
// in t's location.
func dayBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
