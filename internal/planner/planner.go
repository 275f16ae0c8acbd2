// Package planner implements the LogFilterPlanner component:
// compressing a LogFilter into a minimal sequence of
// remote getLogs windows. The compression algorithm itself lives on
// filter.LogFilter (it needs the filter's internal graph); this package is
// the component's public name and home for planner-level helpers such as
// window formatting.
package planner

import (
	"fmt"

	"github.com/chainforge/subgraph-core/internal/filter"
)

// Window is an alias for filter.GetLogsWindow so callers can depend on
// planner without reaching into the filter package for the result type.
type Window = filter.GetLogsWindow

// Plan compresses lf into the minimal list of remote getLogs windows via a
// greedy maximum-degree vertex cover.
func Plan(lf *filter.LogFilter) []Window {
	return lf.Plan()
}

// Describe renders a window the way request logging wants it: which side is
// the singleton, and how large the other side is.
func Describe(w Window) string {
	switch {
	case len(w.Contracts) == 1:
		return fmt.Sprintf("contract %s, %d events", w.Contracts[0].Hex(), len(w.Events))
	case len(w.Events) == 1:
		return fmt.Sprintf("event %s, %d contracts", w.Events[0].Hex(), len(w.Contracts))
	default:
		return "unreachable: window violates the one-sided-singleton invariant"
	}
}
