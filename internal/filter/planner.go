package filter

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// GetLogsWindow corresponds to a single eth_getLogs remote call: either one
// contract with N>=1 events, one event with N>=1 contracts, or (for a
// wildcard) zero contracts with one event. A window with
// both sides of size >1 is never produced.
type GetLogsWindow struct {
	Contracts []common.Address
	Events    []common.Hash
}

// Plan compresses the filter into a minimal sequence of GetLogsWindow values
// via greedy maximum-degree vertex cover. It consumes a
// clone of the filter's graph, leaving lf itself untouched.
//
// This lives beside bipartiteGraph because the algorithm needs the graph's
// unexported adjacency structure; internal/planner re-exports it as the
// LogFilterPlanner component, the same way graph-node
// keeps eth_get_logs_filters as a method on the log filter
// itself rather than a free-standing planner type.
func (lf *LogFilter) Plan() []GetLogsWindow {
	var windows []GetLogsWindow

	for _, sig := range sortedHashes(lf.WildcardEvents()) {
		windows = append(windows, GetLogsWindow{Events: []common.Hash{sig}})
	}

	g := lf.graph.clone()
	for g.edgeCount() > 0 {
		nodes := g.nodes()
		best := nodes[0]
		bestDegree := len(g.neighbors(best))
		for _, n := range nodes[1:] {
			d := len(g.neighbors(n))
			if d > bestDegree {
				best = n
				bestDegree = d
			}
		}

		var w GetLogsWindow
		switch best.kind {
		case nodeContract:
			w.Contracts = append(w.Contracts, best.address)
		case nodeEvent:
			w.Events = append(w.Events, best.event)
		}
		for _, neighbor := range g.neighbors(best) {
			switch neighbor.kind {
			case nodeContract:
				w.Contracts = append(w.Contracts, neighbor.address)
			case nodeEvent:
				w.Events = append(w.Events, neighbor.event)
			}
		}

		windows = append(windows, w)
		g.removeNode(best)
	}

	return windows
}

func sortedHashes(hashes []common.Hash) []common.Hash {
	out := make([]common.Hash, len(hashes))
	copy(out, hashes)
	sort.Slice(out, func(i, j int) bool { return out[i].Big().Cmp(out[j].Big()) < 0 })
	return out
}
