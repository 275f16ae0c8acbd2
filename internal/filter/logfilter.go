package filter

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainforge/subgraph-core/internal/manifest"
)

// LogFilter is a bipartite relation over Contract(Address) and
// Event(EventSignature) nodes, plus a set of wildcard event signatures that
// match regardless of emitting address.
type LogFilter struct {
	graph     *bipartiteGraph
	wildcards map[common.Hash]struct{}
}

// NewLogFilter returns the empty LogFilter (matches nothing).
func NewLogFilter() *LogFilter {
	return &LogFilter{graph: newBipartiteGraph(), wildcards: make(map[common.Hash]struct{})}
}

// LogFilterFromDataSources is a pure fold over data sources: for each event
// signature a data source declares, registers an edge to its address, or a
// wildcard if the data source has none.
func LogFilterFromDataSources(sources []manifest.DataSource) *LogFilter {
	lf := NewLogFilter()
	for _, ds := range sources {
		for _, sig := range ds.EventSignatures() {
			if ds.Address != nil {
				lf.graph.addEdge(contractNode(*ds.Address), eventNode(sig))
			} else {
				lf.wildcards[sig] = struct{}{}
			}
		}
	}
	return lf
}

// Extend merges other into lf: graph union and wildcard-set union. other is
// consumed; lf is mutated in place, matching the ownership model
// graph-node's FilterModel.extend uses.
func (lf *LogFilter) Extend(other *LogFilter) {
	if other == nil {
		return
	}
	for _, pair := range other.graph.allEdges() {
		lf.graph.addEdge(pair[0], pair[1])
	}
	for sig := range other.wildcards {
		lf.wildcards[sig] = struct{}{}
	}
}

// Matches reports whether log has at least one topic and either its
// (address, topic0) edge exists or topic0 is a registered wildcard event.
func (lf *LogFilter) Matches(log Log) bool {
	if len(log.Topics) == 0 {
		return false
	}
	sig := log.Topics[0]
	if _, ok := lf.wildcards[sig]; ok {
		return true
	}
	return lf.graph.hasEdge(contractNode(log.Address), eventNode(sig))
}

// IsEmpty reports whether the filter has no edges and no wildcards, i.e.
// never matches.
func (lf *LogFilter) IsEmpty() bool {
	return lf.graph.edgeCount() == 0 && len(lf.wildcards) == 0
}

// WildcardEvents returns the filter's wildcard event signatures.
func (lf *LogFilter) WildcardEvents() []common.Hash {
	out := make([]common.Hash, 0, len(lf.wildcards))
	for sig := range lf.wildcards {
		out = append(out, sig)
	}
	return out
}
