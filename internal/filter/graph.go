// Package filter implements the FilterModel: immutable-by-convention
// descriptions of log/call/block interests, their merge (extend) operation,
// and their match predicates.
package filter

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// nodeKind tags a logFilterNode as naming a contract or an event, so the
// bipartite graph's two node universes never collide.
type nodeKind uint8

const (
	nodeContract nodeKind = iota
	nodeEvent
)

// logFilterNode is a tagged vertex in the log filter's bipartite graph.
type logFilterNode struct {
	kind    nodeKind
	address common.Address
	event   common.Hash
}

func contractNode(addr common.Address) logFilterNode {
	return logFilterNode{kind: nodeContract, address: addr}
}

func eventNode(sig common.Hash) logFilterNode {
	return logFilterNode{kind: nodeEvent, event: sig}
}

// bytes gives a canonical, tag-prefixed byte encoding for logFilterNode so
// the planner can break max-degree ties deterministically by lexicographic
// order on node identity.
func (n logFilterNode) bytes() []byte {
	out := make([]byte, 0, 1+32)
	out = append(out, byte(n.kind))
	if n.kind == nodeContract {
		out = append(out, n.address.Bytes()...)
	} else {
		out = append(out, n.event.Bytes()...)
	}
	return out
}

func (n logFilterNode) less(other logFilterNode) bool {
	return bytes.Compare(n.bytes(), other.bytes()) < 0
}

// bipartiteGraph is an undirected adjacency-list graph over logFilterNode.
// A plain map of maps is the whole data structure this needs: the pack
// carries no generic graph library (see DESIGN.md), and introducing one for
// a two-line adjacency map would be the overkill direction, not the other
// way around.
type bipartiteGraph struct {
	adj map[logFilterNode]map[logFilterNode]struct{}
}

func newBipartiteGraph() *bipartiteGraph {
	return &bipartiteGraph{adj: make(map[logFilterNode]map[logFilterNode]struct{})}
}

func (g *bipartiteGraph) addEdge(a, b logFilterNode) {
	if g.adj[a] == nil {
		g.adj[a] = make(map[logFilterNode]struct{})
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[logFilterNode]struct{})
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
}

func (g *bipartiteGraph) hasEdge(a, b logFilterNode) bool {
	neighbors, ok := g.adj[a]
	if !ok {
		return false
	}
	_, ok = neighbors[b]
	return ok
}

func (g *bipartiteGraph) edgeCount() int {
	total := 0
	for _, neighbors := range g.adj {
		total += len(neighbors)
	}
	return total / 2
}

// neighbors returns n's neighbors in deterministic (sorted) order.
func (g *bipartiteGraph) neighbors(n logFilterNode) []logFilterNode {
	set := g.adj[n]
	out := make([]logFilterNode, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// removeNode deletes n and every edge incident to it.
func (g *bipartiteGraph) removeNode(n logFilterNode) {
	for m := range g.adj[n] {
		delete(g.adj[m], n)
	}
	delete(g.adj, n)
}

// nodes returns every vertex with at least one incident edge, in
// deterministic order.
func (g *bipartiteGraph) nodes() []logFilterNode {
	out := make([]logFilterNode, 0, len(g.adj))
	for n, neighbors := range g.adj {
		if len(neighbors) > 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// allEdges returns each undirected edge once, in deterministic order.
func (g *bipartiteGraph) allEdges() [][2]logFilterNode {
	seen := make(map[[2]logFilterNode]struct{})
	var out [][2]logFilterNode
	for a, neighbors := range g.adj {
		for b := range neighbors {
			key := [2]logFilterNode{a, b}
			rev := [2]logFilterNode{b, a}
			if _, ok := seen[rev]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0].less(out[j][0])
		}
		return out[i][1].less(out[j][1])
	})
	return out
}

func (g *bipartiteGraph) clone() *bipartiteGraph {
	out := newBipartiteGraph()
	for _, pair := range g.allEdges() {
		out.addEdge(pair[0], pair[1])
	}
	return out
}
