package filter

import "github.com/ethereum/go-ethereum/core/types"

// BloomProbablyMatches is the conservative pre-filter a block-level bloom
// check must be: it must never return false for a log the filter truly matches,
// but may return true for a log it doesn't (a false positive only costs a
// wasted full match, never a missed trigger). It probes bloom with the
// keccak256 of every interesting contract address and event signature,
// using go-ethereum's own BloomLookup rather than a hand-rolled bit probe —
// the same primitive eth/filters uses to pre-screen block headers before an
// expensive getLogs round-trip.
func (lf *LogFilter) BloomProbablyMatches(bloom types.Bloom) bool {
	if lf.IsEmpty() {
		return false
	}

	for sig := range lf.wildcards {
		if types.BloomLookup(bloom, sig) {
			return true
		}
	}

	for _, n := range lf.graph.nodes() {
		var present bool
		if n.kind == nodeContract {
			present = types.BloomLookup(bloom, n.address)
		} else {
			present = types.BloomLookup(bloom, n.event)
		}
		if present {
			return true
		}
	}
	return false
}
