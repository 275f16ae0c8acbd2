package filter

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainforge/subgraph-core/internal/manifest"
)

// callEntry is the per-address value a CallFilter maps to: the minimum
// start_block merged in so far and the set of selectors of interest. An
// empty selector set means "match any call to this address."
type callEntry struct {
	startBlock uint64
	selectors  map[manifest.FunctionSelector]struct{}
}

// CallFilter maps an Address to (start_block, selectors).
type CallFilter struct {
	byAddress map[common.Address]*callEntry
}

// NewCallFilter returns the empty CallFilter (matches nothing).
func NewCallFilter() *CallFilter {
	return &CallFilter{byAddress: make(map[common.Address]*callEntry)}
}

// CallFilterFromDataSources folds each data source's call handlers into a
// CallFilter, keyed by address, start_block taken as the minimum across
// merged-in data sources.
func CallFilterFromDataSources(sources []manifest.DataSource) *CallFilter {
	cf := NewCallFilter()
	for _, ds := range sources {
		if ds.Address == nil {
			continue
		}
		for _, sel := range ds.CallSelectors() {
			cf.insert(*ds.Address, ds.StartBlock, sel)
		}
	}
	return cf
}

func (cf *CallFilter) insert(addr common.Address, startBlock uint64, sel manifest.FunctionSelector) {
	entry, ok := cf.byAddress[addr]
	if !ok {
		entry = &callEntry{startBlock: startBlock, selectors: make(map[manifest.FunctionSelector]struct{})}
		cf.byAddress[addr] = entry
	} else if startBlock < entry.startBlock {
		entry.startBlock = startBlock
	}
	entry.selectors[sel] = struct{}{}
}

// insertWildcard registers addr with an empty selector set (matches any
// call) unless an entry already exists, in which case only start_block is
// reconciled to the minimum — a pre-existing specific selector set must not
// be widened to wildcard by a later, less specific merge.
func (cf *CallFilter) insertWildcard(addr common.Address, startBlock uint64) {
	entry, ok := cf.byAddress[addr]
	if !ok {
		cf.byAddress[addr] = &callEntry{startBlock: startBlock, selectors: make(map[manifest.FunctionSelector]struct{})}
		return
	}
	if startBlock < entry.startBlock {
		entry.startBlock = startBlock
	}
}

// Matches reports whether call.To is keyed in the filter and either its
// selector set is empty (wildcard) or contains call's selector.
func (cf *CallFilter) Matches(call Call) bool {
	entry, ok := cf.byAddress[call.To]
	if !ok {
		return false
	}
	if len(entry.selectors) == 0 {
		return true
	}
	if len(call.Input) < 4 {
		return false
	}
	var sel manifest.FunctionSelector
	copy(sel[:], call.Input[:4])
	_, ok = entry.selectors[sel]
	return ok
}

// Extend merges other into cf: per-address union of selector sets and
// element-wise min of start_block.
func (cf *CallFilter) Extend(other *CallFilter) {
	if other == nil {
		return
	}
	for addr, entry := range other.byAddress {
		existing, ok := cf.byAddress[addr]
		if !ok {
			merged := &callEntry{startBlock: entry.startBlock, selectors: make(map[manifest.FunctionSelector]struct{})}
			for s := range entry.selectors {
				merged.selectors[s] = struct{}{}
			}
			cf.byAddress[addr] = merged
			continue
		}
		if entry.startBlock < existing.startBlock {
			existing.startBlock = entry.startBlock
		}
		for s := range entry.selectors {
			existing.selectors[s] = struct{}{}
		}
	}
}

// IsEmpty reports whether the filter has no addresses registered.
func (cf *CallFilter) IsEmpty() bool { return len(cf.byAddress) == 0 }

// StartBlocks returns every per-address start_block strictly greater than
// zero.
func (cf *CallFilter) StartBlocks() []uint64 {
	var out []uint64
	for _, entry := range cf.byAddress {
		if entry.startBlock > 0 {
			out = append(out, entry.startBlock)
		}
	}
	return out
}

// Addresses returns the set of addresses the filter is keyed on.
func (cf *CallFilter) Addresses() []common.Address {
	out := make([]common.Address, 0, len(cf.byAddress))
	for addr := range cf.byAddress {
		out = append(out, addr)
	}
	return out
}

// CallFilterFromBlockFilter converts a BlockFilter's call addresses into a
// CallFilter, each (start_block, address) becoming address -> (start_block, ∅).
func CallFilterFromBlockFilter(bf *BlockFilter) *CallFilter {
	cf := NewCallFilter()
	for addr, startBlock := range bf.callAddresses {
		cf.insertWildcard(addr, startBlock)
	}
	return cf
}
