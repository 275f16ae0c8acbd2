// Package trigger implements the TriggerModel: the tagged variant over log,
// call, and block triggers, and the BlockWithTriggers result type.
package trigger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BlockPointer pairs a block number with its hash. Number is monotone on a
// canonical chain but not globally unique across reorgs.
type BlockPointer struct {
	Number uint64
	Hash   common.Hash
}

// FullBlock is a fetched block body plus its transaction receipts — what
// ChainClient.load_full_block / load_blocks yields.
type FullBlock struct {
	Block    *types.Block
	Receipts types.Receipts
}

// Number returns the block's height.
func (b FullBlock) Number() uint64 { return b.Block.NumberU64() }

// Hash returns the block's hash.
func (b FullBlock) Hash() common.Hash { return b.Block.Hash() }

// Pointer returns the block's (number, hash) pair.
func (b FullBlock) Pointer() BlockPointer {
	return BlockPointer{Number: b.Number(), Hash: b.Hash()}
}

// Finality marks whether a BlockWithTriggers is final or could still be
// reorged away. This core only ever emits Final, but the type
// exists so a caller composing this core with a head-tracking layer has
// somewhere to put that distinction without redefining it.
type Finality int

const (
	Final Finality = iota
	NonFinal
)

// BlockWithTriggers is the unit blocks_with_triggers/triggers_in_block
// produce: a block plus every trigger discovered for it. Once constructed it
// is treated as immutable by convention; ownership passes to the caller.
type BlockWithTriggers struct {
	Block     FullBlock
	Triggers  []Trigger
	Finality  Finality
}

// Number is a convenience accessor matching Trigger.BlockNumber's naming.
func (b BlockWithTriggers) Number() uint64 { return b.Block.Number() }
