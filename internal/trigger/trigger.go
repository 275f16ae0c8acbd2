package trigger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call is the shape a Trigger::Call carries: enough of an on-chain message
// call to key it against a CallFilter and report its block.
type Call struct {
	BlockNumber uint64
	BlockHash   common.Hash
	TxHash      common.Hash
	From        common.Address
	To          common.Address
	Input       []byte
}

// BlockTriggerKind distinguishes an unconditional block trigger from one
// raised because a call landed on a watched address within the block.
type BlockTriggerKind int

const (
	Every BlockTriggerKind = iota
	WithCallTo
)

// kind tags which variant a Trigger holds.
type kind int

const (
	kindLog kind = iota
	kindCall
	kindBlock
)

// Trigger is the tagged union over Log{L}, Call{C}, and Block{ptr, kind}.
// It is constructed only via the New* functions below, so
// a Trigger is always in exactly one of the three states — no caller ever
// downcasts an interface{} to find out which.
type Trigger struct {
	k kind

	log  types.Log
	call Call

	blockPtr    BlockPointer
	blockKind   BlockTriggerKind
	blockCallTo common.Address
}

// NewLogTrigger wraps a matched log.
func NewLogTrigger(log types.Log) Trigger {
	return Trigger{k: kindLog, log: log}
}

// NewCallTrigger wraps a matched call.
func NewCallTrigger(call Call) Trigger {
	return Trigger{k: kindCall, call: call}
}

// NewBlockTrigger wraps an unconditional block-level match.
func NewBlockTrigger(ptr BlockPointer) Trigger {
	return Trigger{k: kindBlock, blockPtr: ptr, blockKind: Every}
}

// NewBlockCallTrigger wraps a block-level match raised by a call to callTo.
func NewBlockCallTrigger(ptr BlockPointer, callTo common.Address) Trigger {
	return Trigger{k: kindBlock, blockPtr: ptr, blockKind: WithCallTo, blockCallTo: callTo}
}

// IsLog, IsCall, IsBlock report the trigger's variant.
func (t Trigger) IsLog() bool   { return t.k == kindLog }
func (t Trigger) IsCall() bool  { return t.k == kindCall }
func (t Trigger) IsBlock() bool { return t.k == kindBlock }

// Log returns the wrapped log and true if the trigger is a log trigger.
func (t Trigger) Log() (types.Log, bool) {
	if t.k != kindLog {
		return types.Log{}, false
	}
	return t.log, true
}

// Call returns the wrapped call and true if the trigger is a call trigger.
func (t Trigger) Call() (Call, bool) {
	if t.k != kindCall {
		return Call{}, false
	}
	return t.call, true
}

// Block returns the wrapped block pointer and kind, and true if the trigger
// is a block trigger.
func (t Trigger) Block() (BlockPointer, BlockTriggerKind, bool) {
	if t.k != kindBlock {
		return BlockPointer{}, Every, false
	}
	return t.blockPtr, t.blockKind, true
}

// BlockCallTo returns the address whose call raised a WithCallTo block
// trigger. Only meaningful when Block()'s kind is WithCallTo.
func (t Trigger) BlockCallTo() common.Address { return t.blockCallTo }

// BlockNumber returns the block number the trigger belongs to, regardless of
// variant: every trigger exposes a block number.
func (t Trigger) BlockNumber() uint64 {
	switch t.k {
	case kindLog:
		return t.log.BlockNumber
	case kindCall:
		return t.call.BlockNumber
	case kindBlock:
		return t.blockPtr.Number
	default:
		return 0
	}
}

// BlockHash returns the block hash the trigger belongs to.
func (t Trigger) BlockHash() common.Hash {
	switch t.k {
	case kindLog:
		return t.log.BlockHash
	case kindCall:
		return t.call.BlockHash
	case kindBlock:
		return t.blockPtr.Hash
	default:
		return common.Hash{}
	}
}

func (t Trigger) String() string {
	switch t.k {
	case kindLog:
		return fmt.Sprintf("Log(block=%d, address=%s)", t.log.BlockNumber, t.log.Address.Hex())
	case kindCall:
		return fmt.Sprintf("Call(block=%d, to=%s)", t.call.BlockNumber, t.call.To.Hex())
	case kindBlock:
		if t.blockKind == WithCallTo {
			return fmt.Sprintf("Block(number=%d, withCallTo=%s)", t.blockPtr.Number, t.blockCallTo.Hex())
		}
		return fmt.Sprintf("Block(number=%d, every)", t.blockPtr.Number)
	default:
		return "Trigger(invalid)"
	}
}
