package trigger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

func TestLogTriggerAccessors(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bh := common.HexToHash("0xaa")
	tr := NewLogTrigger(types.Log{Address: addr, BlockNumber: 10, BlockHash: bh})

	assert.True(t, tr.IsLog())
	assert.False(t, tr.IsCall())
	assert.Equal(t, uint64(10), tr.BlockNumber())
	assert.Equal(t, bh, tr.BlockHash())

	_, ok := tr.Call()
	assert.False(t, ok)
}

func TestCallTriggerAccessors(t *testing.T) {
	bh := common.HexToHash("0xbb")
	tr := NewCallTrigger(Call{BlockNumber: 20, BlockHash: bh})

	assert.True(t, tr.IsCall())
	assert.Equal(t, uint64(20), tr.BlockNumber())
	assert.Equal(t, bh, tr.BlockHash())
}

func TestBlockTriggerVariants(t *testing.T) {
	ptr := BlockPointer{Number: 30, Hash: common.HexToHash("0xcc")}
	every := NewBlockTrigger(ptr)
	assert.True(t, every.IsBlock())
	_, kind, ok := every.Block()
	assert.True(t, ok)
	assert.Equal(t, Every, kind)

	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	withCall := NewBlockCallTrigger(ptr, addr)
	_, kind2, _ := withCall.Block()
	assert.Equal(t, WithCallTo, kind2)
	assert.Equal(t, addr, withCall.BlockCallTo())
}
