package filter

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/chainforge/subgraph-core/internal/manifest"
)

func TestBlockFilterFromDataSources(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	bf := BlockFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, StartBlock: 10, BlockHandlers: []manifest.BlockHandler{{Filter: manifest.BlockHandlerNoFilter}}},
	})
	assert.True(t, bf.TriggerEveryBlock())
	assert.Empty(t, bf.CallAddresses())

	bf2 := BlockFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, StartBlock: 10, BlockHandlers: []manifest.BlockHandler{{Filter: manifest.BlockHandlerCallFilter}}},
	})
	assert.False(t, bf2.TriggerEveryBlock())
	assert.Equal(t, map[common.Address]uint64{addr: 10}, bf2.CallAddresses())
}

func TestBlockFilterExtendIsTrueUnion(t *testing.T) {
	a1 := common.HexToAddress("0x0000000000000000000000000000000000000a")
	a2 := common.HexToAddress("0x0000000000000000000000000000000000000b")

	left := NewBlockFilter()
	left.callAddresses[a1] = 100

	right := NewBlockFilter()
	right.callAddresses[a2] = 50
	right.triggerEveryBlock = true

	left.Extend(right)

	assert.True(t, left.TriggerEveryBlock())
	assert.Equal(t, map[common.Address]uint64{a1: 100, a2: 50}, left.CallAddresses())
}

func TestBlockFilterExtendTakesMinPerAddress(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	left := NewBlockFilter()
	left.callAddresses[addr] = 100
	right := NewBlockFilter()
	right.callAddresses[addr] = 30

	left.Extend(right)
	assert.Equal(t, uint64(30), left.CallAddresses()[addr])
}

func TestEmptyBlockFilter(t *testing.T) {
	bf := NewBlockFilter()
	assert.True(t, bf.IsEmpty())
}
