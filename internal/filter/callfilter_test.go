package filter

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/chainforge/subgraph-core/internal/manifest"
)

func selectorBytes(sig string) []byte {
	s := manifest.Selector(sig)
	return s[:]
}

func TestCallFilterMatches(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	cf := CallFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, StartBlock: 100, CallSigs: []string{"transfer(address,uint256)"}},
	})

	input := append(selectorBytes("transfer(address,uint256)"), make([]byte, 64)...)
	assert.True(t, cf.Matches(Call{To: addr, Input: input}))

	otherInput := append(selectorBytes("approve(address,uint256)"), make([]byte, 64)...)
	assert.False(t, cf.Matches(Call{To: addr, Input: otherInput}))

	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	assert.False(t, cf.Matches(Call{To: other, Input: input}))
}

func TestCallFilterWildcardAddressMatchesAnySelector(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	cf := CallFilterFromBlockFilter(BlockFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, StartBlock: 5, BlockHandlers: []manifest.BlockHandler{{Filter: manifest.BlockHandlerCallFilter}}},
	}))
	assert.True(t, cf.Matches(Call{To: addr, Input: append(selectorBytes("whatever()"), 0)}))
}

func TestCallFilterExtendTakesMinStartBlock(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	a := CallFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, StartBlock: 100, CallSigs: []string{"s1()"}},
	})
	b := CallFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, StartBlock: 50, CallSigs: []string{"s2()"}},
	})
	a.Extend(b)

	assert.Equal(t, []uint64{50}, a.StartBlocks())

	input1 := append(selectorBytes("s1()"), 0)
	input2 := append(selectorBytes("s2()"), 0)
	assert.True(t, a.Matches(Call{To: addr, Input: input1}))
	assert.True(t, a.Matches(Call{To: addr, Input: input2}))
}

func TestCallFilterStartBlocksExcludesZero(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	cf := CallFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, StartBlock: 0, CallSigs: []string{"s()"}},
	})
	assert.Empty(t, cf.StartBlocks())
}

func TestCallFilterFromBlockFilter(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bf := BlockFilterFromDataSources([]manifest.DataSource{
		{
			Address:       &addr,
			StartBlock:    42,
			BlockHandlers: []manifest.BlockHandler{{Filter: manifest.BlockHandlerCallFilter}},
		},
	})

	cf := CallFilterFromBlockFilter(bf)
	assert.True(t, cf.Matches(Call{To: addr, Input: []byte{0, 0, 0, 0}}))
	assert.Equal(t, []uint64{42}, cf.StartBlocks())
}
