package filter

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/subgraph-core/internal/manifest"
)

func sig(s string) common.Hash { return crypto.Keccak256Hash([]byte(s)) }

func TestLogFilterFromDataSourcesAndMatches(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	transferSig := sig("Transfer(address,address,uint256)")

	sources := []manifest.DataSource{
		{Address: &addr, EventSigs: []string{"Transfer(address,address,uint256)"}},
	}
	lf := LogFilterFromDataSources(sources)

	require.False(t, lf.IsEmpty())
	assert.True(t, lf.Matches(types.Log{Address: addr, Topics: []common.Hash{transferSig}}))
	assert.False(t, lf.Matches(types.Log{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Topics: []common.Hash{transferSig}}))
	assert.False(t, lf.Matches(types.Log{Address: addr, Topics: nil}))
}

func TestLogFilterWildcardEvent(t *testing.T) {
	e1 := sig("E1()")
	e2 := sig("E2()")
	sources := []manifest.DataSource{
		{Address: nil, EventSigs: []string{"E1()"}},
	}
	lf := LogFilterFromDataSources(sources)

	anyAddr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	assert.True(t, lf.Matches(types.Log{Address: anyAddr, Topics: []common.Hash{e1}}))
	assert.False(t, lf.Matches(types.Log{Address: anyAddr, Topics: []common.Hash{e2}}))
}

func TestLogFilterExtendIsAssociativeCommutativeIdempotent(t *testing.T) {
	a1 := common.HexToAddress("0x0000000000000000000000000000000000000a")
	a2 := common.HexToAddress("0x0000000000000000000000000000000000000b")
	s1 := []manifest.DataSource{{Address: &a1, EventSigs: []string{"A()"}}}
	s2 := []manifest.DataSource{{Address: &a2, EventSigs: []string{"B()"}}}
	s3 := []manifest.DataSource{{Address: nil, EventSigs: []string{"C()"}}}

	// commutative + associative: (f1 ext f2) ext f3 behaves the same as
	// (f2 ext f1) ext f3, compared via their match behavior over all three
	// events and both addresses.
	left := LogFilterFromDataSources(s1)
	left.Extend(LogFilterFromDataSources(s2))
	left.Extend(LogFilterFromDataSources(s3))

	right := LogFilterFromDataSources(s2)
	right.Extend(LogFilterFromDataSources(s1))
	right.Extend(LogFilterFromDataSources(s3))

	logs := []types.Log{
		{Address: a1, Topics: []common.Hash{sig("A()")}},
		{Address: a2, Topics: []common.Hash{sig("B()")}},
		{Address: a1, Topics: []common.Hash{sig("C()")}},
		{Address: a2, Topics: []common.Hash{sig("D()")}},
	}
	for _, l := range logs {
		assert.Equal(t, left.Matches(l), right.Matches(l))
	}

	// idempotent: extending with a clone changes nothing observable.
	before := left.Matches(logs[0])
	left.Extend(LogFilterFromDataSources(s1))
	assert.Equal(t, before, left.Matches(logs[0]))
}

func TestBloomProbablyMatchesNeverFalseNegative(t *testing.T) {
	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	eventSig := sig("Transfer(address,address,uint256)")
	lf := LogFilterFromDataSources([]manifest.DataSource{
		{Address: &addr, EventSigs: []string{"Transfer(address,address,uint256)"}},
	})

	log := types.Log{Address: addr, Topics: []common.Hash{eventSig}}
	require.True(t, lf.Matches(log))

	var bloom types.Bloom
	bloom.Add(addr.Bytes())
	bloom.Add(eventSig.Bytes())

	assert.True(t, lf.BloomProbablyMatches(bloom))
}

func TestEmptyLogFilterNeverMatches(t *testing.T) {
	lf := NewLogFilter()
	assert.True(t, lf.IsEmpty())
	assert.False(t, lf.Matches(types.Log{Address: common.Address{}, Topics: []common.Hash{{}}}))
}
