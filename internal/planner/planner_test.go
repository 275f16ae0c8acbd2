package planner

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/manifest"
)

func h(s string) common.Hash { return crypto.Keccak256Hash([]byte(s)) }

// TestPlanNeverProducesBothSidesWide asserts invariant 3: no window has
// both contracts and events of size >= 2, across a filter shaped to tempt
// the greedy cover into a broad pick.
func TestPlanNeverProducesBothSidesWide(t *testing.T) {
	c1 := common.HexToAddress("0x0000000000000000000000000000000000000c1")
	c2 := common.HexToAddress("0x0000000000000000000000000000000000000c2")
	c3 := common.HexToAddress("0x0000000000000000000000000000000000000c3")

	sources := []manifest.DataSource{
		{Address: &c1, EventSigs: []string{"E1()", "E2()"}},
		{Address: &c2, EventSigs: []string{"E1()", "E2()"}},
		{Address: &c3, EventSigs: []string{"E1()", "E2()"}},
	}
	lf := filter.LogFilterFromDataSources(sources)
	windows := Plan(lf)

	require.NotEmpty(t, windows)
	for _, w := range windows {
		assert.False(t, len(w.Contracts) > 1 && len(w.Events) > 1,
			"window has both sides >1: %+v", w)
		assert.True(t, len(w.Contracts) == 1 || len(w.Events) == 1 || len(w.Contracts) == 0)
	}
}

// TestPlanCoversEveryMatchingLog asserts invariant 4: every log the filter
// matches is matched by the union of the emitted windows (no false
// negatives).
func TestPlanCoversEveryMatchingLog(t *testing.T) {
	c1 := common.HexToAddress("0x0000000000000000000000000000000000000c1")
	c2 := common.HexToAddress("0x0000000000000000000000000000000000000c2")

	sources := []manifest.DataSource{
		{Address: &c1, EventSigs: []string{"E1()"}},
		{Address: &c2, EventSigs: []string{"E1()", "E2()"}},
		{Address: nil, EventSigs: []string{"E3()"}},
	}
	lf := filter.LogFilterFromDataSources(sources)
	windows := Plan(lf)

	matchesWindows := func(addr common.Address, sig common.Hash) bool {
		for _, w := range windows {
			addrOK := len(w.Contracts) == 0
			for _, c := range w.Contracts {
				if c == addr {
					addrOK = true
				}
			}
			if !addrOK {
				continue
			}
			for _, e := range w.Events {
				if e == sig {
					return true
				}
			}
		}
		return false
	}

	cases := []struct {
		addr common.Address
		sig  string
	}{
		{c1, "E1()"},
		{c2, "E1()"},
		{c2, "E2()"},
		{common.HexToAddress("0xdead"), "E3()"},
	}
	for _, c := range cases {
		assert.True(t, matchesWindows(c.addr, h(c.sig)), "window set should cover %s/%s", c.addr.Hex(), c.sig)
	}
}

// TestPlanCompressesSharedEvents covers the case of three
// contracts subscribed to the same two events compress to at most two
// windows, never the broad {[C1,C2,C3],[E1,E2]} shape.
func TestPlanCompressesSharedEvents(t *testing.T) {
	c1 := common.HexToAddress("0x0000000000000000000000000000000000000c1")
	c2 := common.HexToAddress("0x0000000000000000000000000000000000000c2")
	c3 := common.HexToAddress("0x0000000000000000000000000000000000000c3")

	sources := []manifest.DataSource{
		{Address: &c1, EventSigs: []string{"E1()", "E2()"}},
		{Address: &c2, EventSigs: []string{"E1()", "E2()"}},
		{Address: &c3, EventSigs: []string{"E1()", "E2()"}},
	}
	lf := filter.LogFilterFromDataSources(sources)
	windows := Plan(lf)

	assert.LessOrEqual(t, len(windows), 2)
}

func TestPlanWildcardOnly(t *testing.T) {
	lf := filter.LogFilterFromDataSources([]manifest.DataSource{
		{Address: nil, EventSigs: []string{"E1()"}},
	})
	windows := Plan(lf)
	require.Len(t, windows, 1)
	assert.Empty(t, windows[0].Contracts)
	assert.Equal(t, []common.Hash{h("E1()")}, windows[0].Events)
}

func TestDescribeFormatsBothShapes(t *testing.T) {
	c1 := common.HexToAddress("0x0000000000000000000000000000000000000c1")
	w1 := Window{Contracts: []common.Address{c1}, Events: []common.Hash{h("E1()"), h("E2()")}}
	assert.Contains(t, Describe(w1), "contract")

	w2 := Window{Contracts: []common.Address{c1, c1}, Events: []common.Hash{h("E1()")}}
	assert.Contains(t, Describe(w2), "event")
}
