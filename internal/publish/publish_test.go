package publish

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/subgraph-core/internal/trigger"
)

func sampleBlockWithTriggers() trigger.BlockWithTriggers {
	header := &types.Header{Number: big.NewInt(42), ParentHash: common.HexToHash("0xparent")}
	block := types.NewBlockWithHeader(header).WithBody(nil, nil)
	fb := trigger.FullBlock{Block: block}

	log := types.Log{
		Address:     common.HexToAddress("0xabc"),
		Topics:      []common.Hash{common.HexToHash("0xevent")},
		Data:        []byte{0x01, 0x02},
		BlockNumber: 42,
		BlockHash:   fb.Hash(),
	}
	call := trigger.Call{
		BlockNumber: 42,
		BlockHash:   fb.Hash(),
		To:          common.HexToAddress("0xdef"),
		Input:       []byte{0xaa, 0xbb, 0xcc, 0xdd},
	}

	return trigger.BlockWithTriggers{
		Block: fb,
		Triggers: []trigger.Trigger{
			trigger.NewLogTrigger(log),
			trigger.NewCallTrigger(call),
			trigger.NewBlockTrigger(fb.Pointer()),
		},
		Finality: trigger.Final,
	}
}

func TestMarshalRoundTripsThroughJSON(t *testing.T) {
	bwt := sampleBlockWithTriggers()
	data, err := Marshal(bwt)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))

	assert.EqualValues(t, 42, env.Number)
	assert.Equal(t, "final", env.Finality)
	require.Len(t, env.Triggers, 3)
	assert.Equal(t, "log", env.Triggers[0].Kind)
	assert.Equal(t, "call", env.Triggers[1].Kind)
	assert.Equal(t, "block", env.Triggers[2].Kind)
	assert.Equal(t, "0xaabbccdd", env.Triggers[1].CallData)
}

type stubBackend struct {
	published []trigger.BlockWithTriggers
	err       error
	closed    bool
}

func (s *stubBackend) Publish(ctx context.Context, topic string, bwt trigger.BlockWithTriggers) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, bwt)
	return nil
}

func (s *stubBackend) Close() error {
	s.closed = true
	return nil
}

func TestMultiPublisherFansOutToEveryBackend(t *testing.T) {
	a := &stubBackend{}
	b := &stubBackend{}
	mp := NewMultiPublisher(nil, map[string]Publisher{"a": a, "b": b})

	bwt := sampleBlockWithTriggers()
	require.NoError(t, mp.Publish(context.Background(), "blocks", bwt))

	assert.Len(t, a.published, 1)
	assert.Len(t, b.published, 1)
}

func TestMultiPublisherCloseClosesEveryBackend(t *testing.T) {
	a := &stubBackend{}
	b := &stubBackend{}
	mp := NewMultiPublisher(nil, map[string]Publisher{"a": a, "b": b})

	require.NoError(t, mp.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
