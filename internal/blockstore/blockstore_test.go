package blockstore

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/subgraph-core/internal/trigger"
)

func sampleFullBlock(t *testing.T) trigger.FullBlock {
	t.Helper()
	header := &types.Header{Number: big.NewInt(55), ParentHash: common.HexToHash("0xparent")}
	tx := types.NewTransaction(0, common.HexToAddress("0xdead"), big.NewInt(1), 21000, big.NewInt(1), nil)
	block := types.NewBlockWithHeader(header).WithBody([]*types.Transaction{tx}, nil)

	receipt := &types.Receipt{
		Status:          types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		TxHash:          tx.Hash(),
		GasUsed:         21000,
		BlockHash:       block.Hash(),
		BlockNumber:     block.Number(),
		TransactionIndex: 0,
	}
	return trigger.FullBlock{Block: block, Receipts: types.Receipts{receipt}}
}

func TestWirePayloadRoundTrip(t *testing.T) {
	fb := sampleFullBlock(t)
	payload := wirePayloadFrom(fb)
	restored := payload.toFullBlock()

	assert.Equal(t, fb.Number(), restored.Number())
	assert.Equal(t, fb.Hash(), restored.Hash())
	require.Len(t, restored.Receipts, 1)
	assert.Equal(t, fb.Receipts[0].GasUsed, restored.Receipts[0].GasUsed)
	assert.Equal(t, fb.Receipts[0].Status, restored.Receipts[0].Status)
}

func TestEncodeDecodeRecordRoundTrip(t *testing.T) {
	fb := sampleFullBlock(t)
	rec, err := encodeRecord(fb)
	require.NoError(t, err)
	assert.Equal(t, fb.Hash().Hex(), rec.Hash)
	assert.Equal(t, fb.Number(), rec.Number)

	restored, err := decodeRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, fb.Hash(), restored.Hash())
	require.Len(t, restored.Receipts, 1)
	assert.Equal(t, fb.Receipts[0].CumulativeGasUsed, restored.Receipts[0].CumulativeGasUsed)
}
