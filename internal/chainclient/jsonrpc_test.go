package chainclient

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTx(t *testing.T, key *ecdsa.PrivateKey, chainID *big.Int, to common.Address) *types.Transaction {
	t.Helper()
	tx := types.NewTransaction(0, to, big.NewInt(0), 21000, big.NewInt(1), []byte{0xde, 0xad, 0xbe, 0xef})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	require.NoError(t, err)
	return signed
}

func TestCallFromTransactionSkipsContractCreation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	header := &types.Header{Number: big.NewInt(100)}
	creation := types.NewContractCreation(0, big.NewInt(0), 100000, big.NewInt(1), []byte{0x60, 0x00})
	signedCreation, err := types.SignTx(creation, types.NewEIP155Signer(big.NewInt(1)), key)
	require.NoError(t, err)

	block := types.NewBlockWithHeader(header).WithBody([]*types.Transaction{signedCreation}, nil)
	signer := types.LatestSignerForChainID(big.NewInt(1))

	_, ok := callFromTransaction(signer, block, signedCreation)
	assert.False(t, ok)
}

func TestCallFromTransactionExtractsTopLevelCall(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0x00000000000000000000000000000000000c0de")

	header := &types.Header{Number: big.NewInt(100)}
	tx := signedTx(t, key, big.NewInt(1), to)
	block := types.NewBlockWithHeader(header).WithBody([]*types.Transaction{tx}, nil)
	signer := types.LatestSignerForChainID(big.NewInt(1))

	call, ok := callFromTransaction(signer, block, tx)
	require.True(t, ok)
	assert.Equal(t, to, call.To)
	assert.Equal(t, uint64(100), call.BlockNumber)
	assert.Equal(t, block.Hash(), call.BlockHash)
	assert.Equal(t, tx.Hash(), call.TxHash)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, call.Input)

	expectedFrom, err := types.Sender(signer, tx)
	require.NoError(t, err)
	assert.Equal(t, expectedFrom, call.From)
}

func TestHeaderToLight(t *testing.T) {
	parent := common.HexToHash("0xaa")
	header := &types.Header{Number: big.NewInt(7), ParentHash: parent}
	light := headerToLight(header)
	assert.Equal(t, uint64(7), light.Number)
	assert.Equal(t, header.Hash(), light.Hash)
	assert.Equal(t, parent, light.ParentHash)
}
