package scanner_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/manifest"
	"github.com/chainforge/subgraph-core/internal/scanner"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// TestTriggersInBlockAgainstSimulatedChain runs the real BlockScanner's
// local evaluation path against a block produced by go-ethereum's
// simulated backend, the same harness the ecosystem uses for contract
// binding tests, here exercising a plain value transfer instead of a
// deployed contract since CallFilter only inspects To and calldata.
func TestTriggersInBlockAgainstSimulatedChain(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress("0x000000000000000000000000000000000000b0b")

	alloc := core.GenesisAlloc{
		from: {Balance: big.NewInt(0).Mul(big.NewInt(1e18), big.NewInt(100))},
	}
	sim := backends.NewSimulatedBackend(alloc, 8_000_000)
	defer sim.Close()

	chainID := big.NewInt(1337)
	signer := types.LatestSignerForChainID(chainID)

	const transferSig = "transfer(address,uint256)"
	calldata := append(append([]byte{}, manifest.Selector(transferSig)[:]...), make([]byte, 64)...)
	tx := types.NewTransaction(0, to, big.NewInt(1e15), 65000, big.NewInt(1_000_000_000), calldata)
	signedTx, err := types.SignTx(tx, signer, key)
	require.NoError(t, err)

	require.NoError(t, sim.SendTransaction(context.Background(), signedTx))
	sim.Commit()

	block, err := sim.BlockByNumber(context.Background(), nil)
	require.NoError(t, err)
	receipt, err := sim.TransactionReceipt(context.Background(), signedTx.Hash())
	require.NoError(t, err)

	fb := trigger.FullBlock{Block: block, Receipts: types.Receipts{receipt}}

	scan := scanner.New(nil, nil, nil, nil, chainID)

	watched := to
	cf := filter.CallFilterFromDataSources([]manifest.DataSource{{Address: &watched, CallSigs: []string{transferSig}}})
	lf := filter.NewLogFilter()
	bf := filter.NewBlockFilter()

	bwt := scan.TriggersInBlock(fb, lf, cf, bf)

	require.Len(t, bwt.Triggers, 1)
	call, ok := bwt.Triggers[0].Call()
	require.True(t, ok)
	require.Equal(t, to, call.To)
	require.Equal(t, from, call.From)
}
