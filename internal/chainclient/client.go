package chainclient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// ChainClient is every way the core reaches an upstream chain endpoint.
// Reorg-sensitive resolution (HashForNumber,
// IsOnMainChain, BlockRangeToPointers) is the only part of this
// interface that must re-derive its answer on every call rather than
// trust a cache, since the canonical chain at a given number can change
// out from under a caller between calls.
type ChainClient interface {
	// NetIdentifiers returns the network version and genesis hash, used
	// to refuse resuming a scan against the wrong chain.
	NetIdentifiers(ctx context.Context) (NetworkIdentifiers, error)

	// LatestBlock returns the head of the chain as the client currently
	// sees it.
	LatestBlock(ctx context.Context) (LightBlock, error)

	// BlockByHash returns the light block for hash, or ok=false if the
	// endpoint has no such block (pruned, or never existed).
	BlockByHash(ctx context.Context, hash common.Hash) (block LightBlock, ok bool, err error)

	// BlockByNumber returns the light block currently canonical at
	// number, or ok=false if number is beyond the chain head.
	BlockByNumber(ctx context.Context, number uint64) (block LightBlock, ok bool, err error)

	// LoadFullBlock fetches the body and receipts for a known light
	// block.
	LoadFullBlock(ctx context.Context, light LightBlock) (trigger.FullBlock, error)

	// LoadBlocks fetches many blocks by hash, returning results on the
	// channel in no particular order; the channel closes once every
	// hash has produced a result (success or error).
	LoadBlocks(ctx context.Context, hashes []common.Hash) <-chan LoadBlockResult

	// BlockRangeToPointers resolves every block number in [from, to]
	// to its currently-canonical (number, hash) pointer, via a
	// reorg-sensitive walk: to must already be at or below a
	// block the caller considers safe to read as final.
	BlockRangeToPointers(ctx context.Context, from, to uint64) ([]trigger.BlockPointer, error)

	// IsOnMainChain reports whether ptr is still canonical: the chain
	// at ptr.Number currently has ptr.Hash.
	IsOnMainChain(ctx context.Context, ptr trigger.BlockPointer) (bool, error)

	// HashForNumber returns the hash currently canonical at number, or
	// ok=false if number is beyond the chain head.
	HashForNumber(ctx context.Context, number uint64) (hash common.Hash, ok bool, err error)

	// CallsInBlock returns the top-level call of every transaction in the
	// block (number, hash) that has a recipient, used by the scanner to
	// evaluate CallFilter and block-handler call triggers. Internal calls
	// made during execution are not included.
	CallsInBlock(ctx context.Context, number uint64, hash common.Hash) ([]trigger.Call, error)

	// LogsInRange evaluates lf's compiled getLogs windows over
	// [from, to] and returns the matching logs.
	LogsInRange(ctx context.Context, from, to uint64, lf *filter.LogFilter) ([]Log, error)

	// CallsInRange streams every call in [from, to] matching cf.
	CallsInRange(ctx context.Context, from, to uint64, cf *filter.CallFilter) <-chan CallResult

	// Call executes a read-only contract call at a pinned block,
	// mirroring bind.ContractCaller's CallContract so accounts/abi
	// packing/unpacking composes directly on top of it. A nil
	// blockNumber means "latest".
	Call(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Log is an alias kept local to this package's interface so callers of
// ChainClient don't need to import core/types directly.
type Log = filter.Log
