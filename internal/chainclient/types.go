// Package chainclient implements the ChainClient component:
// the single seam through which the rest of the core
// ever talks to an upstream chain endpoint. Three concrete backends
// (jsonrpc.go, websocket.go, grpc.go) satisfy the same interface so the
// scanner above never branches on protocol.
package chainclient

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainforge/subgraph-core/internal/trigger"
)

// NetworkIdentifiers pins the chain a client is talking to, so a scanner
// can refuse to resume against the wrong network.
type NetworkIdentifiers struct {
	NetVersion  string
	GenesisHash common.Hash
}

// LightBlock is a block header without its body: enough to walk the
// canonical chain and resolve pointers without paying for receipts.
type LightBlock struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
}

// Pointer narrows a LightBlock to its (number, hash) identity.
func (b LightBlock) Pointer() trigger.BlockPointer {
	return trigger.BlockPointer{Number: b.Number, Hash: b.Hash}
}

// LoadBlockResult is one entry of the stream load_blocks yields: either a
// fetched block or the hash that failed and why.
type LoadBlockResult struct {
	Hash  common.Hash
	Block trigger.FullBlock
	Err   error
}

// CallResult is one entry of the stream calls_in_range yields.
type CallResult struct {
	Call trigger.Call
	Err  error
}
