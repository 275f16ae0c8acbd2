// Package callcache implements the contract-call primitive: encoding and
// decoding a contract call against its ABI, and
// caching the result so two triggers that both evaluate the same call
// against the same finalized block pay for eth_call exactly once.
package callcache

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"golang.org/x/sync/singleflight"

	"github.com/chainforge/subgraph-core/internal/chainerr"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// EthereumContractCall is a single read-only contract call pinned to a
// specific block: the unit callcache keys, dedupes, and caches.
type EthereumContractCall struct {
	Contract common.Address
	Block    trigger.BlockPointer
	ABI      *abi.ABI
	Function string
	Args     []interface{}
}

// key derives the cache/dedup key from everything that determines the
// call's result: address, finalized block hash, and the exact calldata
// (which already encodes function + args).
func (c EthereumContractCall) key(calldata []byte) string {
	return fmt.Sprintf("%s|%s|%s", c.Contract.Hex(), c.Block.Hash.Hex(), hex.EncodeToString(calldata))
}

// EthereumCallCache wraps a ChainClient with ABI encode/decode and a
// content-addressed result cache. Because a call is keyed by a specific
// block hash, a cache hit never goes stale: the block is immutable once
// identified by hash, so the call's result is too.
type EthereumCallCache struct {
	client ChainCaller
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string][]interface{}
}

// ChainCaller is the slice of chainclient.ChainClient this package depends
// on, named separately so tests can stub it without a full ChainClient.
type ChainCaller interface {
	Call(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// New wraps client with a fresh, unbounded result cache. Per-process memory
// growth is bounded in practice by how many distinct (contract, block,
// calldata) triples a single scan actually evaluates — this core does not
// impose an eviction policy of its own.
func New(client ChainCaller) *EthereumCallCache {
	return &EthereumCallCache{client: client, cache: make(map[string][]interface{})}
}

// Call executes call, using the cache for any call already evaluated at
// this exact (contract, block, calldata) triple, and go-singleflight to
// collapse concurrent identical in-flight calls into one upstream request.
func (cc *EthereumCallCache) Call(ctx context.Context, call EthereumContractCall) ([]interface{}, error) {
	method, ok := call.ABI.Methods[call.Function]
	if !ok {
		return nil, chainerr.New(chainerr.KindABIError, fmt.Sprintf("unknown method %q", call.Function))
	}

	calldata, err := call.ABI.Pack(call.Function, call.Args...)
	if err != nil {
		return nil, chainerr.ABIErrorf(err)
	}

	key := call.key(calldata)

	cc.mu.RLock()
	if cached, ok := cc.cache[key]; ok {
		cc.mu.RUnlock()
		return cached, nil
	}
	cc.mu.RUnlock()

	result, err, _ := cc.group.Do(key, func() (interface{}, error) {
		return cc.evaluate(ctx, call, calldata, method)
	})
	if err != nil {
		return nil, err
	}
	return result.([]interface{}), nil
}

func (cc *EthereumCallCache) evaluate(ctx context.Context, call EthereumContractCall, calldata []byte, method abi.Method) ([]interface{}, error) {
	msg := ethereum.CallMsg{To: &call.Contract, Data: calldata}
	raw, err := cc.client.Call(ctx, msg, new(big.Int).SetUint64(call.Block.Number))
	if err != nil {
		return nil, err
	}

	values, err := method.Outputs.Unpack(raw)
	if err != nil {
		return nil, chainerr.ABIErrorf(err)
	}

	key := call.key(calldata)
	cc.mu.Lock()
	cc.cache[key] = values
	cc.mu.Unlock()

	return values, nil
}
