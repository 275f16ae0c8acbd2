package chainclient

import (
	"context"
	"fmt"
	"math/big"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/chainforge/subgraph-core/internal/chainerr"
	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/planner"
	"github.com/chainforge/subgraph-core/internal/telemetry"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// rpcClient is the shared implementation behind the HTTPS JSON-RPC and
// Websocket backends: both dial through go-ethereum's rpc package, which
// picks its transport from the URL scheme, so the two protocols need no
// code of their own beyond how they're constructed (jsonrpc.go,
// websocket.go).
type rpcClient struct {
	eth     *ethclient.Client
	rpc     *rpc.Client
	log     logging.Logger
	metrics *telemetry.Emitter
}

// NewHTTPSClient dials an https:// (or http://) JSON-RPC endpoint, the
// "https-jsonrpc" protocol.
func NewHTTPSClient(ctx context.Context, url string, log logging.Logger, metrics *telemetry.Emitter) (ChainClient, error) {
	return dial(ctx, url, log, metrics)
}

func dial(ctx context.Context, url string, log logging.Logger, metrics *telemetry.Emitter) (*rpcClient, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, chainerr.UpstreamProtocol(fmt.Sprintf("dial %s: %v", url, err))
	}
	return &rpcClient{
		eth:     ethclient.NewClient(rc),
		rpc:     rc,
		log:     log,
		metrics: metrics,
	}, nil
}

func (c *rpcClient) timed(method string, fn func() error) error {
	if c.metrics == nil {
		return fn()
	}
	return c.metrics.Timed(method, fn)
}

func (c *rpcClient) NetIdentifiers(ctx context.Context) (NetworkIdentifiers, error) {
	var out NetworkIdentifiers
	err := c.timed("net_identifiers", func() error {
		var netVersion string
		if err := c.rpc.CallContext(ctx, &netVersion, "net_version"); err != nil {
			return chainerr.UpstreamProtocol(err.Error())
		}
		genesis, err := c.eth.BlockByNumber(ctx, big.NewInt(0))
		if err != nil {
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "fetch genesis block", err)
		}
		out = NetworkIdentifiers{NetVersion: netVersion, GenesisHash: genesis.Hash()}
		return nil
	})
	return out, err
}

func (c *rpcClient) LatestBlock(ctx context.Context) (LightBlock, error) {
	var out LightBlock
	err := c.timed("latest_block", func() error {
		header, err := c.eth.HeaderByNumber(ctx, nil)
		if err != nil {
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "fetch latest header", err)
		}
		out = headerToLight(header)
		return nil
	})
	return out, err
}

func (c *rpcClient) BlockByHash(ctx context.Context, hash common.Hash) (LightBlock, bool, error) {
	var out LightBlock
	var found bool
	err := c.timed("block_by_hash", func() error {
		header, err := c.eth.HeaderByHash(ctx, hash)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "fetch header by hash", err)
		}
		out = headerToLight(header)
		found = true
		return nil
	})
	return out, found, err
}

func (c *rpcClient) BlockByNumber(ctx context.Context, number uint64) (LightBlock, bool, error) {
	var out LightBlock
	var found bool
	err := c.timed("block_by_number", func() error {
		header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "fetch header by number", err)
		}
		out = headerToLight(header)
		found = true
		return nil
	})
	return out, found, err
}

func (c *rpcClient) LoadFullBlock(ctx context.Context, light LightBlock) (trigger.FullBlock, error) {
	var out trigger.FullBlock
	err := c.timed("load_full_block", func() error {
		block, err := c.eth.BlockByHash(ctx, light.Hash)
		if err != nil {
			return chainerr.BlockUnavailable(light.Hash)
		}
		receipts, err := c.receiptsForBlock(ctx, block)
		if err != nil {
			return err
		}
		out = trigger.FullBlock{Block: block, Receipts: receipts}
		return nil
	})
	return out, err
}

func (c *rpcClient) receiptsForBlock(ctx context.Context, block *types.Block) (types.Receipts, error) {
	txs := block.Transactions()
	receipts := make(types.Receipts, len(txs))
	batch := make([]rpc.BatchElem, len(txs))
	for i, tx := range txs {
		receipts[i] = new(types.Receipt)
		batch[i] = rpc.BatchElem{
			Method: "eth_getTransactionReceipt",
			Args:   []interface{}{tx.Hash()},
			Result: receipts[i],
		}
	}
	if len(batch) == 0 {
		return receipts, nil
	}
	if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, chainerr.Wrap(chainerr.KindUpstreamProtocol, "batch fetch receipts", err)
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, chainerr.Wrap(chainerr.KindUpstreamProtocol, "fetch receipt", elem.Error)
		}
	}
	return receipts, nil
}

func (c *rpcClient) LoadBlocks(ctx context.Context, hashes []common.Hash) <-chan LoadBlockResult {
	out := make(chan LoadBlockResult, len(hashes))
	go func() {
		defer close(out)
		for _, h := range hashes {
			block, err := c.LoadFullBlock(ctx, LightBlock{Hash: h})
			out <- LoadBlockResult{Hash: h, Block: block, Err: err}
		}
	}()
	return out
}

// BlockRangeToPointers walks [from, to] via BlockByNumber, re-reading each
// number's canonical hash directly from the endpoint rather than trusting
// any cached mapping, since reorgs can change it between calls.
func (c *rpcClient) BlockRangeToPointers(ctx context.Context, from, to uint64) ([]trigger.BlockPointer, error) {
	if from > to {
		return nil, chainerr.InvalidRange(from, to)
	}
	out := make([]trigger.BlockPointer, 0, to-from+1)
	for n := from; n <= to; n++ {
		light, ok, err := c.BlockByNumber(ctx, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, chainerr.UpstreamProtocol(fmt.Sprintf("block %d is beyond the endpoint's head", n))
		}
		out = append(out, light.Pointer())
	}
	return out, nil
}

func (c *rpcClient) IsOnMainChain(ctx context.Context, ptr trigger.BlockPointer) (bool, error) {
	hash, ok, err := c.HashForNumber(ctx, ptr.Number)
	if err != nil {
		return false, err
	}
	return ok && hash == ptr.Hash, nil
}

func (c *rpcClient) HashForNumber(ctx context.Context, number uint64) (common.Hash, bool, error) {
	light, ok, err := c.BlockByNumber(ctx, number)
	return light.Hash, ok, err
}

func (c *rpcClient) CallsInBlock(ctx context.Context, number uint64, hash common.Hash) ([]trigger.Call, error) {
	var out []trigger.Call
	err := c.timed("calls_in_block", func() error {
		block, err := c.eth.BlockByHash(ctx, hash)
		if err != nil {
			return chainerr.BlockUnavailable(hash)
		}
		signer := types.LatestSignerForChainID(block.Number())
		for _, tx := range block.Transactions() {
			call, ok := callFromTransaction(signer, block, tx)
			if ok {
				out = append(out, call)
			}
		}
		return nil
	})
	return out, err
}

// callFromTransaction derives a top-level Call from a transaction. Internal
// calls made by contract code during execution are not visible here: that
// would require a debug_traceBlock call, which not every endpoint exposes,
// so this core only ever observes the top-level message call that
// CallFilter matches against.
func callFromTransaction(signer types.Signer, block *types.Block, tx *types.Transaction) (trigger.Call, bool) {
	if tx.To() == nil {
		return trigger.Call{}, false
	}
	from, err := types.Sender(signer, tx)
	if err != nil {
		from = common.Address{}
	}
	return trigger.Call{
		BlockNumber: block.NumberU64(),
		BlockHash:   block.Hash(),
		TxHash:      tx.Hash(),
		From:        from,
		To:          *tx.To(),
		Input:       tx.Data(),
	}, true
}

func (c *rpcClient) LogsInRange(ctx context.Context, from, to uint64, lf *filter.LogFilter) ([]Log, error) {
	var out []Log
	err := c.timed("logs_in_range", func() error {
		for _, w := range planner.Plan(lf) {
			q := goethereum.FilterQuery{
				FromBlock: new(big.Int).SetUint64(from),
				ToBlock:   new(big.Int).SetUint64(to),
				Addresses: w.Contracts,
			}
			if len(w.Events) > 0 {
				q.Topics = [][]common.Hash{w.Events}
			}
			logs, err := c.eth.FilterLogs(ctx, q)
			if err != nil {
				return chainerr.Wrap(chainerr.KindUpstreamProtocol, "eth_getLogs", err)
			}
			out = append(out, logs...)
		}
		return nil
	})
	return out, err
}

func (c *rpcClient) CallsInRange(ctx context.Context, from, to uint64, cf *filter.CallFilter) <-chan CallResult {
	out := make(chan CallResult)
	go func() {
		defer close(out)
		if from > to {
			out <- CallResult{Err: chainerr.InvalidRange(from, to)}
			return
		}
		for n := from; n <= to; n++ {
			light, ok, err := c.BlockByNumber(ctx, n)
			if err != nil {
				out <- CallResult{Err: err}
				return
			}
			if !ok {
				out <- CallResult{Err: chainerr.UpstreamProtocol(fmt.Sprintf("block %d is beyond the endpoint's head", n))}
				return
			}
			calls, err := c.CallsInBlock(ctx, light.Number, light.Hash)
			if err != nil {
				out <- CallResult{Err: err}
				return
			}
			for _, call := range calls {
				if cf.Matches(filter.Call{To: call.To, Input: call.Input}) {
					out <- CallResult{Call: call}
				}
			}
		}
	}()
	return out
}

func (c *rpcClient) Call(ctx context.Context, msg goethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.timed("contract_call", func() error {
		result, err := c.eth.CallContract(ctx, msg, blockNumber)
		if err != nil {
			if isRevert(err) {
				return chainerr.Reverted(err.Error())
			}
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "eth_call", err)
		}
		out = result
		return nil
	})
	return out, err
}

func headerToLight(h *types.Header) LightBlock {
	return LightBlock{Number: h.Number.Uint64(), Hash: h.Hash(), ParentHash: h.ParentHash}
}

func isNotFound(err error) bool {
	return err != nil && err == goethereum.NotFound
}

func isRevert(err error) bool {
	if err == nil {
		return false
	}
	type dataError interface {
		ErrorData() interface{}
	}
	_, ok := err.(dataError)
	return ok
}
