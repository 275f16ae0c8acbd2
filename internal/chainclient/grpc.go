package chainclient

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/chainforge/subgraph-core/internal/chainclient/chainbridgepb"
	"github.com/chainforge/subgraph-core/internal/chainerr"
	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/telemetry"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// GRPCClient is the "grpc" ChainClient backend. Unlike the JSON-RPC
// backends, it does not talk to an archive node
// directly: it proxies through a ChainBridge aggregator service, which is
// why it only implements the subset of ChainClient a single aggregator
// reasonably fronts (no raw getLogs fan-out, no receipts streaming) —
// everything else returns chainerr.UpstreamProtocol.
type GRPCClient struct {
	bridge  chainbridgepb.ChainBridgeClient
	conn    *grpc.ClientConn
	log     logging.Logger
	metrics *telemetry.Emitter
}

// NewGRPCClient dials address and wraps it as a ChainClient.
func NewGRPCClient(address string, log logging.Logger, metrics *telemetry.Emitter) (*GRPCClient, error) {
	conn, err := grpc.Dial(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(chainbridgepb.Codec())),
	)
	if err != nil {
		return nil, chainerr.UpstreamProtocol(fmt.Sprintf("dial %s: %v", address, err))
	}
	return &GRPCClient{
		bridge:  chainbridgepb.NewChainBridgeClient(conn),
		conn:    conn,
		log:     log,
		metrics: metrics,
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) timed(method string, fn func() error) error {
	if c.metrics == nil {
		return fn()
	}
	return c.metrics.Timed(method, fn)
}

func (c *GRPCClient) NetIdentifiers(ctx context.Context) (NetworkIdentifiers, error) {
	return NetworkIdentifiers{}, chainerr.UpstreamProtocol("grpc backend does not expose net_identifiers")
}

func (c *GRPCClient) LatestBlock(ctx context.Context) (LightBlock, error) {
	var out LightBlock
	err := c.timed("latest_block", func() error {
		resp, err := c.bridge.LatestBlock(ctx, &chainbridgepb.LatestBlockRequest{})
		if err != nil {
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "chainbridge LatestBlock", err)
		}
		out = headerFromWire(resp.Header)
		return nil
	})
	return out, err
}

func (c *GRPCClient) BlockByHash(ctx context.Context, hash common.Hash) (LightBlock, bool, error) {
	var out LightBlock
	var found bool
	err := c.timed("block_by_hash", func() error {
		resp, err := c.bridge.BlockByHash(ctx, &chainbridgepb.BlockByHashRequest{Hash: hash.Hex()})
		if err != nil {
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "chainbridge BlockByHash", err)
		}
		if !resp.Found {
			return nil
		}
		found = true
		out = headerFromWire(resp.Header)
		return nil
	})
	return out, found, err
}

func (c *GRPCClient) BlockByNumber(ctx context.Context, number uint64) (LightBlock, bool, error) {
	var out LightBlock
	var found bool
	err := c.timed("block_by_number", func() error {
		resp, err := c.bridge.BlockByNumber(ctx, &chainbridgepb.BlockByNumberRequest{Number: number})
		if err != nil {
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "chainbridge BlockByNumber", err)
		}
		if !resp.Found {
			return nil
		}
		found = true
		out = headerFromWire(resp.Header)
		return nil
	})
	return out, found, err
}

func (c *GRPCClient) LoadFullBlock(ctx context.Context, light LightBlock) (trigger.FullBlock, error) {
	return trigger.FullBlock{}, chainerr.UpstreamProtocol("grpc backend does not serve full block bodies")
}

func (c *GRPCClient) LoadBlocks(ctx context.Context, hashes []common.Hash) <-chan LoadBlockResult {
	out := make(chan LoadBlockResult, len(hashes))
	go func() {
		defer close(out)
		for _, h := range hashes {
			out <- LoadBlockResult{Hash: h, Err: chainerr.UpstreamProtocol("grpc backend does not serve full block bodies")}
		}
	}()
	return out
}

func (c *GRPCClient) BlockRangeToPointers(ctx context.Context, from, to uint64) ([]trigger.BlockPointer, error) {
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

func (c *GRPCClient) IsOnMainChain(ctx context.Context, ptr trigger.BlockPointer) (bool, error) {
	hash, ok, err := c.HashForNumber(ctx, ptr.Number)
	if err != nil {
		return false, err
	}
	return ok && hash == ptr.Hash, nil
}

func (c *GRPCClient) HashForNumber(ctx context.Context, number uint64) (common.Hash, bool, error) {
	light, ok, err := c.BlockByNumber(ctx, number)
	return light.Hash, ok, err
}

func (c *GRPCClient) CallsInBlock(ctx context.Context, number uint64, hash common.Hash) ([]trigger.Call, error) {
	return nil, chainerr.UpstreamProtocol("grpc backend does not enumerate block calls")
}

func (c *GRPCClient) LogsInRange(ctx context.Context, from, to uint64, lf *filter.LogFilter) ([]Log, error) {
	return nil, chainerr.UpstreamProtocol("grpc backend does not serve getLogs")
}

func (c *GRPCClient) CallsInRange(ctx context.Context, from, to uint64, cf *filter.CallFilter) <-chan CallResult {
	out := make(chan CallResult, 1)
	out <- CallResult{Err: chainerr.UpstreamProtocol("grpc backend does not enumerate block calls")}
	close(out)
	return out
}

func (c *GRPCClient) Call(ctx context.Context, msg goethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.timed("contract_call", func() error {
		req := &chainbridgepb.CallRequest{
			To:   msg.To.Hex(),
			Data: hex.EncodeToString(msg.Data),
		}
		if blockNumber != nil {
			n := blockNumber.Int64()
			req.BlockNumber = &n
		}
		resp, err := c.bridge.Call(ctx, req)
		if err != nil {
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "chainbridge Call", err)
		}
		if resp.Reverted {
			return chainerr.Reverted(resp.RevertMsg)
		}
		out, err = hex.DecodeString(resp.ReturnData)
		if err != nil {
			return chainerr.Wrap(chainerr.KindUpstreamProtocol, "decode return data", err)
		}
		return nil
	})
	return out, err
}

func headerFromWire(h chainbridgepb.BlockHeader) LightBlock {
	return LightBlock{Number: h.Number, Hash: common.HexToHash(h.Hash), ParentHash: common.HexToHash(h.ParentHash)}
}
