package chainclient

import (
	"context"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/telemetry"
)

// NewWebsocketClient dials a ws:// or wss:// JSON-RPC endpoint, the
// "websocket-jsonrpc" protocol. go-ethereum's rpc.Dial picks
// the websocket transport off the scheme, so rpcClient's method set needs
// no changes; this backend only adds what a persistent connection buys
// over request/response polling: a live new-heads subscription a caller can
// use to avoid polling LatestBlock.
func NewWebsocketClient(ctx context.Context, url string, log logging.Logger, metrics *telemetry.Emitter) (*WebsocketClient, error) {
	rc, err := dial(ctx, url, log, metrics)
	if err != nil {
		return nil, err
	}
	return &WebsocketClient{rpcClient: rc}, nil
}

// WebsocketClient embeds the shared rpcClient so it satisfies ChainClient,
// and adds SubscribeNewHeads on top, which only a stateful transport can
// offer.
type WebsocketClient struct {
	*rpcClient
}

// SubscribeNewHeads forwards go-ethereum's eth_subscribe("newHeads") feed.
// The returned subscription's Unsubscribe must be called by the caller once
// the feed is no longer needed.
func (c *WebsocketClient) SubscribeNewHeads(ctx context.Context) (<-chan *types.Header, goethereum.Subscription, error) {
	headers := make(chan *types.Header)
	sub, err := c.eth.SubscribeNewHead(ctx, headers)
	if err != nil {
		return nil, nil, err
	}
	return headers, sub, nil
}
