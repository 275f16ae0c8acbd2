package chainclient

import (
	"context"
	"math"
	"math/big"
	"math/rand"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainforge/subgraph-core/internal/chainerr"
	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// RetryConfig tunes RetryingClient's exponential backoff.
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	EnableJitter      bool
}

// DefaultRetryConfig holds the retry defaults for a client wrapped with
// NewRetryingClient. Clients that are not wrapped do not retry.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:        3,
	BaseDelay:         time.Second,
	MaxDelay:          30 * time.Second,
	BackoffMultiplier: 2.0,
	EnableJitter:      true,
}

// RetryingClient wraps any ChainClient, retrying a call that fails with a
// KindTimeout or KindUpstreamProtocol error. It never retries KindReverted,
// KindInvalidRange, KindABIError, or KindCallTypeMismatch, since another
// attempt cannot change those outcomes.
type RetryingClient struct {
	inner  ChainClient
	config RetryConfig
}

// NewRetryingClient wraps inner with config. A zero config uses
// DefaultRetryConfig.
func NewRetryingClient(inner ChainClient, config RetryConfig) *RetryingClient {
	if config.MaxRetries == 0 && config.BaseDelay == 0 {
		config = DefaultRetryConfig
	}
	return &RetryingClient{inner: inner, config: config}
}

func (r *RetryingClient) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	result := time.Duration(d)
	if r.config.EnableJitter {
		result = time.Duration(float64(result) * (1 + rand.Float64()*0.1))
	}
	return result
}

func retryable(err error) bool {
	return chainerr.Is(err, chainerr.KindTimeout) || chainerr.Is(err, chainerr.KindUpstreamProtocol)
}

func withRetry[T any](ctx context.Context, r *RetryingClient, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !retryable(err) || attempt == r.config.MaxRetries {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}
	return zero, lastErr
}

func (r *RetryingClient) NetIdentifiers(ctx context.Context) (NetworkIdentifiers, error) {
	return withRetry(ctx, r, func() (NetworkIdentifiers, error) { return r.inner.NetIdentifiers(ctx) })
}

func (r *RetryingClient) LatestBlock(ctx context.Context) (LightBlock, error) {
	return withRetry(ctx, r, func() (LightBlock, error) { return r.inner.LatestBlock(ctx) })
}

func (r *RetryingClient) BlockByHash(ctx context.Context, hash common.Hash) (LightBlock, bool, error) {
	type result struct {
		block LightBlock
		ok    bool
	}
	res, err := withRetry(ctx, r, func() (result, error) {
		b, ok, err := r.inner.BlockByHash(ctx, hash)
		return result{b, ok}, err
	})
	return res.block, res.ok, err
}

func (r *RetryingClient) BlockByNumber(ctx context.Context, number uint64) (LightBlock, bool, error) {
	type result struct {
		block LightBlock
		ok    bool
	}
	res, err := withRetry(ctx, r, func() (result, error) {
		b, ok, err := r.inner.BlockByNumber(ctx, number)
		return result{b, ok}, err
	})
	return res.block, res.ok, err
}

func (r *RetryingClient) LoadFullBlock(ctx context.Context, light LightBlock) (trigger.FullBlock, error) {
	return withRetry(ctx, r, func() (trigger.FullBlock, error) { return r.inner.LoadFullBlock(ctx, light) })
}

// LoadBlocks is not retried per-hash wrapper-side: the underlying client
// already resolves each hash independently, and retrying a partially
// consumed fan-out channel would risk duplicate deliveries.
func (r *RetryingClient) LoadBlocks(ctx context.Context, hashes []common.Hash) <-chan LoadBlockResult {
	return r.inner.LoadBlocks(ctx, hashes)
}

func (r *RetryingClient) BlockRangeToPointers(ctx context.Context, from, to uint64) ([]trigger.BlockPointer, error) {
	return withRetry(ctx, r, func() ([]trigger.BlockPointer, error) { return r.inner.BlockRangeToPointers(ctx, from, to) })
}

func (r *RetryingClient) IsOnMainChain(ctx context.Context, ptr trigger.BlockPointer) (bool, error) {
	return withRetry(ctx, r, func() (bool, error) { return r.inner.IsOnMainChain(ctx, ptr) })
}

func (r *RetryingClient) HashForNumber(ctx context.Context, number uint64) (common.Hash, bool, error) {
	type result struct {
		hash common.Hash
		ok   bool
	}
	res, err := withRetry(ctx, r, func() (result, error) {
		h, ok, err := r.inner.HashForNumber(ctx, number)
		return result{h, ok}, err
	})
	return res.hash, res.ok, err
}

func (r *RetryingClient) CallsInBlock(ctx context.Context, number uint64, hash common.Hash) ([]trigger.Call, error) {
	return withRetry(ctx, r, func() ([]trigger.Call, error) { return r.inner.CallsInBlock(ctx, number, hash) })
}

func (r *RetryingClient) LogsInRange(ctx context.Context, from, to uint64, lf *filter.LogFilter) ([]Log, error) {
	return withRetry(ctx, r, func() ([]Log, error) { return r.inner.LogsInRange(ctx, from, to, lf) })
}

// CallsInRange is forwarded unwrapped for the same reason as LoadBlocks.
func (r *RetryingClient) CallsInRange(ctx context.Context, from, to uint64, cf *filter.CallFilter) <-chan CallResult {
	return r.inner.CallsInRange(ctx, from, to, cf)
}

func (r *RetryingClient) Call(ctx context.Context, msg goethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return withRetry(ctx, r, func() ([]byte, error) { return r.inner.Call(ctx, msg, blockNumber) })
}
