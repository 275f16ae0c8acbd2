package chainclient

import (
	"context"
	"math/big"
	"testing"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/subgraph-core/internal/chainerr"
)

// stubClient is a minimal ChainClient whose only behavior under test is
// LatestBlock and Call; every other method panics if exercised.
type stubClient struct {
	ChainClient
	calls     int
	failUntil int
	failWith  error
}

func (s *stubClient) LatestBlock(ctx context.Context) (LightBlock, error) {
	s.calls++
	if s.calls <= s.failUntil {
		return LightBlock{}, s.failWith
	}
	return LightBlock{Number: 42}, nil
}

func (s *stubClient) Call(ctx context.Context, msg goethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	s.calls++
	return nil, s.failWith
}

func TestRetryingClientRetriesTransientFailures(t *testing.T) {
	stub := &stubClient{failUntil: 2, failWith: chainerr.UpstreamProtocol("rpc hiccup")}
	rc := NewRetryingClient(stub, RetryConfig{
		MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1,
	})

	block, err := rc.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), block.Number)
	assert.Equal(t, 3, stub.calls)
}

func TestRetryingClientDoesNotRetryReverted(t *testing.T) {
	stub := &stubClient{failUntil: 99, failWith: chainerr.Reverted("execution reverted")}
	rc := NewRetryingClient(stub, RetryConfig{
		MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1,
	})

	_, err := rc.Call(context.Background(), goethereum.CallMsg{}, nil)
	require.Error(t, err)
	assert.True(t, chainerr.Is(err, chainerr.KindReverted))
	assert.Equal(t, 1, stub.calls)
}

func TestRetryingClientGivesUpAfterMaxRetries(t *testing.T) {
	stub := &stubClient{failUntil: 99, failWith: chainerr.Timeout("latest_block", nil)}
	rc := NewRetryingClient(stub, RetryConfig{
		MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1,
	})

	_, err := rc.LatestBlock(context.Background())
	require.Error(t, err)
	assert.True(t, chainerr.Is(err, chainerr.KindTimeout))
	assert.Equal(t, 3, stub.calls)
}
