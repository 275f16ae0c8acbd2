package apiserver

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/subgraph-core/internal/callcache"
	"github.com/chainforge/subgraph-core/internal/chainclient"
	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/scanner"
	"github.com/chainforge/subgraph-core/internal/trigger"

	"github.com/chainforge/subgraph-core/internal/apiserver/scannerpb"
)

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})             {}
func (noopLogger) Error(string, ...interface{})            {}
func (noopLogger) Warn(string, ...interface{})             {}
func (noopLogger) Debug(string, ...interface{})            {}
func (n noopLogger) With(map[string]interface{}) logging.Logger { return n }
func (n noopLogger) WithTrace(context.Context) logging.Logger   { return n }
func (noopLogger) Sync() error                              { return nil }

type stubChain struct {
	blocks     map[uint64]trigger.FullBlock
	callResult []byte
}

func (s *stubChain) NetIdentifiers(ctx context.Context) (chainclient.NetworkIdentifiers, error) {
	panic("not used")
}
func (s *stubChain) LatestBlock(ctx context.Context) (chainclient.LightBlock, error) {
	panic("not used")
}
func (s *stubChain) BlockByHash(ctx context.Context, hash common.Hash) (chainclient.LightBlock, bool, error) {
	panic("not used")
}
func (s *stubChain) BlockByNumber(ctx context.Context, number uint64) (chainclient.LightBlock, bool, error) {
	panic("not used")
}
func (s *stubChain) LoadFullBlock(ctx context.Context, light chainclient.LightBlock) (trigger.FullBlock, error) {
	panic("not used")
}
func (s *stubChain) LoadBlocks(ctx context.Context, hashes []common.Hash) <-chan chainclient.LoadBlockResult {
	out := make(chan chainclient.LoadBlockResult, len(hashes))
	for _, h := range hashes {
		found := false
		for _, fb := range s.blocks {
			if fb.Hash() == h {
				out <- chainclient.LoadBlockResult{Hash: h, Block: fb}
				found = true
				break
			}
		}
		if !found {
			out <- chainclient.LoadBlockResult{Hash: h, Err: context.DeadlineExceeded}
		}
	}
	close(out)
	return out
}
func (s *stubChain) BlockRangeToPointers(ctx context.Context, from, to uint64) ([]trigger.BlockPointer, error) {
	var out []trigger.BlockPointer
	for n := from; n <= to; n++ {
		if fb, ok := s.blocks[n]; ok {
			out = append(out, fb.Pointer())
		}
	}
	return out, nil
}
func (s *stubChain) IsOnMainChain(ctx context.Context, ptr trigger.BlockPointer) (bool, error) {
	panic("not used")
}
func (s *stubChain) HashForNumber(ctx context.Context, number uint64) (common.Hash, bool, error) {
	fb, ok := s.blocks[number]
	if !ok {
		return common.Hash{}, false, nil
	}
	return fb.Hash(), true, nil
}
func (s *stubChain) CallsInBlock(ctx context.Context, number uint64, hash common.Hash) ([]trigger.Call, error) {
	panic("not used")
}
func (s *stubChain) LogsInRange(ctx context.Context, from, to uint64, lf *filter.LogFilter) ([]chainclient.Log, error) {
	return nil, nil
}
func (s *stubChain) CallsInRange(ctx context.Context, from, to uint64, cf *filter.CallFilter) <-chan chainclient.CallResult {
	out := make(chan chainclient.CallResult)
	close(out)
	return out
}
func (s *stubChain) Call(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return s.callResult, nil
}

func makeBlock(number int64) trigger.FullBlock {
	header := &types.Header{Number: big.NewInt(number), ParentHash: common.HexToHash("0xparent")}
	return trigger.FullBlock{Block: types.NewBlockWithHeader(header).WithBody(nil, nil)}
}

func testScanner() *scanner.BlockScanner {
	b42 := makeBlock(42)
	chain := &stubChain{blocks: map[uint64]trigger.FullBlock{42: b42}}
	return scanner.New(chain, nil, nil, noopLogger{}, big.NewInt(1))
}

func TestGRPCBlocksWithTriggersReturnsEnvelope(t *testing.T) {
	srv := &grpcServer{scan: testScanner(), log: noopLogger{}}

	resp, err := srv.BlocksWithTriggers(context.Background(), &scannerpb.BlockRangeRequest{From: 42, To: 42})
	require.NoError(t, err)
	require.Len(t, resp.Blocks, 1)
	assert.EqualValues(t, 42, resp.Blocks[0].Number)
	assert.Equal(t, "final", resp.Blocks[0].Finality)
}

func TestRESTHealthHandlerOK(t *testing.T) {
	s := NewServer(testScanner(), nil, nil, NewAuthMiddleware("secret"), noopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRESTBlocksHandlerRequiresAuth(t *testing.T) {
	s := NewServer(testScanner(), nil, nil, NewAuthMiddleware("secret"), noopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/blocks?from=42&to=42", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRESTBlocksHandlerWithValidToken(t *testing.T) {
	auth := NewAuthMiddleware("secret")
	s := NewServer(testScanner(), nil, nil, auth, noopLogger{})

	token, err := auth.GenerateToken("user-1", "viewer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/blocks?from=42&to=42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

const balanceOfABI = `[{
	"constant": true,
	"inputs": [{"name": "owner", "type": "address"}],
	"name": "balanceOf",
	"outputs": [{"name": "", "type": "uint256"}],
	"type": "function"
}]`

func TestRESTContractCallHandlerWithValidToken(t *testing.T) {
	result := make([]byte, 32)
	result[31] = 7 // uint256 "7"

	chain := &stubChain{
		blocks:     map[uint64]trigger.FullBlock{42: makeBlock(42)},
		callResult: result,
	}
	cc := callcache.New(chain)
	auth := NewAuthMiddleware("secret")
	s := NewServer(scanner.New(chain, nil, nil, noopLogger{}, big.NewInt(1)), cc, nil, auth, noopLogger{})

	token, err := auth.GenerateToken("user-1", "viewer")
	require.NoError(t, err)

	body, err := json.Marshal(contractCallRequest{
		Address:     "0x000000000000000000000000000000000000b0b",
		BlockNumber: 42,
		BlockHash:   makeBlock(42).Hash().Hex(),
		ABI:         balanceOfABI,
		Function:    "balanceOf",
		Args:        []interface{}{"0x000000000000000000000000000000000000c0c"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/contract-call", strings.NewReader(string(body)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var decoded struct {
		Result []interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	require.Len(t, decoded.Result, 1)
	assert.EqualValues(t, 7, decoded.Result[0])
}

func TestRESTContractCallHandlerNotConfigured(t *testing.T) {
	auth := NewAuthMiddleware("secret")
	s := NewServer(testScanner(), nil, nil, auth, noopLogger{})

	token, err := auth.GenerateToken("user-1", "viewer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/contract-call", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
