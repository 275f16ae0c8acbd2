package apiserver

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"

	"github.com/chainforge/subgraph-core/internal/callcache"
	"github.com/chainforge/subgraph-core/internal/chainerr"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// contractCallRequest is the wire shape of the EthereumContractCall
// boundary: a read-only call pinned to a specific block. The ABI travels
// with the request since this surface has no compiled Go binding for
// whatever contract the caller is targeting.
type contractCallRequest struct {
	Address     string        `json:"address"`
	BlockNumber uint64        `json:"block_number"`
	BlockHash   string        `json:"block_hash"`
	ABI         string        `json:"abi"`
	Function    string        `json:"function"`
	Args        []interface{} `json:"args"`
}

// contractCallHandler handles POST /contract-call, proxying an eth_call
// through the scanner core's EthereumCallCache so repeated evaluation of
// the same (contract, block, calldata) triple is deduped and cached.
func (s *Server) contractCallHandler(w http.ResponseWriter, r *http.Request) {
	if s.callCache == nil {
		http.Error(w, "contract_call is not configured on this deployment", http.StatusServiceUnavailable)
		return
	}

	var req contractCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	parsedABI, err := abi.JSON(strings.NewReader(req.ABI))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid abi: %v", err), http.StatusBadRequest)
		return
	}

	method, ok := parsedABI.Methods[req.Function]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown method %q", req.Function), http.StatusBadRequest)
		return
	}

	args, err := convertArgs(method, req.Args)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	call := callcache.EthereumContractCall{
		Contract: common.HexToAddress(req.Address),
		Block: trigger.BlockPointer{
			Number: req.BlockNumber,
			Hash:   common.HexToHash(req.BlockHash),
		},
		ABI:      &parsedABI,
		Function: req.Function,
		Args:     args,
	}

	values, err := s.callCache.Call(r.Context(), call)
	if err != nil {
		status := http.StatusBadGateway
		if chainerr.Is(err, chainerr.KindABIError) || chainerr.Is(err, chainerr.KindCallTypeMismatch) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"result": values}); err != nil {
		s.log.Error("encode contract_call response: %v", err)
	}
}

// convertArgs coerces the request's JSON-decoded argument values (string,
// float64, bool — whatever encoding/json's interface{} unmarshal produced)
// into the Go types abi.Pack expects for each of method's input parameters.
func convertArgs(method abi.Method, raw []interface{}) ([]interface{}, error) {
	if len(raw) != len(method.Inputs) {
		return nil, chainerr.New(chainerr.KindABIError,
			fmt.Sprintf("%s expects %d arguments, got %d", method.Name, len(method.Inputs), len(raw)))
	}
	out := make([]interface{}, len(raw))
	for i, input := range method.Inputs {
		v, err := convertArg(input.Type, raw[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// convertArg handles the Solidity argument shapes a contract_call request
// realistically carries: addresses, booleans, strings, dynamic bytes,
// bytes32, and signed/unsigned integers. Fixed-size bytes of any other
// width, tuples, and arrays/slices are rejected.
func convertArg(t abi.Type, raw interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		s, ok := raw.(string)
		if !ok {
			return nil, chainerr.CallTypeMismatch(raw, t)
		}
		return common.HexToAddress(s), nil
	case abi.BoolTy:
		b, ok := raw.(bool)
		if !ok {
			return nil, chainerr.CallTypeMismatch(raw, t)
		}
		return b, nil
	case abi.StringTy:
		s, ok := raw.(string)
		if !ok {
			return nil, chainerr.CallTypeMismatch(raw, t)
		}
		return s, nil
	case abi.BytesTy, abi.FixedBytesTy:
		s, ok := raw.(string)
		if !ok {
			return nil, chainerr.CallTypeMismatch(raw, t)
		}
		decoded, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, chainerr.ABIErrorf(err)
		}
		if t.T == abi.FixedBytesTy {
			return toFixedBytes(decoded, t.Size)
		}
		return decoded, nil
	case abi.IntTy, abi.UintTy:
		n, err := toBigInt(raw)
		if err != nil {
			return nil, chainerr.CallTypeMismatch(raw, t)
		}
		return n, nil
	default:
		return nil, chainerr.New(chainerr.KindABIError, fmt.Sprintf("unsupported argument type %s", t.String()))
	}
}

func toBigInt(raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case string:
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	case float64:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported numeric argument type %T", raw)
	}
}

func toFixedBytes(b []byte, size int) (interface{}, error) {
	if len(b) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	if size != 32 {
		return nil, fmt.Errorf("unsupported fixed-bytes size %d", size)
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}
