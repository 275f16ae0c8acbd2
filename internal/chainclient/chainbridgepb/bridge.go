// Package chainbridgepb holds the wire messages and client stub for the
// "grpc" ChainClient protocol, generated by hand in the same shape
// protoc-gen-go-grpc would produce (see services/api/grpc's
// IndexerServiceClient for the pattern this follows). A real deployment
// would regenerate this package from a .proto file; nothing downstream
// depends on that happening via this module.
package chainbridgepb

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// JSONCodecName is registered with grpc-go's encoding package in init, so
// ChainBridgeClient can round-trip these plain structs without a protobuf
// code generator in the loop.
const JSONCodecName = "chainbridge-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return JSONCodecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// Codec returns the encoding.Codec registered in init, for callers that
// need to force it explicitly via grpc.ForceCodec rather than relying on
// content-subtype negotiation.
func Codec() encoding.Codec { return jsonCodec{} }

type LatestBlockRequest struct{}

type BlockHeader struct {
	Number     uint64 `json:"number"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parent_hash"`
}

type BlockByNumberRequest struct {
	Number uint64 `json:"number"`
}

type BlockByHashRequest struct {
	Hash string `json:"hash"`
}

type BlockResponse struct {
	Found  bool        `json:"found"`
	Header BlockHeader `json:"header"`
}

type CallRequest struct {
	To          string `json:"to"`
	Data        string `json:"data_hex"`
	BlockNumber *int64 `json:"block_number,omitempty"`
}

type CallResponse struct {
	ReturnData string `json:"return_data_hex"`
	Reverted   bool   `json:"reverted"`
	RevertMsg  string `json:"revert_msg,omitempty"`
}

// ChainBridgeClient is the client API for the ChainBridge service: the
// subset of ChainClient that makes sense to proxy through a single gRPC
// aggregator rather than dialing an archive node directly per scanner.
type ChainBridgeClient interface {
	LatestBlock(ctx context.Context, in *LatestBlockRequest, opts ...grpc.CallOption) (*BlockResponse, error)
	BlockByNumber(ctx context.Context, in *BlockByNumberRequest, opts ...grpc.CallOption) (*BlockResponse, error)
	BlockByHash(ctx context.Context, in *BlockByHashRequest, opts ...grpc.CallOption) (*BlockResponse, error)
	Call(ctx context.Context, in *CallRequest, opts ...grpc.CallOption) (*CallResponse, error)
}

type chainBridgeClient struct {
	cc grpc.ClientConnInterface
}

// NewChainBridgeClient wraps an established connection. Callers must dial
// with grpc.WithDefaultCallOptions(grpc.ForceCodec(chainbridgepb.Codec()))
// or pass grpc.ForceCodec per call, since the server-side counterpart of
// this service speaks the JSON codec registered above rather than proto.
func NewChainBridgeClient(cc grpc.ClientConnInterface) ChainBridgeClient {
	return &chainBridgeClient{cc: cc}
}

func (c *chainBridgeClient) LatestBlock(ctx context.Context, in *LatestBlockRequest, opts ...grpc.CallOption) (*BlockResponse, error) {
	out := new(BlockResponse)
	if err := c.cc.Invoke(ctx, "/chainbridge.ChainBridge/LatestBlock", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chainBridgeClient) BlockByNumber(ctx context.Context, in *BlockByNumberRequest, opts ...grpc.CallOption) (*BlockResponse, error) {
	out := new(BlockResponse)
	if err := c.cc.Invoke(ctx, "/chainbridge.ChainBridge/BlockByNumber", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chainBridgeClient) BlockByHash(ctx context.Context, in *BlockByHashRequest, opts ...grpc.CallOption) (*BlockResponse, error) {
	out := new(BlockResponse)
	if err := c.cc.Invoke(ctx, "/chainbridge.ChainBridge/BlockByHash", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chainBridgeClient) Call(ctx context.Context, in *CallRequest, opts ...grpc.CallOption) (*CallResponse, error) {
	out := new(CallResponse)
	if err := c.cc.Invoke(ctx, "/chainbridge.ChainBridge/Call", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
