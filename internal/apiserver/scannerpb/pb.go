// Package scannerpb is the hand-written service stub for the scanner's
// gRPC surface: requests/responses plus the grpc.ServiceDesc a real
// protoc-gen-go-grpc run would emit, transported over a JSON codec rather
// than real protobuf wire encoding (see codec.go) since nothing in this
// tree runs protoc.
package scannerpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BlockRangeRequest names the [from, to] range plus the filter criteria to
// evaluate over it.
type BlockRangeRequest struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`

	LogAddresses       []string `json:"log_addresses,omitempty"`
	EventSignatures    []string `json:"event_signatures,omitempty"`
	CallAddresses      []string `json:"call_addresses,omitempty"`
	FunctionSignatures []string `json:"function_signatures,omitempty"`
	TriggerEveryBlock  bool     `json:"trigger_every_block,omitempty"`
	BlockCallAddresses []string `json:"block_call_addresses,omitempty"`
}

// BlockBatchResponse carries every matching block, JSON-enveloped the same
// way internal/publish encodes one for a broker message.
type BlockBatchResponse struct {
	Blocks []BlockEnvelope `json:"blocks"`
}

// BlockEnvelope mirrors publish.Envelope's shape; kept as its own type so
// this package doesn't need to import internal/publish just for a struct
// tag layout a generated pb file would define independently anyway.
type BlockEnvelope struct {
	Number   uint64            `json:"number"`
	Hash     string            `json:"hash"`
	Finality string            `json:"finality"`
	Triggers []TriggerEnvelope `json:"triggers"`
}

// TriggerEnvelope mirrors publish.TriggerEnvelope.
type TriggerEnvelope struct {
	Kind        string   `json:"kind"`
	LogAddress  string   `json:"log_address,omitempty"`
	LogTopics   []string `json:"log_topics,omitempty"`
	LogData     string   `json:"log_data,omitempty"`
	LogIndex    uint     `json:"log_index,omitempty"`
	TxHash      string   `json:"tx_hash,omitempty"`
	CallFrom    string   `json:"call_from,omitempty"`
	CallTo      string   `json:"call_to,omitempty"`
	CallData    string   `json:"call_data,omitempty"`
	BlockCallTo string   `json:"block_call_to,omitempty"`
}

// BlockByHashRequest names a single already-known block to evaluate, plus
// the same filter criteria BlockRangeRequest carries.
type BlockByHashRequest struct {
	Hash string `json:"hash"`

	LogAddresses       []string `json:"log_addresses,omitempty"`
	EventSignatures    []string `json:"event_signatures,omitempty"`
	CallAddresses      []string `json:"call_addresses,omitempty"`
	FunctionSignatures []string `json:"function_signatures,omitempty"`
	TriggerEveryBlock  bool     `json:"trigger_every_block,omitempty"`
	BlockCallAddresses []string `json:"block_call_addresses,omitempty"`
}

// ScannerServiceClient is the client API for ScannerService.
type ScannerServiceClient interface {
	BlocksWithTriggers(ctx context.Context, in *BlockRangeRequest, opts ...grpc.CallOption) (*BlockBatchResponse, error)
	TriggersInBlock(ctx context.Context, in *BlockByHashRequest, opts ...grpc.CallOption) (*BlockEnvelope, error)
}

// ScannerServiceServer is the server API for ScannerService. All
// implementations must embed UnimplementedScannerServiceServer for
// forward compatibility.
type ScannerServiceServer interface {
	BlocksWithTriggers(context.Context, *BlockRangeRequest) (*BlockBatchResponse, error)
	TriggersInBlock(context.Context, *BlockByHashRequest) (*BlockEnvelope, error)
}

type scannerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewScannerServiceClient wraps an established connection. Callers must
// dial with grpc.WithDefaultCallOptions(grpc.ForceCodec(scannerpb.Codec()))
// or pass grpc.ForceCodec per call, since the server speaks the JSON codec
// registered in codec.go rather than real protobuf.
func NewScannerServiceClient(cc grpc.ClientConnInterface) ScannerServiceClient {
	return &scannerServiceClient{cc: cc}
}

func (c *scannerServiceClient) BlocksWithTriggers(ctx context.Context, in *BlockRangeRequest, opts ...grpc.CallOption) (*BlockBatchResponse, error) {
	out := new(BlockBatchResponse)
	if err := c.cc.Invoke(ctx, "/scanner.ScannerService/BlocksWithTriggers", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *scannerServiceClient) TriggersInBlock(ctx context.Context, in *BlockByHashRequest, opts ...grpc.CallOption) (*BlockEnvelope, error) {
	out := new(BlockEnvelope)
	if err := c.cc.Invoke(ctx, "/scanner.ScannerService/TriggersInBlock", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UnimplementedScannerServiceServer should be embedded to have forward
// compatible implementations.
type UnimplementedScannerServiceServer struct{}

func (UnimplementedScannerServiceServer) BlocksWithTriggers(context.Context, *BlockRangeRequest) (*BlockBatchResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method BlocksWithTriggers not implemented")
}

func (UnimplementedScannerServiceServer) TriggersInBlock(context.Context, *BlockByHashRequest) (*BlockEnvelope, error) {
	return nil, status.Errorf(codes.Unimplemented, "method TriggersInBlock not implemented")
}

// RegisterScannerServiceServer registers srv against s.
func RegisterScannerServiceServer(s grpc.ServiceRegistrar, srv ScannerServiceServer) {
	s.RegisterService(&ScannerService_ServiceDesc, srv)
}

func _ScannerService_BlocksWithTriggers_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BlockRangeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScannerServiceServer).BlocksWithTriggers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/scanner.ScannerService/BlocksWithTriggers"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScannerServiceServer).BlocksWithTriggers(ctx, req.(*BlockRangeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ScannerService_TriggersInBlock_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BlockByHashRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScannerServiceServer).TriggersInBlock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/scanner.ScannerService/TriggersInBlock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScannerServiceServer).TriggersInBlock(ctx, req.(*BlockByHashRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ScannerService_ServiceDesc is the grpc.ServiceDesc for ScannerService.
var ScannerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "scanner.ScannerService",
	HandlerType: (*ScannerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BlocksWithTriggers", Handler: _ScannerService_BlocksWithTriggers_Handler},
		{MethodName: "TriggersInBlock", Handler: _ScannerService_TriggersInBlock_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/apiserver/scannerpb/pb.go",
}
