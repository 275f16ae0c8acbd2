package apiserver

import (
	"context"
	"fmt"
	"net"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"

	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/publish"
	"github.com/chainforge/subgraph-core/internal/scanner"
	"github.com/chainforge/subgraph-core/internal/trigger"

	"github.com/chainforge/subgraph-core/internal/apiserver/scannerpb"
)

// grpcServer adapts a *scanner.BlockScanner to the hand-written
// scannerpb.ScannerServiceServer surface.
type grpcServer struct {
	scannerpb.UnimplementedScannerServiceServer

	scan *scanner.BlockScanner
	pub  publish.Publisher
	log  logging.Logger
}

// NewGRPCServer builds a grpc.Server bound to scan, authenticated by auth
// and transported over scannerpb's JSON codec (no protoc in this tree).
// pub may be nil, in which case resolved triggers are never fanned out to a
// downstream sink.
func NewGRPCServer(scan *scanner.BlockScanner, pub publish.Publisher, auth *AuthMiddleware, log logging.Logger) *grpc.Server {
	unary, stream := auth.GetGRPCAuthInterceptors()
	srv := grpc.NewServer(
		grpc.ForceServerCodec(scannerpb.Codec()),
		grpc.UnaryInterceptor(unary),
		grpc.StreamInterceptor(stream),
	)
	scannerpb.RegisterScannerServiceServer(srv, &grpcServer{scan: scan, pub: pub, log: log})
	return srv
}

// Serve runs srv on lis, blocking until the listener closes or srv stops.
func Serve(srv *grpc.Server, lis net.Listener) error {
	return srv.Serve(lis)
}

func (g *grpcServer) BlocksWithTriggers(ctx context.Context, req *scannerpb.BlockRangeRequest) (*scannerpb.BlockBatchResponse, error) {
	lf, cf, bf := rangeRequestToFilters(req)

	results, err := g.scan.BlocksWithTriggers(ctx, req.From, req.To, lf, cf, bf)
	if err != nil {
		return nil, fmt.Errorf("blocks_with_triggers: %w", err)
	}
	publishTriggers(ctx, g.pub, g.log, results)

	resp := &scannerpb.BlockBatchResponse{Blocks: make([]scannerpb.BlockEnvelope, 0, len(results))}
	for _, bwt := range results {
		resp.Blocks = append(resp.Blocks, encodeBlockEnvelope(bwt))
	}
	return resp, nil
}

func (g *grpcServer) TriggersInBlock(ctx context.Context, req *scannerpb.BlockByHashRequest) (*scannerpb.BlockEnvelope, error) {
	hash := common.HexToHash(req.Hash)

	fb, err := g.scan.BlockByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("load block %s: %w", req.Hash, err)
	}

	lf, cf, bf := byHashRequestToFilters(req)
	bwt := g.scan.TriggersInBlock(fb, lf, cf, bf)
	publishTriggers(ctx, g.pub, g.log, []trigger.BlockWithTriggers{bwt})
	env := encodeBlockEnvelope(bwt)
	return &env, nil
}
