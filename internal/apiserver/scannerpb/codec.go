package scannerpb

import (
	"github.com/goccy/go-json"
	"google.golang.org/grpc/encoding"
)

// JSONCodecName is registered with grpc-go's encoding package in init, so
// ScannerServiceClient/Server can round-trip these plain structs without a
// protobuf code generator in the loop, the same escape hatch
// chainbridgepb uses for the ChainClient "grpc" protocol.
const JSONCodecName = "scanner-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return JSONCodecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// Codec returns the encoding.Codec registered in init, for a server that
// needs to force it explicitly via grpc.ForceServerCodec.
func Codec() encoding.Codec { return jsonCodec{} }
