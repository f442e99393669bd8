// Package rpc provides the hand-written gRPC service descriptors shared by
// the four pipeline services, standing in for protoc-gen-go-grpc output
// (framing is explicitly out of scope per the wire interface — only
// compatibility matters, not a specific IDL toolchain). Messages are plain Go
// structs marshaled with the JSON codec below rather than generated protobuf
// types, so there is no .proto/protoc step anywhere in the build.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding.Codec so grpc.Server/ClientConn can carry
// plain Go structs over the wire without a protobuf code generator.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

// CodecName is the content-subtype every client call and server registration
// in this module negotiates on.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
