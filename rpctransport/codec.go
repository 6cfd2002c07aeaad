// Package rpctransport wires the four RPC methods onto real
// google.golang.org/grpc server/client plumbing. Because no protoc step may
// run, the wire messages (package wire) are carried by a hand-registered
// gob codec instead of protobuf encoding — see DESIGN.md for why.
// Everything else (ServiceDesc, method/stream handlers, the client stub)
// follows the shape protoc-gen-go-grpc itself generates.
package rpctransport

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

const codecName = "gob"

type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// CodecName is the grpc encoding name of the gob codec, selectable via
// grpc.CallContentSubtype; grpc.ForceCodec / grpc.ForceServerCodec take the
// Codec value instead.
const CodecName = codecName
