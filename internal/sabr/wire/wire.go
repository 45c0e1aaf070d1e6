// Package wire implements the protobuf messages exchanged with a SABR
// streaming server, plus the persisted progress document, by hand using
// google.golang.org/protobuf/encoding/protowire's tag-level primitives.
//
// No generated .pb.go exists for this protocol; field numbers come from
// the reference extractor's Python proto definitions. Every message's
// Unmarshal loop walks tags with protowire.ConsumeTag and skips any field
// number it doesn't recognize via protowire.ConsumeFieldValue, so a server
// adding new fields never breaks decoding - matching the "unknown types are
// logged and ignored" rule carried through from the framed-message layer.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// errInvalidWire wraps a negative protowire consume result (malformed
// input) with the field context that failed to parse.
func errInvalidWire(what string) error {
	return fmt.Errorf("wire: malformed %s", what)
}

// skipUnknown advances past one field whose number this message doesn't
// model, given its tag already consumed.
func skipUnknown(typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, errInvalidWire("unknown field")
	}
	return n, nil
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

// appendMessageField encodes a nested message's already-marshaled bytes as
// a length-delimited field. A nil/empty payload is omitted, matching
// proto3 "unset" semantics for optional message fields.
func appendMessageField(b []byte, num protowire.Number, payload []byte) []byte {
	if len(payload) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}
