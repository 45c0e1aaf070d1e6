// Package ump decodes and encodes the server's UMP framing: a stream of
// {part_type, size, data} parts, each prefixed by two length-prefixed
// varints (see varint.go) followed by exactly size payload bytes.
//
// Parts are read lazily from an io.Reader via Parser.Next, so a caller can
// start dispatching MEDIA parts before the long-poll response body has
// finished arriving. The codec has no notion of SABR semantics: part
// payloads are opaque bytes here, decoded by internal/sabr/wire and
// internal/sabr's handlers.
package ump

import (
	"errors"
	"fmt"
)

// errNeedMoreData signals the parser needs more bytes from the underlying
// reader than are currently buffered; it is never returned to callers of
// Parser.Next, only used internally to distinguish "read more" from a real
// decode failure.
var errNeedMoreData = errors.New("ump: need more data")

// ErrTruncated is returned by Parser.Next when the stream ends in the
// middle of a part's header or payload, rather than cleanly between parts.
var ErrTruncated = errors.New("ump: stream truncated mid-part")

// Part is one decoded unit from the server's response stream.
type Part struct {
	Type PartType
	Size uint32
	Data []byte
}

// HeaderID returns the leading header-id byte of a MEDIA or MEDIA_END
// part's payload, per the convention that those two part types prefix
// their data with the originating MEDIA_HEADER's header id. It panics if
// called on an empty payload; callers should check len(p.Data) > 0 first,
// which the parser guarantees never fails for a well-formed MEDIA part
// (size 0 MEDIA parts are protocol errors handled by the caller).
func (p Part) HeaderID() byte {
	return p.Data[0]
}

// MediaPayload returns the bytes of a MEDIA or MEDIA_END part after the
// leading header-id byte.
func (p Part) MediaPayload() []byte {
	if len(p.Data) == 0 {
		return nil
	}
	return p.Data[1:]
}

func (p Part) String() string {
	return fmt.Sprintf("Part{%s size=%d}", p.Type, p.Size)
}
