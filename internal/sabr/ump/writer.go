package ump

// Encode returns the UMP-framed bytes for a single part: type varint, size
// varint, then the payload verbatim. It is used by tests to build byte
// fixtures and by the debug dumper to round-trip parsed parts.
func Encode(typ PartType, data []byte) []byte {
	buf := appendVarint(nil, uint32(typ))
	buf = appendVarint(buf, uint32(len(data)))
	buf = append(buf, data...)
	return buf
}

// EncodeAll concatenates Encode for each part, in order, producing a
// complete response body a Parser can read back.
func EncodeAll(parts ...Part) []byte {
	var buf []byte
	for _, part := range parts {
		buf = append(buf, Encode(part.Type, part.Data)...)
	}
	return buf
}
