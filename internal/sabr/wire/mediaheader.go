package wire

import "google.golang.org/protobuf/encoding/protowire"

// MediaHeader precedes a run of MEDIA parts, describing which format,
// sequence and byte range they belong to.
type MediaHeader struct {
	HeaderID       int32
	VideoID        string
	Itag           int32
	LastModified   int64
	Xtags          string
	StartDataRange int64
	Compression    int32
	IsInitSegment  bool
	SequenceNumber int32
	StartMs        int64
	DurationMs     int64
	FormatID       *FormatId
	ContentLength  int64
	TimeRange      *TimeRange
}

// Marshal encodes h to protobuf wire bytes.
func (h *MediaHeader) Marshal() []byte {
	if h == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, int64(h.HeaderID))
	b = appendStringField(b, 2, h.VideoID)
	b = appendVarintField(b, 3, int64(h.Itag))
	b = appendVarintField(b, 4, h.LastModified)
	b = appendStringField(b, 5, h.Xtags)
	b = appendVarintField(b, 6, h.StartDataRange)
	b = appendVarintField(b, 7, int64(h.Compression))
	b = appendBoolField(b, 8, h.IsInitSegment)
	b = appendVarintField(b, 9, int64(h.SequenceNumber))
	b = appendVarintField(b, 11, h.StartMs)
	b = appendVarintField(b, 12, h.DurationMs)
	b = appendMessageField(b, 13, h.FormatID.Marshal())
	b = appendVarintField(b, 14, h.ContentLength)
	b = appendMessageField(b, 15, h.TimeRange.Marshal())
	return b
}

// Unmarshal decodes b into h.
func (h *MediaHeader) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("MediaHeader tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.header_id")
			}
			h.HeaderID = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.video_id")
			}
			h.VideoID = v
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.itag")
			}
			h.Itag = int32(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.last_modified")
			}
			h.LastModified = int64(v)
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.xtags")
			}
			h.Xtags = v
			b = b[n:]
		case 6:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.start_data_range")
			}
			h.StartDataRange = int64(v)
			b = b[n:]
		case 7:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.compression")
			}
			h.Compression = int32(v)
			b = b[n:]
		case 8:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.is_init_segment")
			}
			h.IsInitSegment = v != 0
			b = b[n:]
		case 9:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.sequence_number")
			}
			h.SequenceNumber = int32(v)
			b = b[n:]
		case 11:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.start_ms")
			}
			h.StartMs = int64(v)
			b = b[n:]
		case 12:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.duration_ms")
			}
			h.DurationMs = int64(v)
			b = b[n:]
		case 13:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.format_id")
			}
			h.FormatID = &FormatId{}
			if err := h.FormatID.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		case 14:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.content_length")
			}
			h.ContentLength = int64(v)
			b = b[n:]
		case 15:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("MediaHeader.time_range")
			}
			h.TimeRange = &TimeRange{}
			if err := h.TimeRange.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n, err := skipUnknown(typ, b)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}
