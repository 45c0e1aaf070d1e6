package wire

import "google.golang.org/protobuf/encoding/protowire"

// FormatId identifies a single audio or video rendition within a video.
type FormatId struct {
	Itag  int32
	Lmt   int64 // last modified timestamp
	Xtags string
}

// Marshal encodes f to protobuf wire bytes.
func (f *FormatId) Marshal() []byte {
	if f == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, int64(f.Itag))
	b = appendVarintField(b, 2, f.Lmt)
	b = appendStringField(b, 3, f.Xtags)
	return b
}

// Unmarshal decodes b into f, skipping any field number it doesn't model.
func (f *FormatId) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("FormatId tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("FormatId.itag")
			}
			f.Itag = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("FormatId.lmt")
			}
			f.Lmt = int64(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("FormatId.xtags")
			}
			f.Xtags = v
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

// TimeRange expresses a duration in a format's native timescale.
type TimeRange struct {
	StartTicks    int64
	DurationTicks int64
	Timescale     int32
}

// Marshal encodes t to protobuf wire bytes.
func (t *TimeRange) Marshal() []byte {
	if t == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, t.StartTicks)
	b = appendVarintField(b, 2, t.DurationTicks)
	b = appendVarintField(b, 3, int64(t.Timescale))
	return b
}

// Unmarshal decodes b into t.
func (t *TimeRange) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("TimeRange tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("TimeRange.start_ticks")
			}
			t.StartTicks = int64(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("TimeRange.duration_ticks")
			}
			t.DurationTicks = int64(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("TimeRange.timescale")
			}
			t.Timescale = int32(v)
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

// BufferedRange records how much of one format has already been received.
type BufferedRange struct {
	FormatID          *FormatId
	StartTimeMs       int64
	DurationMs        int64
	StartSegmentIndex int32
	EndSegmentIndex   int32
	TimeRange         *TimeRange
}

// Marshal encodes r to protobuf wire bytes.
func (r *BufferedRange) Marshal() []byte {
	if r == nil {
		return nil
	}
	var b []byte
	b = appendMessageField(b, 1, r.FormatID.Marshal())
	b = appendVarintField(b, 2, r.StartTimeMs)
	b = appendVarintField(b, 3, r.DurationMs)
	b = appendVarintField(b, 4, int64(r.StartSegmentIndex))
	b = appendVarintField(b, 5, int64(r.EndSegmentIndex))
	b = appendMessageField(b, 6, r.TimeRange.Marshal())
	return b
}

// Unmarshal decodes b into r.
func (r *BufferedRange) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("BufferedRange tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("BufferedRange.format_id")
			}
			r.FormatID = &FormatId{}
			if err := r.FormatID.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("BufferedRange.start_time_ms")
			}
			r.StartTimeMs = int64(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("BufferedRange.duration_ms")
			}
			r.DurationMs = int64(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("BufferedRange.start_segment_index")
			}
			r.StartSegmentIndex = int32(v)
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("BufferedRange.end_segment_index")
			}
			r.EndSegmentIndex = int32(v)
			b = b[n:]
		case 6:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("BufferedRange.time_range")
			}
			r.TimeRange = &TimeRange{}
			if err := r.TimeRange.Unmarshal(v); err != nil {
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
