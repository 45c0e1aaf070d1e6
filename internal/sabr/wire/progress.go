package wire

import "google.golang.org/protobuf/encoding/protowire"

// SegmentRecord locates one already-written segment within its sequence
// group's file, so a resumed session knows exactly which byte range came
// from which server sequence number. This message has no server-side
// analog; it exists purely to make ProgressDocument self-describing on
// disk (see DESIGN.md).
type SegmentRecord struct {
	SequenceNumber int32
	ContentLength  int64
}

// Marshal encodes s to protobuf wire bytes.
func (s *SegmentRecord) Marshal() []byte {
	if s == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, int64(s.SequenceNumber))
	b = appendVarintField(b, 2, s.ContentLength)
	return b
}

// Unmarshal decodes b into s.
func (s *SegmentRecord) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("SegmentRecord tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SegmentRecord.sequence_number")
			}
			s.SequenceNumber = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SegmentRecord.content_length")
			}
			s.ContentLength = int64(v)
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

// SequenceGroup is a contiguous run of sequence numbers sharing one
// on-disk part file (spec.md §4.6).
type SequenceGroup struct {
	StartNumber int32
	Filename    string
	Segments    []*SegmentRecord
}

// Marshal encodes g to protobuf wire bytes.
func (g *SequenceGroup) Marshal() []byte {
	if g == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, int64(g.StartNumber))
	b = appendStringField(b, 2, g.Filename)
	for _, seg := range g.Segments {
		b = appendMessageField(b, 3, seg.Marshal())
	}
	return b
}

// Unmarshal decodes b into g.
func (g *SequenceGroup) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("SequenceGroup tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SequenceGroup.start_number")
			}
			g.StartNumber = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("SequenceGroup.filename")
			}
			g.Filename = v
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("SequenceGroup.segments")
			}
			seg := &SegmentRecord{}
			if err := seg.Unmarshal(v); err != nil {
				return err
			}
			g.Segments = append(g.Segments, seg)
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

// InitSegmentRecord records the on-disk location of a format's single init
// segment.
type InitSegmentRecord struct {
	Filename      string
	ContentLength int64
}

// Marshal encodes r to protobuf wire bytes.
func (r *InitSegmentRecord) Marshal() []byte {
	if r == nil {
		return nil
	}
	var b []byte
	b = appendStringField(b, 1, r.Filename)
	b = appendVarintField(b, 2, r.ContentLength)
	return b
}

// Unmarshal decodes b into r.
func (r *InitSegmentRecord) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("InitSegmentRecord tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("InitSegmentRecord.filename")
			}
			r.Filename = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("InitSegmentRecord.content_length")
			}
			r.ContentLength = int64(v)
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

// ProgressDocument is the persisted record of a download's state, written
// to "{filename}.sabr.binpb" and reloaded on resume. It is a core-invented
// message (not part of the server's wire contract) but encoded with the
// same protowire primitives for consistency.
type ProgressDocument struct {
	FormatID       *FormatId
	BufferedRanges []*BufferedRange
	InitSegment    *InitSegmentRecord
	Sequences      []*SequenceGroup
}

// Marshal encodes d to protobuf wire bytes.
func (d *ProgressDocument) Marshal() []byte {
	if d == nil {
		return nil
	}
	var b []byte
	b = appendMessageField(b, 1, d.FormatID.Marshal())
	for _, rng := range d.BufferedRanges {
		b = appendMessageField(b, 2, rng.Marshal())
	}
	if d.InitSegment != nil {
		b = appendMessageField(b, 3, d.InitSegment.Marshal())
	}
	for _, seq := range d.Sequences {
		b = appendMessageField(b, 4, seq.Marshal())
	}
	return b
}

// Unmarshal decodes b into d.
func (d *ProgressDocument) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("ProgressDocument tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("ProgressDocument.format_id")
			}
			d.FormatID = &FormatId{}
			if err := d.FormatID.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("ProgressDocument.buffered_ranges")
			}
			rng := &BufferedRange{}
			if err := rng.Unmarshal(v); err != nil {
				return err
			}
			d.BufferedRanges = append(d.BufferedRanges, rng)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("ProgressDocument.init_segment")
			}
			d.InitSegment = &InitSegmentRecord{}
			if err := d.InitSegment.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("ProgressDocument.sequences")
			}
			seq := &SequenceGroup{}
			if err := seq.Unmarshal(v); err != nil {
				return err
			}
			d.Sequences = append(d.Sequences, seq)
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
