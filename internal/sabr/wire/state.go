package wire

import "google.golang.org/protobuf/encoding/protowire"

// ClientAbrState is the subset of the WEB client's buffer-state message the
// core engine sets or reads on every request. Only the fields spec.md's
// request builder actually populates are modeled; the rest of the source
// message's dozens of fields never round-trip and don't need to.
type ClientAbrState struct {
	PlayerTimeMs              int64
	EnabledTrackTypesBitfield int32
	Visibility                int32
}

// Marshal encodes s to protobuf wire bytes.
func (s *ClientAbrState) Marshal() []byte {
	if s == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 28, s.PlayerTimeMs)
	b = appendVarintField(b, 34, int64(s.Visibility))
	b = appendVarintField(b, 40, int64(s.EnabledTrackTypesBitfield))
	return b
}

// Unmarshal decodes b into s.
func (s *ClientAbrState) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("ClientAbrState tag")
		}
		b = b[n:]
		switch num {
		case 28:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("ClientAbrState.player_time_ms")
			}
			s.PlayerTimeMs = int64(v)
			b = b[n:]
		case 34:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("ClientAbrState.visibility")
			}
			s.Visibility = int32(v)
			b = b[n:]
		case 40:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("ClientAbrState.enabled_track_types_bitfield")
			}
			s.EnabledTrackTypesBitfield = int32(v)
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

// FormatInitializationMetadata describes a format's segment layout, sent
// once per format in the first response of a session.
type FormatInitializationMetadata struct {
	VideoID           string
	FormatID          *FormatId
	EndTimeMs         int64
	TotalSegments      int32
	MimeType          string
	Duration          int64
	DurationTimescale int32
}

// Marshal encodes m to protobuf wire bytes.
func (m *FormatInitializationMetadata) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = appendStringField(b, 1, m.VideoID)
	b = appendMessageField(b, 2, m.FormatID.Marshal())
	b = appendVarintField(b, 3, m.EndTimeMs)
	b = appendVarintField(b, 4, int64(m.TotalSegments))
	b = appendStringField(b, 5, m.MimeType)
	b = appendVarintField(b, 9, m.Duration)
	b = appendVarintField(b, 10, int64(m.DurationTimescale))
	return b
}

// Unmarshal decodes b into m.
func (m *FormatInitializationMetadata) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("FormatInitializationMetadata tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("FormatInitializationMetadata.video_id")
			}
			m.VideoID = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("FormatInitializationMetadata.format_id")
			}
			m.FormatID = &FormatId{}
			if err := m.FormatID.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("FormatInitializationMetadata.end_time_ms")
			}
			m.EndTimeMs = int64(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("FormatInitializationMetadata.total_segments")
			}
			m.TotalSegments = int32(v)
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("FormatInitializationMetadata.mime_type")
			}
			m.MimeType = v
			b = b[n:]
		case 9:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("FormatInitializationMetadata.duration")
			}
			m.Duration = int64(v)
			b = b[n:]
		case 10:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("FormatInitializationMetadata.duration_timescale")
			}
			m.DurationTimescale = int32(v)
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

// LiveMetadata carries the live edge position for an ongoing broadcast.
type LiveMetadata struct {
	HeadSequenceNumber int32
	HeadSequenceTimeMs int64
	VideoID            string
	Source             int32
}

// Marshal encodes l to protobuf wire bytes.
func (l *LiveMetadata) Marshal() []byte {
	if l == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 3, int64(l.HeadSequenceNumber))
	b = appendVarintField(b, 4, l.HeadSequenceTimeMs)
	b = appendStringField(b, 6, l.VideoID)
	b = appendVarintField(b, 7, int64(l.Source))
	return b
}

// Unmarshal decodes b into l.
func (l *LiveMetadata) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("LiveMetadata tag")
		}
		b = b[n:]
		switch num {
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("LiveMetadata.head_sequence_number")
			}
			l.HeadSequenceNumber = int32(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("LiveMetadata.head_sequence_time_ms")
			}
			l.HeadSequenceTimeMs = int64(v)
			b = b[n:]
		case 6:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("LiveMetadata.video_id")
			}
			l.VideoID = v
			b = b[n:]
		case 7:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("LiveMetadata.source")
			}
			l.Source = int32(v)
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
