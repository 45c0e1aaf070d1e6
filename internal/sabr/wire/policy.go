package wire

import "google.golang.org/protobuf/encoding/protowire"

// NextRequestPolicy tells the client how long to wait before its next
// poll and carries an opaque cookie to echo back on that request.
type NextRequestPolicy struct {
	BackoffTimeMs  int32
	PlaybackCookie []byte
}

// Marshal encodes p to protobuf wire bytes.
func (p *NextRequestPolicy) Marshal() []byte {
	if p == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 4, int64(p.BackoffTimeMs))
	b = appendBytesField(b, 7, p.PlaybackCookie)
	return b
}

// Unmarshal decodes b into p.
func (p *NextRequestPolicy) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("NextRequestPolicy tag")
		}
		b = b[n:]
		switch num {
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("NextRequestPolicy.backoff_time_ms")
			}
			p.BackoffTimeMs = int32(v)
			b = b[n:]
		case 7:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("NextRequestPolicy.playback_cookie")
			}
			p.PlaybackCookie = append([]byte(nil), v...)
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

// SabrSeek instructs the client to jump playback to a new position.
type SabrSeek struct {
	SeekTimeTicks int64
	Timescale     int32
	SeekSource    int32
}

// Marshal encodes s to protobuf wire bytes.
func (s *SabrSeek) Marshal() []byte {
	if s == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, s.SeekTimeTicks)
	b = appendVarintField(b, 2, int64(s.Timescale))
	b = appendVarintField(b, 3, int64(s.SeekSource))
	return b
}

// Unmarshal decodes b into s.
func (s *SabrSeek) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("SabrSeek tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SabrSeek.seek_time_ticks")
			}
			s.SeekTimeTicks = int64(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SabrSeek.timescale")
			}
			s.Timescale = int32(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SabrSeek.seek_source")
			}
			s.SeekSource = int32(v)
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

// StreamProtectionStatus reports DRM/license state for the session.
// max_retries' field number is inferred (see DESIGN.md Open Questions).
type StreamProtectionStatus struct {
	Status     int32
	MaxRetries int32
}

// Marshal encodes s to protobuf wire bytes.
func (s *StreamProtectionStatus) Marshal() []byte {
	if s == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, int64(s.Status))
	b = appendVarintField(b, 2, int64(s.MaxRetries))
	return b
}

// Unmarshal decodes b into s.
func (s *StreamProtectionStatus) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("StreamProtectionStatus tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("StreamProtectionStatus.status")
			}
			s.Status = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("StreamProtectionStatus.max_retries")
			}
			s.MaxRetries = int32(v)
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

// SabrRedirect tells the client to send its next request to a new host.
type SabrRedirect struct {
	RedirectURL string
}

// Marshal encodes r to protobuf wire bytes.
func (r *SabrRedirect) Marshal() []byte {
	if r == nil {
		return nil
	}
	var b []byte
	b = appendStringField(b, 1, r.RedirectURL)
	return b
}

// Unmarshal decodes b into r.
func (r *SabrRedirect) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("SabrRedirect tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("SabrRedirect.redirect_url")
			}
			r.RedirectURL = v
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

// SabrError signals an unrecoverable server-side condition.
type SabrError struct {
	Type   int32
	Action int32
	Error  string
}

// Marshal encodes e to protobuf wire bytes.
func (e *SabrError) Marshal() []byte {
	if e == nil {
		return nil
	}
	var b []byte
	b = appendVarintField(b, 1, int64(e.Type))
	b = appendVarintField(b, 2, int64(e.Action))
	b = appendStringField(b, 3, e.Error)
	return b
}

// Unmarshal decodes b into e.
func (e *SabrError) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("SabrError tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SabrError.type")
			}
			e.Type = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("SabrError.action")
			}
			e.Action = int32(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("SabrError.error")
			}
			e.Error = v
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
