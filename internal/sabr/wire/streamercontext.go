package wire

import "google.golang.org/protobuf/encoding/protowire"

// ClientInfo identifies the requesting client. The source message carries
// hundreds of fields covering every Innertube surface (Music, Kids,
// embeds...); only the identity fields a download client actually needs to
// send are modeled here (see SPEC_FULL.md §4).
type ClientInfo struct {
	Hl            string
	Gl            string
	DeviceMake    string
	DeviceModel   string
	VisitorData   string
	UserAgent     string
	ClientName    int32
	ClientVersion string
	OsName        string
	OsVersion     string
}

// Marshal encodes c to protobuf wire bytes.
func (c *ClientInfo) Marshal() []byte {
	if c == nil {
		return nil
	}
	var b []byte
	b = appendStringField(b, 1, c.Hl)
	b = appendStringField(b, 2, c.Gl)
	b = appendStringField(b, 12, c.DeviceMake)
	b = appendStringField(b, 13, c.DeviceModel)
	b = appendStringField(b, 14, c.VisitorData)
	b = appendStringField(b, 15, c.UserAgent)
	b = appendVarintField(b, 16, int64(c.ClientName))
	b = appendStringField(b, 17, c.ClientVersion)
	b = appendStringField(b, 18, c.OsName)
	b = appendStringField(b, 19, c.OsVersion)
	return b
}

// Unmarshal decodes b into c.
func (c *ClientInfo) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("ClientInfo tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.hl")
			}
			c.Hl = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.gl")
			}
			c.Gl = v
			b = b[n:]
		case 12:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.device_make")
			}
			c.DeviceMake = v
			b = b[n:]
		case 13:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.device_model")
			}
			c.DeviceModel = v
			b = b[n:]
		case 14:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.visitor_data")
			}
			c.VisitorData = v
			b = b[n:]
		case 15:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.user_agent")
			}
			c.UserAgent = v
			b = b[n:]
		case 16:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.client_name")
			}
			c.ClientName = int32(v)
			b = b[n:]
		case 17:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.client_version")
			}
			c.ClientVersion = v
			b = b[n:]
		case 18:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.os_name")
			}
			c.OsName = v
			b = b[n:]
		case 19:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return errInvalidWire("ClientInfo.os_version")
			}
			c.OsVersion = v
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

// StreamerContext carries per-request identity and continuation state.
type StreamerContext struct {
	ClientInfo     *ClientInfo
	PoToken        []byte
	PlaybackCookie []byte
	SabrContexts   []int32
}

// Marshal encodes s to protobuf wire bytes.
func (s *StreamerContext) Marshal() []byte {
	if s == nil {
		return nil
	}
	var b []byte
	b = appendMessageField(b, 1, s.ClientInfo.Marshal())
	b = appendBytesField(b, 2, s.PoToken)
	b = appendBytesField(b, 3, s.PlaybackCookie)
	for _, v := range s.SabrContexts {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

// Unmarshal decodes b into s.
func (s *StreamerContext) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("StreamerContext tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("StreamerContext.client_info")
			}
			s.ClientInfo = &ClientInfo{}
			if err := s.ClientInfo.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("StreamerContext.po_token")
			}
			s.PoToken = append([]byte(nil), v...)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("StreamerContext.playback_cookie")
			}
			s.PlaybackCookie = append([]byte(nil), v...)
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("StreamerContext.sabr_contexts")
			}
			s.SabrContexts = append(s.SabrContexts, int32(v))
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
