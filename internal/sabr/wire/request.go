package wire

import "google.golang.org/protobuf/encoding/protowire"

// VideoPlaybackAbrRequest is the single message the client POSTs on every
// long-poll request: current buffer state, what's already been received,
// and which formats it wants next.
type VideoPlaybackAbrRequest struct {
	ClientAbrState              *ClientAbrState
	InitializedFormatIds        []*FormatId
	BufferedRanges              []*BufferedRange
	PlayerTimeMs                int64
	VideoPlaybackUstreamerConfig []byte
	SelectedAudioFormatIds       []*FormatId
	SelectedVideoFormatIds       []*FormatId
	StreamerContext              *StreamerContext
}

// Marshal encodes r to protobuf wire bytes.
func (r *VideoPlaybackAbrRequest) Marshal() []byte {
	if r == nil {
		return nil
	}
	var b []byte
	b = appendMessageField(b, 1, r.ClientAbrState.Marshal())
	for _, f := range r.InitializedFormatIds {
		b = appendMessageField(b, 2, f.Marshal())
	}
	for _, rng := range r.BufferedRanges {
		b = appendMessageField(b, 3, rng.Marshal())
	}
	b = appendVarintField(b, 4, r.PlayerTimeMs)
	b = appendBytesField(b, 5, r.VideoPlaybackUstreamerConfig)
	for _, f := range r.SelectedAudioFormatIds {
		b = appendMessageField(b, 16, f.Marshal())
	}
	for _, f := range r.SelectedVideoFormatIds {
		b = appendMessageField(b, 17, f.Marshal())
	}
	b = appendMessageField(b, 19, r.StreamerContext.Marshal())
	return b
}

// Unmarshal decodes b into r.
func (r *VideoPlaybackAbrRequest) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errInvalidWire("VideoPlaybackAbrRequest tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.client_abr_state")
			}
			r.ClientAbrState = &ClientAbrState{}
			if err := r.ClientAbrState.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.initialized_format_ids")
			}
			f := &FormatId{}
			if err := f.Unmarshal(v); err != nil {
				return err
			}
			r.InitializedFormatIds = append(r.InitializedFormatIds, f)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.buffered_ranges")
			}
			rng := &BufferedRange{}
			if err := rng.Unmarshal(v); err != nil {
				return err
			}
			r.BufferedRanges = append(r.BufferedRanges, rng)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.player_time_ms")
			}
			r.PlayerTimeMs = int64(v)
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.video_playback_ustreamer_config")
			}
			r.VideoPlaybackUstreamerConfig = append([]byte(nil), v...)
			b = b[n:]
		case 16:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.selected_audio_format_ids")
			}
			f := &FormatId{}
			if err := f.Unmarshal(v); err != nil {
				return err
			}
			r.SelectedAudioFormatIds = append(r.SelectedAudioFormatIds, f)
			b = b[n:]
		case 17:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.selected_video_format_ids")
			}
			f := &FormatId{}
			if err := f.Unmarshal(v); err != nil {
				return err
			}
			r.SelectedVideoFormatIds = append(r.SelectedVideoFormatIds, f)
			b = b[n:]
		case 19:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errInvalidWire("VideoPlaybackAbrRequest.streamer_context")
			}
			r.StreamerContext = &StreamerContext{}
			if err := r.StreamerContext.Unmarshal(v); err != nil {
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
