package sabr

import "github.com/jmylchreest/sabrgo/internal/sabr/wire"

// buildRequest serializes the session's current state into a
// VideoPlaybackAbrRequest (spec.md §4.2).
func (s *Session) buildRequest() []byte {
	req := &wire.VideoPlaybackAbrRequest{
		ClientAbrState: &wire.ClientAbrState{
			PlayerTimeMs:              s.playerTimeMs,
			EnabledTrackTypesBitfield: s.enabledTrackTypes(),
		},
		PlayerTimeMs:                 s.playerTimeMs,
		VideoPlaybackUstreamerConfig: s.ustreamerConfig,
		StreamerContext: &wire.StreamerContext{
			ClientInfo:     s.clientInfo.toWire(),
			PoToken:        s.poToken,
			PlaybackCookie: s.playbackCookie,
		},
	}

	for _, key := range s.formatOrder {
		f := s.formats[key]
		req.InitializedFormatIds = append(req.InitializedFormatIds, &f.id)
		req.BufferedRanges = append(req.BufferedRanges, f.bufferedRanges...)
	}

	for _, sel := range s.selectors {
		ids := selectorFormatIds(sel)
		if sel.Track == TrackAudio {
			req.SelectedAudioFormatIds = append(req.SelectedAudioFormatIds, ids...)
		} else {
			req.SelectedVideoFormatIds = append(req.SelectedVideoFormatIds, ids...)
		}
	}

	return req.Marshal()
}

func selectorFormatIds(sel *FormatSelector) []*wire.FormatId {
	ids := make([]*wire.FormatId, 0, len(sel.Itags))
	for _, itag := range sel.Itags {
		ids = append(ids, &wire.FormatId{Itag: itag})
	}
	return ids
}

// enabledTrackTypes returns ClientAbrState.enabled_track_types_bitfield: 0
// for audio+video, 1 for audio-only (spec.md §3).
func (s *Session) enabledTrackTypes() int32 {
	hasVideo := false
	for _, sel := range s.selectors {
		if sel.Track == TrackVideo {
			hasVideo = true
		}
	}
	if hasVideo {
		return 0
	}
	return 1
}
