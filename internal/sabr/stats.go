package sabr

// FormatStats is a point-in-time snapshot of one initialized format's
// buffered ranges, for the optional debug HTTP endpoint (SPEC_FULL.md §4.x).
type FormatStats struct {
	Itag              int32                `json:"itag"`
	MimeType          string               `json:"mime_type"`
	Track             Track                `json:"-"`
	TrackName         string               `json:"track"`
	TotalSequences    int64                `json:"total_sequences,omitempty"`
	HasTotalSequences bool                 `json:"has_total_sequences"`
	BufferedRanges    []BufferedRangeStats `json:"buffered_ranges"`
}

// BufferedRangeStats is the JSON-friendly projection of a wire.BufferedRange.
type BufferedRangeStats struct {
	StartSegmentIndex int32 `json:"start_segment_index"`
	EndSegmentIndex   int32 `json:"end_segment_index"`
	StartTimeMs       int64 `json:"start_time_ms"`
	DurationMs        int64 `json:"duration_ms"`
}

// Stats is a snapshot of session-level progress, served verbatim by the
// `sabrget download --debug-addr` endpoint.
type Stats struct {
	SessionID       string        `json:"session_id"`
	PlayerTimeMs    int64         `json:"player_time_ms"`
	TotalDurationMs int64         `json:"total_duration_ms"`
	IsLive          bool          `json:"is_live"`
	RequestNumber   int64         `json:"request_number"`
	LastBackoffMs   int64         `json:"last_backoff_ms"`
	Formats         []FormatStats `json:"formats"`
}

// Stats returns a snapshot of the session's current progress. It is safe to
// call concurrently with a blocked Next only in the sense that it reads
// consistent Go values; callers driving Next from a different goroutine
// should still expect a snapshot that is stale by up to one request cycle.
func (s *Session) Stats() Stats {
	stats := Stats{
		SessionID:       s.id.String(),
		PlayerTimeMs:    s.playerTimeMs,
		TotalDurationMs: s.totalDurationMs,
		IsLive:          s.isLive,
		RequestNumber:   s.requestNumber,
		LastBackoffMs:   s.lastBackoffMs,
	}
	for _, key := range s.formatOrder {
		f := s.formats[key]
		fs := FormatStats{
			Itag:              f.id.Itag,
			MimeType:          f.mimeType,
			Track:             f.selector.Track,
			TrackName:         f.selector.Track.String(),
			TotalSequences:    f.totalSequences,
			HasTotalSequences: f.hasTotalSequences,
		}
		for _, r := range f.bufferedRanges {
			fs.BufferedRanges = append(fs.BufferedRanges, BufferedRangeStats{
				StartSegmentIndex: r.StartSegmentIndex,
				EndSegmentIndex:   r.EndSegmentIndex,
				StartTimeMs:       r.StartTimeMs,
				DurationMs:        r.DurationMs,
			})
		}
		stats.Formats = append(stats.Formats, fs)
	}
	return stats
}
