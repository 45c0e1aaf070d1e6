package sabr

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/jmylchreest/sabrgo/internal/sabr/ump"
	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

// defaultMaxSPSRetries is the ATTESTATION_REQUIRED retry budget used when
// the server doesn't supply StreamProtectionStatus.max_retries.
const defaultMaxSPSRetries = 5

// dispatchPart routes one decoded part to its handler (spec.md §4.5),
// appending any resulting events to s.pending.
func (s *Session) dispatchPart(p ump.Part) error {
	switch p.Type {
	case ump.PartMediaHeader:
		return s.handleMediaHeader(p.Data)
	case ump.PartMedia:
		return s.handleMedia(p.Data)
	case ump.PartMediaEnd:
		return s.handleMediaEnd(p.Data)
	case ump.PartFormatInitializationMeta:
		return s.handleFormatInitMeta(p.Data)
	case ump.PartLiveMetadata:
		return s.handleLiveMetadata(p.Data)
	case ump.PartStreamProtectionStatus:
		return s.handleStreamProtectionStatus(p.Data)
	case ump.PartSabrRedirect:
		return s.handleSabrRedirect(p.Data)
	case ump.PartNextRequestPolicy:
		return s.handleNextRequestPolicy(p.Data)
	case ump.PartSabrSeek:
		return s.handleSabrSeek(p.Data)
	case ump.PartSabrError:
		return s.handleSabrError(p.Data)
	case ump.PartSelectableFormats, ump.PartPrewarmConnection, ump.PartSnackbarMessage,
		ump.PartAllowedCachedFormats, ump.PartPlaybackDebugInfo, ump.PartTimelineContext,
		ump.PartSabrContextUpdate, ump.PartSabrContextSendingPolicy, ump.PartRequestCancellationPolicy,
		ump.PartPlaybackStartPolicy, ump.PartReloadPlayerResponse:
		s.logger.Debug("informational part", slog.String("part", p.Type.String()))
		return nil
	default:
		s.logger.Debug("unknown part type ignored", slog.String("part", p.Type.String()))
		return nil
	}
}

func (s *Session) handleMediaHeader(data []byte) error {
	var h wire.MediaHeader
	if err := h.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: media_header: %v", ErrProtocolViolation, err)
	}
	if h.FormatID == nil {
		return fmt.Errorf("%w: media_header missing format_id", ErrProtocolViolation)
	}
	if h.Compression != 0 {
		return fmt.Errorf("%w: media_header compression is not supported", ErrProtocolViolation)
	}

	headerID := uint8(h.HeaderID)
	if _, exists := s.headerTable[headerID]; exists {
		return fmt.Errorf("%w: duplicate header_id %d", ErrProtocolViolation, headerID)
	}

	key := formatKey(*h.FormatID)
	f, ok := s.formats[key]
	if !ok {
		s.logger.Debug("media_header for uninitialized format, ignoring", slog.String("format", key))
		return nil
	}

	seq := int64(h.SequenceNumber)
	// The hand-rolled wire types have no field-presence tracking (proto3
	// zero-is-absent), so a sequence number of 0 on a non-init header is
	// treated as "missing" per spec.md §4.5 — real sequence numbers start
	// at 1.
	if !h.IsInitSegment && seq <= 0 {
		return fmt.Errorf("%w: media_header missing sequence_number for non-init segment", ErrProtocolViolation)
	}

	discard := false
	if h.IsInitSegment {
		if f.initSegment != nil {
			discard = true
		}
	} else {
		if _, idx := rangeContainingSegment(f.bufferedRanges, seq); idx != -1 {
			discard = true
		}
		if f.currentSegment != nil {
			prev := f.currentSegment.sequenceNumber
			switch {
			case seq <= prev:
				discard = true
			case seq > prev+1:
				return fmt.Errorf("%w: media_header sequence gap for %s: have %d, got %d", ErrProtocolViolation, key, prev, seq)
			}
		}
	}

	startMs := h.StartMs
	if startMs == 0 && h.TimeRange != nil {
		startMs = h.TimeRange.StartTicks
	}
	durationMs := h.DurationMs
	if durationMs == 0 && h.TimeRange != nil {
		durationMs = h.TimeRange.DurationTicks
	}
	durationEstimated := false
	if durationMs == 0 && s.isLive {
		durationMs = int64(s.cfg.LiveSegmentTargetDurationSec) * 1000
		durationEstimated = true
	}

	s.headerTable[headerID] = &segment{
		formatID:          *h.FormatID,
		isInitSegment:     h.IsInitSegment,
		sequenceNumber:    seq,
		startMs:           startMs,
		durationMs:        durationMs,
		durationEstimated: durationEstimated,
		contentLength:     h.ContentLength,
		startDataRange:    h.StartDataRange,
		discard:           discard,
	}
	return nil
}

func (s *Session) handleMedia(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: media part has no header id byte", ErrProtocolViolation)
	}
	headerID := data[0]
	seg, ok := s.headerTable[headerID]
	s.requestHadData = true
	if !ok {
		s.logger.Debug("media for unknown header_id, ignoring", slog.Int("header_id", int(headerID)))
		return nil
	}
	seg.data = append(seg.data, data[1:]...)
	return nil
}

func (s *Session) handleMediaEnd(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: media_end part has no header id byte", ErrProtocolViolation)
	}
	headerID := data[0]
	seg, ok := s.headerTable[headerID]
	if !ok {
		s.logger.Debug("media_end for unknown header_id, ignoring", slog.Int("header_id", int(headerID)))
		return nil
	}
	delete(s.headerTable, headerID)

	if seg.contentLength > 0 && int64(len(seg.data)) != seg.contentLength {
		return fmt.Errorf("%w: media_end content_length mismatch for header_id %d: want %d, got %d",
			ErrProtocolViolation, headerID, seg.contentLength, len(seg.data))
	}
	if seg.discard {
		return nil
	}

	key := formatKey(seg.formatID)
	f, ok := s.formats[key]
	if !ok {
		return nil
	}

	var fragmentCount int64
	if f.hasTotalSequences {
		fragmentCount = f.totalSequences
	}
	s.pending = append(s.pending, MediaSegment{
		FormatSelector: f.selector,
		FormatID:       seg.formatID,
		PlayerTimeMs:   s.playerTimeMs,
		FragmentIndex:  seg.sequenceNumber,
		FragmentCount:  fragmentCount,
		IsInitSegment:  seg.isInitSegment,
		StartBytes:     seg.startDataRange,
		Data:           seg.data,
	})

	if seg.isInitSegment {
		f.initSegment = seg
		return nil
	}

	f.currentSegment = seg
	if rng, idx := rangeEndingAt(f.bufferedRanges, seg.sequenceNumber-1); idx != -1 {
		rng.EndSegmentIndex = int32(seg.sequenceNumber)
		if rng.TimeRange != nil && rng.TimeRange.Timescale != 0 && rng.TimeRange.Timescale != 1000 {
			return fmt.Errorf("%w: buffered range timescale must be 1000, got %d", ErrProtocolViolation, rng.TimeRange.Timescale)
		}
		if s.isLive && seg.durationEstimated {
			rng.DurationMs = (seg.startMs - rng.StartTimeMs) + seg.durationMs
		} else {
			rng.DurationMs += seg.durationMs
		}
		if rng.TimeRange == nil {
			rng.TimeRange = &wire.TimeRange{Timescale: 1000}
		}
		rng.TimeRange.Timescale = 1000
		rng.TimeRange.DurationTicks = rng.DurationMs
	} else if _, idx := rangeContainingSegment(f.bufferedRanges, seg.sequenceNumber); idx == -1 {
		fid := seg.formatID
		f.bufferedRanges = append(f.bufferedRanges, &wire.BufferedRange{
			FormatID:          &fid,
			StartTimeMs:       seg.startMs,
			DurationMs:        seg.durationMs,
			StartSegmentIndex: int32(seg.sequenceNumber),
			EndSegmentIndex:   int32(seg.sequenceNumber),
			TimeRange:         &wire.TimeRange{StartTicks: seg.startMs, DurationTicks: seg.durationMs, Timescale: 1000},
		})
	}
	return nil
}

func (s *Session) handleFormatInitMeta(data []byte) error {
	var m wire.FormatInitializationMetadata
	if err := m.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: format_initialization_metadata: %v", ErrProtocolViolation, err)
	}
	if m.FormatID == nil {
		return fmt.Errorf("%w: format_initialization_metadata missing format_id", ErrProtocolViolation)
	}

	key := formatKey(*m.FormatID)
	if _, exists := s.formats[key]; exists {
		s.logger.Debug("format already initialized, ignoring", slog.String("format", key))
		return nil
	}

	var matched *FormatSelector
	for _, sel := range s.selectors {
		if sel.Matches(*m.FormatID, m.MimeType) {
			matched = sel
			break
		}
	}
	if matched == nil {
		return fmt.Errorf("%w: no selector matches advertised format %s (%s)", ErrPolicyViolation, key, m.MimeType)
	}
	for _, f := range s.formats {
		if f.selector == matched {
			return fmt.Errorf("%w: server-side format switch for %s selector", ErrPolicyViolation, matched.Track)
		}
	}

	var durationMs int64
	if m.DurationTimescale > 0 {
		durationMs = int64(math.Ceil(float64(m.Duration) / float64(m.DurationTimescale) * 1000))
	}

	f := &initializedFormat{
		id:         *m.FormatID,
		mimeType:   m.MimeType,
		videoID:    m.VideoID,
		durationMs: durationMs,
		endTimeMs:  m.EndTimeMs,
		selector:   matched,
		discard:    matched.DiscardMedia,
	}
	if m.TotalSegments > 0 {
		f.totalSequences = int64(m.TotalSegments)
		f.hasTotalSequences = true
	}
	if f.discard {
		fid := *m.FormatID
		f.bufferedRanges = append(f.bufferedRanges, &wire.BufferedRange{
			FormatID:          &fid,
			StartSegmentIndex: 0,
			EndSegmentIndex:   math.MaxInt32,
		})
	} else if len(matched.resumeRanges) > 0 {
		// current_segment stays nil: resume admits a non-contiguous first
		// MEDIA_HEADER the same way a MediaSeek does (spec.md §4.6).
		f.bufferedRanges = append(f.bufferedRanges, matched.resumeRanges...)
	}
	if matched.resumeHasInit {
		f.initSegment = &segment{formatID: *m.FormatID, isInitSegment: true}
	}
	matched.resumeRanges = nil
	matched.resumeHasInit = false

	s.formats[key] = f
	s.formatOrder = append(s.formatOrder, key)

	if durationMs > s.totalDurationMs {
		s.totalDurationMs = durationMs
	}
	if m.EndTimeMs > s.totalDurationMs {
		s.totalDurationMs = m.EndTimeMs
	}
	return nil
}

func (s *Session) handleLiveMetadata(data []byte) error {
	var m wire.LiveMetadata
	if err := m.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: live_metadata: %v", ErrProtocolViolation, err)
	}
	s.liveMetadata = &m
	s.isLive = true
	s.totalDurationMs = m.HeadSequenceTimeMs
	if m.HeadSequenceNumber != 0 {
		for _, key := range s.formatOrder {
			f := s.formats[key]
			f.totalSequences = int64(m.HeadSequenceNumber)
			f.hasTotalSequences = true
		}
	}
	return nil
}

// Stream protection status codes (spec.md §4.5).
const (
	spsOK                  = 0
	spsAttestationPending  = 1
	spsAttestationRequired = 2
)

func (s *Session) handleStreamProtectionStatus(data []byte) error {
	var sps wire.StreamProtectionStatus
	if err := sps.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: stream_protection_status: %v", ErrProtocolViolation, err)
	}
	hasToken := len(s.poToken) > 0

	switch sps.Status {
	case spsOK:
		status := POTokenNotRequired
		if hasToken {
			status = POTokenOK
		}
		s.pending = append(s.pending, PoTokenStatus{Status: status})
	case spsAttestationPending:
		status := POTokenPendingMissing
		if hasToken {
			status = POTokenPending
		}
		s.pending = append(s.pending, PoTokenStatus{Status: status})
	case spsAttestationRequired:
		maxRetries := sps.MaxRetries
		if maxRetries <= 0 {
			maxRetries = defaultMaxSPSRetries
		}
		s.spsRetryCount++
		if int32(s.spsRetryCount) >= maxRetries {
			kind := "Invalid"
			if !hasToken {
				kind = "Missing"
			}
			return fmt.Errorf("%w (%s PO Token)", ErrAttestationRequired, kind)
		}
		s.isRetry = true
		status := POTokenMissing
		if hasToken {
			status = POTokenInvalid
		}
		s.pending = append(s.pending, PoTokenStatus{Status: status})
	default:
		s.logger.Warn("unknown stream_protection_status", slog.Int64("status", int64(sps.Status)))
	}
	return nil
}

func (s *Session) handleSabrRedirect(data []byte) error {
	var r wire.SabrRedirect
	if err := r.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: sabr_redirect: %v", ErrProtocolViolation, err)
	}
	if r.RedirectURL == "" {
		s.logger.Warn("sabr_redirect with empty redirect_url")
		return nil
	}
	s.currentURL = r.RedirectURL
	s.redirected = true
	return nil
}

func (s *Session) handleNextRequestPolicy(data []byte) error {
	var p wire.NextRequestPolicy
	if err := p.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: next_request_policy: %v", ErrProtocolViolation, err)
	}
	s.nextRequestPolicy = &p
	s.playbackCookie = p.PlaybackCookie
	s.lastBackoffMs = int64(p.BackoffTimeMs)
	return nil
}

func (s *Session) handleSabrSeek(data []byte) error {
	var seek wire.SabrSeek
	if err := seek.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: sabr_seek: %v", ErrProtocolViolation, err)
	}
	timescale := seek.Timescale
	if timescale == 0 {
		timescale = 1
	}
	s.playerTimeMs = int64(math.Ceil(float64(seek.SeekTimeTicks) / float64(timescale) * 1000))

	for _, key := range s.formatOrder {
		f := s.formats[key]
		f.currentSegment = nil
		s.pending = append(s.pending, MediaSeek{Reason: SeekServerSeek, FormatID: f.id, FormatSelector: f.selector})
	}
	return nil
}

func (s *Session) handleSabrError(data []byte) error {
	var e wire.SabrError
	if err := e.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: payload also failed to decode: %v", ErrSabrError, err)
	}
	return fmt.Errorf("%w: type=%d action=%d error=%q", ErrSabrError, e.Type, e.Action, e.Error)
}
