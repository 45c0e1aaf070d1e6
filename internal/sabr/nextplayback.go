package sabr

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

// defaultMaxEmptyRequests bounds requests_no_data before a session either
// ends (live) or fails (VOD), per spec.md §4.3.2's "three consecutive" wording.
const defaultMaxEmptyRequests = 3

// preparedNext is what prepareNextPlaybackTime decided for the iteration
// that just finished dispatching a response.
type preparedNext struct {
	consumed bool
	sleep    time.Duration
}

// prepareNextPlaybackTime runs spec.md §4.3.2 after a response has been
// fully dispatched: empty-response bookkeeping, buffer-seek detection,
// target time advance, end-of-media detection, and the no-progress guard.
// It returns what Next should do before issuing the next request, and
// resets the per-request flags along the way.
func (s *Session) prepareNextPlaybackTime() (preparedNext, error) {
	if len(s.headerTable) != 0 {
		s.logger.Warn("header id table non-empty at end of request", slog.Int("count", len(s.headerTable)))
	}

	if !s.requestHadData && !s.isRetry {
		s.requestsNoData++
		if s.timestampNoData.IsZero() {
			// Only stamp the start of the no-data streak, not every
			// iteration within it, or LiveEndWaitSec below would never
			// see elapsed time greater than a few microseconds.
			s.timestampNoData = s.now()
		}
	} else {
		s.requestsNoData = 0
		s.timestampNoData = time.Time{}
	}

	s.detectBufferSeeks()

	prevPlayerTimeMs := s.playerTimeMs
	s.advancePlayerTime()

	allDone := true
	for _, key := range s.formatOrder {
		f := s.formats[key]
		if f.discard {
			continue
		}
		if !formatReachesTotalSequences(f) {
			allDone = false
		}
	}

	if !s.isLive {
		if allDone || s.playerTimeMs >= s.totalDurationMs {
			s.resetPerRequestFlags()
			return preparedNext{consumed: true}, nil
		}
		if s.playerTimeMs == prevPlayerTimeMs && s.requestsNoData > defaultMaxEmptyRequests {
			return preparedNext{}, ErrNoProgress
		}
		s.resetPerRequestFlags()
		return preparedNext{}, nil
	}

	if s.playerTimeMs >= s.totalDurationMs {
		if s.requestsNoData > defaultMaxEmptyRequests && !s.timestampNoData.IsZero() &&
			s.now().Sub(s.timestampNoData) >= time.Duration(s.cfg.LiveEndWaitSec)*time.Second {
			s.resetPerRequestFlags()
			return preparedNext{consumed: true}, nil
		}
		backoffMs := int64(0)
		if s.nextRequestPolicy != nil {
			backoffMs = int64(s.nextRequestPolicy.BackoffTimeMs)
		}
		sleep := time.Duration(backoffMs)*time.Millisecond + time.Duration(s.cfg.LiveSegmentTargetDurationSec)*time.Second
		s.resetPerRequestFlags()
		return preparedNext{sleep: sleep}, nil
	}

	s.resetPerRequestFlags()
	return preparedNext{}, nil
}

// formatReachesTotalSequences reports whether f's final buffered range
// reaches or exceeds its total sequence count.
func formatReachesTotalSequences(f *initializedFormat) bool {
	if !f.hasTotalSequences {
		return false
	}
	var maxEnd int64 = -1
	for _, r := range f.bufferedRanges {
		if int64(r.EndSegmentIndex) > maxEnd {
			maxEnd = int64(r.EndSegmentIndex)
		}
	}
	return maxEnd >= f.totalSequences
}

// detectBufferSeeks implements spec.md §4.3.2's buffer-seek detection: a
// format whose current_segment sits at the end of a chain of ≥2 buffered
// ranges means the server can safely be asked to jump ahead, so the
// contiguity requirement on the next MEDIA_HEADER is lifted.
func (s *Session) detectBufferSeeks() {
	for _, key := range s.formatOrder {
		f := s.formats[key]
		if f.currentSegment == nil {
			continue
		}
		_, idx := rangeEndingAt(f.bufferedRanges, f.currentSegment.sequenceNumber)
		if idx == -1 {
			continue
		}
		_, chainLen := chainContaining(f.bufferedRanges, idx)
		if chainLen < 2 {
			continue
		}
		f.currentSegment = nil
		s.pending = append(s.pending, MediaSeek{Reason: SeekBufferSeek, FormatID: f.id, FormatSelector: f.selector})
	}
}

// chainContaining returns the tail and length of the contiguous chain of
// buffered ranges that ranges[idx] participates in, walking backward to
// the chain's head first.
func chainContaining(ranges []*wire.BufferedRange, idx int) (*wire.BufferedRange, int) {
	head := idx
	for {
		prev, pos := rangeEndingAt(ranges, int64(ranges[head].StartSegmentIndex)-1)
		if pos == -1 || prev == ranges[head] {
			break
		}
		head = pos
	}
	return chainTail(ranges, head)
}

// advancePlayerTime implements spec.md §4.3.2's target time computation.
func (s *Session) advancePlayerTime() {
	if s.redirected {
		return
	}

	var minBuffered int64
	haveMin := false
	allContributed := true
	for _, key := range s.formatOrder {
		f := s.formats[key]
		if f.discard {
			continue
		}
		_, idx := rangeContainingTime(f.bufferedRanges, s.playerTimeMs)
		if idx == -1 {
			allContributed = false
			continue
		}
		tail, _ := chainTail(f.bufferedRanges, idx)
		tailEnd := tail.StartTimeMs + tail.DurationMs
		if !haveMin || tailEnd < minBuffered {
			minBuffered = tailEnd
			haveMin = true
		}
	}
	switch {
	case !haveMin:
		// No format contributes at all: fall back to the current player time
		// outright.
		minBuffered = s.playerTimeMs
	case !allContributed && s.playerTimeMs < minBuffered:
		// Some but not all formats contributed a tail (e.g. a lagging or
		// just-seeked format hasn't buffered past playerTimeMs yet): don't
		// let the contributing formats drag the target ahead of a format
		// that hasn't caught up.
		minBuffered = s.playerTimeMs
	}

	backoffMs := int64(0)
	if s.nextRequestPolicy != nil {
		backoffMs = int64(s.nextRequestPolicy.BackoffTimeMs)
	}

	next := s.playerTimeMs + backoffMs
	if minBuffered > next {
		next = minBuffered
	}
	s.playerTimeMs = next
}

// resetPerRequestFlags clears the per-request bookkeeping spec.md §4.3.2
// requires reset before the next iteration.
func (s *Session) resetPerRequestFlags() {
	s.redirected = false
	s.isRetry = false
	s.requestHadData = false
	s.nextRequestPolicy = nil
	s.liveMetadata = nil
	for k := range s.headerTable {
		delete(s.headerTable, k)
	}
}
