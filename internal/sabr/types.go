package sabr

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

// Track identifies which half of a playback pair a FormatSelector wants.
type Track int

const (
	TrackAudio Track = iota
	TrackVideo
)

func (t Track) String() string {
	if t == TrackVideo {
		return "video"
	}
	return "audio"
}

// FormatSelector is a caller's intent to receive one track (spec.md §3).
// A selector matches a server-advertised format if Itags contains the
// advertised FormatId's itag, or if Itags is empty and the advertised MIME
// type starts with the selector's track prefix ("audio/" or "video/").
//
// spec.md's FormatSelector matches on the full FormatId triple
// (itag, lmt, xtags); callers in practice only know the itag ahead of time
// (lmt/xtags are server-assigned variants of the same itag), so the
// caller-facing selector here narrows to itag-only matching — see
// FormatSelectorConfig.
type FormatSelector struct {
	Track        Track
	Itags        []int32
	DiscardMedia bool

	// resumeRanges/resumeHasInit seed the next matching
	// FORMAT_INITIALIZATION_METADATA's initializedFormat from a prior
	// progress document (spec.md §4.6 "Resume"), then are cleared so a
	// later server-side format switch for the same selector doesn't
	// reapply them.
	resumeRanges  []*wire.BufferedRange
	resumeHasInit bool
}

// Matches reports whether id/mimeType satisfies this selector.
func (s *FormatSelector) Matches(id wire.FormatId, mimeType string) bool {
	for _, itag := range s.Itags {
		if itag == id.Itag {
			return true
		}
	}
	if len(s.Itags) != 0 {
		return false
	}
	prefix := "audio/"
	if s.Track == TrackVideo {
		prefix = "video/"
	}
	return strings.HasPrefix(mimeType, prefix)
}

// formatKey returns the stable string key used to identify a FormatId
// across maps, buffered ranges, and on-disk state (spec.md §3).
func formatKey(id wire.FormatId) string {
	return fmt.Sprintf("%d:%d:%s", id.Itag, id.Lmt, id.Xtags)
}

// segment describes one unit of media being assembled from
// MEDIA_HEADER/MEDIA/MEDIA_END parts (spec.md §3 "Segment").
type segment struct {
	formatID          wire.FormatId
	isInitSegment     bool
	sequenceNumber    int64
	startMs           int64
	durationMs        int64
	durationEstimated bool
	contentLength     int64
	startDataRange    int64
	discard           bool
	data              []byte
}

// initializedFormat is per-format session state created on
// FORMAT_INITIALIZATION_METADATA (spec.md §3 "InitializedFormat").
type initializedFormat struct {
	id       wire.FormatId
	mimeType string
	videoID  string

	durationMs        int64
	endTimeMs         int64
	totalSequences    int64
	hasTotalSequences bool

	selector *FormatSelector

	initSegment    *segment
	currentSegment *segment
	bufferedRanges []*wire.BufferedRange

	discard bool
}

// rangeContainingSegment returns the buffered range containing segIndex, if
// any, and its position in ranges.
func rangeContainingSegment(ranges []*wire.BufferedRange, segIndex int64) (*wire.BufferedRange, int) {
	for i, r := range ranges {
		if int64(r.StartSegmentIndex) <= segIndex && segIndex <= int64(r.EndSegmentIndex) {
			return r, i
		}
	}
	return nil, -1
}

// rangeEndingAt returns the buffered range whose EndSegmentIndex equals
// segIndex, if any.
func rangeEndingAt(ranges []*wire.BufferedRange, segIndex int64) (*wire.BufferedRange, int) {
	for i, r := range ranges {
		if int64(r.EndSegmentIndex) == segIndex {
			return r, i
		}
	}
	return nil, -1
}

// rangeContainingTime returns the buffered range whose [start_time_ms,
// start_time_ms+duration_ms) window contains playerTimeMs.
func rangeContainingTime(ranges []*wire.BufferedRange, playerTimeMs int64) (*wire.BufferedRange, int) {
	for i, r := range ranges {
		if playerTimeMs >= r.StartTimeMs && playerTimeMs < r.StartTimeMs+r.DurationMs {
			return r, i
		}
	}
	return nil, -1
}

// chainTail follows the forward contiguous chain of buffered ranges
// starting at ranges[idx] (each range's end_segment_index immediately
// preceding the next's start_segment_index) and returns the chain's final
// range plus the number of ranges in it.
func chainTail(ranges []*wire.BufferedRange, idx int) (tail *wire.BufferedRange, length int) {
	tail = ranges[idx]
	length = 1
	cur := tail
	for {
		next, pos := rangeStartingAt(ranges, int64(cur.EndSegmentIndex)+1)
		if pos == -1 || next == cur {
			break
		}
		cur = next
		tail = cur
		length++
	}
	return tail, length
}

// rangeStartingAt returns the buffered range whose StartSegmentIndex equals
// segIndex, if any.
func rangeStartingAt(ranges []*wire.BufferedRange, segIndex int64) (*wire.BufferedRange, int) {
	for i, r := range ranges {
		if int64(r.StartSegmentIndex) == segIndex {
			return r, i
		}
	}
	return nil, -1
}
