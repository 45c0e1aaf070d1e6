package sabr

import "github.com/jmylchreest/sabrgo/internal/sabr/wire"

// Event is the sum type yielded by Session.Next (spec.md §4.3). Concrete
// types are MediaSegment, MediaSeek, PoTokenStatus, and
// RefreshPlayerResponse.
type Event interface {
	isEvent()
}

// SeekReason classifies why a MediaSeek event fired.
type SeekReason int

const (
	SeekServerSeek SeekReason = iota
	SeekBufferSeek
)

func (r SeekReason) String() string {
	if r == SeekBufferSeek {
		return "BUFFER_SEEK"
	}
	return "SERVER_SEEK"
}

// POTokenStatus classifies a STREAM_PROTECTION_STATUS part (spec.md §4.5).
type POTokenStatus int

const (
	POTokenOK POTokenStatus = iota
	POTokenMissing
	POTokenInvalid
	POTokenPending
	POTokenNotRequired
	POTokenPendingMissing
)

func (s POTokenStatus) String() string {
	switch s {
	case POTokenOK:
		return "OK"
	case POTokenMissing:
		return "MISSING"
	case POTokenInvalid:
		return "INVALID"
	case POTokenPending:
		return "PENDING"
	case POTokenNotRequired:
		return "NOT_REQUIRED"
	case POTokenPendingMissing:
		return "PENDING_MISSING"
	default:
		return "UNKNOWN"
	}
}

// RefreshReason classifies why a RefreshPlayerResponse event fired.
type RefreshReason int

const (
	RefreshSABRURLExpiry RefreshReason = iota
	RefreshUnknown
)

func (r RefreshReason) String() string {
	if r == RefreshSABRURLExpiry {
		return "SABR_URL_EXPIRY"
	}
	return "UNKNOWN"
}

// MediaSegment is emitted on each successful MEDIA_END for a non-discarded
// segment.
type MediaSegment struct {
	FormatSelector *FormatSelector
	FormatID       wire.FormatId
	PlayerTimeMs   int64
	FragmentIndex  int64
	FragmentCount  int64
	IsInitSegment  bool
	StartBytes     int64
	Data           []byte
}

func (MediaSegment) isEvent() {}

// MediaSeek signals that the media sequence for a format may be
// non-contiguous next.
type MediaSeek struct {
	Reason         SeekReason
	FormatID       wire.FormatId
	FormatSelector *FormatSelector
}

func (MediaSeek) isEvent() {}

// PoTokenStatus is a classified STREAM_PROTECTION_STATUS signal.
type PoTokenStatus struct {
	Status POTokenStatus
}

func (PoTokenStatus) isEvent() {}

// RefreshPlayerResponse asks the caller to replace the session's URL and
// ustreamer config before the next poll.
type RefreshPlayerResponse struct {
	Reason RefreshReason
}

func (RefreshPlayerResponse) isEvent() {}
