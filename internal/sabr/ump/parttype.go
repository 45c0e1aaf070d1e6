package ump

import "fmt"

// PartType identifies the kind of payload a Part carries. Numeric values
// are assigned by the server and are opaque beyond the names the session
// engine dispatches on; types this codec does not name are still parsed
// and delivered, so a server can introduce new part types without breaking
// the parser.
type PartType uint32

// Known part types, per the server's UMP framing. Numeric values come from
// observed server traffic; a part carrying any other value is not an
// error, it's simply unhandled by the higher-level dispatch in internal/sabr.
const (
	PartMediaHeader                PartType = 20
	PartMedia                      PartType = 21
	PartMediaEnd                   PartType = 22
	PartStreamProtectionStatus     PartType = 19
	PartSabrRedirect               PartType = 18
	PartNextRequestPolicy          PartType = 35
	PartFormatInitializationMeta   PartType = 42
	PartLiveMetadata                PartType = 57
	PartSabrSeek                   PartType = 62
	PartSabrError                  PartType = 17
	PartSabrContextUpdate          PartType = 59
	PartSabrContextSendingPolicy   PartType = 86
	PartTimelineContext            PartType = 88
	PartPlaybackStartPolicy        PartType = 91
	PartRequestCancellationPolicy  PartType = 89
	PartSelectableFormats          PartType = 93
	PartPrewarmConnection          PartType = 76
	PartAllowedCachedFormats       PartType = 75
	PartReloadPlayerResponse       PartType = 84
	PartSnackbarMessage            PartType = 85
	PartPlaybackDebugInfo          PartType = 90
)

var partTypeNames = map[PartType]string{
	PartMediaHeader:               "MEDIA_HEADER",
	PartMedia:                     "MEDIA",
	PartMediaEnd:                  "MEDIA_END",
	PartStreamProtectionStatus:    "STREAM_PROTECTION_STATUS",
	PartSabrRedirect:              "SABR_REDIRECT",
	PartNextRequestPolicy:         "NEXT_REQUEST_POLICY",
	PartFormatInitializationMeta:  "FORMAT_INITIALIZATION_METADATA",
	PartLiveMetadata:              "LIVE_METADATA",
	PartSabrSeek:                  "SABR_SEEK",
	PartSabrError:                 "SABR_ERROR",
	PartSabrContextUpdate:         "SABR_CONTEXT_UPDATE",
	PartSabrContextSendingPolicy:  "SABR_CONTEXT_SENDING_POLICY",
	PartTimelineContext:           "TIMELINE_CONTEXT",
	PartPlaybackStartPolicy:       "PLAYBACK_START_POLICY",
	PartRequestCancellationPolicy: "REQUEST_CANCELLATION_POLICY",
	PartSelectableFormats:         "SELECTABLE_FORMATS",
	PartPrewarmConnection:         "PREWARM_CONNECTION",
	PartAllowedCachedFormats:      "ALLOWED_CACHED_FORMATS",
	PartReloadPlayerResponse:      "RELOAD_PLAYER_RESPONSE",
	PartSnackbarMessage:           "SNACKBAR_MESSAGE",
	PartPlaybackDebugInfo:         "PLAYBACK_DEBUG_INFO",
}

// String returns the part type's symbolic name, or "UNKNOWN(n)" for a
// numeric value this codec has no name for.
func (t PartType) String() string {
	if name, ok := partTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint32(t))
}

// Known reports whether t is one of the named part types above.
func (t PartType) Known() bool {
	_, ok := partTypeNames[t]
	return ok
}
