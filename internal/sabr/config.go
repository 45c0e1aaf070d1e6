package sabr

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

// ClientInfo carries the identity fields sent in every StreamerContext
// (spec.md §6 "client_info").
type ClientInfo struct {
	HL            string
	GL            string
	DeviceMake    string
	DeviceModel   string
	VisitorData   string
	UserAgent     string
	ClientName    int32
	ClientVersion string
	OSName        string
	OSVersion     string
}

func (c ClientInfo) toWire() *wire.ClientInfo {
	return &wire.ClientInfo{
		Hl:            c.HL,
		Gl:            c.GL,
		DeviceMake:    c.DeviceMake,
		DeviceModel:   c.DeviceModel,
		VisitorData:   c.VisitorData,
		UserAgent:     c.UserAgent,
		ClientName:    c.ClientName,
		ClientVersion: c.ClientVersion,
		OsName:        c.OSName,
		OsVersion:     c.OSVersion,
	}
}

// FormatSelectorConfig is a caller format selector (spec.md §6): Itag
// identifies an exact format. Mime is carried but not used for matching; a
// selector built from entries without an itag matches any format whose MIME
// type starts with the track's prefix.
type FormatSelectorConfig struct {
	Itag int32
	Mime string
}

// SessionConfig is the library-facing, Viper-free session configuration
// (spec.md §6 "Caller-facing session configuration"). internal/config loads
// the same fields via Viper for the CLI and converts to this type; library
// callers may build one directly.
type SessionConfig struct {
	ServerABRStreamingURL string
	// VideoPlaybackUstreamerConfig is the opaque base64url blob from the
	// player response, decoded and embedded in every request.
	VideoPlaybackUstreamerConfig string
	ClientInfo                   ClientInfo
	AudioSelection               []FormatSelectorConfig
	VideoSelection               []FormatSelectorConfig
	// AudioResume/VideoResume, when set, seed the corresponding selector's
	// initializedFormat with a previously persisted progress document's
	// buffered_ranges and init_segment presence (spec.md §4.6 "Resume").
	// The caller loads these with writer.LoadProgressDocument before
	// constructing the session.
	AudioResume *wire.ProgressDocument
	VideoResume *wire.ProgressDocument
	// POToken is a base64url string; optional.
	POToken                      string
	StartTimeMs                  int64
	LiveSegmentTargetDurationSec int
	HTTPRetries                  int
	HostFallbackThreshold        int
	LiveEndWaitSec               int
	// Debug enables a per-session trace buffer of recent response parts,
	// spilled to disk past a small memory threshold rather than grown
	// unbounded, and readable through Session.Trace (and, from sabrget, the
	// --debug-addr endpoint's /trace route).
	Debug bool

	Logger *slog.Logger
}

func (c SessionConfig) selectors() ([]*FormatSelector, error) {
	var out []*FormatSelector
	if len(c.AudioSelection) > 0 {
		out = append(out, toSelector(TrackAudio, c.AudioSelection, c.AudioResume))
	}
	if len(c.VideoSelection) > 0 {
		out = append(out, toSelector(TrackVideo, c.VideoSelection, c.VideoResume))
	}
	if len(out) == 0 {
		return nil, ErrNoSelector
	}
	return out, nil
}

func toSelector(track Track, cfg []FormatSelectorConfig, resume *wire.ProgressDocument) *FormatSelector {
	sel := &FormatSelector{Track: track}
	for _, c := range cfg {
		if c.Itag == 0 {
			continue
		}
		sel.Itags = append(sel.Itags, c.Itag)
	}
	if resume != nil {
		sel.resumeRanges = resume.BufferedRanges
		sel.resumeHasInit = resume.InitSegment != nil
	}
	return sel
}

func decodeBase64URL(field, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
			return b2, nil
		}
		return nil, fmt.Errorf("sabr: decoding %s: %w", field, err)
	}
	return b, nil
}
