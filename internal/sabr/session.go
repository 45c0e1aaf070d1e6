// Package sabr implements the SABR session engine: it turns a long-poll
// POST/UMP-framed response cycle against a googlevideo SABR URL into a
// lazy sequence of media, seek, and protection-status events.
package sabr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/sabrgo/internal/sabr/transport"
	"github.com/jmylchreest/sabrgo/internal/sabr/ump"
	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
	"github.com/jmylchreest/sabrgo/pkg/diskslice"
	"github.com/jmylchreest/sabrgo/pkg/urlutil"
)

// refreshWindow is how far ahead of SABR URL expiry a RefreshPlayerResponse
// event is emitted (spec.md §4.3.1).
const refreshWindow = 300 * time.Second

// Session owns the state of one multi-format SABR download and exposes it
// as a pull-style iterator of Events via Next. A Session is single-consumer:
// only one goroutine may call Next at a time, though Close may be called
// concurrently from e.g. a signal handler.
type Session struct {
	cfg SessionConfig
	tr  *transport.Transport

	id ulid.ULID

	currentURL      string
	requestNumber   int64
	playerTimeMs    int64
	ustreamerConfig []byte
	clientInfo      ClientInfo
	poToken         []byte
	playbackCookie  []byte

	selectors   []*FormatSelector
	formatOrder []string
	formats     map[string]*initializedFormat

	headerTable map[uint8]*segment
	pending     []Event

	isLive          bool
	totalDurationMs int64
	liveMetadata    *wire.LiveMetadata

	spsRetryCount int
	isRetry       bool
	redirected    bool
	requestHadData bool

	requestsNoData  int
	timestampNoData time.Time

	nextRequestPolicy *wire.NextRequestPolicy
	lastBackoffMs     int64

	trace *diskslice.DiskSlice[TraceEntry]

	consumed    bool
	eofReturned bool
	logger      *slog.Logger

	nowFunc func() time.Time
}

// NewSession constructs a Session from cfg, decoding its base64url blobs and
// resolving its format selectors. tr performs the underlying HTTP POSTs.
func NewSession(cfg SessionConfig, tr *transport.Transport) (*Session, error) {
	selectors, err := cfg.selectors()
	if err != nil {
		return nil, err
	}

	ustreamerConfig, err := decodeBase64URL("video_playback_ustreamer_config", cfg.VideoPlaybackUstreamerConfig)
	if err != nil {
		return nil, err
	}
	poToken, err := decodeBase64URL("po_token", cfg.POToken)
	if err != nil {
		return nil, err
	}

	if cfg.LiveSegmentTargetDurationSec == 0 {
		cfg.LiveSegmentTargetDurationSec = 5
	}
	if cfg.HTTPRetries == 0 {
		cfg.HTTPRetries = 10
	}
	if cfg.HostFallbackThreshold == 0 {
		cfg.HostFallbackThreshold = 8
	}
	if cfg.LiveEndWaitSec == 0 {
		cfg.LiveEndWaitSec = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := ulid.Make()
	logger = logger.With("component", "sabr.session", slog.String("session_id", id.String()))

	live, err := urlutil.IsLive(cfg.ServerABRStreamingURL)
	if err != nil {
		return nil, err
	}

	var trace *diskslice.DiskSlice[TraceEntry]
	if cfg.Debug {
		trace, err = newTraceBuffer("sabr-trace-" + id.String())
		if err != nil {
			return nil, fmt.Errorf("sabr: allocating trace buffer: %w", err)
		}
	}

	return &Session{
		cfg:             cfg,
		tr:              tr,
		id:              id,
		currentURL:      cfg.ServerABRStreamingURL,
		playerTimeMs:    cfg.StartTimeMs,
		ustreamerConfig: ustreamerConfig,
		clientInfo:      cfg.ClientInfo,
		poToken:         poToken,
		selectors:       selectors,
		formats:         make(map[string]*initializedFormat),
		headerTable:     make(map[uint8]*segment),
		isLive:          live,
		logger:          logger,
		trace:           trace,
		nowFunc:         time.Now,
	}, nil
}

// IsLive reports whether this session is observing a live broadcast, either
// because LiveMetadata has been seen or the SABR URL's source parameter
// says so.
func (s *Session) IsLive() bool {
	return s.isLive
}

// ID returns this session's correlation ID, generated once at construction
// and attached to every log line the session emits.
func (s *Session) ID() string {
	return s.id.String()
}

// Close marks the session consumed and releases its trace buffer, if one was
// allocated; it is idempotent and safe to call concurrently with a blocked
// Next.
func (s *Session) Close() {
	s.consumed = true
	s.closeTrace()
}

// UpdatePlayerResponse replaces the session's SABR URL and ustreamer config
// in response to a RefreshPlayerResponse event. The caller must call this
// before the next Next call, or the same event will repeat.
func (s *Session) UpdatePlayerResponse(serverABRStreamingURL, ustreamerConfigB64 string) error {
	ustreamerConfig, err := decodeBase64URL("video_playback_ustreamer_config", ustreamerConfigB64)
	if err != nil {
		return err
	}
	live, err := urlutil.IsLive(serverABRStreamingURL)
	if err != nil {
		return err
	}
	s.currentURL = serverABRStreamingURL
	s.ustreamerConfig = ustreamerConfig
	s.isLive = s.isLive || live
	return nil
}

func (s *Session) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now()
}

// Next advances the session, returning the next Event. It returns io.EOF
// once the session is consumed and ErrSessionConsumed if called again after
// that. Next may block on network I/O and on the live-tail sleep spec.md
// §4.3.2 calls for; pass a cancelable ctx to bound that.
func (s *Session) Next(ctx context.Context) (Event, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}
		if s.consumed {
			if s.eofReturned {
				return nil, ErrSessionConsumed
			}
			s.eofReturned = true
			return nil, io.EOF
		}

		if within, err := s.expiresWithinRefreshWindow(); err != nil {
			return nil, err
		} else if within {
			return RefreshPlayerResponse{Reason: RefreshSABRURLExpiry}, nil
		}

		if err := s.doRequestCycle(ctx); err != nil {
			return nil, err
		}

		next, err := s.prepareNextPlaybackTime()
		if err != nil {
			return nil, err
		}
		if next.consumed {
			s.consumed = true
		}
		if next.sleep > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(next.sleep):
			}
		}
	}
}

// doRequestCycle builds and posts one request, then dispatches every part
// of the response, per spec.md §4.3.1 steps 2-3.
func (s *Session) doRequestCycle(ctx context.Context) error {
	reqURL, err := urlutil.WithRequestNumber(s.currentURL, s.requestNumber)
	if err != nil {
		return err
	}
	body := s.buildRequest()

	requestID := ulid.Make()
	s.logger.Debug("posting request",
		slog.String("request_id", requestID.String()),
		slog.Int64("request_number", s.requestNumber),
	)

	result, err := s.tr.Post(ctx, reqURL, body)
	if err != nil {
		return fmt.Errorf("sabr: request %d: %w", s.requestNumber, err)
	}
	s.requestNumber++
	s.currentURL = result.URL

	parser := ump.NewParser(bytes.NewReader(result.Body))
	for {
		part, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}
		s.traceRecord(requestID.String(), part)
		if err := s.dispatchPart(part); err != nil {
			return err
		}
	}
	return nil
}

// expiresWithinRefreshWindow reports whether the session's current URL
// expires within refreshWindow of now.
func (s *Session) expiresWithinRefreshWindow() (bool, error) {
	return urlutil.ExpiresWithin(s.currentURL, s.now(), refreshWindow)
}
