// Package transport drives the SABR HTTP POST/response cycle: per-request
// retry with exponential backoff, then host fallback once the retry count
// crosses a threshold, per spec.md §4.4.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/jmylchreest/sabrgo/pkg/httpclient"
	"github.com/jmylchreest/sabrgo/pkg/urlutil"
)

// Common errors returned by Post.
var (
	// ErrHostsExhausted is returned when host fallback has no candidate
	// host left to try.
	ErrHostsExhausted = errors.New("transport: host fallback candidates exhausted")
	// ErrPermanent is returned for a non-retriable HTTP response: any 4xx
	// other than 429, which httpclient.IsRetryableStatus treats as transient.
	ErrPermanent = errors.New("transport: permanent HTTP error")
	// ErrTransient wraps a retriable HTTP response (5xx, or 429) encountered
	// while retries and host fallback were both exhausted.
	ErrTransient = errors.New("transport: transient HTTP error")
	// ErrRetriesExhausted is returned once the per-request attempt budget
	// runs out without a host fallback succeeding.
	ErrRetriesExhausted = errors.New("transport: retry budget exhausted")
)

const contentTypeProtobuf = "application/x-protobuf"

// Config tunes the transport wrapper. It layers spec.md §4.4's retry/
// fallback policy on top of pkg/httpclient's retry-capable client.
type Config struct {
	// HTTPRetries is the number of POST retries after the initial attempt
	// (N in spec.md §4.4), so a request makes at most HTTPRetries+1 attempts.
	HTTPRetries int
	// HostFallbackThreshold is the attempt count at which a host-fallback
	// rewrite is attempted instead of a same-host retry.
	HostFallbackThreshold int

	RetryDelay        time.Duration
	RetryMaxDelay     time.Duration
	BackoffMultiplier float64

	UserAgent           string
	EnableDecompression bool
	MaxResponseSize     int64

	Logger *slog.Logger
}

// Transport executes SABR POST/response cycles with retry and host
// fallback. It is not safe for concurrent use by multiple goroutines
// against the same underlying failure counter.
type Transport struct {
	cfg    Config
	client *httpclient.Client
	logger *slog.Logger

	fallbackCount int
}

// New builds a Transport. The inner httpclient.Client is configured with
// RetryAttempts=0: Transport owns the retry loop itself so it can interleave
// host-fallback decisions between attempts, something a single fixed-host
// retry loop cannot express.
func New(cfg Config) *Transport {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base := &http.Client{
		Transport: h2Transport(),
	}

	inner := httpclient.New(httpclient.Config{
		Timeout:              0, // the caller's context governs request lifetime
		RetryAttempts:        0,
		RetryDelay:           cfg.RetryDelay,
		RetryMaxDelay:        cfg.RetryMaxDelay,
		BackoffMultiplier:    cfg.BackoffMultiplier,
		UserAgent:            cfg.UserAgent,
		Logger:               cfg.Logger,
		EnableDecompression:  cfg.EnableDecompression,
		MaxResponseSize:      cfg.MaxResponseSize,
		BaseClient:           base,
	})

	return &Transport{cfg: cfg, client: inner, logger: cfg.Logger}
}

// h2Transport configures an *http.Transport for HTTP/2, since googlevideo
// playback endpoints are effectively H2-only and the long-poll
// request/response shape benefits from a long-lived connection.
func h2Transport() *http.Transport {
	t := &http.Transport{
		TLSClientConfig: &tls.Config{NextProtos: []string{"h2", "http/1.1"}},
	}
	// Best-effort: if http2 configuration fails, t still works over HTTP/1.1.
	_ = http2.ConfigureTransport(t)
	return t
}

// Result carries a successful POST's response body and the URL it was
// finally served from (which may differ from the requested URL if a host
// fallback rewrite occurred during the attempt loop).
type Result struct {
	Body []byte
	URL  string
}

// Post sends body to rawURL with content-type application/x-protobuf and
// returns the fully-read response body, retrying transient failures and
// escalating to host fallback per spec.md §4.4. The returned URL is the one
// that ultimately succeeded; callers must persist it as the session's
// current URL so the next request starts from the right host.
func (t *Transport) Post(ctx context.Context, rawURL string, body []byte) (Result, error) {
	currentURL := rawURL
	delay := t.cfg.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= t.cfg.HTTPRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * t.cfg.BackoffMultiplier)
			if delay > t.cfg.RetryMaxDelay {
				delay = t.cfg.RetryMaxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, currentURL, bytes.NewReader(body))
		if err != nil {
			return Result{}, fmt.Errorf("transport: building request: %w", err)
		}
		req.Header.Set("Content-Type", contentTypeProtobuf)

		resp, err := t.client.DoWithContext(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Result{}, err
			}
			lastErr = err
			if attempt >= t.cfg.HostFallbackThreshold-1 {
				if fellBack, ferr := t.fallback(&currentURL); ferr != nil {
					return Result{}, ferr
				} else if !fellBack {
					return Result{}, fmt.Errorf("%w: %v", ErrHostsExhausted, lastErr)
				}
			}
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		if resp.StatusCode >= 400 {
			if !httpclient.IsRetryableStatus(resp.StatusCode) {
				return Result{}, fmt.Errorf("%w: status %d", ErrPermanent, resp.StatusCode)
			}
			lastErr = fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
			if attempt >= t.cfg.HostFallbackThreshold-1 {
				if fellBack, ferr := t.fallback(&currentURL); ferr != nil {
					return Result{}, ferr
				} else if !fellBack {
					return Result{}, fmt.Errorf("%w: %v", ErrHostsExhausted, lastErr)
				}
			}
			continue
		}

		return Result{Body: data, URL: currentURL}, nil
	}

	return Result{}, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// Failures returns the consecutive-failure count the inner client is
// tracking against currentURL's host.
func (t *Transport) Failures() int {
	return t.client.Failures()
}

// FallbackCount returns how many times Post has rewritten the request URL to
// a different host over this Transport's lifetime, for the optional debug
// HTTP endpoint (SPEC_FULL.md §4.x).
func (t *Transport) FallbackCount() int {
	return t.fallbackCount
}

// fallback rewrites *currentURL to the next host-fallback candidate and
// resets the inner client's failure counter, so Failures() counts only
// failures against the new host.
func (t *Transport) fallback(currentURL *string) (ok bool, err error) {
	next, ok, err := urlutil.HostFallback(*currentURL)
	if err != nil {
		return false, fmt.Errorf("transport: host fallback: %w", err)
	}
	if !ok {
		return false, nil
	}
	t.logger.Warn("falling back to next host",
		slog.String("from", *currentURL),
		slog.String("to", next),
	)
	*currentURL = next
	t.client.ResetFailures()
	t.fallbackCount++
	return true, nil
}
