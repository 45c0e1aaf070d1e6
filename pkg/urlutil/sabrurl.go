package urlutil

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// liveSourceValue is the "source" query parameter value googlevideo URLs
// carry for an in-progress broadcast.
const liveSourceValue = "yt_live_broadcast"

// IsLive reports whether rawURL's "source" query parameter marks the
// stream as an in-progress live broadcast.
func IsLive(rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("urlutil: parsing SABR URL: %w", err)
	}
	return u.Query().Get("source") == liveSourceValue, nil
}

// ExpiresAt returns the epoch-seconds "expire" query parameter as a Time.
// It returns the zero Time if the parameter is absent or unparseable.
func ExpiresAt(rawURL string) (time.Time, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return time.Time{}, fmt.Errorf("urlutil: parsing SABR URL: %w", err)
	}
	raw := u.Query().Get("expire")
	if raw == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("urlutil: parsing expire parameter %q: %w", raw, err)
	}
	return time.Unix(sec, 0), nil
}

// ExpiresWithin reports whether rawURL's expiry falls within d of now.
func ExpiresWithin(rawURL string, now time.Time, d time.Duration) (bool, error) {
	exp, err := ExpiresAt(rawURL)
	if err != nil {
		return false, err
	}
	if exp.IsZero() {
		return false, nil
	}
	return !exp.After(now.Add(d)), nil
}

// RequestNumber returns the "rn" query parameter of rawURL.
func RequestNumber(rawURL string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("urlutil: parsing SABR URL: %w", err)
	}
	raw := u.Query().Get("rn")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("urlutil: parsing rn parameter %q: %w", raw, err)
	}
	return n, nil
}

// WithRequestNumber returns rawURL with its "rn" query parameter set to n,
// preserving every other parameter's literal order and encoding.
func WithRequestNumber(rawURL string, n int64) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlutil: parsing SABR URL: %w", err)
	}
	u.RawQuery = setRawQueryParam(u.RawQuery, "rn", strconv.FormatInt(n, 10))
	return u.String(), nil
}
