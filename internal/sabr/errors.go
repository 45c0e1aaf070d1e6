package sabr

import "errors"

// Caller-misuse sentinels.
var (
	// ErrSessionConsumed is returned by Next once the session has reached
	// end of stream (or been closed) and Next is called again.
	ErrSessionConsumed = errors.New("sabr: session already consumed")
	// ErrNoSelector is returned when a session is constructed with neither
	// an audio nor a video format selector.
	ErrNoSelector = errors.New("sabr: at least one audio or video selector is required")
)

// Protocol/policy violation sentinels (fatal per spec.md §7). Each is
// wrapped with the offending detail via fmt.Errorf("%w: ...", errX) at the
// call site, so callers can still errors.Is against the category.
var (
	ErrProtocolViolation = errors.New("sabr: protocol violation")
	ErrPolicyViolation   = errors.New("sabr: policy violation")
	ErrNoProgress        = errors.New("sabr: no data in consecutive requests")
)

// ErrSabrError wraps a server-sent SABR_ERROR part, which is always fatal.
var ErrSabrError = errors.New("sabr: server sent SABR_ERROR")

// ErrAttestationRequired is returned once STREAM_PROTECTION_STATUS's
// ATTESTATION_REQUIRED retry budget is exhausted.
var ErrAttestationRequired = errors.New("sabr: attestation required")
