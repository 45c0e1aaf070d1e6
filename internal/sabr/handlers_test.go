package sabr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sabrgo/internal/sabr/ump"
	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

func newTestSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	if cfg.ServerABRStreamingURL == "" {
		cfg.ServerABRStreamingURL = "https://rr3---sn-aaa.googlevideo.com/videoplayback?mn=sn-aaa"
	}
	sess, err := NewSession(cfg, nil)
	require.NoError(t, err)
	return sess
}

func TestHandleFormatInitMeta_InitializesFormat(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})

	m := &wire.FormatInitializationMetadata{
		FormatID:          &wire.FormatId{Itag: 137},
		MimeType:          "video/mp4",
		TotalSegments:     10,
		Duration:          20,
		DurationTimescale: 1,
		EndTimeMs:         20000,
	}
	require.NoError(t, sess.handleFormatInitMeta(m.Marshal()))

	key := formatKey(wire.FormatId{Itag: 137})
	f, ok := sess.formats[key]
	require.True(t, ok)
	assert.Equal(t, int64(10), f.totalSequences)
	assert.True(t, f.hasTotalSequences)
	assert.Equal(t, int64(20000), sess.totalDurationMs)
}

func TestHandleFormatInitMeta_NoMatchingSelectorIsPolicyViolation(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})

	m := &wire.FormatInitializationMetadata{FormatID: &wire.FormatId{Itag: 999}, MimeType: "video/mp4"}
	err := sess.handleFormatInitMeta(m.Marshal())
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestHandleFormatInitMeta_ServerSideSwitchIsPolicyViolation(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}, {Itag: 136}}})

	first := &wire.FormatInitializationMetadata{FormatID: &wire.FormatId{Itag: 137}, MimeType: "video/mp4"}
	require.NoError(t, sess.handleFormatInitMeta(first.Marshal()))

	second := &wire.FormatInitializationMetadata{FormatID: &wire.FormatId{Itag: 136}, MimeType: "video/mp4"}
	err := sess.handleFormatInitMeta(second.Marshal())
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestHandleFormatInitMeta_SeedsResumeStateOnce(t *testing.T) {
	resume := &wire.ProgressDocument{
		InitSegment:    &wire.InitSegmentRecord{Filename: "out.mp4.seqinit.sabr.part", ContentLength: 4},
		BufferedRanges: []*wire.BufferedRange{{StartSegmentIndex: 0, EndSegmentIndex: 9}},
	}
	sess := newTestSession(t, SessionConfig{
		VideoSelection: []FormatSelectorConfig{{Itag: 137}},
		VideoResume:    resume,
	})

	m := &wire.FormatInitializationMetadata{FormatID: &wire.FormatId{Itag: 137}, MimeType: "video/mp4"}
	require.NoError(t, sess.handleFormatInitMeta(m.Marshal()))

	key := formatKey(wire.FormatId{Itag: 137})
	f := sess.formats[key]
	require.Len(t, f.bufferedRanges, 1)
	assert.Nil(t, f.currentSegment)
	require.NotNil(t, f.initSegment)
	assert.True(t, f.initSegment.isInitSegment)

	sel := sess.selectors[0]
	assert.Nil(t, sel.resumeRanges)
	assert.False(t, sel.resumeHasInit)
}

func TestHandleFormatInitMeta_DiscardedFormatPrefillsFullRange(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sess.selectors[0].DiscardMedia = true

	m := &wire.FormatInitializationMetadata{FormatID: &wire.FormatId{Itag: 137}, MimeType: "video/mp4"}
	require.NoError(t, sess.handleFormatInitMeta(m.Marshal()))

	key := formatKey(wire.FormatId{Itag: 137})
	f := sess.formats[key]
	assert.True(t, f.discard)
	require.Len(t, f.bufferedRanges, 1)
	assert.Equal(t, int32(0), f.bufferedRanges[0].StartSegmentIndex)
}

func initializeFormat(t *testing.T, sess *Session, itag int32, mime string) {
	t.Helper()
	m := &wire.FormatInitializationMetadata{FormatID: &wire.FormatId{Itag: itag}, MimeType: mime}
	require.NoError(t, sess.handleFormatInitMeta(m.Marshal()))
}

func TestMediaHeaderMediaMediaEnd_EmitsSegmentAndTracksBufferedRange(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")

	h := &wire.MediaHeader{
		HeaderID:       1,
		FormatID:       &wire.FormatId{Itag: 137},
		SequenceNumber: 1,
		StartMs:        0,
		DurationMs:     1000,
		ContentLength:  5,
	}
	require.NoError(t, sess.handleMediaHeader(h.Marshal()))
	require.NoError(t, sess.handleMedia(append([]byte{1}, []byte("hello")...)))
	require.NoError(t, sess.handleMediaEnd([]byte{1}))

	require.Len(t, sess.pending, 1)
	ev, ok := sess.pending[0].(MediaSegment)
	require.True(t, ok)
	assert.Equal(t, "hello", string(ev.Data))
	assert.Equal(t, int64(1), ev.FragmentIndex)

	key := formatKey(wire.FormatId{Itag: 137})
	f := sess.formats[key]
	require.Len(t, f.bufferedRanges, 1)
	assert.Equal(t, int32(1), f.bufferedRanges[0].EndSegmentIndex)
	assert.NotNil(t, f.currentSegment)
}

func TestHandleMediaHeader_SequenceGapIsProtocolViolation(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")

	h1 := &wire.MediaHeader{HeaderID: 1, FormatID: &wire.FormatId{Itag: 137}, SequenceNumber: 1, ContentLength: 1}
	require.NoError(t, sess.handleMediaHeader(h1.Marshal()))
	require.NoError(t, sess.handleMedia([]byte{1, 'a'}))
	require.NoError(t, sess.handleMediaEnd([]byte{1}))

	h2 := &wire.MediaHeader{HeaderID: 2, FormatID: &wire.FormatId{Itag: 137}, SequenceNumber: 5, ContentLength: 1}
	err := sess.handleMediaHeader(h2.Marshal())
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestHandleMediaHeader_MissingFormatIDIsProtocolViolation(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	h := &wire.MediaHeader{HeaderID: 1, SequenceNumber: 1}
	err := sess.handleMediaHeader(h.Marshal())
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestHandleMediaEnd_ContentLengthMismatchIsProtocolViolation(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")

	h := &wire.MediaHeader{HeaderID: 1, FormatID: &wire.FormatId{Itag: 137}, SequenceNumber: 1, ContentLength: 100}
	require.NoError(t, sess.handleMediaHeader(h.Marshal()))
	require.NoError(t, sess.handleMedia([]byte{1, 'a'}))
	err := sess.handleMediaEnd([]byte{1})
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestHandleStreamProtectionStatus_NoTokenRequired(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sps := &wire.StreamProtectionStatus{Status: spsOK}
	require.NoError(t, sess.handleStreamProtectionStatus(sps.Marshal()))
	require.Len(t, sess.pending, 1)
	assert.Equal(t, POTokenNotRequired, sess.pending[0].(PoTokenStatus).Status)
}

func TestHandleStreamProtectionStatus_AttestationRequiredExhaustsRetryBudget(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sps := &wire.StreamProtectionStatus{Status: spsAttestationRequired, MaxRetries: 2}

	require.NoError(t, sess.handleStreamProtectionStatus(sps.Marshal()))
	assert.True(t, sess.isRetry)
	sess.isRetry = false

	err := sess.handleStreamProtectionStatus(sps.Marshal())
	assert.ErrorIs(t, err, ErrAttestationRequired)
}

func TestHandleSabrSeek_ClearsCurrentSegmentAndEmitsSeek(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")
	key := formatKey(wire.FormatId{Itag: 137})
	sess.formats[key].currentSegment = &segment{sequenceNumber: 3}

	seek := &wire.SabrSeek{SeekTimeTicks: 5, Timescale: 1}
	require.NoError(t, sess.handleSabrSeek(seek.Marshal()))

	assert.Equal(t, int64(5000), sess.playerTimeMs)
	assert.Nil(t, sess.formats[key].currentSegment)
	require.Len(t, sess.pending, 1)
	assert.Equal(t, SeekServerSeek, sess.pending[0].(MediaSeek).Reason)
}

func TestHandleSabrRedirect_UpdatesCurrentURL(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	r := &wire.SabrRedirect{RedirectURL: "https://rr5---sn-bbb.googlevideo.com/videoplayback"}
	require.NoError(t, sess.handleSabrRedirect(r.Marshal()))
	assert.Equal(t, r.RedirectURL, sess.currentURL)
	assert.True(t, sess.redirected)
}

func TestHandleNextRequestPolicy_StoresBackoffAndCookie(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	p := &wire.NextRequestPolicy{BackoffTimeMs: 250, PlaybackCookie: []byte("cookie")}
	require.NoError(t, sess.handleNextRequestPolicy(p.Marshal()))
	require.NotNil(t, sess.nextRequestPolicy)
	assert.Equal(t, int32(250), sess.nextRequestPolicy.BackoffTimeMs)
	assert.Equal(t, "cookie", string(sess.playbackCookie))
}

func TestHandleSabrError_AlwaysFails(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	e := &wire.SabrError{Type: 1, Action: 2, Error: "boom"}
	err := sess.handleSabrError(e.Marshal())
	assert.ErrorIs(t, err, ErrSabrError)
	assert.Contains(t, err.Error(), "boom")
}

func TestDispatchPart_InformationalPartsAreIgnored(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	err := sess.dispatchPart(ump.Part{Type: ump.PartSnackbarMessage, Data: []byte("whatever")})
	assert.NoError(t, err)
	assert.Empty(t, sess.pending)
}

func TestHandleFormatInitMeta_DuplicateIsIgnored(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")

	key := formatKey(wire.FormatId{Itag: 137})
	f := sess.formats[key]
	f.totalSequences = 42
	f.hasTotalSequences = true

	m := &wire.FormatInitializationMetadata{FormatID: &wire.FormatId{Itag: 137}, MimeType: "video/mp4", TotalSegments: 1}
	require.NoError(t, sess.handleFormatInitMeta(m.Marshal()))

	assert.Same(t, f, sess.formats[key])
	assert.Equal(t, int64(42), sess.formats[key].totalSequences)
}

func TestHandleLiveMetadata_MarksLiveAndSeedsTotalSequences(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")

	m := &wire.LiveMetadata{HeadSequenceNumber: 30, HeadSequenceTimeMs: 60000}
	require.NoError(t, sess.handleLiveMetadata(m.Marshal()))

	assert.True(t, sess.isLive)
	assert.Equal(t, int64(60000), sess.totalDurationMs)
	key := formatKey(wire.FormatId{Itag: 137})
	f := sess.formats[key]
	assert.True(t, f.hasTotalSequences)
	assert.Equal(t, int64(30), f.totalSequences)
}

func TestHandleStreamProtectionStatus_PendingWithAndWithoutToken(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sps := &wire.StreamProtectionStatus{Status: spsAttestationPending}
	require.NoError(t, sess.handleStreamProtectionStatus(sps.Marshal()))
	require.Len(t, sess.pending, 1)
	assert.Equal(t, POTokenPendingMissing, sess.pending[0].(PoTokenStatus).Status)

	sess2 := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}, POToken: "aGk"})
	require.NoError(t, sess2.handleStreamProtectionStatus(sps.Marshal()))
	require.Len(t, sess2.pending, 1)
	assert.Equal(t, POTokenPending, sess2.pending[0].(PoTokenStatus).Status)
}

func TestHandleStreamProtectionStatus_AttestationRequiredWithoutTokenReportsMissing(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sps := &wire.StreamProtectionStatus{Status: spsAttestationRequired, MaxRetries: 1}

	err := sess.handleStreamProtectionStatus(sps.Marshal())
	assert.ErrorIs(t, err, ErrAttestationRequired)
	assert.Contains(t, err.Error(), "Missing")
}

func TestHandleStreamProtectionStatus_AttestationRequiredWithTokenReportsInvalid(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}, POToken: "aGk"})
	sps := &wire.StreamProtectionStatus{Status: spsAttestationRequired, MaxRetries: 2}

	require.NoError(t, sess.handleStreamProtectionStatus(sps.Marshal()))
	require.Len(t, sess.pending, 1)
	assert.Equal(t, POTokenInvalid, sess.pending[0].(PoTokenStatus).Status)
	sess.isRetry = false

	err := sess.handleStreamProtectionStatus(sps.Marshal())
	assert.ErrorIs(t, err, ErrAttestationRequired)
	assert.Contains(t, err.Error(), "Invalid")
}
