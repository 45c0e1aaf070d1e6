package sabr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

func TestFormatReachesTotalSequences(t *testing.T) {
	f := &initializedFormat{hasTotalSequences: true, totalSequences: 10}
	assert.False(t, formatReachesTotalSequences(f))

	f.bufferedRanges = []*wire.BufferedRange{{EndSegmentIndex: 5}}
	assert.False(t, formatReachesTotalSequences(f))

	f.bufferedRanges = append(f.bufferedRanges, &wire.BufferedRange{EndSegmentIndex: 10})
	assert.True(t, formatReachesTotalSequences(f))
}

func TestFormatReachesTotalSequences_UnknownTotalNeverDone(t *testing.T) {
	f := &initializedFormat{bufferedRanges: []*wire.BufferedRange{{EndSegmentIndex: 1000}}}
	assert.False(t, formatReachesTotalSequences(f))
}

func TestDetectBufferSeeks_FiresOnChainOfTwoOrMore(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")
	key := formatKey(wire.FormatId{Itag: 137})
	f := sess.formats[key]

	f.bufferedRanges = []*wire.BufferedRange{
		{StartSegmentIndex: 0, EndSegmentIndex: 4},
		{StartSegmentIndex: 5, EndSegmentIndex: 9},
	}
	f.currentSegment = &segment{sequenceNumber: 9}

	sess.detectBufferSeeks()

	assert.Nil(t, f.currentSegment)
	require.Len(t, sess.pending, 1)
	assert.Equal(t, SeekBufferSeek, sess.pending[0].(MediaSeek).Reason)
}

func TestDetectBufferSeeks_SingleRangeDoesNotFire(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")
	key := formatKey(wire.FormatId{Itag: 137})
	f := sess.formats[key]

	f.bufferedRanges = []*wire.BufferedRange{{StartSegmentIndex: 0, EndSegmentIndex: 4}}
	f.currentSegment = &segment{sequenceNumber: 4}

	sess.detectBufferSeeks()

	assert.NotNil(t, f.currentSegment)
	assert.Empty(t, sess.pending)
}

func TestAdvancePlayerTime_TracksMinimumBufferedTail(t *testing.T) {
	sess := newTestSession(t, SessionConfig{
		AudioSelection: []FormatSelectorConfig{{Itag: 140}},
		VideoSelection: []FormatSelectorConfig{{Itag: 137}},
	})
	initializeFormat(t, sess, 140, "audio/mp4")
	initializeFormat(t, sess, 137, "video/mp4")

	sess.formats[formatKey(wire.FormatId{Itag: 140})].bufferedRanges = []*wire.BufferedRange{
		{StartTimeMs: 0, DurationMs: 5000},
	}
	sess.formats[formatKey(wire.FormatId{Itag: 137})].bufferedRanges = []*wire.BufferedRange{
		{StartTimeMs: 0, DurationMs: 2000},
	}

	sess.advancePlayerTime()
	assert.Equal(t, int64(2000), sess.playerTimeMs)
}

func TestAdvancePlayerTime_ClampsToPlayerTimeWhenOneFormatHasNoTail(t *testing.T) {
	sess := newTestSession(t, SessionConfig{
		AudioSelection: []FormatSelectorConfig{{Itag: 140}},
		VideoSelection: []FormatSelectorConfig{{Itag: 137}},
	})
	initializeFormat(t, sess, 140, "audio/mp4")
	initializeFormat(t, sess, 137, "video/mp4")
	sess.playerTimeMs = 8000

	// Audio has buffered well past playerTimeMs...
	sess.formats[formatKey(wire.FormatId{Itag: 140})].bufferedRanges = []*wire.BufferedRange{
		{StartTimeMs: 0, DurationMs: 10000},
	}
	// ...but video's only buffered range doesn't cover playerTimeMs at all
	// (e.g. right after a per-format seek, or before it's initialized).
	sess.formats[formatKey(wire.FormatId{Itag: 137})].bufferedRanges = []*wire.BufferedRange{
		{StartTimeMs: 0, DurationMs: 3000},
	}

	sess.advancePlayerTime()

	// Must not jump to audio's 10000ms tail: video hasn't buffered anywhere
	// near there, so the target should stay at playerTimeMs (plus any
	// backoff, zero here).
	assert.Equal(t, int64(8000), sess.playerTimeMs)
}

func TestAdvancePlayerTime_SkippedWhenRedirected(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sess.redirected = true
	sess.playerTimeMs = 1234
	sess.advancePlayerTime()
	assert.Equal(t, int64(1234), sess.playerTimeMs)
}

func TestPrepareNextPlaybackTime_VODCompletesWhenAllFormatsDone(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")
	f := sess.formats[formatKey(wire.FormatId{Itag: 137})]
	f.hasTotalSequences = true
	f.totalSequences = 1
	f.bufferedRanges = []*wire.BufferedRange{{StartSegmentIndex: 0, EndSegmentIndex: 1}}
	sess.requestHadData = true

	next, err := sess.prepareNextPlaybackTime()
	require.NoError(t, err)
	assert.True(t, next.consumed)
}

func TestPrepareNextPlaybackTime_VODNoProgressFailsAfterThreeEmptyRequests(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	initializeFormat(t, sess, 137, "video/mp4")
	sess.totalDurationMs = 60000

	var err error
	for i := 0; i < defaultMaxEmptyRequests+1; i++ {
		sess.requestHadData = false
		_, err = sess.prepareNextPlaybackTime()
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestPrepareNextPlaybackTime_LiveSleepsUntilNextSegment(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sess.isLive = true
	sess.cfg.LiveSegmentTargetDurationSec = 5
	sess.totalDurationMs = 1000
	sess.playerTimeMs = 1000
	initializeFormat(t, sess, 137, "video/mp4")

	next, err := sess.prepareNextPlaybackTime()
	require.NoError(t, err)
	assert.False(t, next.consumed)
	assert.Equal(t, 5*time.Second, next.sleep)
}

func TestPrepareNextPlaybackTime_LiveEndsAfterWaitWithNoProgress(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sess.isLive = true
	sess.cfg.LiveEndWaitSec = 1
	sess.totalDurationMs = 1000
	sess.playerTimeMs = 1000
	initializeFormat(t, sess, 137, "video/mp4")

	base := time.Now()
	sess.nowFunc = func() time.Time { return base }

	for i := 0; i < defaultMaxEmptyRequests+1; i++ {
		sess.requestHadData = false
		next, err := sess.prepareNextPlaybackTime()
		require.NoError(t, err)
		require.False(t, next.consumed)
	}

	sess.nowFunc = func() time.Time { return base.Add(2 * time.Second) }
	sess.requestHadData = false
	next, err := sess.prepareNextPlaybackTime()
	require.NoError(t, err)
	assert.True(t, next.consumed)
}

func TestResetPerRequestFlags_ClearsHeaderTableAndFlags(t *testing.T) {
	sess := newTestSession(t, SessionConfig{VideoSelection: []FormatSelectorConfig{{Itag: 137}}})
	sess.redirected = true
	sess.isRetry = true
	sess.requestHadData = true
	sess.nextRequestPolicy = &wire.NextRequestPolicy{BackoffTimeMs: 10}
	sess.liveMetadata = &wire.LiveMetadata{}
	sess.headerTable[1] = &segment{}

	sess.resetPerRequestFlags()

	assert.False(t, sess.redirected)
	assert.False(t, sess.isRetry)
	assert.False(t, sess.requestHadData)
	assert.Nil(t, sess.nextRequestPolicy)
	assert.Nil(t, sess.liveMetadata)
	assert.Empty(t, sess.headerTable)
}
