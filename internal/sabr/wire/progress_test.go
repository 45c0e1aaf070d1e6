package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestProgressDocument_RoundTrip(t *testing.T) {
	in := &ProgressDocument{
		FormatID: &FormatId{Itag: 140},
		BufferedRanges: []*BufferedRange{
			{FormatID: &FormatId{Itag: 140}, StartSegmentIndex: 0, EndSegmentIndex: 5},
		},
		InitSegment: &InitSegmentRecord{Filename: "video.seqinit.sabr.part", ContentLength: 4096},
		Sequences: []*SequenceGroup{
			{
				StartNumber: 0,
				Filename:    "video.seq0.sabr.part",
				Segments: []*SegmentRecord{
					{SequenceNumber: 0, ContentLength: 1024},
					{SequenceNumber: 1, ContentLength: 2048},
				},
			},
		},
	}
	out := &ProgressDocument{}
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Equal(t, in, out)
}

func TestProgressDocument_NoInitSegment(t *testing.T) {
	in := &ProgressDocument{FormatID: &FormatId{Itag: 140}}
	out := &ProgressDocument{}
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Nil(t, out.InitSegment)
}

func TestProgressDocument_UnknownFieldDoesNotFail(t *testing.T) {
	in := &ProgressDocument{FormatID: &FormatId{Itag: 140}}
	b := in.Marshal()
	b = protowire.AppendTag(b, 77, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future field this version doesn't know about"))

	out := &ProgressDocument{}
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, int32(140), out.FormatID.Itag)
}

func TestSequenceGroup_RoundTrip(t *testing.T) {
	in := &SequenceGroup{
		StartNumber: 7,
		Filename:    "audio.seq7.sabr.part",
		Segments: []*SegmentRecord{
			{SequenceNumber: 7, ContentLength: 8192},
			{SequenceNumber: 8, ContentLength: 4096},
		},
	}
	out := &SequenceGroup{}
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Equal(t, in, out)
}
