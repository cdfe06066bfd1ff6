package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyframeHeaderRoundTrip(t *testing.T) {
	testCases := []struct {
		name          string
		width, height int
		partitionSize int
	}{
		{name: "VGA", width: 640, height: 480, partitionSize: 900},
		{name: "QVGA", width: 320, height: 240, partitionSize: 100},
		{name: "1080p", width: 1920, height: 1080, partitionSize: 1<<19 - 1},
		{name: "minimal", width: 1, height: 1, partitionSize: 0},
		{name: "max dimensions", width: 1<<14 - 1, height: 1<<14 - 1, partitionSize: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header, err := EncodeKeyframeHeader(tc.width, tc.height, tc.partitionSize)
			require.NoError(t, err)
			require.Len(t, header, KeyframeHeaderSize)

			f, err := ParseFrame(header)
			require.NoError(t, err)
			require.True(t, f.KeyFrame)
			require.True(t, f.ShowFrame)
			require.Equal(t, tc.width, f.Width)
			require.Equal(t, tc.height, f.Height)
			require.Equal(t, tc.partitionSize, f.FirstPartitionSize)
		})
	}
}

func TestInterframeTagRoundTrip(t *testing.T) {
	tag, err := EncodeFrameTag(false, 0, 300)
	require.NoError(t, err)
	require.Len(t, tag, FrameTagSize)

	f, err := ParseFrame(tag)
	require.NoError(t, err)
	require.False(t, f.KeyFrame)
	require.Equal(t, 300, f.FirstPartitionSize)
	// Interframes carry no dimensions.
	require.Zero(t, f.Width)
	require.Zero(t, f.Height)
}

func TestEncodeRejectsOutOfRangeValues(t *testing.T) {
	_, err := EncodeFrameTag(true, 0, 1<<19)
	require.Error(t, err)

	_, err = EncodeFrameTag(true, 8, 0)
	require.Error(t, err)

	_, err = EncodeKeyframeHeader(0, 480, 0)
	require.Error(t, err)

	_, err = EncodeKeyframeHeader(640, 1<<14, 0)
	require.Error(t, err)
}

func TestParseFrameErrors(t *testing.T) {
	// Too short for a frame tag.
	_, err := ParseFrame([]byte{0x00, 0x01})
	require.Error(t, err)

	// Keyframe tag but truncated before the sync code.
	header, err := EncodeKeyframeHeader(640, 480, 10)
	require.NoError(t, err)
	_, err = ParseFrame(header[:6])
	require.Error(t, err)

	// Corrupted sync code.
	header[3] = 0x00
	_, err = ParseFrame(header)
	require.Error(t, err)
}
