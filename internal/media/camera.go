package media

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/givliano/open-drop/internal/util"
)

// keyframeInterval is the number of frames between keyframes. One per second
// at the default rate keeps the receiver's dimension probe responsive.
const keyframeInterval = 30

// SyntheticCamera is a video capture device producing VP8-framed test
// pattern data on a sample track. The frames carry a valid frame tag and
// keyframe header (so the receiving side can probe dimensions) followed by
// filler payload; they are a stand-in for an encoder, not decodable video.
type SyntheticCamera struct {
	Width     int
	Height    int
	FrameRate int
}

// Acquire validates the constraints and starts the frame producer. Audio
// capture and video-free requests are refused, standing in for a device
// rejecting constraints it cannot satisfy.
func (c *SyntheticCamera) Acquire(ctx context.Context, constraints Constraints) (*Stream, error) {
	if constraints.Audio {
		return nil, fmt.Errorf("audio capture is not supported")
	}
	if !constraints.Video {
		return nil, fmt.Errorf("constraints request no media")
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video",
		"open-drop-camera",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create video track: %w", err)
	}

	sCtx, sCancel := context.WithCancel(ctx)
	stream := &Stream{
		tracks: []webrtc.TrackLocal{track},
		cancel: sCancel,
		done:   make(chan struct{}),
	}

	go c.produce(sCtx, track, stream.done)

	return stream, nil
}

// produce writes one frame per tick until the stream is closed.
func (c *SyntheticCamera) produce(ctx context.Context, track *webrtc.TrackLocalStaticSample, done chan<- struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(c.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frameNum int
	for {
		select {
		case <-ticker.C:
			frame, err := c.buildFrame(frameNum)
			if err != nil {
				util.LogError("failed to build frame %d: %v", frameNum, err)
				return
			}
			if err := track.WriteSample(media.Sample{Data: frame, Duration: interval}); err != nil {
				// The track is not bound yet or the connection went away;
				// keep producing, the next bind picks the stream back up.
				util.LogDebug("frame %d not written: %v", frameNum, err)
			}
			frameNum++

		case <-ctx.Done():
			return
		}
	}
}

// buildFrame assembles one VP8-framed test pattern frame.
func (c *SyntheticCamera) buildFrame(frameNum int) ([]byte, error) {
	keyFrame := frameNum%keyframeInterval == 0

	var header []byte
	var err error
	bodySize := 300
	if keyFrame {
		bodySize = 900
		header, err = EncodeKeyframeHeader(c.Width, c.Height, bodySize)
	} else {
		header, err = EncodeFrameTag(false, 0, bodySize)
	}
	if err != nil {
		return nil, err
	}

	frame := make([]byte, len(header)+bodySize)
	copy(frame, header)
	for i := range frame[len(header):] {
		frame[len(header)+i] = byte(frameNum + i)
	}
	return frame, nil
}
