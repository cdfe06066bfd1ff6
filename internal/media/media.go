// Package media provides the local media device adapter: constraint-based
// acquisition of capture tracks that can be attached to a peer connection.
package media

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Constraints describes the requested capture, mirroring the browser
// getUserMedia constraint shape.
type Constraints struct {
	Video bool
	Audio bool
}

// Devices is the media device adapter. Acquire returns a capture stream or
// fails when the device cannot satisfy the constraints; the caller surfaces
// that as a media acquisition error.
type Devices interface {
	Acquire(ctx context.Context, c Constraints) (*Stream, error)
}

// Stream is an acquired capture stream: one or more local tracks plus the
// producer feeding them. Close stops the producer and is idempotent.
type Stream struct {
	tracks []webrtc.TrackLocal

	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// Tracks returns the stream's local tracks in capture order.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	return s.tracks
}

// Done returns a channel closed when the producer has stopped.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close stops the producer goroutine and waits for it to exit.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}
