// Package render provides the render surface adapter: the logical display
// slots a call's media streams are assigned to. No pixels are drawn; the
// adapter tracks per-slot video dimensions and reports loaded/resized
// notifications used for diagnostic timing.
package render

import (
	"context"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"

	"github.com/givliano/open-drop/internal/media"
	"github.com/givliano/open-drop/internal/util"
)

// Slot names a logical display surface.
type Slot string

const (
	SlotLocal  Slot = "local"
	SlotRemote Slot = "remote"
)

// EventKind distinguishes the first dimension report from later changes.
type EventKind string

const (
	EventLoaded  EventKind = "loaded"
	EventResized EventKind = "resized"
)

// Event is a display-slot notification.
type Event struct {
	Slot   Slot
	Kind   EventKind
	Width  int
	Height int
}

// keyframeRequestInterval paces PLI keyframe requests until the remote
// stream's first keyframe arrives.
const keyframeRequestInterval = 500 * time.Millisecond

// Surface tracks the video dimensions assigned to each display slot and
// emits loaded/resized events. For the remote slot it consumes the incoming
// track itself, probing dimensions from VP8 keyframes.
type Surface struct {
	tracer *util.Tracer

	mu               sync.Mutex
	dims             map[Slot][2]int
	negotiationStart time.Time
	onEvent          func(Event)
}

// NewSurface creates a Surface with no streams assigned.
func NewSurface(tracer *util.Tracer) *Surface {
	return &Surface{
		tracer: tracer,
		dims:   make(map[Slot][2]int),
	}
}

// OnEvent registers the subscriber for loaded/resized notifications.
func (s *Surface) OnEvent(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = fn
}

// MarkNegotiationStart records the instant negotiation began, so the first
// remote frame can report its setup time.
func (s *Surface) MarkNegotiationStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.negotiationStart = time.Now()
}

// Dimensions returns the last reported size for a slot.
func (s *Surface) Dimensions(slot Slot) (width, height int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dims[slot]
	return d[0], d[1], ok
}

// AttachLocal assigns the local capture to the local slot. The capture
// dimensions are known up front, so the slot loads immediately.
func (s *Surface) AttachLocal(width, height int) {
	s.setDimensions(SlotLocal, width, height)
}

// AttachRemote assigns an incoming track to the remote slot and starts
// consuming it: RTP packets are reassembled into VP8 frames, keyframes are
// probed for dimensions, and PLI keyframe requests are paced until the
// first keyframe arrives. Consumption stops when the track errors (peer
// closed) or ctx is cancelled.
func (s *Surface) AttachRemote(ctx context.Context, track *webrtc.TrackRemote, writeRTCP func([]rtcp.Packet) error) {
	s.tracer.Logf("remote: received %s track %s", track.Codec().MimeType, track.ID())

	keyframeSeen := make(chan struct{})
	go s.requestKeyframes(ctx, uint32(track.SSRC()), writeRTCP, keyframeSeen)
	go s.consume(ctx, track, keyframeSeen)
}

// setDimensions records a slot's size and emits loaded (first report) or
// resized (change). Repeated identical reports are dropped.
func (s *Surface) setDimensions(slot Slot, width, height int) {
	s.mu.Lock()
	prev, seen := s.dims[slot]
	if seen && prev == [2]int{width, height} {
		s.mu.Unlock()
		return
	}
	s.dims[slot] = [2]int{width, height}
	start := s.negotiationStart
	fn := s.onEvent
	s.mu.Unlock()

	kind := EventResized
	if !seen {
		kind = EventLoaded
	}

	if kind == EventLoaded && slot == SlotRemote && !start.IsZero() {
		s.tracer.Logf("remote video loaded: %dx%d, setup time %.3fs",
			width, height, time.Since(start).Seconds())
	} else {
		s.tracer.Logf("%s video %s: %dx%d", slot, kind, width, height)
	}

	if fn != nil {
		fn(Event{Slot: slot, Kind: kind, Width: width, Height: height})
	}
}

// consume reassembles the track's RTP stream into frames and probes
// keyframes for dimensions.
func (s *Surface) consume(ctx context.Context, track *webrtc.TrackRemote, keyframeSeen chan struct{}) {
	var keyframeOnce sync.Once
	var frame []byte
	assembling := false

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		var depacketizer codecs.VP8Packet
		payload, err := depacketizer.Unmarshal(pkt.Payload)
		if err != nil {
			continue
		}

		// A frame starts at the first partition's first packet.
		if depacketizer.S == 1 && depacketizer.PID == 0 {
			frame = frame[:0]
			assembling = true
		}
		if !assembling {
			continue
		}
		frame = append(frame, payload...)

		if pkt.Marker {
			assembling = false
			s.handleFrame(frame, func() {
				keyframeOnce.Do(func() { close(keyframeSeen) })
			})
		}
	}
}

// handleFrame probes a completed frame; keyframes update the remote slot's
// dimensions.
func (s *Surface) handleFrame(frame []byte, markKeyframe func()) {
	f, err := media.ParseFrame(frame)
	if err != nil || !f.KeyFrame {
		return
	}
	markKeyframe()
	s.setDimensions(SlotRemote, f.Width, f.Height)
}

// requestKeyframes sends a PLI at a fixed pace until the first keyframe
// arrives.
func (s *Surface) requestKeyframes(ctx context.Context, ssrc uint32, writeRTCP func([]rtcp.Packet) error, keyframeSeen <-chan struct{}) {
	ticker := time.NewTicker(keyframeRequestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := writeRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: ssrc}}); err != nil {
				return
			}
		case <-keyframeSeen:
			return
		case <-ctx.Done():
			return
		}
	}
}
