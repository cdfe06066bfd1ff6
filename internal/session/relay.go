package session

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/givliano/open-drop/internal/util"
)

// candidateBufferSize is the per-endpoint inbox capacity. Gathering on a
// loopback call produces a handful of host candidates; 32 leaves headroom.
const candidateBufferSize = 32

// Relay forwards ICE candidates between the two endpoints, standing in for a
// real signaling channel. Each direction has its own inbox drained by a
// single-writer goroutine, so per-endpoint emission order is preserved while
// the two streams stay independent of each other.
type Relay struct {
	ctx    context.Context
	cancel context.CancelFunc
	tracer *util.Tracer
}

// NewRelay wires both endpoints' candidate events into forwarding lanes and
// starts the two lane goroutines. It must be called before negotiation
// begins so no candidate is discovered unobserved.
func NewRelay(ctx context.Context, local, remote *Endpoint, tracer *util.Tracer) *Relay {
	rCtx, rCancel := context.WithCancel(ctx)

	r := &Relay{
		ctx:    rCtx,
		cancel: rCancel,
		tracer: tracer,
	}

	r.wire(local, remote)
	r.wire(remote, local)

	return r
}

// wire subscribes src's candidate events and starts the lane that delivers
// them to dst.
func (r *Relay) wire(src, dst *Endpoint) {
	inbox := make(chan webrtc.ICECandidateInit, candidateBufferSize)

	src.OnCandidate(func(c webrtc.ICECandidateInit) {
		// Blocking send keeps discovery order; returns when the relay stops.
		select {
		case inbox <- c:
		case <-r.ctx.Done():
		}
	})

	// End-of-candidates marker: a no-op for relay purposes.
	src.OnEndOfCandidates(func() {
		r.tracer.Logf("%s: end of candidates", src.ID())
	})

	go r.forward(src, dst, inbox)
}

// forward is the single-writer lane from src to dst. Delivery failures are
// logged and skipped: connectivity establishment tolerates individual
// candidate loss.
func (r *Relay) forward(src, dst *Endpoint, inbox <-chan webrtc.ICECandidateInit) {
	for {
		select {
		case c := <-inbox:
			if r.ctx.Err() != nil {
				return
			}
			if err := dst.AddICECandidate(c); err != nil {
				relayErr := &CandidateRelayError{Source: src.ID(), Err: err}
				r.tracer.Logf("%s", relayErr)
				util.Stats.AddDropped()
				continue
			}
			r.tracer.Logf("%s: candidate delivered to %s", src.ID(), dst.ID())
			util.Stats.AddRelayed()

		case <-r.ctx.Done():
			return
		}
	}
}

// Close stops both lanes. Candidates still queued are dropped.
func (r *Relay) Close() {
	r.cancel()
}
