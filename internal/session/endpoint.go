// Package session implements the negotiation core: two endpoint wrappers, the
// in-process candidate relay between them, and the controller that drives the
// offer/answer handshake.
package session

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/givliano/open-drop/internal/util"
)

// EndpointID identifies one of the two peers of a session.
type EndpointID string

const (
	EndpointLocal  EndpointID = "local"
	EndpointRemote EndpointID = "remote"
)

// Other returns the opposite endpoint of the pair.
func (id EndpointID) Other() EndpointID {
	if id == EndpointLocal {
		return EndpointRemote
	}
	return EndpointLocal
}

// EndpointState is the endpoint's connection lifecycle:
// new → gathering → {connected | failed | disconnected} → closed.
// Transitions are driven by the underlying transport and surfaced through
// OnStateChange; closed is terminal.
type EndpointState int

const (
	EndpointNew EndpointState = iota
	EndpointGathering
	EndpointConnected
	EndpointFailed
	EndpointDisconnected
	EndpointClosed
)

func (s EndpointState) String() string {
	switch s {
	case EndpointNew:
		return "new"
	case EndpointGathering:
		return "gathering"
	case EndpointConnected:
		return "connected"
	case EndpointFailed:
		return "failed"
	case EndpointDisconnected:
		return "disconnected"
	case EndpointClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Link is the minimal peer-connection surface the session layer drives.
// rtc.Peer is the pion-backed implementation; tests substitute fakes.
//
// The ICE candidate callback receives nil as the end-of-gathering marker,
// matching pion's OnICECandidate contract.
type Link interface {
	CreateOffer(cfg OfferConfig) (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	AddTrack(track webrtc.TrackLocal) error
	OnICECandidate(fn func(*webrtc.ICECandidateInit))
	OnConnectionStateChange(fn func(webrtc.PeerConnectionState))
	Close() error
}

// OfferConfig mirrors the browser offer options: which media directions the
// offering endpoint wants to receive.
type OfferConfig struct {
	ReceiveVideo bool
	ReceiveAudio bool
}

// errRemoteDescriptionSet guards the invariant that an endpoint's remote
// description is never overwritten within a session.
var errRemoteDescriptionSet = errors.New("remote description already set")

// Endpoint wraps one peer connection, recording its descriptions, discovered
// candidates, and connection state. All mutation goes through methods holding
// the endpoint's own mutex, so candidate ingestion never blocks on a
// handshake stage.
type Endpoint struct {
	id   EndpointID
	link Link

	mu         sync.Mutex
	state      EndpointState
	localDesc  *webrtc.SessionDescription
	remoteDesc *webrtc.SessionDescription
	emitted    []webrtc.ICECandidateInit // outbound candidates, discovery order
	closed     bool

	onCandidate func(webrtc.ICECandidateInit)
	onEnd       func()
	onState     func(EndpointID, EndpointState)
}

// NewEndpoint wraps link as the given endpoint and wires its transport
// callbacks. Subscriptions should be registered before negotiation starts.
func NewEndpoint(id EndpointID, link Link) *Endpoint {
	e := &Endpoint{
		id:    id,
		link:  link,
		state: EndpointNew,
	}

	link.OnICECandidate(e.handleCandidate)
	link.OnConnectionStateChange(e.handleConnectionState)

	return e
}

// ID returns the endpoint's identity within the pair.
func (e *Endpoint) ID() EndpointID { return e.id }

// State returns the last observed connection state.
func (e *Endpoint) State() EndpointState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LocalDescription returns the description produced by this endpoint, or nil
// before stage 1 (local) / stage 3 (remote) of the handshake.
func (e *Endpoint) LocalDescription() *webrtc.SessionDescription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localDesc
}

// RemoteDescription returns the peer's description, or nil before it was
// delivered.
func (e *Endpoint) RemoteDescription() *webrtc.SessionDescription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remoteDesc
}

// EmittedCandidates returns the candidates this endpoint has discovered so
// far, in discovery order.
func (e *Endpoint) EmittedCandidates() []webrtc.ICECandidateInit {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]webrtc.ICECandidateInit, len(e.emitted))
	copy(out, e.emitted)
	return out
}

// OnCandidate registers the subscriber for discovered candidates (the relay).
// The end-of-gathering marker is filtered out and reported via OnEndOfCandidates.
func (e *Endpoint) OnCandidate(fn func(webrtc.ICECandidateInit)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCandidate = fn
}

// OnEndOfCandidates registers the subscriber for the end-of-gathering marker.
func (e *Endpoint) OnEndOfCandidates(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnd = fn
}

// OnStateChange registers the subscriber for connection-state transitions.
func (e *Endpoint) OnStateChange(fn func(EndpointID, EndpointState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onState = fn
}

// CreateOffer asks the underlying transport for an SDP offer.
func (e *Endpoint) CreateOffer(cfg OfferConfig) (webrtc.SessionDescription, error) {
	return e.link.CreateOffer(cfg)
}

// CreateAnswer asks the underlying transport for an SDP answer.
func (e *Endpoint) CreateAnswer() (webrtc.SessionDescription, error) {
	return e.link.CreateAnswer()
}

// SetLocalDescription applies and records the endpoint's own description.
func (e *Endpoint) SetLocalDescription(desc webrtc.SessionDescription) error {
	if err := e.link.SetLocalDescription(desc); err != nil {
		return err
	}

	e.mu.Lock()
	e.localDesc = &desc
	e.mu.Unlock()

	util.Stats.AddDescription()
	return nil
}

// SetRemoteDescription applies and records the peer's description. Once set
// it is never overwritten within the session; a second call fails without
// touching the transport.
func (e *Endpoint) SetRemoteDescription(desc webrtc.SessionDescription) error {
	e.mu.Lock()
	if e.remoteDesc != nil {
		e.mu.Unlock()
		return errRemoteDescriptionSet
	}
	e.mu.Unlock()

	if err := e.link.SetRemoteDescription(desc); err != nil {
		return err
	}

	e.mu.Lock()
	e.remoteDesc = &desc
	e.mu.Unlock()

	util.Stats.AddDescription()
	return nil
}

// AddICECandidate ingests a candidate relayed from the peer. After close it
// is silently ignored: in-flight deliveries resolving late must not fail.
func (e *Endpoint) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	return e.link.AddICECandidate(candidate)
}

// AddTrack attaches a local media track to the endpoint's transport.
func (e *Endpoint) AddTrack(track webrtc.TrackLocal) error {
	return e.link.AddTrack(track)
}

// Close shuts down the endpoint's transport. Terminal: the state is pinned to
// closed and later transport callbacks are dropped.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.state = EndpointClosed
	e.mu.Unlock()

	return e.link.Close()
}

// handleCandidate runs on the transport's callback goroutine for every
// discovered candidate. nil marks the end of gathering.
func (e *Endpoint) handleCandidate(candidate *webrtc.ICECandidateInit) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	if candidate == nil {
		fn := e.onEnd
		e.mu.Unlock()
		if fn != nil {
			fn()
		}
		return
	}

	// First candidate: the transport started gathering.
	var stateFn func(EndpointID, EndpointState)
	if e.state == EndpointNew {
		e.state = EndpointGathering
		stateFn = e.onState
	}

	e.emitted = append(e.emitted, *candidate)
	fn := e.onCandidate
	e.mu.Unlock()

	if stateFn != nil {
		stateFn(e.id, EndpointGathering)
	}
	if fn != nil {
		fn(*candidate)
	}
}

// handleConnectionState maps the transport's connection state onto the
// endpoint state machine and notifies the subscriber.
func (e *Endpoint) handleConnectionState(state webrtc.PeerConnectionState) {
	var next EndpointState
	switch state {
	case webrtc.PeerConnectionStateConnected:
		next = EndpointConnected
	case webrtc.PeerConnectionStateFailed:
		next = EndpointFailed
	case webrtc.PeerConnectionStateDisconnected:
		next = EndpointDisconnected
	case webrtc.PeerConnectionStateClosed:
		next = EndpointClosed
	default:
		// new/connecting: no state machine transition of interest.
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.state = next
	fn := e.onState
	e.mu.Unlock()

	util.Stats.AddStateChange()
	if fn != nil {
		fn(e.id, next)
	}
}
