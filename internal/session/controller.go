package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/givliano/open-drop/internal/media"
	"github.com/givliano/open-drop/internal/util"
)

// State is the session lifecycle: idle → negotiating → connected → ended.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateConnected
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// LinkFactory builds the peer-connection wrapper for one endpoint of the
// pair. The application wires endpoint-specific concerns (e.g. the remote
// endpoint's incoming track handler) inside the factory.
type LinkFactory func(id EndpointID) (Link, error)

// Controller owns the single active session: it acquires local media, drives
// the 4-step offer/answer handshake between the two endpoints, and tears the
// pair down on hangup.
//
// The handshake runs sequentially on the caller's goroutine. Candidate relay
// and state notifications arrive on transport goroutines and only touch
// per-endpoint state, so they are safe at any point of the handshake.
type Controller struct {
	devices     media.Devices
	links       LinkFactory
	constraints media.Constraints
	tracer      *util.Tracer

	mu          sync.Mutex
	state       State
	sessionID   string
	stream      *media.Stream
	local       *Endpoint
	remote      *Endpoint
	relay       *Relay
	connected   map[EndpointID]bool
	connectedCh chan struct{}

	onSession  func(State)
	onEndpoint func(EndpointID, EndpointState)
}

// NewController creates an idle controller. Nothing is allocated until
// Start/Connect.
func NewController(devices media.Devices, links LinkFactory, constraints media.Constraints, tracer *util.Tracer) *Controller {
	return &Controller{
		devices:     devices,
		links:       links,
		constraints: constraints,
		tracer:      tracer,
		state:       StateIdle,
		connected:   make(map[EndpointID]bool),
		connectedCh: make(chan struct{}),
	}
}

// OnSessionState registers the subscriber for session state transitions
// (drives the UI control surface).
func (c *Controller) OnSessionState(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSession = fn
}

// OnEndpointState registers the subscriber for endpoint state transitions.
func (c *Controller) OnEndpointState(fn func(EndpointID, EndpointState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEndpoint = fn
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MediaReady reports whether local media has been acquired (the gate for
// enabling the connect control).
func (c *Controller) MediaReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Endpoint returns the named endpoint of the active session, or nil outside
// one.
func (c *Controller) Endpoint(id EndpointID) *Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == EndpointLocal {
		return c.local
	}
	return c.remote
}

// Connected returns a channel closed when both endpoints have reported a
// connected state and the session reached connected.
func (c *Controller) Connected() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectedCh
}

// Start acquires local media through the device adapter, enabling connect.
// On refusal it returns MediaAcquisitionError and the session stays idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return &PreconditionError{Op: "start", State: state}
	}
	if c.stream != nil {
		c.mu.Unlock()
		return &PreconditionError{Op: "start", State: StateIdle}
	}
	c.mu.Unlock()

	c.tracer.Logf("requesting local media (video=%t audio=%t)", c.constraints.Video, c.constraints.Audio)

	stream, err := c.devices.Acquire(ctx, c.constraints)
	if err != nil {
		acqErr := &MediaAcquisitionError{Err: err}
		c.tracer.Logf("%s", acqErr)
		return acqErr
	}

	c.mu.Lock()
	c.stream = stream
	c.mu.Unlock()

	c.tracer.Logf("received local stream with %d track(s)", len(stream.Tracks()))
	return nil
}

// Connect creates both endpoints, attaches the local media to the local one,
// and drives the 4-step handshake:
//
//  1. Local creates offer → Local.SetLocalDescription(offer)
//  2. Remote.SetRemoteDescription(offer)
//  3. Remote creates answer → Remote.SetLocalDescription(answer)
//  4. Local.SetRemoteDescription(answer)
//
// Each description step is independently awaited; a stage failure is logged
// as a NegotiationError and later stages that do not depend on its output
// are still attempted. Only offer creation failure is returned to the
// caller — in both cases the session stays negotiating, never silently
// downgraded.
//
// The session reaches connected when both endpoints separately report a
// connected state, not at handshake completion.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.stream == nil {
		state := c.state
		c.mu.Unlock()
		return &PreconditionError{Op: "connect", State: state}
	}
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return &PreconditionError{Op: "connect", State: state}
	}
	c.sessionID = uuid.NewString()
	c.mu.Unlock()

	c.setState(StateNegotiating)
	c.tracer.Logf("starting call %s", c.sessionID)

	// Build the endpoint pair.
	localLink, err := c.links(EndpointLocal)
	if err != nil {
		negErr := &NegotiationError{Stage: "local.create", Err: err}
		c.tracer.Logf("%s", negErr)
		return negErr
	}
	remoteLink, err := c.links(EndpointRemote)
	if err != nil {
		localLink.Close()
		negErr := &NegotiationError{Stage: "remote.create", Err: err}
		c.tracer.Logf("%s", negErr)
		return negErr
	}

	local := NewEndpoint(EndpointLocal, localLink)
	remote := NewEndpoint(EndpointRemote, remoteLink)
	local.OnStateChange(c.handleEndpointState)
	remote.OnStateChange(c.handleEndpointState)

	c.mu.Lock()
	c.local = local
	c.remote = remote
	c.relay = NewRelay(ctx, local, remote, c.tracer)
	stream := c.stream
	c.mu.Unlock()

	c.tracer.Logf("created local and remote peer connections")

	// Attach local capture tracks to the local endpoint.
	for _, track := range stream.Tracks() {
		if err := local.AddTrack(track); err != nil {
			negErr := &NegotiationError{Stage: "local.addTrack", Err: err}
			c.tracer.Logf("%s", negErr)
			return negErr
		}
	}
	c.tracer.Logf("added local stream to local connection")

	// Stage 1: offer.
	offer, err := local.CreateOffer(OfferConfig{ReceiveVideo: true, ReceiveAudio: false})
	if err != nil {
		negErr := &NegotiationError{Stage: "local.createOffer", Err: err}
		c.tracer.Logf("%s", negErr)
		return negErr
	}
	c.tracer.Logf("offer from local")

	if err := local.SetLocalDescription(offer); err != nil {
		c.stageFailure("local.setLocalDescription", err)
	} else {
		c.tracer.Logf("local: setLocalDescription complete")
	}

	// Stage 2.
	if err := remote.SetRemoteDescription(offer); err != nil {
		c.stageFailure("remote.setRemoteDescription", err)
	} else {
		c.tracer.Logf("remote: setRemoteDescription complete")
	}

	// Stage 3: answer. Attempted even after a stage-2 failure (best-effort
	// policy); its dependent steps are skipped only when no answer exists.
	answer, err := remote.CreateAnswer()
	if err != nil {
		c.stageFailure("remote.createAnswer", err)
		return nil
	}
	c.tracer.Logf("answer from remote")

	if err := remote.SetLocalDescription(answer); err != nil {
		c.stageFailure("remote.setLocalDescription", err)
	} else {
		c.tracer.Logf("remote: setLocalDescription complete")
	}

	// Stage 4.
	if err := local.SetRemoteDescription(answer); err != nil {
		c.stageFailure("local.setRemoteDescription", err)
	} else {
		c.tracer.Logf("local: setRemoteDescription complete")
	}

	return nil
}

// Hangup closes both endpoints and releases the session's resources.
// Idempotent: on an already-ended session it is a no-op.
func (c *Controller) Hangup() {
	c.mu.Lock()
	if c.state == StateEnded {
		c.mu.Unlock()
		return
	}
	relay := c.relay
	local := c.local
	remote := c.remote
	stream := c.stream
	c.relay = nil
	c.local = nil
	c.remote = nil
	c.stream = nil
	c.mu.Unlock()

	c.tracer.Logf("ending call")

	if relay != nil {
		relay.Close()
	}
	if local != nil {
		local.Close()
	}
	if remote != nil {
		remote.Close()
	}
	if stream != nil {
		stream.Close()
	}

	c.setState(StateEnded)
}

// stageFailure records a handshake-stage failure without aborting the
// handshake.
func (c *Controller) stageFailure(stage string, err error) {
	negErr := &NegotiationError{Stage: stage, Err: err}
	c.tracer.Logf("%s", negErr)
}

// handleEndpointState aggregates endpoint connectivity: the session becomes
// connected once both endpoints have reported connected.
func (c *Controller) handleEndpointState(id EndpointID, state EndpointState) {
	c.tracer.Logf("%s: connection state %s", id, state)

	c.mu.Lock()
	fn := c.onEndpoint
	fnSession := c.onSession
	promoted := false
	if state == EndpointConnected {
		c.connected[id] = true
		both := c.connected[EndpointLocal] && c.connected[EndpointRemote]
		if both && c.state == StateNegotiating {
			c.state = StateConnected
			promoted = true
		}
	}
	connectedCh := c.connectedCh
	c.mu.Unlock()

	if fn != nil {
		fn(id, state)
	}

	if promoted {
		c.tracer.Logf("session state %s", StateConnected)
		if fnSession != nil {
			fnSession(StateConnected)
		}
		close(connectedCh)
	}
}

// setState applies and publishes a session state transition.
func (c *Controller) setState(next State) {
	c.mu.Lock()
	c.state = next
	fn := c.onSession
	c.mu.Unlock()

	c.tracer.Logf("session state %s", next)
	if fn != nil {
		fn(next)
	}
}
