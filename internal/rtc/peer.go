// Package rtc provides the pion-backed peer connection behind the session
// layer's Link interface.
package rtc

import (
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"

	"github.com/givliano/open-drop/internal/session"
)

// STUN servers for ICE candidate gathering. A loopback call connects over
// host candidates alone, so these are optional.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// Peer wraps a single PeerConnection, exposing the signaling surface the
// session layer drives plus the media hooks the render adapter needs.
type Peer struct {
	pc *webrtc.PeerConnection
}

var _ session.Link = (*Peer)(nil)

// New creates a Peer. With useSTUN false the connection gathers host
// candidates only, which is all an in-process call needs.
func New(useSTUN bool) (*Peer, error) {
	config := webrtc.Configuration{}
	if useSTUN {
		config.ICEServers = []webrtc.ICEServer{
			{URLs: stunServers},
		}
	}

	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, err
	}
	return &Peer{pc: pc}, nil
}

// CreateOffer generates an SDP offer. Receive intents add recvonly
// transceivers when no matching media section exists yet, mirroring the
// browser's offerToReceive options.
func (p *Peer) CreateOffer(cfg session.OfferConfig) (webrtc.SessionDescription, error) {
	if cfg.ReceiveVideo {
		if err := p.ensureReceiver(webrtc.RTPCodecTypeVideo); err != nil {
			return webrtc.SessionDescription{}, err
		}
	}
	if cfg.ReceiveAudio {
		if err := p.ensureReceiver(webrtc.RTPCodecTypeAudio); err != nil {
			return webrtc.SessionDescription{}, err
		}
	}
	return p.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (p *Peer) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (p *Peer) SetLocalDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(desc)
}

// SetRemoteDescription applies the remote SDP.
func (p *Peer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

// AddICECandidate adds a remote ICE candidate received through the relay.
func (p *Peer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

// AddTrack attaches a local capture track and drains the sender's incoming
// RTCP so the interceptors keep running.
func (p *Peer) AddTrack(track webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return err
	}

	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()

	return nil
}

// OnICECandidate registers the gathered-candidate callback. nil marks the
// end of gathering.
func (p *Peer) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			fn(nil)
			return
		}
		init := c.ToJSON()
		fn(&init)
	})
}

// OnConnectionStateChange registers the connection-state callback.
func (p *Peer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(fn)
}

// OnTrack registers the incoming-track callback (consumed by the render
// surface adapter).
func (p *Peer) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	p.pc.OnTrack(fn)
}

// WriteRTCP sends RTCP packets (e.g. keyframe requests) to the peer.
func (p *Peer) WriteRTCP(pkts []rtcp.Packet) error {
	return p.pc.WriteRTCP(pkts)
}

// Close shuts down the PeerConnection.
func (p *Peer) Close() error {
	return p.pc.Close()
}

// ensureReceiver adds a recvonly transceiver of the given kind unless a
// media section of that kind already exists.
func (p *Peer) ensureReceiver(kind webrtc.RTPCodecType) error {
	for _, t := range p.pc.GetTransceivers() {
		if t.Kind() == kind {
			return nil
		}
	}
	_, err := p.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}
