package session

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// fakeLink is a scriptable Link for driving the session layer without pion.
// Method errors are injected per call site; every invocation is recorded in
// order for sequencing assertions.
type fakeLink struct {
	offerSDP  string
	answerSDP string

	createOfferErr  error
	createAnswerErr error
	setLocalErr     error
	setRemoteErr    error
	addCandidateErr error

	mu         sync.Mutex
	calls      []string
	localDesc  *webrtc.SessionDescription
	remoteDesc *webrtc.SessionDescription
	added      []webrtc.ICECandidateInit
	tracks     int
	closed     bool

	candidateFn func(*webrtc.ICECandidateInit)
	stateFn     func(webrtc.PeerConnectionState)
}

func (f *fakeLink) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeLink) callSequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeLink) addedCandidates() []webrtc.ICECandidateInit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]webrtc.ICECandidateInit, len(f.added))
	copy(out, f.added)
	return out
}

func (f *fakeLink) CreateOffer(cfg OfferConfig) (webrtc.SessionDescription, error) {
	f.record("createOffer")
	if f.createOfferErr != nil {
		return webrtc.SessionDescription{}, f.createOfferErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: f.offerSDP}, nil
}

func (f *fakeLink) CreateAnswer() (webrtc.SessionDescription, error) {
	f.record("createAnswer")
	if f.createAnswerErr != nil {
		return webrtc.SessionDescription{}, f.createAnswerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: f.answerSDP}, nil
}

func (f *fakeLink) SetLocalDescription(desc webrtc.SessionDescription) error {
	f.record("setLocalDescription")
	if f.setLocalErr != nil {
		return f.setLocalErr
	}
	f.mu.Lock()
	f.localDesc = &desc
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) SetRemoteDescription(desc webrtc.SessionDescription) error {
	f.record("setRemoteDescription")
	if f.setRemoteErr != nil {
		return f.setRemoteErr
	}
	f.mu.Lock()
	f.remoteDesc = &desc
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	f.record("addICECandidate")
	if f.addCandidateErr != nil {
		return f.addCandidateErr
	}
	f.mu.Lock()
	f.added = append(f.added, candidate)
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) AddTrack(track webrtc.TrackLocal) error {
	f.record("addTrack")
	f.mu.Lock()
	f.tracks++
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	f.candidateFn = fn
}

func (f *fakeLink) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	f.stateFn = fn
}

func (f *fakeLink) Close() error {
	f.record("close")
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// emitCandidate simulates the transport discovering a candidate (nil marks
// the end of gathering).
func (f *fakeLink) emitCandidate(c *webrtc.ICECandidateInit) {
	f.candidateFn(c)
}

// setConnectionState simulates a transport connection-state transition.
func (f *fakeLink) setConnectionState(state webrtc.PeerConnectionState) {
	f.stateFn(state)
}

func candidate(id string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: id}
}
